// Package courier provides the Courier aggregate: the couriers and ride riders
// that dispatch may offer orders to.
//
// The package includes:
//   - Courier: The aggregate root that manages identity, account status and availability
//   - ServiceMode: Which order categories a courier takes
//
// Key business rules:
//   - Couriers must have a valid unique identifier and a name
//   - Only Active and Online couriers in a matching mode are offered orders
//   - A courier either belongs to one vendor's private team or to the independent pool
//
// The package follows Domain-Driven Design principles, providing rich domain
// behavior, encapsulation, and validation to ensure business rules are enforced.
package courier
