// Package order provides the Order aggregate root of the marketplace: its
// status machine, the courier dispatch ledger, handover codes, the two-party
// refund workflow and the driver's last known location.
//
// The package includes:
//   - Order: the aggregate root, created with NewOrder or rebuilt with Restore
//   - Status and Category: one closed status enum, with a transition table per category
//   - DeliveryRequest: one courier's opportunity window in the dispatch ledger
//   - RefundInfo: vendor and admin approvals plus the overall refund status
//   - Event: facts recorded during mutations, pulled after a successful write
//
// Key business rules:
//   - Status only moves along declared edges and only for permitted actors
//   - Exactly one courier can hold an order; the accept race is decided by
//     the store's compare-and-swap on Version
//   - Handover codes are issued once, on first assignment
//   - Status history is append-only with non-decreasing timestamps
//   - A refund is approved only when vendor and admin both approve; any
//     rejection is final
//
// Order methods never perform I/O. Application handlers load an order, call
// one method, and write it back with the version they read.
package order
