package order

import (
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Role is the capacity in which an actor acts on an order.
type Role int

const (
	RoleUnknown Role = iota
	RoleCustomer
	RoleVendor
	// RoleCourier covers delivery couriers and ride riders.
	RoleCourier
	RoleAdmin
	// RoleSystem is the scheduler and the workflows acting on their own.
	RoleSystem
)

func getRoleStrings() map[Role]string {
	return map[Role]string{
		RoleUnknown:  "unknown",
		RoleCustomer: "customer",
		RoleVendor:   "vendor",
		RoleCourier:  "courier",
		RoleAdmin:    "admin",
		RoleSystem:   "system",
	}
}

func (r Role) String() string {
	if str, ok := getRoleStrings()[r]; ok {
		return str
	}
	return "unknown"
}

func ParseRole(name string) (Role, error) {
	for r, str := range getRoleStrings() {
		if str == name && r != RoleUnknown {
			return r, nil
		}
	}
	return RoleUnknown, errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%q is not a valid role", name))
}

func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Actor is who performs an operation. System actors carry no identifier.
type Actor struct {
	id   kernel.UUID
	role Role
}

// NewActor builds an identified actor. Use SystemActor for the scheduler.
func NewActor(id kernel.UUID, role Role) (Actor, error) {
	if role == RoleUnknown || role == RoleSystem || role.String() == "unknown" {
		return Actor{}, errs.NewValueIsInvalidErrorWithCause("role is invalid", fmt.Errorf("%s cannot be an identified actor", role))
	}
	if err := id.Validate(); err != nil {
		return Actor{}, err
	}
	return Actor{id: id, role: role}, nil
}

func SystemActor() Actor {
	return Actor{role: RoleSystem}
}

func (a Actor) ID() kernel.UUID {
	return a.id
}

func (a Actor) Role() Role {
	return a.role
}

// IDPtr returns nil for the system actor.
func (a Actor) IDPtr() *kernel.UUID {
	if a.id.IsZero() {
		return nil
	}
	id := a.id
	return &id
}

func (a Actor) Validate() error {
	if a.role == RoleSystem {
		return nil
	}
	if a.role == RoleUnknown || a.role.String() == "unknown" {
		return errs.NewValueIsRequiredError("actor")
	}
	return a.id.Validate()
}

func (a Actor) String() string {
	if a.role == RoleSystem {
		return "system"
	}
	return a.role.String() + ":" + a.id.String()
}
