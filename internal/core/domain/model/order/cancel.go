package order

import (
	"slices"
	"time"

	"orderflow/internal/pkg/errs"
)

// Cancel ends the order from any non-terminal status. A reason is required.
//
// Customers, vendors and couriers may only cancel from the statuses listed in
// the cancel policy and only orders they own; admins and the system may cancel
// anything not yet terminal. Every pending delivery request is closed in the
// same write, so later accepts find them terminal.
func (o *Order) Cancel(actor Actor, reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if isBlank(reason) {
		return errs.NewValueIsRequiredError("reason")
	}
	if o.status.IsTerminal() {
		return newTransitionError(o.category, o.status, Cancelled, "order is in a terminal status")
	}

	switch actor.Role() {
	case RoleAdmin, RoleSystem:
	case RoleCustomer, RoleVendor, RoleCourier:
		if !slices.Contains(getCancelPolicy()[actor.Role()], o.status) {
			return newAuthorizationError(actor, "cancel an order in "+o.status.String())
		}
		if err := o.authorize(actor, "cancel the order"); err != nil {
			return err
		}
	case RoleUnknown:
		return newAuthorizationError(actor, "cancel the order")
	}

	o.closePending(ClosedCancelled, now)
	o.cancellation = &Cancellation{
		By:      actor.Role(),
		ActorID: actor.IDPtr(),
		Reason:  reason,
		At:      now,
	}
	o.applyTransition(Cancelled, actor, reason, now)

	return nil
}

// CanCancel reports whether actor would be allowed to cancel right now.
func (o *Order) CanCancel(actor Actor) bool {
	if o.status.IsTerminal() {
		return false
	}
	switch actor.Role() {
	case RoleAdmin, RoleSystem:
		return true
	case RoleCustomer, RoleVendor, RoleCourier:
		return slices.Contains(getCancelPolicy()[actor.Role()], o.status) && o.authorize(actor, "cancel") == nil
	case RoleUnknown:
	}
	return false
}
