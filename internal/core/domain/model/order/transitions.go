package order

import (
	"slices"
	"time"
)

// edge is one declared move of the status machine.
//
// Managed edges belong to a dedicated operation (dispatch, release, handover,
// refund) and are refused by ChangeStatus. Guards run after the role and
// ownership checks.
type edge struct {
	from    Status
	to      Status
	roles   []Role
	managed bool
	guard   func(o *Order, actor Actor) error
}

var (
	courierOrAdmin = []Role{RoleCourier, RoleAdmin}
	vendorOrAdmin  = []Role{RoleVendor, RoleAdmin}
)

// getTransitionTable returns the declared edges per category.
// Cancellation is handled by Cancel and is not listed here.
func getTransitionTable() map[Category][]edge {
	return map[Category][]edge{
		CategoryRetail: {
			{from: Pending, to: Confirmed, roles: vendorOrAdmin},
			{from: Confirmed, to: Preparing, roles: vendorOrAdmin},
			{from: Confirmed, to: OutForDelivery, roles: courierOrAdmin, managed: true},
			{from: Preparing, to: OutForDelivery, roles: courierOrAdmin, managed: true},
			{from: Preparing, to: Delivered, roles: vendorOrAdmin, guard: requireNoCourierDelivery},
			{from: OutForDelivery, to: Delivered, roles: courierOrAdmin, guard: requireDeliveryVerified},
			{from: OutForDelivery, to: Preparing, roles: courierOrAdmin, managed: true},
			{from: Delivered, to: Completed, roles: []Role{RoleCustomer, RoleAdmin, RoleSystem}},
			{from: Delivered, to: RefundRequested, roles: []Role{RoleCustomer, RoleAdmin}, managed: true},
			{from: Completed, to: RefundRequested, roles: []Role{RoleCustomer, RoleAdmin}, managed: true},
			{from: RefundRequested, to: RefundApproved, roles: []Role{RoleSystem}, managed: true},
			{from: RefundRequested, to: RefundRejected, roles: []Role{RoleSystem}, managed: true},
			{from: RefundApproved, to: Refunded, roles: []Role{RoleSystem, RoleAdmin}, managed: true},
			{from: RefundRejected, to: Completed, roles: []Role{RoleSystem, RoleAdmin}},
		},
		CategoryRide: {
			{from: RideRequested, to: RideAccepted, roles: courierOrAdmin, managed: true},
			{from: RideAccepted, to: RideStarted, roles: courierOrAdmin, guard: requirePickupVerified},
			{from: RideStarted, to: RideCompleted, roles: courierOrAdmin, guard: requireDeliveryVerified},
			{from: RideAccepted, to: RideRequested, roles: courierOrAdmin, managed: true},
		},
		CategoryFlight: {
			{from: Pending, to: TicketIssued, roles: vendorOrAdmin},
			{from: TicketIssued, to: FlightConfirmed, roles: []Role{RoleVendor, RoleAdmin, RoleSystem}},
		},
	}
}

// getCancelPolicy lists the statuses from which each role may cancel.
// Admin and System may cancel from any non-terminal status.
func getCancelPolicy() map[Role][]Status {
	return map[Role][]Status{
		RoleCustomer: {Pending, Confirmed, RideRequested, RideAccepted},
		RoleVendor:   {Pending, Confirmed, Preparing, TicketIssued},
		RoleCourier:  {RideAccepted, RideStarted},
	}
}

func findEdge(c Category, from, to Status) (edge, bool) {
	for _, e := range getTransitionTable()[c] {
		if e.from == from && e.to == to {
			return e, true
		}
	}
	return edge{}, false
}

// AllowedTargets lists the statuses reachable from the current status through
// ChangeStatus, ignoring actor checks.
func (o *Order) AllowedTargets() []Status {
	var targets []Status
	for _, e := range getTransitionTable()[o.category] {
		if e.from == o.status && !e.managed {
			targets = append(targets, e.to)
		}
	}
	return targets
}

// ChangeStatus moves the order along a declared, unmanaged edge.
//
// Returns:
//   - *TransitionError (ErrInvalidTransition) when the edge is not declared,
//     is managed by another operation, or its guard refuses
//   - *AuthorizationError (ErrUnauthorizedActor) when the actor's role is not
//     listed for the edge or the actor does not own the order
//
// Cancelled is not reachable here; use Cancel, which requires a reason.
func (o *Order) ChangeStatus(to Status, actor Actor, now time.Time) error {
	return o.ChangeStatusWithReason(to, actor, "", now)
}

// ChangeStatusWithReason is ChangeStatus with a reason kept in the history entry.
func (o *Order) ChangeStatusWithReason(to Status, actor Actor, reason string, now time.Time) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if err := actor.Validate(); err != nil {
		return err
	}
	if to == Cancelled {
		return newTransitionError(o.category, o.status, to, "use Cancel with a reason")
	}
	e, err := o.checkTransition(to, actor)
	if err != nil {
		return err
	}
	if e.managed {
		return newTransitionError(o.category, o.status, to, "reachable only through its dedicated operation")
	}
	o.applyTransition(to, actor, reason, now)
	return nil
}

// checkTransition validates a move without applying it.
func (o *Order) checkTransition(to Status, actor Actor) (edge, error) {
	e, err := o.checkEdge(to, actor)
	if err != nil {
		return edge{}, err
	}
	if err = o.authorize(actor, "move the order to "+to.String()); err != nil {
		return edge{}, err
	}
	if e.guard != nil {
		if err = e.guard(o, actor); err != nil {
			return edge{}, err
		}
	}
	return e, nil
}

// checkEdge checks that the edge exists and lists the actor's role. It skips
// ownership, which dispatch establishes through the delivery request instead.
func (o *Order) checkEdge(to Status, actor Actor) (edge, error) {
	if o.status.IsTerminal() {
		return edge{}, newTransitionError(o.category, o.status, to, "order is in a terminal status")
	}
	e, ok := findEdge(o.category, o.status, to)
	if !ok {
		return edge{}, newTransitionError(o.category, o.status, to, "")
	}
	if !slices.Contains(e.roles, actor.Role()) {
		return edge{}, newAuthorizationError(actor, "move the order to "+to.String())
	}
	return e, nil
}

// authorize checks that an identified actor owns the order in its role.
func (o *Order) authorize(actor Actor, operation string) error {
	switch actor.Role() {
	case RoleAdmin, RoleSystem:
		return nil
	case RoleCustomer:
		if actor.ID().IsEqual(o.customerID) {
			return nil
		}
	case RoleVendor:
		if actor.ID().IsEqual(o.vendorID) {
			return nil
		}
	case RoleCourier:
		if o.IsAssignedTo(actor.ID()) {
			return nil
		}
	case RoleUnknown:
	}
	return newAuthorizationError(actor, operation)
}

// applyTransition records the move. Callers have already validated it.
// History timestamps never go backwards: a clock behind the last entry is
// clamped to that entry's time.
func (o *Order) applyTransition(to Status, actor Actor, reason string, now time.Time) {
	at := now
	if n := len(o.history); n > 0 && at.Before(o.history[n-1].At) {
		at = o.history[n-1].At
	}

	from := o.status
	o.status = to
	o.history = append(o.history, StatusEntry{
		Status:    to,
		At:        at,
		ActorRole: actor.Role(),
		ActorID:   actor.IDPtr(),
		Reason:    reason,
	})
	o.record(StatusChanged{
		eventMeta: o.meta(at),
		From:      from,
		To:        to,
		ActorRole: actor.Role(),
		ActorID:   actor.IDPtr(),
		Reason:    reason,
	})
	o.touch()
}

func requireNoCourierDelivery(o *Order, _ Actor) error {
	if o.requiresDelivery {
		return newTransitionError(o.category, o.status, Delivered, "order is delivered by a courier")
	}
	return nil
}

func requireDeliveryVerified(o *Order, actor Actor) error {
	if actor.Role() == RoleCourier && o.deliveryConfirmedAt == nil {
		return newTransitionError(o.category, o.status, o.category.deliveryTarget(), "delivery code not verified")
	}
	return nil
}

func requirePickupVerified(o *Order, actor Actor) error {
	if actor.Role() == RoleCourier && o.pickedUpAt == nil {
		return newTransitionError(o.category, o.status, RideStarted, "pickup code not verified")
	}
	return nil
}
