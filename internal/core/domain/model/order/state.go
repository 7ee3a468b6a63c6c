package order

import (
	"errors"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// State is a plain snapshot of an Order used by stores. Slices and pointers in
// a State never alias the Order they were taken from.
type State struct {
	ID                  kernel.UUID
	CustomerID          kernel.UUID
	VendorID            kernel.UUID
	Category            Category
	Items               []Item
	Total               kernel.Money
	DeliveryFee         kernel.Money
	PaymentMethod       PaymentMethod
	RequiresDelivery    bool
	CreatedAt           time.Time
	Status              Status
	History             []StatusEntry
	AssignedCourierID   *kernel.UUID
	Requests            []DeliveryRequest
	Dispatch            DispatchState
	PickupCode          string
	DeliveryCode        string
	PickedUpAt          *time.Time
	DeliveryConfirmedAt *time.Time
	Refund              *RefundInfo
	ReviewExtendedUntil *time.Time
	DriverLocation      *DriverLocation
	Cancellation        *Cancellation
	RuleNotices         []RuleNotice
	Version             int64
}

// State returns a deep copy of the order's persistent fields. Pending events
// are not part of the snapshot.
func (o *Order) State() State {
	return State{
		ID:                  o.id,
		CustomerID:          o.customerID,
		VendorID:            o.vendorID,
		Category:            o.category,
		Items:               o.Items(),
		Total:               o.total,
		DeliveryFee:         o.deliveryFee,
		PaymentMethod:       o.paymentMethod,
		RequiresDelivery:    o.requiresDelivery,
		CreatedAt:           o.createdAt,
		Status:              o.status,
		History:             cloneHistory(o.history),
		AssignedCourierID:   cloneUUID(o.assignedCourierID),
		Requests:            cloneRequests(o.requests),
		Dispatch:            o.dispatch.clone(),
		PickupCode:          o.pickupCode,
		DeliveryCode:        o.deliveryCode,
		PickedUpAt:          cloneTime(o.pickedUpAt),
		DeliveryConfirmedAt: cloneTime(o.deliveryConfirmedAt),
		Refund:              o.refund.clone(),
		ReviewExtendedUntil: cloneTime(o.reviewExtendedUntil),
		DriverLocation:      cloneDriverLocation(o.driverLocation),
		Cancellation:        cloneCancellation(o.cancellation),
		RuleNotices:         o.RuleNotices(),
		Version:             o.version,
	}
}

// Restore rebuilds an Order from a stored snapshot. The restored order has no
// pending events and no changes.
func Restore(s State) (*Order, error) {
	var err error
	if len(s.History) == 0 {
		err = errs.NewValueIsRequiredError("status history")
	}
	if err = errors.Join(err, s.ID.Validate(), s.CustomerID.Validate(), s.VendorID.Validate(),
		s.Category.Validate(), s.Status.Validate(), s.Total.Validate()); err != nil {
		return nil, err
	}
	if s.Version < 0 {
		return nil, errs.NewValueIsOutOfRangeError("version", s.Version, 0, "unbounded")
	}

	return &Order{
		id:                  s.ID,
		customerID:          s.CustomerID,
		vendorID:            s.VendorID,
		category:            s.Category,
		items:               append([]Item(nil), s.Items...),
		total:               s.Total,
		deliveryFee:         s.DeliveryFee,
		paymentMethod:       s.PaymentMethod,
		requiresDelivery:    s.RequiresDelivery,
		createdAt:           s.CreatedAt,
		status:              s.Status,
		history:             cloneHistory(s.History),
		assignedCourierID:   cloneUUID(s.AssignedCourierID),
		requests:            cloneRequests(s.Requests),
		dispatch:            s.Dispatch.clone(),
		pickupCode:          s.PickupCode,
		deliveryCode:        s.DeliveryCode,
		pickedUpAt:          cloneTime(s.PickedUpAt),
		deliveryConfirmedAt: cloneTime(s.DeliveryConfirmedAt),
		refund:              s.Refund.clone(),
		reviewExtendedUntil: cloneTime(s.ReviewExtendedUntil),
		driverLocation:      cloneDriverLocation(s.DriverLocation),
		cancellation:        cloneCancellation(s.Cancellation),
		ruleNotices:         append([]RuleNotice(nil), s.RuleNotices...),
		version:             s.Version,
		isConstructed:       true,
	}, nil
}

// Clone returns an independent copy, including pending events and the dirty flag.
func (o *Order) Clone() *Order {
	c, err := Restore(o.State())
	if err != nil {
		return nil
	}
	c.events = append([]Event(nil), o.events...)
	c.dirty = o.dirty
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneUUID(id *kernel.UUID) *kernel.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}

func cloneHistory(h []StatusEntry) []StatusEntry {
	if h == nil {
		return nil
	}
	c := make([]StatusEntry, len(h))
	for i, e := range h {
		c[i] = e
		c[i].ActorID = cloneUUID(e.ActorID)
	}
	return c
}

func cloneRequests(rs []DeliveryRequest) []DeliveryRequest {
	if rs == nil {
		return nil
	}
	c := make([]DeliveryRequest, len(rs))
	for i, r := range rs {
		c[i] = r
		c[i].RespondedAt = cloneTime(r.RespondedAt)
		c[i].ClosedAt = cloneTime(r.ClosedAt)
	}
	return c
}

func cloneCancellation(c *Cancellation) *Cancellation {
	if c == nil {
		return nil
	}
	cc := *c
	cc.ActorID = cloneUUID(c.ActorID)
	return &cc
}

func cloneDriverLocation(l *DriverLocation) *DriverLocation {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
