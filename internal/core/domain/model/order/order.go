package order

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

// Item is one line of an order.
type Item struct {
	SKU       string
	Name      string
	Quantity  int
	UnitPrice kernel.Money
}

func (i Item) Validate() error {
	var err error
	if strings.TrimSpace(i.SKU) == "" {
		err = errors.Join(err, errs.NewValueIsRequiredError("item sku"))
	}
	if i.Quantity <= 0 {
		err = errors.Join(err, errs.NewValueIsOutOfRangeError("item quantity", i.Quantity, 1, "unbounded"))
	}
	return errors.Join(err, i.UnitPrice.Validate())
}

// StatusEntry is one append-only history record.
type StatusEntry struct {
	Status    Status
	At        time.Time
	ActorRole Role
	ActorID   *kernel.UUID
	Reason    string
}

// Cancellation records who cancelled the order and why.
type Cancellation struct {
	By      Role
	ActorID *kernel.UUID
	Reason  string
	At      time.Time
}

// DriverLocation is the last position reported by the assigned courier.
type DriverLocation struct {
	Location  kernel.Location
	UpdatedAt time.Time
}

// RuleNotice remembers that an advisory rule fired for a status entry.
type RuleNotice struct {
	Rule        string
	StatusSince time.Time
}

// Placement carries what a customer submits when placing an order.
type Placement struct {
	CustomerID       kernel.UUID
	VendorID         kernel.UUID
	Category         Category
	Items            []Item
	DeliveryFee      kernel.Money
	PaymentMethod    PaymentMethod
	RequiresDelivery bool
}

// Order is the aggregate root of the marketplace lifecycle: status history,
// courier dispatch ledger, handover codes, refund and driver location.
//
// Order follows these invariants:
//   - status only moves along edges declared for its category
//   - at most one delivery request is accepted, and assignedCourierID equals
//     its courier
//   - handover codes are generated once and never regenerated
//   - history only grows and its timestamps never decrease
//   - a refund is Approved only when vendor and admin both approved
//
// Every mutation marks the order dirty and may record events; stores persist
// it with a compare-and-swap on version.
type Order struct {
	id               kernel.UUID
	customerID       kernel.UUID
	vendorID         kernel.UUID
	category         Category
	items            []Item
	total            kernel.Money
	deliveryFee      kernel.Money
	paymentMethod    PaymentMethod
	requiresDelivery bool
	createdAt        time.Time

	status  Status
	history []StatusEntry

	assignedCourierID *kernel.UUID
	requests          []DeliveryRequest
	dispatch          DispatchState

	pickupCode          string
	deliveryCode        string
	pickedUpAt          *time.Time
	deliveryConfirmedAt *time.Time

	refund              *RefundInfo
	reviewExtendedUntil *time.Time
	driverLocation      *DriverLocation
	cancellation        *Cancellation
	ruleNotices         []RuleNotice

	version int64
	events  []Event
	dirty   bool

	isConstructed bool
}

// NewOrder places an order in its category's initial status.
//
// The total is the sum of the item lines plus the delivery fee, all in one
// currency. Flight orders never require courier delivery and ride orders
// always do.
//
// Example:
//
//	o, err := order.NewOrder(kernel.NewUUID(), order.Placement{
//	    CustomerID: customerID, VendorID: vendorID, Category: order.CategoryRetail,
//	    Items: items, DeliveryFee: fee, PaymentMethod: order.PaymentCard, RequiresDelivery: true,
//	}, now)
func NewOrder(id kernel.UUID, p Placement, now time.Time) (*Order, error) {
	o := &Order{
		category:         p.Category,
		paymentMethod:    p.PaymentMethod,
		requiresDelivery: p.RequiresDelivery,
		createdAt:        now,
		isConstructed:    true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setParties(p.CustomerID, p.VendorID),
		p.Category.Validate(),
		p.PaymentMethod.Validate(),
		o.setItems(p.Items, p.DeliveryFee),
	); err != nil {
		return nil, err
	}

	switch p.Category {
	case CategoryRide:
		o.requiresDelivery = true
	case CategoryFlight:
		o.requiresDelivery = false
	case CategoryUnknown, CategoryRetail:
	}

	customer, err := NewActor(p.CustomerID, RoleCustomer)
	if err != nil {
		return nil, err
	}
	o.status = p.Category.InitialStatus()
	o.history = []StatusEntry{{Status: o.status, At: now, ActorRole: RoleCustomer, ActorID: customer.IDPtr()}}
	o.record(OrderPlaced{
		eventMeta:  o.meta(now),
		CustomerID: o.customerID,
		VendorID:   o.vendorID,
		Category:   o.category,
		Total:      o.total,
	})
	o.touch()

	return o, nil
}

// Validate ensures the Order was created through NewOrder or Restore.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID                     { return o.id }
func (o *Order) CustomerID() kernel.UUID             { return o.customerID }
func (o *Order) VendorID() kernel.UUID               { return o.vendorID }
func (o *Order) Category() Category                  { return o.category }
func (o *Order) Total() kernel.Money                 { return o.total }
func (o *Order) DeliveryFee() kernel.Money           { return o.deliveryFee }
func (o *Order) PaymentMethod() PaymentMethod        { return o.paymentMethod }
func (o *Order) RequiresDelivery() bool              { return o.requiresDelivery }
func (o *Order) CreatedAt() time.Time                { return o.createdAt }
func (o *Order) Status() Status                      { return o.status }
func (o *Order) Version() int64                      { return o.version }
func (o *Order) Dispatch() DispatchState             { return o.dispatch.clone() }
func (o *Order) Cancellation() *Cancellation         { return cloneCancellation(o.cancellation) }
func (o *Order) DriverLocation() *DriverLocation     { return cloneDriverLocation(o.driverLocation) }
func (o *Order) Refund() *RefundInfo                 { return o.refund.clone() }
func (o *Order) AssignedCourierID() *kernel.UUID     { return cloneUUID(o.assignedCourierID) }
func (o *Order) PickedUpAt() *time.Time              { return cloneTime(o.pickedUpAt) }
func (o *Order) DeliveryConfirmedAt() *time.Time     { return cloneTime(o.deliveryConfirmedAt) }
func (o *Order) ReviewExtendedUntil() *time.Time     { return cloneTime(o.reviewExtendedUntil) }
func (o *Order) Items() []Item                       { return append([]Item(nil), o.items...) }
func (o *Order) History() []StatusEntry              { return cloneHistory(o.history) }
func (o *Order) DeliveryRequests() []DeliveryRequest { return cloneRequests(o.requests) }

// HandoverCodes returns the pickup and delivery codes, empty until a courier is assigned.
func (o *Order) HandoverCodes() (pickup, delivery string) {
	return o.pickupCode, o.deliveryCode
}

// IsAssignedTo reports whether courierID currently holds the order.
func (o *Order) IsAssignedTo(courierID kernel.UUID) bool {
	return o.assignedCourierID != nil && o.assignedCourierID.IsEqual(courierID)
}

// StatusSince is when the order entered its current status.
func (o *Order) StatusSince() time.Time {
	return o.history[len(o.history)-1].At
}

// EnteredAt returns when the order last entered s.
func (o *Order) EnteredAt(s Status) (time.Time, bool) {
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].Status == s {
			return o.history[i].At, true
		}
	}
	return time.Time{}, false
}

// HasChanges reports whether the order was mutated since it was loaded or committed.
func (o *Order) HasChanges() bool {
	return o.dirty
}

// MarkCommitted is called by stores once a write succeeded at version.
func (o *Order) MarkCommitted(version int64) {
	o.version = version
	o.dirty = false
}

// PullEvents returns and clears the recorded events.
func (o *Order) PullEvents() []Event {
	events := o.events
	o.events = nil
	return events
}

func (o *Order) record(e Event) {
	o.events = append(o.events, e)
}

func (o *Order) touch() {
	o.dirty = true
}

func (o *Order) meta(at time.Time) eventMeta {
	return eventMeta{OrderID: o.id, At: at}
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setParties(customerID, vendorID kernel.UUID) error {
	if err := errors.Join(customerID.Validate(), vendorID.Validate()); err != nil {
		return err
	}
	o.customerID = customerID
	o.vendorID = vendorID
	return nil
}

func (o *Order) setItems(items []Item, deliveryFee kernel.Money) error {
	if len(items) == 0 {
		return errs.NewValueIsRequiredError("items")
	}
	if err := deliveryFee.Validate(); err != nil {
		return errs.NewValueIsRequiredErrorWithCause("delivery fee", err)
	}

	total := deliveryFee
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		line, err := item.UnitPrice.Multiply(item.Quantity)
		if err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
		if total, err = total.Add(line); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	o.items = append([]Item(nil), items...)
	o.deliveryFee = deliveryFee
	o.total = total
	return nil
}
