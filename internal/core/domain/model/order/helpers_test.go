package order_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var testPolicy = order.DispatchPolicy{
	RequestTTL: 90 * time.Second,
	MaxRounds:  3,
	Deadline:   10 * time.Minute,
	MaxFanOut:  5,
}

// fixedCodes hands out codes in order, wrapping around.
type fixedCodes struct {
	codes []string
	next  int
}

func (f *fixedCodes) NewCode() (string, error) {
	c := f.codes[f.next%len(f.codes)]
	f.next++
	return c, nil
}

func newCodes() *fixedCodes {
	return &fixedCodes{codes: []string{"4821", "1357"}}
}

func money(t *testing.T, amount int64) kernel.Money {
	t.Helper()
	m, err := kernel.NewMoney(amount, "USD")
	require.NoError(t, err)
	return m
}

func actor(t *testing.T, id kernel.UUID, role order.Role) order.Actor {
	t.Helper()
	a, err := order.NewActor(id, role)
	require.NoError(t, err)
	return a
}

func placement(t *testing.T, category order.Category) order.Placement {
	t.Helper()
	return order.Placement{
		CustomerID: kernel.NewUUID(),
		VendorID:   kernel.NewUUID(),
		Category:   category,
		Items: []order.Item{
			{SKU: "sku-1", Name: "Jollof rice", Quantity: 2, UnitPrice: money(t, 1000)},
			{SKU: "sku-2", Name: "Plantain", Quantity: 1, UnitPrice: money(t, 450)},
		},
		DeliveryFee:      money(t, 250),
		PaymentMethod:    order.PaymentCard,
		RequiresDelivery: true,
	}
}

func newOrder(t *testing.T, category order.Category) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), placement(t, category), baseTime)
	require.NoError(t, err)
	o.MarkCommitted(1)
	o.PullEvents()
	return o
}

func vendorOf(t *testing.T, o *order.Order) order.Actor {
	return actor(t, o.VendorID(), order.RoleVendor)
}

func customerOf(t *testing.T, o *order.Order) order.Actor {
	return actor(t, o.CustomerID(), order.RoleCustomer)
}

func admin(t *testing.T) order.Actor {
	return actor(t, kernel.NewUUID(), order.RoleAdmin)
}

// preparingOrder returns a retail order the vendor moved to Preparing.
func preparingOrder(t *testing.T) *order.Order {
	t.Helper()
	o := newOrder(t, order.CategoryRetail)
	v := vendorOf(t, o)
	require.NoError(t, o.ChangeStatus(order.Confirmed, v, baseTime.Add(time.Minute)))
	require.NoError(t, o.ChangeStatus(order.Preparing, v, baseTime.Add(2*time.Minute)))
	o.PullEvents()
	return o
}

// broadcastOrder returns a Preparing order offered to the given couriers.
func broadcastOrder(t *testing.T, couriers ...kernel.UUID) *order.Order {
	t.Helper()
	o := preparingOrder(t)
	offered, err := o.Broadcast(couriers, order.ScopeAll, testPolicy, baseTime.Add(3*time.Minute))
	require.NoError(t, err)
	require.Len(t, offered, len(couriers))
	o.PullEvents()
	return o
}

// assignedOrder returns an Out for Delivery order held by courierID.
func assignedOrder(t *testing.T, courierID kernel.UUID) *order.Order {
	t.Helper()
	o := broadcastOrder(t, courierID)
	outcome, err := o.Respond(courierID, order.DecisionAccept, newCodes(), baseTime.Add(4*time.Minute))
	require.NoError(t, err)
	require.Equal(t, order.OutcomeAccepted, outcome)
	o.PullEvents()
	return o
}

// deliveredOrder returns a retail order delivered through both handover codes.
func deliveredOrder(t *testing.T) *order.Order {
	t.Helper()
	courierID := kernel.NewUUID()
	o := assignedOrder(t, courierID)
	c := actor(t, courierID, order.RoleCourier)
	_, err := o.VerifyHandover(order.PhasePickup, "4821", c, baseTime.Add(5*time.Minute))
	require.NoError(t, err)
	_, err = o.VerifyHandover(order.PhaseDelivery, "1357", c, baseTime.Add(20*time.Minute))
	require.NoError(t, err)
	require.Equal(t, order.Delivered, o.Status())
	o.PullEvents()
	return o
}

func requestFor(t *testing.T, o *order.Order, courierID kernel.UUID) order.DeliveryRequest {
	t.Helper()
	var found *order.DeliveryRequest
	for _, r := range o.DeliveryRequests() {
		if r.CourierID.IsEqual(courierID) {
			found = &r
		}
	}
	require.NotNil(t, found, "no request for courier %s", courierID)
	return *found
}

func eventNames(events []order.Event) []string {
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.EventName())
	}
	return names
}
