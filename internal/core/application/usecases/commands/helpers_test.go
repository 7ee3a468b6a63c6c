package commands_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/clock"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

var testPolicy = order.DispatchPolicy{
	RequestTTL: 90 * time.Second,
	MaxRounds:  3,
	Deadline:   10 * time.Minute,
	MaxFanOut:  5,
}

var fastRetry = commands.RetryPolicy{
	MaxRetries:      3,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
}

// Mock implementations for testing.
type MockOrderStore struct {
	mock.Mock
}

func (m *MockOrderStore) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if fn, ok := args.Get(0).(func(context.Context, kernel.UUID) *order.Order); ok {
		return fn(ctx, id), args.Error(1)
	}
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderStore) Create(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderStore) CompareAndSwap(ctx context.Context, o *order.Order, expectedVersion int64) error {
	args := m.Called(ctx, o, expectedVersion)
	return args.Error(0)
}

func (m *MockOrderStore) ListNonTerminal(ctx context.Context, after *kernel.UUID, limit int) ([]*order.Order, error) {
	args := m.Called(ctx, after, limit)
	orders, _ := args.Get(0).([]*order.Order)
	return orders, args.Error(1)
}

func (m *MockOrderStore) Subscribe(ctx context.Context, filter ports.OrderFilter) (<-chan *order.Order, error) {
	args := m.Called(ctx, filter)
	ch, _ := args.Get(0).(<-chan *order.Order)
	return ch, args.Error(1)
}

type MockCourierRepository struct {
	mock.Mock
}

func (m *MockCourierRepository) Add(ctx context.Context, c *courier.Courier) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCourierRepository) Update(ctx context.Context, c *courier.Courier) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockCourierRepository) Get(ctx context.Context, id kernel.UUID) (*courier.Courier, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*courier.Courier)
	return c, args.Error(1)
}

func (m *MockCourierRepository) ListAvailable(ctx context.Context, mode courier.ServiceMode) ([]*courier.Courier, error) {
	args := m.Called(ctx, mode)
	cs, _ := args.Get(0).([]*courier.Courier)
	return cs, args.Error(1)
}

type MockPaymentPort struct {
	mock.Mock
}

func (m *MockPaymentPort) Refund(ctx context.Context, orderID kernel.UUID, amount kernel.Money) (ports.SettlementResult, error) {
	args := m.Called(ctx, orderID, amount)
	return args.Get(0).(ports.SettlementResult), args.Error(1)
}

type MockDispatchStarter struct {
	mock.Mock
}

func (m *MockDispatchStarter) Start(ctx context.Context, orderID kernel.UUID) {
	m.Called(ctx, orderID)
}

// recordedEvents collects event names per committed write.
type recordedEvents struct {
	mu    sync.Mutex
	names []string
}

func (r *recordedEvents) Dispatch(_ context.Context, _ *order.Order, events []order.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range events {
		r.names = append(r.names, e.EventName())
	}
}

func (r *recordedEvents) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

// fixedCodes hands out the same pickup and delivery codes for every order.
type fixedCodes struct {
	mu   sync.Mutex
	next int
}

func (f *fixedCodes) NewCode() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	codes := []string{"4821", "1357"}
	c := codes[f.next%len(codes)]
	f.next++
	return c, nil
}

// env wires handlers against the in-memory adapters.
type env struct {
	store    *memory.OrderStore
	couriers *memory.CourierRepository
	payments *memory.PaymentLedger
	clock    *clock.Fake
	events   *recordedEvents
	updater  *commands.OrderUpdater
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    memory.NewOrderStore(),
		couriers: memory.NewCourierRepository(),
		payments: memory.NewPaymentLedger(),
		clock:    clock.NewFake(baseTime),
		events:   &recordedEvents{},
	}
	e.updater = commands.NewOrderUpdater(e.store, e.events, fastRetry, nil)
	return e
}

func (e *env) broadcaster() *commands.BroadcastDeliveryCommandHandler {
	return commands.NewBroadcastDeliveryCommandHandler(e.updater, e.store, e.couriers, testPolicy, e.clock, nil, zerolog.Nop())
}

func (e *env) get(t *testing.T, id kernel.UUID) *order.Order {
	t.Helper()
	o, err := e.store.Get(context.Background(), id)
	require.NoError(t, err)
	return o
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

func admin(t *testing.T) order.Actor {
	return actor(t, kernel.NewUUID(), order.RoleAdmin)
}

func placement(t *testing.T, category order.Category) order.Placement {
	t.Helper()
	return order.Placement{
		CustomerID: kernel.NewUUID(),
		VendorID:   kernel.NewUUID(),
		Category:   category,
		Items: []order.Item{
			{SKU: "sku-1", Name: "Jollof rice", Quantity: 2, UnitPrice: money(t, 1000)},
		},
		DeliveryFee:      money(t, 250),
		PaymentMethod:    order.PaymentCard,
		RequiresDelivery: category != order.CategoryFlight,
	}
}

// placeOrder stores a new order directly, bypassing the create handler.
func (e *env) placeOrder(t *testing.T, category order.Category) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), placement(t, category), e.clock.Now())
	require.NoError(t, err)
	o.PullEvents()
	require.NoError(t, e.store.Create(context.Background(), o))
	return o
}

// preparingOrder stores a retail order in Preparing with dispatch open.
func (e *env) preparingOrder(t *testing.T) *order.Order {
	t.Helper()
	o := e.placeOrder(t, order.CategoryRetail)
	v := actor(t, o.VendorID(), order.RoleVendor)
	require.NoError(t, o.ChangeStatus(order.Confirmed, v, e.clock.Now()))
	require.NoError(t, o.ChangeStatus(order.Preparing, v, e.clock.Now()))
	require.NoError(t, o.OpenDispatch(e.clock.Now()))
	o.PullEvents()
	require.NoError(t, e.store.CompareAndSwap(context.Background(), o, o.Version()))
	return o
}

// onlineCourier registers an active, online courier.
func (e *env) onlineCourier(t *testing.T, mode courier.ServiceMode, team *kernel.UUID) *courier.Courier {
	t.Helper()
	c, err := courier.NewCourier(kernel.NewUUID(), "Tunde", mode, team)
	require.NoError(t, err)
	require.NoError(t, c.GoOnline(e.clock.Now()))
	require.NoError(t, e.couriers.Add(context.Background(), c))
	return c
}

// assignedOrder broadcasts o to a fresh courier who accepts it.
func (e *env) assignedOrder(t *testing.T) (*order.Order, *courier.Courier) {
	t.Helper()
	o := e.preparingOrder(t)
	c := e.onlineCourier(t, courier.ModeDelivery, nil)
	ctx := context.Background()

	cmd, err := commands.NewBroadcastDeliveryCommand(o.ID())
	require.NoError(t, err)
	_, err = e.broadcaster().Handle(ctx, cmd)
	require.NoError(t, err)

	respond, err := commands.NewRespondDeliveryRequestCommand(o.ID(), c.ID(), order.DecisionAccept)
	require.NoError(t, err)
	outcome, err := commands.NewRespondDeliveryRequestCommandHandler(e.updater, &fixedCodes{}, e.clock, nil).Handle(ctx, respond)
	require.NoError(t, err)
	require.Equal(t, order.OutcomeAccepted, outcome)
	return e.get(t, o.ID()), c
}

// deliveredOrder walks an assigned order through both handovers.
func (e *env) deliveredOrder(t *testing.T) *order.Order {
	t.Helper()
	o, c := e.assignedOrder(t)
	handler := commands.NewVerifyHandoverCommandHandler(e.updater, e.clock)
	courierActor := actor(t, c.ID(), order.RoleCourier)
	pickup, delivery := o.HandoverCodes()

	for _, step := range []struct {
		phase order.HandoverPhase
		code  string
	}{{order.PhasePickup, pickup}, {order.PhaseDelivery, delivery}} {
		cmd, err := commands.NewVerifyHandoverCommand(o.ID(), step.phase, step.code, courierActor)
		require.NoError(t, err)
		_, err = handler.Handle(context.Background(), cmd)
		require.NoError(t, err)
	}
	o = e.get(t, o.ID())
	require.Equal(t, order.Delivered, o.Status())
	return o
}
