package redisbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/adapters/out/redisbus"
	"orderflow/internal/core/application/notification"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrder(t *testing.T) *order.Order {
	t.Helper()
	price, err := kernel.NewMoney(900, "USD")
	require.NoError(t, err)
	fee, err := kernel.NewMoney(100, "USD")
	require.NoError(t, err)
	o, err := order.NewOrder(kernel.NewUUID(), order.Placement{
		CustomerID:       kernel.NewUUID(),
		VendorID:         kernel.NewUUID(),
		Category:         order.CategoryRetail,
		Items:            []order.Item{{SKU: "sku-1", Name: "Chin chin", Quantity: 1, UnitPrice: price}},
		DeliveryFee:      fee,
		PaymentMethod:    order.PaymentCard,
		RequiresDelivery: true,
	}, baseTime)
	require.NoError(t, err)
	return o
}

func TestNotifier_Notify(t *testing.T) {
	ctx := context.Background()
	orderID := kernel.NewUUID()
	msg := notification.Notification{
		Title:     "Order update",
		Body:      "Your order is on its way",
		Intent:    notification.OrderTracking{OrderID: orderID, CourierID: kernel.NewUUID()},
		CreatedAt: baseTime,
	}

	t.Run("should publish on the recipient channel", func(t *testing.T) {
		bus := newFakeRedis()
		userID := kernel.NewUUID()

		require.NoError(t, redisbus.NewNotifier(bus).Notify(ctx, notification.User(userID), msg))

		sent := bus.published()
		require.Len(t, sent, 1)
		assert.Equal(t, "orderflow:notify:user:"+userID.String(), sent[0].channel)
		decoded, err := notification.Decode(sent[0].payload)
		require.NoError(t, err)
		assert.Equal(t, msg.Title, decoded.Title)
		assert.Equal(t, notification.KindOrderTracking, decoded.Intent.Kind())
	})

	t.Run("should return publish failures", func(t *testing.T) {
		bus := newFakeRedis()
		bus.publishErr = errors.New("connection refused")

		err := redisbus.NewNotifier(bus).Notify(ctx, notification.Admins, msg)

		require.ErrorIs(t, err, bus.publishErr)
	})
}

func TestEventPublisher_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("should wrap each event in an envelope", func(t *testing.T) {
		bus := newFakeRedis()
		o := newOrder(t)
		events := o.PullEvents()
		require.NotEmpty(t, events)

		require.NoError(t, redisbus.NewEventPublisher(bus).Publish(ctx, events...))

		sent := bus.published()
		require.Len(t, sent, len(events))
		var env redisbus.Envelope
		require.NoError(t, json.Unmarshal(sent[0].payload, &env))
		assert.Equal(t, redisbus.EventsChannel, sent[0].channel)
		assert.Equal(t, "order.placed", env.Name)
		assert.Equal(t, o.ID().String(), env.OrderID)
		assert.True(t, env.OccurredAt.Equal(baseTime))
		assert.Contains(t, string(env.Payload), o.VendorID().String())
	})

	t.Run("should report every failed event", func(t *testing.T) {
		bus := newFakeRedis()
		bus.publishErr = errors.New("connection refused")
		o := newOrder(t)

		err := redisbus.NewEventPublisher(bus).Publish(ctx, o.PullEvents()...)

		require.ErrorIs(t, err, bus.publishErr)
	})
}

func TestFeedRelay_Run(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memory.NewOrderStore()
	bus := newFakeRedis()
	done := make(chan error, 1)
	relay := redisbus.NewFeedRelay(store, bus, zerolog.Nop())
	go func() { done <- relay.Run(ctx) }()

	o := newOrder(t)
	require.NoError(t, store.Create(context.Background(), o))
	// The relay may subscribe after the first write; keep writing until it sees one.
	require.Eventually(t, func() bool {
		_ = store.CompareAndSwap(context.Background(), o, o.Version())
		return len(bus.published()) > 0
	}, time.Second, 10*time.Millisecond)

	sent := bus.published()[0]
	var snap redisbus.Snapshot
	require.NoError(t, json.Unmarshal(sent.payload, &snap))
	assert.Equal(t, redisbus.OrderChannel(o.ID().String()), sent.channel)
	assert.Equal(t, o.ID().String(), snap.ID)
	assert.Equal(t, order.Pending.String(), snap.Status)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
