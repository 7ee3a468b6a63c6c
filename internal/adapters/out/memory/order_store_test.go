package memory_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"orderflow/internal/adapters/out/memory"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newOrder(t *testing.T) *order.Order {
	t.Helper()
	price, err := kernel.NewMoney(1200, "USD")
	require.NoError(t, err)
	fee, err := kernel.NewMoney(300, "USD")
	require.NoError(t, err)
	o, err := order.NewOrder(kernel.NewUUID(), order.Placement{
		CustomerID:       kernel.NewUUID(),
		VendorID:         kernel.NewUUID(),
		Category:         order.CategoryRetail,
		Items:            []order.Item{{SKU: "sku-1", Name: "Suya", Quantity: 1, UnitPrice: price}},
		DeliveryFee:      fee,
		PaymentMethod:    order.PaymentCard,
		RequiresDelivery: true,
	}, baseTime)
	require.NoError(t, err)
	return o
}

func vendor(t *testing.T, o *order.Order) order.Actor {
	t.Helper()
	a, err := order.NewActor(o.VendorID(), order.RoleVendor)
	require.NoError(t, err)
	return a
}

func TestOrderStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("should store new orders at version 1", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)

		require.NoError(t, store.Create(ctx, o))

		assert.Equal(t, int64(1), o.Version())
		assert.False(t, o.HasChanges())
		got, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, o.State(), got.State())
	})

	t.Run("should refuse to create the same order twice", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))

		err := store.Create(ctx, o)

		require.ErrorIs(t, err, errs.ErrVersionConflict)
	})

	t.Run("should return not found for unknown ids", func(t *testing.T) {
		store := memory.NewOrderStore()

		_, err := store.Get(ctx, kernel.NewUUID())

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
	})

	t.Run("should not leak later mutations into the stored snapshot", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))

		require.NoError(t, o.ChangeStatus(order.Confirmed, vendor(t, o), baseTime.Add(time.Minute)))

		got, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Pending, got.Status())
	})
}

func TestOrderStore_CompareAndSwap(t *testing.T) {
	ctx := context.Background()

	t.Run("should bump the version on a matching write", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))
		require.NoError(t, o.ChangeStatus(order.Confirmed, vendor(t, o), baseTime.Add(time.Minute)))

		require.NoError(t, store.CompareAndSwap(ctx, o, 1))

		assert.Equal(t, int64(2), o.Version())
		got, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Confirmed, got.Status())
		assert.Equal(t, int64(2), got.Version())
	})

	t.Run("should reject a stale write and keep the stored state", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))
		first, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		second, err := store.Get(ctx, o.ID())
		require.NoError(t, err)

		require.NoError(t, first.ChangeStatus(order.Confirmed, vendor(t, o), baseTime.Add(time.Minute)))
		require.NoError(t, store.CompareAndSwap(ctx, first, first.Version()))
		require.NoError(t, second.Cancel(vendor(t, o), "out of stock", baseTime.Add(time.Minute)))
		err = store.CompareAndSwap(ctx, second, second.Version())

		var conflict *errs.VersionConflictError
		require.ErrorAs(t, err, &conflict)
		assert.Equal(t, int64(1), conflict.Expected)
		got, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, order.Confirmed, got.Status())
	})

	t.Run("should let exactly one of many concurrent writers win", func(t *testing.T) {
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))

		const writers = 32
		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for range writers {
			snapshot, err := store.Get(ctx, o.ID())
			require.NoError(t, err)
			require.NoError(t, snapshot.ChangeStatus(order.Confirmed, vendor(t, o), baseTime.Add(time.Minute)))

			wg.Add(1)
			go func() {
				defer wg.Done()
				if store.CompareAndSwap(ctx, snapshot, 1) == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins.Load())
		got, err := store.Get(ctx, o.ID())
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version())
		assert.Len(t, got.History(), 2)
	})
}

func TestOrderStore_ListNonTerminal(t *testing.T) {
	ctx := context.Background()
	store := memory.NewOrderStore()

	for range 5 {
		require.NoError(t, store.Create(ctx, newOrder(t)))
	}
	cancelled := newOrder(t)
	require.NoError(t, store.Create(ctx, cancelled))
	require.NoError(t, cancelled.Cancel(vendor(t, cancelled), "closed", baseTime.Add(time.Minute)))
	require.NoError(t, store.CompareAndSwap(ctx, cancelled, 1))

	t.Run("should page through open orders in id order", func(t *testing.T) {
		var (
			seen  []string
			after *kernel.UUID
		)
		for {
			page, err := store.ListNonTerminal(ctx, after, 2)
			require.NoError(t, err)
			for _, o := range page {
				seen = append(seen, o.ID().String())
			}
			if len(page) < 2 {
				break
			}
			last := page[len(page)-1].ID()
			after = &last
		}

		assert.Len(t, seen, 5)
		assert.IsIncreasing(t, seen)
		assert.NotContains(t, seen, cancelled.ID().String())
	})
}

func TestOrderStore_Subscribe(t *testing.T) {
	t.Run("should deliver committed writes that match the filter", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))
		other := newOrder(t)
		require.NoError(t, store.Create(ctx, other))

		vendorID := o.VendorID()
		feed, err := store.Subscribe(ctx, ports.OrderFilter{VendorID: &vendorID})
		require.NoError(t, err)

		require.NoError(t, other.ChangeStatus(order.Confirmed, vendor(t, other), baseTime.Add(time.Minute)))
		require.NoError(t, store.CompareAndSwap(ctx, other, 1))
		require.NoError(t, o.ChangeStatus(order.Confirmed, vendor(t, o), baseTime.Add(time.Minute)))
		require.NoError(t, store.CompareAndSwap(ctx, o, 1))

		select {
		case got := <-feed:
			assert.True(t, got.ID().IsEqual(o.ID()))
			assert.Equal(t, order.Confirmed, got.Status())
		case <-time.After(time.Second):
			t.Fatal("no update received")
		}
	})

	t.Run("should keep only the newest snapshot for a slow consumer", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		store := memory.NewOrderStore()
		o := newOrder(t)
		require.NoError(t, store.Create(ctx, o))

		feed, err := store.Subscribe(ctx, ports.OrderFilter{OrderIDs: []kernel.UUID{o.ID()}})
		require.NoError(t, err)

		v := vendor(t, o)
		require.NoError(t, o.ChangeStatus(order.Confirmed, v, baseTime.Add(time.Minute)))
		require.NoError(t, store.CompareAndSwap(ctx, o, o.Version()))
		require.NoError(t, o.ChangeStatus(order.Preparing, v, baseTime.Add(2*time.Minute)))
		require.NoError(t, store.CompareAndSwap(ctx, o, o.Version()))

		got := <-feed
		assert.Equal(t, order.Preparing, got.Status())
		assert.Equal(t, int64(3), got.Version())
	})

	t.Run("should close the channel when the context ends", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		store := memory.NewOrderStore()

		feed, err := store.Subscribe(ctx, ports.OrderFilter{})
		require.NoError(t, err)
		cancel()

		assert.Eventually(t, func() bool {
			select {
			case _, ok := <-feed:
				return !ok
			default:
				return false
			}
		}, time.Second, 5*time.Millisecond)
	})
}
