package commands_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func storedOrder(t *testing.T) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), placement(t, order.CategoryRetail), baseTime)
	require.NoError(t, err)
	o.PullEvents()
	o.MarkCommitted(1)
	return o
}

func TestOrderUpdater_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("should write the mutation and dispatch its events", func(t *testing.T) {
		e := newEnv(t)
		o := e.placeOrder(t, order.CategoryRetail)
		vendor := actor(t, o.VendorID(), order.RoleVendor)

		updated, err := e.updater.Update(ctx, o.ID(), "confirm", func(o *order.Order) error {
			return o.ChangeStatus(order.Confirmed, vendor, baseTime.Add(time.Minute))
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), updated.Version())
		assert.Equal(t, order.Confirmed, e.get(t, o.ID()).Status())
		assert.Equal(t, []string{"order.status_changed"}, e.events.Names())
	})

	t.Run("should re-read and re-apply after a version conflict", func(t *testing.T) {
		store := new(MockOrderStore)
		first, second := storedOrder(t), storedOrder(t)
		second.MarkCommitted(2)
		id := first.ID()

		store.On("Get", ctx, id).Return(first, nil).Once()
		store.On("CompareAndSwap", ctx, first, int64(1)).
			Return(errs.NewVersionConflictError("order", id, 1)).Once()
		store.On("Get", ctx, id).Return(second, nil).Once()
		store.On("CompareAndSwap", ctx, second, int64(2)).Return(nil).Once()

		var seen []int64
		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		_, err := updater.Update(ctx, id, "cancel", func(o *order.Order) error {
			seen = append(seen, o.Version())
			return o.Cancel(admin(t), "duplicate", baseTime.Add(time.Minute))
		})

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, seen)
		store.AssertExpectations(t)
	})

	t.Run("should give up after the retry budget with ErrUpdateFailed", func(t *testing.T) {
		store := new(MockOrderStore)
		o := storedOrder(t)
		store.On("Get", ctx, o.ID()).Return(func(context.Context, kernel.UUID) *order.Order { return o.Clone() }, nil)
		store.On("CompareAndSwap", ctx, mock.Anything, int64(1)).
			Return(errs.NewVersionConflictError("order", o.ID(), 1))

		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		_, err := updater.Update(ctx, o.ID(), "cancel", func(o *order.Order) error {
			return o.Cancel(admin(t), "duplicate", baseTime.Add(time.Minute))
		})

		require.ErrorIs(t, err, commands.ErrUpdateFailed)
		require.ErrorIs(t, err, errs.ErrVersionConflict)
		store.AssertNumberOfCalls(t, "CompareAndSwap", int(fastRetry.MaxRetries)+1)
	})

	t.Run("should report dispatch operations as ErrDispatchFailed", func(t *testing.T) {
		store := new(MockOrderStore)
		o := storedOrder(t)
		storageErr := errors.New("connection reset")
		store.On("Get", ctx, o.ID()).Return(nil, storageErr)

		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		_, err := updater.UpdateDispatch(ctx, o.ID(), "broadcast", func(*order.Order) error { return nil })

		require.ErrorIs(t, err, commands.ErrDispatchFailed)
		require.ErrorIs(t, err, storageErr)
	})

	t.Run("should not retry a refused mutation", func(t *testing.T) {
		store := new(MockOrderStore)
		o := storedOrder(t)
		store.On("Get", ctx, o.ID()).Return(o, nil).Once()

		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		_, err := updater.Update(ctx, o.ID(), "deliver", func(o *order.Order) error {
			return o.ChangeStatus(order.Delivered, admin(t), baseTime.Add(time.Minute))
		})

		require.ErrorIs(t, err, order.ErrInvalidTransition)
		assert.NotErrorIs(t, err, commands.ErrUpdateFailed)
		store.AssertExpectations(t)
		store.AssertNotCalled(t, "CompareAndSwap", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should not retry a missing order", func(t *testing.T) {
		store := new(MockOrderStore)
		id := kernel.NewUUID()
		store.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("order", id)).Once()

		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		_, err := updater.Update(ctx, id, "cancel", func(*order.Order) error { return nil })

		require.ErrorIs(t, err, errs.ErrObjectNotFound)
		store.AssertExpectations(t)
	})

	t.Run("should skip the write when nothing changed", func(t *testing.T) {
		store := new(MockOrderStore)
		o := storedOrder(t)
		store.On("Get", ctx, o.ID()).Return(o, nil).Once()

		updater := commands.NewOrderUpdater(store, nil, fastRetry, nil)
		got, err := updater.Update(ctx, o.ID(), "noop", func(*order.Order) error { return nil })

		require.NoError(t, err)
		assert.Same(t, o, got)
		store.AssertNotCalled(t, "CompareAndSwap", mock.Anything, mock.Anything, mock.Anything)
	})
}
