package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func broadcast(t *testing.T, e *env, id kernel.UUID) (commands.BroadcastResult, error) {
	t.Helper()
	cmd, err := commands.NewBroadcastDeliveryCommand(id)
	require.NoError(t, err)
	return e.broadcaster().Handle(context.Background(), cmd)
}

func respond(t *testing.T, e *env, orderID, courierID kernel.UUID, decision order.Decision) (order.Outcome, error) {
	t.Helper()
	cmd, err := commands.NewRespondDeliveryRequestCommand(orderID, courierID, decision)
	require.NoError(t, err)
	handler := commands.NewRespondDeliveryRequestCommandHandler(e.updater, &fixedCodes{}, e.clock, nil)
	return handler.Handle(context.Background(), cmd)
}

func TestBroadcastDeliveryCommandHandler_Handle(t *testing.T) {
	t.Run("should offer the order to every eligible courier", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		a := e.onlineCourier(t, courier.ModeDelivery, nil)
		b := e.onlineCourier(t, courier.ModeBoth, nil)
		e.onlineCourier(t, courier.ModeRide, nil)

		res, err := broadcast(t, e, o.ID())

		require.NoError(t, err)
		assert.Equal(t, order.DispatchBroadcast, res.Action)
		assert.Equal(t, 1, res.Round)
		assert.ElementsMatch(t, []kernel.UUID{a.ID(), b.ID()}, res.Offered)
		assert.ElementsMatch(t, []kernel.UUID{a.ID(), b.ID()}, e.get(t, o.ID()).PendingCouriers())
	})

	t.Run("should record an empty round and report no candidates", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)

		res, err := broadcast(t, e, o.ID())

		require.ErrorIs(t, err, commands.ErrNoCandidates)
		assert.Equal(t, 1, res.Round)
		assert.Equal(t, 1, e.get(t, o.ID()).Dispatch().Round)
	})

	t.Run("should exhaust dispatch after the last round", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		for range testPolicy.MaxRounds {
			_, err := broadcast(t, e, o.ID())
			require.ErrorIs(t, err, commands.ErrNoCandidates)
			e.clock.Advance(testPolicy.RequestTTL)
		}

		res, err := broadcast(t, e, o.ID())

		require.NoError(t, err)
		assert.True(t, res.Exhausted)
		assert.True(t, e.get(t, o.ID()).Dispatch().Exhausted())
		assert.Contains(t, e.events.Names(), "dispatch.exhausted")

		_, err = broadcast(t, e, o.ID())
		require.ErrorIs(t, err, order.ErrDispatchExhausted)
	})

	t.Run("should skip the write while the current round is still running", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		version := e.get(t, o.ID()).Version()

		res, err := broadcast(t, e, o.ID())

		require.NoError(t, err)
		assert.Equal(t, order.DispatchNone, res.Action)
		assert.Equal(t, version, e.get(t, o.ID()).Version())
	})
}

func TestBroadcastDeliveryCommandHandler_Start(t *testing.T) {
	t.Run("should swallow failures", func(t *testing.T) {
		e := newEnv(t)

		assert.NotPanics(t, func() {
			e.broadcaster().Start(context.Background(), kernel.NewUUID())
		})
	})
}

func TestRespondDeliveryRequestCommandHandler_Handle(t *testing.T) {
	t.Run("should resolve concurrent accepts to exactly one assignment", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		contenders := testPolicy.MaxFanOut
		couriers := make([]*courier.Courier, 0, contenders)
		for range contenders {
			couriers = append(couriers, e.onlineCourier(t, courier.ModeDelivery, nil))
		}
		e.updater = commands.NewOrderUpdater(e.store, e.events, commands.RetryPolicy{
			MaxRetries:      uint64(contenders * 2),
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
		}, nil)
		res, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		require.Len(t, res.Offered, contenders)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted []kernel.UUID
			lost     int
		)
		for _, c := range couriers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				outcome, err := respond(t, e, o.ID(), c.ID(), order.DecisionAccept)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil && outcome == order.OutcomeAccepted:
					accepted = append(accepted, c.ID())
				case errors.Is(err, order.ErrAlreadyAssigned):
					lost++
				default:
					t.Errorf("unexpected outcome %s: %v", outcome, err)
				}
			}()
		}
		wg.Wait()

		require.Len(t, accepted, 1)
		assert.Equal(t, contenders-1, lost)
		stored := e.get(t, o.ID())
		assert.True(t, stored.IsAssignedTo(accepted[0]))
		assert.Equal(t, order.OutForDelivery, stored.Status())
		assert.Empty(t, stored.PendingCouriers())
		winners := 0
		for _, r := range stored.DeliveryRequests() {
			if r.Status == order.RequestAccepted {
				winners++
			}
		}
		assert.Equal(t, 1, winners)
	})

	t.Run("should report an answer after the request expired", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		c := e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		e.clock.Advance(testPolicy.RequestTTL + time.Second)

		outcome, err := respond(t, e, o.ID(), c.ID(), order.DecisionAccept)

		require.ErrorIs(t, err, order.ErrRequestAlreadyTerminal)
		assert.Equal(t, order.OutcomeExpired, outcome)
		assert.Nil(t, e.get(t, o.ID()).AssignedCourierID())
	})

	t.Run("should record a rejection without assigning", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		c := e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)

		outcome, err := respond(t, e, o.ID(), c.ID(), order.DecisionReject)

		require.NoError(t, err)
		assert.Equal(t, order.OutcomeRejected, outcome)
		assert.Equal(t, order.Preparing, e.get(t, o.ID()).Status())
	})

	t.Run("should block accepts after the order was cancelled", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		c := e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		cancel, err := commands.NewCancelOrderCommand(o.ID(), actor(t, o.VendorID(), order.RoleVendor), "out of stock")
		require.NoError(t, err)
		_, err = commands.NewCancelOrderCommandHandler(e.updater, e.clock).Handle(context.Background(), cancel)
		require.NoError(t, err)

		_, err = respond(t, e, o.ID(), c.ID(), order.DecisionAccept)

		require.Error(t, err)
		stored := e.get(t, o.ID())
		assert.Equal(t, order.Cancelled, stored.Status())
		assert.Nil(t, stored.AssignedCourierID())
		assert.Empty(t, stored.PendingCouriers())
	})

	t.Run("should reject a command that was not constructed", func(t *testing.T) {
		e := newEnv(t)
		handler := commands.NewRespondDeliveryRequestCommandHandler(e.updater, &fixedCodes{}, e.clock, nil)

		_, err := handler.Handle(context.Background(), commands.RespondDeliveryRequestCommand{})

		require.ErrorIs(t, err, commands.ErrRespondDeliveryRequestCommandIsNotConstructed)
	})
}

func TestSweepDispatchCommandHandler_Handle(t *testing.T) {
	t.Run("should expire stale requests and open the next round", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		first := e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		second := e.onlineCourier(t, courier.ModeDelivery, nil)
		e.clock.Advance(testPolicy.RequestTTL)

		sweep := commands.NewSweepDispatchCommandHandler(e.store, e.broadcaster(), testPolicy, e.clock, 10)
		res, err := sweep.Handle(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, res.Advanced)
		assert.Equal(t, 1, res.Expired)
		assert.Equal(t, 2, res.Offered)
		stored := e.get(t, o.ID())
		assert.Equal(t, 2, stored.Dispatch().Round)
		assert.ElementsMatch(t, []kernel.UUID{first.ID(), second.ID()}, stored.PendingCouriers())
		assert.Nil(t, stored.AssignedCourierID())
	})

	t.Run("should leave orders with a running round alone", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		e.onlineCourier(t, courier.ModeDelivery, nil)
		_, err := broadcast(t, e, o.ID())
		require.NoError(t, err)
		e.placeOrder(t, order.CategoryRetail)

		sweep := commands.NewSweepDispatchCommandHandler(e.store, e.broadcaster(), testPolicy, e.clock, 1)
		res, err := sweep.Handle(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, res.Scanned)
		assert.Zero(t, res.Advanced)
	})

	t.Run("should count rounds without candidates as idle", func(t *testing.T) {
		e := newEnv(t)
		e.preparingOrder(t)

		sweep := commands.NewSweepDispatchCommandHandler(e.store, e.broadcaster(), testPolicy, e.clock, 10)
		res, err := sweep.Handle(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, res.Idle)
	})
}

func TestAssignCourierCommandHandler_Handle(t *testing.T) {
	ctx := context.Background()

	t.Run("should assign an exhausted order by hand", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		for range testPolicy.MaxRounds + 1 {
			_, _ = broadcast(t, e, o.ID())
			e.clock.Advance(testPolicy.RequestTTL)
		}
		require.True(t, e.get(t, o.ID()).Dispatch().Exhausted())
		c, err := courier.NewCourier(kernel.NewUUID(), "Offline Ola", courier.ModeDelivery, nil)
		require.NoError(t, err)
		require.NoError(t, e.couriers.Add(ctx, c))

		cmd, err := commands.NewAssignCourierCommand(o.ID(), c.ID(), admin(t))
		require.NoError(t, err)
		handler := commands.NewAssignCourierCommandHandler(e.updater, e.couriers, &fixedCodes{}, e.clock, nil)
		updated, err := handler.Handle(ctx, cmd)

		require.NoError(t, err)
		assert.True(t, updated.IsAssignedTo(c.ID()))
		assert.Equal(t, order.OutForDelivery, updated.Status())
	})

	t.Run("should refuse a courier whose mode does not cover the order", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		rider := e.onlineCourier(t, courier.ModeRide, nil)

		cmd, err := commands.NewAssignCourierCommand(o.ID(), rider.ID(), admin(t))
		require.NoError(t, err)
		handler := commands.NewAssignCourierCommandHandler(e.updater, e.couriers, &fixedCodes{}, e.clock, nil)
		_, err = handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, commands.ErrCourierCannotServe)
	})

	t.Run("should refuse suspended couriers", func(t *testing.T) {
		repo := new(MockCourierRepository)
		c, err := courier.NewCourier(kernel.NewUUID(), "Sade", courier.ModeDelivery, nil)
		require.NoError(t, err)
		require.NoError(t, c.ChangeStatus(courier.StatusSuspended))
		repo.On("Get", ctx, c.ID()).Return(c, nil).Once()

		cmd, err := commands.NewAssignCourierCommand(kernel.NewUUID(), c.ID(), admin(t))
		require.NoError(t, err)
		handler := commands.NewAssignCourierCommandHandler(nil, repo, &fixedCodes{}, nil, nil)
		_, err = handler.Handle(ctx, cmd)

		require.ErrorIs(t, err, courier.ErrCourierNotActive)
		repo.AssertExpectations(t)
	})
}

func TestReleaseAndReopen(t *testing.T) {
	ctx := context.Background()

	t.Run("should release the courier and restart dispatch", func(t *testing.T) {
		e := newEnv(t)
		o, c := e.assignedOrder(t)
		starter := new(MockDispatchStarter)
		starter.On("Start", mock.Anything, o.ID()).Once()

		cmd, err := commands.NewReleaseCourierCommand(o.ID(), actor(t, c.ID(), order.RoleCourier), "flat tyre")
		require.NoError(t, err)
		updated, err := commands.NewReleaseCourierCommandHandler(e.updater, starter, e.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.Nil(t, updated.AssignedCourierID())
		assert.Equal(t, order.Preparing, updated.Status())
		starter.AssertExpectations(t)
	})

	t.Run("should require a reason to release", func(t *testing.T) {
		_, err := commands.NewReleaseCourierCommand(kernel.NewUUID(), admin(t), " ")
		require.Error(t, err)
	})

	t.Run("should reopen an exhausted dispatch", func(t *testing.T) {
		e := newEnv(t)
		o := e.preparingOrder(t)
		for range testPolicy.MaxRounds + 1 {
			_, _ = broadcast(t, e, o.ID())
			e.clock.Advance(testPolicy.RequestTTL)
		}
		starter := new(MockDispatchStarter)
		starter.On("Start", mock.Anything, o.ID()).Once()

		cmd, err := commands.NewReopenDispatchCommand(o.ID(), admin(t))
		require.NoError(t, err)
		updated, err := commands.NewReopenDispatchCommandHandler(e.updater, starter, e.clock).Handle(ctx, cmd)

		require.NoError(t, err)
		assert.False(t, updated.Dispatch().Exhausted())
		starter.AssertExpectations(t)
	})
}
