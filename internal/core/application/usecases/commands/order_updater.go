// Package commands contains business operations that modify system state.
// Every order write follows the same cycle: read, mutate the aggregate,
// compare-and-swap against the version that was read.
package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrUpdateFailed is returned when an order write kept failing after
	// every retry. It wraps the last storage error.
	ErrUpdateFailed = errors.New("order update failed")
	// ErrDispatchFailed is ErrUpdateFailed for dispatch operations.
	ErrDispatchFailed = errors.New("dispatch failed")
	// ErrNoCandidates means a round was recorded but no courier could be offered.
	ErrNoCandidates = errors.New("no eligible couriers")
)

// EventDispatcher receives the events of a committed write.
type EventDispatcher interface {
	Dispatch(ctx context.Context, o *order.Order, events []order.Event)
}

// DispatchStarter runs the first dispatch round after a write opened one.
// It never fails the caller.
type DispatchStarter interface {
	Start(ctx context.Context, orderID kernel.UUID)
}

// RetryPolicy bounds how often a conflicting or failing write is retried.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      5,
		InitialInterval: 20 * time.Millisecond,
		MaxInterval:     500 * time.Millisecond,
	}
}

// OrderUpdater runs read-mutate-CAS cycles with bounded exponential backoff.
//
// A version conflict never replays the old write: the order is read again and
// the mutation re-applied to the fresh state. Errors returned by the mutation
// are domain decisions and are not retried.
//
// Example:
//
//	updated, err := updater.Update(ctx, orderID, "cancel", func(o *order.Order) error {
//	    return o.Cancel(actor, reason, clock.Now())
//	})
type OrderUpdater struct {
	store   ports.OrderStore
	events  EventDispatcher
	retry   RetryPolicy
	metrics *metrics.DispatchMetrics
}

func NewOrderUpdater(
	store ports.OrderStore,
	events EventDispatcher,
	retry RetryPolicy,
	m *metrics.DispatchMetrics,
) *OrderUpdater {
	return &OrderUpdater{store: store, events: events, retry: retry, metrics: m}
}

// Mutation changes a freshly read order. It may run more than once.
type Mutation func(o *order.Order) error

// Update applies mutate and persists the result. Exhausted retries surface as
// ErrUpdateFailed.
func (u *OrderUpdater) Update(ctx context.Context, id kernel.UUID, operation string, mutate Mutation) (*order.Order, error) {
	return u.run(ctx, id, operation, ErrUpdateFailed, mutate)
}

// UpdateDispatch is Update for dispatch operations; exhausted retries surface
// as ErrDispatchFailed.
func (u *OrderUpdater) UpdateDispatch(ctx context.Context, id kernel.UUID, operation string, mutate Mutation) (*order.Order, error) {
	return u.run(ctx, id, operation, ErrDispatchFailed, mutate)
}

func (u *OrderUpdater) run(
	ctx context.Context,
	id kernel.UUID,
	operation string,
	failure error,
	mutate Mutation,
) (*order.Order, error) {
	var (
		committed *order.Order
		decided   bool
		attempt   int
	)

	write := func() error {
		if attempt > 0 {
			u.metrics.IncRetry(operation)
		}
		attempt++

		o, err := u.store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, errs.ErrObjectNotFound) {
				decided = true
				return backoff.Permanent(err)
			}
			return err
		}
		if err = mutate(o); err != nil {
			decided = true
			return backoff.Permanent(err)
		}
		if o.HasChanges() {
			if err = u.store.CompareAndSwap(ctx, o, o.Version()); err != nil {
				return err
			}
		}
		committed = o
		return nil
	}

	err := backoff.Retry(write, backoff.WithContext(backoff.WithMaxRetries(u.newBackOff(), u.retry.MaxRetries), ctx))
	if err != nil {
		if decided {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s order %s: %w", failure, operation, id, err)
	}

	if u.events != nil {
		u.events.Dispatch(ctx, committed, committed.PullEvents())
	}
	return committed, nil
}

func (u *OrderUpdater) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = u.retry.InitialInterval
	b.MaxInterval = u.retry.MaxInterval
	b.MaxElapsedTime = 0
	return b
}
