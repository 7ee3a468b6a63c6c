package commands

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/metrics"

	"github.com/rs/zerolog"
)

// BroadcastResult reports what a dispatch step did.
type BroadcastResult struct {
	Action    order.DispatchAction
	Scope     order.Scope
	Round     int
	Offered   []kernel.UUID
	Expired   []kernel.UUID
	Exhausted bool
}

// BroadcastDeliveryCommandHandler drives dispatch rounds.
//
// Candidates are read before the write; a courier going offline between the
// read and the write still gets a request that simply expires.
//
// Example:
//
//	cmd, _ := NewBroadcastDeliveryCommand(orderID)
//	res, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, ErrNoCandidates):
//	    // round recorded, the sweep retries after the round deadline
//	case err != nil:
//	    return err
//	case res.Exhausted:
//	    // admins were notified
//	}
type BroadcastDeliveryCommandHandler struct {
	updater  *OrderUpdater
	store    ports.OrderStore
	couriers ports.CourierRepository
	selector services.CandidateSelector
	policy   order.DispatchPolicy
	clock    ports.Clock
	metrics  *metrics.DispatchMetrics
	log      zerolog.Logger
}

func NewBroadcastDeliveryCommandHandler(
	updater *OrderUpdater,
	store ports.OrderStore,
	couriers ports.CourierRepository,
	policy order.DispatchPolicy,
	clock ports.Clock,
	m *metrics.DispatchMetrics,
	log zerolog.Logger,
) *BroadcastDeliveryCommandHandler {
	return &BroadcastDeliveryCommandHandler{
		updater:  updater,
		store:    store,
		couriers: couriers,
		selector: services.NewCandidateSelector(),
		policy:   policy,
		clock:    clock,
		metrics:  m,
		log:      log,
	}
}

// Handle returns ErrNoCandidates when a broadcast round found nobody to
// offer and order.ErrDispatchExhausted when dispatch was already exhausted.
func (h *BroadcastDeliveryCommandHandler) Handle(ctx context.Context, cmd BroadcastDeliveryCommand) (BroadcastResult, error) {
	if err := cmd.Validate(); err != nil {
		return BroadcastResult{}, err
	}

	current, err := h.store.Get(ctx, cmd.OrderID())
	if err != nil {
		return BroadcastResult{}, err
	}
	if current.Dispatch().Exhausted() {
		return BroadcastResult{}, order.ErrDispatchExhausted
	}
	available, err := h.couriers.ListAvailable(ctx, courier.ModeFor(current.Category()))
	if err != nil {
		return BroadcastResult{}, err
	}

	var res BroadcastResult
	updated, err := h.updater.UpdateDispatch(ctx, cmd.OrderID(), "broadcast", func(o *order.Order) error {
		res = BroadcastResult{}
		now := h.clock.Now()

		res.Expired = o.ExpireStaleRequests(now)
		if !o.Dispatch().IsOpen() && o.CanDispatch() {
			if err := o.OpenDispatch(now); err != nil {
				return err
			}
		}

		step := o.NextDispatchStep(now, h.policy)
		res.Action = step.Action
		switch step.Action {
		case order.DispatchExhaust:
			res.Exhausted = true
			return o.MarkDispatchExhausted(now)
		case order.DispatchBroadcast:
			candidates, scope := h.selector.Select(o, available, step.Scope)
			offered, err := o.Broadcast(candidates, scope, h.policy, now)
			if err != nil {
				return err
			}
			res.Scope = scope
			res.Offered = offered
		case order.DispatchNone:
		}
		return nil
	})
	if err != nil {
		return BroadcastResult{}, err
	}

	res.Round = updated.Dispatch().Round
	h.metrics.Add(metrics.OutcomeExpired, len(res.Expired))
	h.metrics.Add(metrics.OutcomeOffered, len(res.Offered))
	if res.Exhausted {
		h.metrics.Inc(metrics.OutcomeExhausted)
	}
	if res.Action == order.DispatchBroadcast && len(res.Offered) == 0 {
		return res, ErrNoCandidates
	}
	return res, nil
}

// Start runs the first round right after a write opened dispatch. Failures
// are logged; the sweep picks the order up on its next tick.
func (h *BroadcastDeliveryCommandHandler) Start(ctx context.Context, orderID kernel.UUID) {
	cmd, err := NewBroadcastDeliveryCommand(orderID)
	if err != nil {
		return
	}
	res, err := h.Handle(ctx, cmd)
	switch {
	case errors.Is(err, ErrNoCandidates):
		h.log.Info().Str("order_id", orderID.String()).Int("round", res.Round).Msg("no courier available for first round")
	case err != nil:
		h.log.Warn().Err(err).Str("order_id", orderID.String()).Msg("start dispatch")
	default:
		h.log.Debug().
			Str("order_id", orderID.String()).
			Int("round", res.Round).
			Int("offered", len(res.Offered)).
			Msg("dispatch started")
	}
}
