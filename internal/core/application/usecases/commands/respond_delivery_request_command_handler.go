package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/metrics"
)

// RespondDeliveryRequestCommandHandler resolves the accept race.
//
// Two couriers accepting at once both read the order at the same version;
// the store lets one CAS through and the other re-reads, finds its request
// superseded and records it as lost. The loser gets order.ErrAlreadyAssigned.
//
// Example:
//
//	cmd, _ := NewRespondDeliveryRequestCommand(orderID, courierID, order.DecisionAccept)
//	outcome, err := handler.Handle(ctx, cmd)
//	switch {
//	case errors.Is(err, order.ErrAlreadyAssigned):
//	    // another courier won
//	case errors.Is(err, order.ErrRequestAlreadyTerminal):
//	    // too late
//	case err == nil && outcome == order.OutcomeAccepted:
//	    // show the pickup screen
//	}
type RespondDeliveryRequestCommandHandler struct {
	updater *OrderUpdater
	codes   order.CodeSource
	clock   ports.Clock
	metrics *metrics.DispatchMetrics
}

func NewRespondDeliveryRequestCommandHandler(
	updater *OrderUpdater,
	codes order.CodeSource,
	clock ports.Clock,
	m *metrics.DispatchMetrics,
) *RespondDeliveryRequestCommandHandler {
	return &RespondDeliveryRequestCommandHandler{updater: updater, codes: codes, clock: clock, metrics: m}
}

// Handle persists the answer, including lost and expired outcomes, and only
// then reports them as errors.
func (h *RespondDeliveryRequestCommandHandler) Handle(
	ctx context.Context,
	cmd RespondDeliveryRequestCommand,
) (order.Outcome, error) {
	if err := cmd.Validate(); err != nil {
		return order.OutcomeUnknown, err
	}

	var outcome order.Outcome
	_, err := h.updater.UpdateDispatch(ctx, cmd.OrderID(), "respond", func(o *order.Order) error {
		var err error
		outcome, err = o.Respond(cmd.CourierID(), cmd.Decision(), h.codes, h.clock.Now())
		return err
	})
	if err != nil {
		return order.OutcomeUnknown, err
	}

	h.metrics.Inc(outcome.String())
	switch outcome {
	case order.OutcomeLostRace:
		return outcome, order.ErrAlreadyAssigned
	case order.OutcomeExpired:
		return outcome, order.ErrRequestAlreadyTerminal
	case order.OutcomeAccepted, order.OutcomeRejected, order.OutcomeUnknown:
	}
	return outcome, nil
}
