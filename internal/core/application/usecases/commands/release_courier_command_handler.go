package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

type ReleaseCourierCommandHandler struct {
	updater *OrderUpdater
	starter DispatchStarter
	clock   ports.Clock
}

func NewReleaseCourierCommandHandler(updater *OrderUpdater, starter DispatchStarter, clock ports.Clock) *ReleaseCourierCommandHandler {
	return &ReleaseCourierCommandHandler{updater: updater, starter: starter, clock: clock}
}

// Handle releases the courier and starts a fresh dispatch round.
func (h *ReleaseCourierCommandHandler) Handle(ctx context.Context, cmd ReleaseCourierCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	updated, err := h.updater.UpdateDispatch(ctx, cmd.OrderID(), "release", func(o *order.Order) error {
		return o.ReleaseCourier(cmd.Actor(), cmd.Reason(), h.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if h.starter != nil {
		h.starter.Start(ctx, updated.ID())
	}
	return updated, nil
}
