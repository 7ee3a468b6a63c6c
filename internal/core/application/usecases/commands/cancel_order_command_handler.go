package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

type CancelOrderCommandHandler struct {
	updater *OrderUpdater
	clock   ports.Clock
}

func NewCancelOrderCommandHandler(updater *OrderUpdater, clock ports.Clock) *CancelOrderCommandHandler {
	return &CancelOrderCommandHandler{updater: updater, clock: clock}
}

func (h *CancelOrderCommandHandler) Handle(ctx context.Context, cmd CancelOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.updater.Update(ctx, cmd.OrderID(), "cancel", func(o *order.Order) error {
		return o.Cancel(cmd.Actor(), cmd.Reason(), h.clock.Now())
	})
}
