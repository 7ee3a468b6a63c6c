package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// VerifyHandoverCommandHandler confirms a pickup or delivery. A wrong code
// leaves the order untouched and returns order.ErrCodeMismatch.
type VerifyHandoverCommandHandler struct {
	updater *OrderUpdater
	clock   ports.Clock
}

func NewVerifyHandoverCommandHandler(updater *OrderUpdater, clock ports.Clock) *VerifyHandoverCommandHandler {
	return &VerifyHandoverCommandHandler{updater: updater, clock: clock}
}

func (h *VerifyHandoverCommandHandler) Handle(ctx context.Context, cmd VerifyHandoverCommand) (order.HandoverResult, error) {
	if err := cmd.Validate(); err != nil {
		return order.HandoverUnknown, err
	}

	var result order.HandoverResult
	_, err := h.updater.Update(ctx, cmd.OrderID(), "verify_handover", func(o *order.Order) error {
		var err error
		result, err = o.VerifyHandover(cmd.Phase(), cmd.Code(), cmd.Actor(), h.clock.Now())
		return err
	})
	if err != nil {
		return order.HandoverUnknown, err
	}
	return result, nil
}
