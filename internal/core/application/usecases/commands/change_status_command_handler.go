package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// ChangeStatusCommandHandler applies status transitions and hands orders to
// dispatch when they reach the trigger status.
//
// Example:
//
//	handler := NewChangeStatusCommandHandler(updater, broadcaster, clock, order.Preparing)
//	cmd, _ := NewChangeStatusCommand(orderID, order.Preparing, vendor, "")
//	updated, err := handler.Handle(ctx, cmd)
//	var te *order.TransitionError
//	if errors.As(err, &te) {
//	    // not a declared edge for this category
//	}
type ChangeStatusCommandHandler struct {
	updater *OrderUpdater
	starter DispatchStarter
	clock   ports.Clock
	trigger order.Status
}

func NewChangeStatusCommandHandler(
	updater *OrderUpdater,
	starter DispatchStarter,
	clock ports.Clock,
	trigger order.Status,
) *ChangeStatusCommandHandler {
	return &ChangeStatusCommandHandler{updater: updater, starter: starter, clock: clock, trigger: trigger}
}

func (h *ChangeStatusCommandHandler) Handle(ctx context.Context, cmd ChangeStatusCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	opened := false
	updated, err := h.updater.Update(ctx, cmd.OrderID(), "change_status", func(o *order.Order) error {
		opened = false
		now := h.clock.Now()
		if err := o.ChangeStatusWithReason(cmd.Target(), cmd.Actor(), cmd.Reason(), now); err != nil {
			return err
		}
		if o.Status() == h.trigger && o.CanDispatch() && !o.Dispatch().IsOpen() {
			opened = true
			return o.OpenDispatch(now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if opened && h.starter != nil {
		h.starter.Start(ctx, updated.ID())
	}
	return updated, nil
}
