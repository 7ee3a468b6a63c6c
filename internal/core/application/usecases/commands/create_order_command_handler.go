package commands

import (
	"context"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// CreateOrderCommandHandler stores a new order. Ride orders are dispatched at
// once because they start in Ride Requested.
type CreateOrderCommandHandler struct {
	store   ports.OrderStore
	events  EventDispatcher
	starter DispatchStarter
	clock   ports.Clock
}

// NewCreateOrderCommandHandler accepts a nil starter; the dispatch sweep then
// offers ride orders on its next tick.
func NewCreateOrderCommandHandler(
	store ports.OrderStore,
	events EventDispatcher,
	starter DispatchStarter,
	clock ports.Clock,
) *CreateOrderCommandHandler {
	return &CreateOrderCommandHandler{store: store, events: events, starter: starter, clock: clock}
}

func (h *CreateOrderCommandHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	now := h.clock.Now()
	o, err := order.NewOrder(cmd.OrderID(), cmd.Placement(), now)
	if err != nil {
		return nil, err
	}
	opened := false
	if o.CanDispatch() {
		if err = o.OpenDispatch(now); err != nil {
			return nil, err
		}
		opened = true
	}

	if err = h.store.Create(ctx, o); err != nil {
		return nil, err
	}

	if h.events != nil {
		h.events.Dispatch(ctx, o, o.PullEvents())
	}
	if opened && h.starter != nil {
		h.starter.Start(ctx, o.ID())
	}
	return o, nil
}
