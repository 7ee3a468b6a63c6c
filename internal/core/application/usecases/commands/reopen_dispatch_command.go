package commands

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/guard"
)

var ErrReopenDispatchCommandIsNotConstructed = errors.New(
	"ReopenDispatchCommand must be created via NewReopenDispatchCommand constructor",
)

// ReopenDispatchCommand restarts automatic rounds on an exhausted order.
type ReopenDispatchCommand struct {
	orderID kernel.UUID
	actor   order.Actor

	guard guard.ConstructorGuard
}

func NewReopenDispatchCommand(orderID kernel.UUID, actor order.Actor) (ReopenDispatchCommand, error) {
	if err := errors.Join(orderID.Validate(), actor.Validate()); err != nil {
		return ReopenDispatchCommand{}, err
	}
	return ReopenDispatchCommand{orderID: orderID, actor: actor, guard: guard.NewConstructorGuard()}, nil
}

func (c ReopenDispatchCommand) Validate() error {
	return c.guard.Validate(ErrReopenDispatchCommandIsNotConstructed)
}

type ReopenDispatchCommandHandler struct {
	updater *OrderUpdater
	starter DispatchStarter
	clock   ports.Clock
}

func NewReopenDispatchCommandHandler(updater *OrderUpdater, starter DispatchStarter, clock ports.Clock) *ReopenDispatchCommandHandler {
	return &ReopenDispatchCommandHandler{updater: updater, starter: starter, clock: clock}
}

func (h *ReopenDispatchCommandHandler) Handle(ctx context.Context, cmd ReopenDispatchCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	updated, err := h.updater.UpdateDispatch(ctx, cmd.orderID, "reopen", func(o *order.Order) error {
		return o.ReopenDispatch(cmd.actor, h.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	if h.starter != nil {
		h.starter.Start(ctx, updated.ID())
	}
	return updated, nil
}
