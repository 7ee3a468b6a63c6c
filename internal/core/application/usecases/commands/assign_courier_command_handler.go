package commands

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/courier"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/metrics"
)

var ErrCourierCannotServe = errors.New("courier cannot serve this order")

// AssignCourierCommandHandler performs manual assignment.
//
// The courier must be Active and work in a mode that covers the order's
// category; being online is not required.
type AssignCourierCommandHandler struct {
	updater  *OrderUpdater
	couriers ports.CourierRepository
	codes    order.CodeSource
	clock    ports.Clock
	metrics  *metrics.DispatchMetrics
}

func NewAssignCourierCommandHandler(
	updater *OrderUpdater,
	couriers ports.CourierRepository,
	codes order.CodeSource,
	clock ports.Clock,
	m *metrics.DispatchMetrics,
) *AssignCourierCommandHandler {
	return &AssignCourierCommandHandler{updater: updater, couriers: couriers, codes: codes, clock: clock, metrics: m}
}

func (h *AssignCourierCommandHandler) Handle(ctx context.Context, cmd AssignCourierCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	c, err := h.couriers.Get(ctx, cmd.CourierID())
	if err != nil {
		return nil, err
	}
	if c.Status() != courier.StatusActive {
		return nil, fmt.Errorf("%w: courier is %s", courier.ErrCourierNotActive, c.Status())
	}

	updated, err := h.updater.UpdateDispatch(ctx, cmd.OrderID(), "assign", func(o *order.Order) error {
		if !c.Mode().Covers(o.Category()) {
			return fmt.Errorf("%w: %s courier for a %s order", ErrCourierCannotServe, c.Mode(), o.Category())
		}
		return o.AssignManually(c.ID(), cmd.Actor(), h.codes, h.clock.Now())
	})
	if err != nil {
		return nil, err
	}

	h.metrics.Inc(metrics.OutcomeManual)
	return updated, nil
}
