package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// DefaultReviewWindow is how long after delivery a refund may be requested.
const DefaultReviewWindow = 7 * 24 * time.Hour

type RequestRefundCommandHandler struct {
	updater *OrderUpdater
	clock   ports.Clock
	window  time.Duration
}

func NewRequestRefundCommandHandler(updater *OrderUpdater, clock ports.Clock, window time.Duration) *RequestRefundCommandHandler {
	if window <= 0 {
		window = DefaultReviewWindow
	}
	return &RequestRefundCommandHandler{updater: updater, clock: clock, window: window}
}

func (h *RequestRefundCommandHandler) Handle(ctx context.Context, cmd RequestRefundCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.updater.Update(ctx, cmd.OrderID(), "request_refund", func(o *order.Order) error {
		return o.RequestRefund(cmd.Actor(), cmd.Reason(), h.window, h.clock.Now())
	})
}

type ExtendReviewPeriodCommandHandler struct {
	updater *OrderUpdater
	clock   ports.Clock
	window  time.Duration
}

func NewExtendReviewPeriodCommandHandler(updater *OrderUpdater, clock ports.Clock, window time.Duration) *ExtendReviewPeriodCommandHandler {
	if window <= 0 {
		window = DefaultReviewWindow
	}
	return &ExtendReviewPeriodCommandHandler{updater: updater, clock: clock, window: window}
}

func (h *ExtendReviewPeriodCommandHandler) Handle(ctx context.Context, cmd ExtendReviewPeriodCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return h.updater.Update(ctx, cmd.OrderID(), "extend_review", func(o *order.Order) error {
		return o.ExtendReviewPeriod(cmd.Actor(), cmd.Until(), h.window, h.clock.Now())
	})
}
