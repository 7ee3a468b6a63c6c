package commands

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/rs/zerolog"
)

// RefundSettler moves the money of an approved refund.
type RefundSettler interface {
	Settle(ctx context.Context, orderID kernel.UUID) (*order.Order, error)
}

// RecordRefundApprovalCommandHandler records a decision and, when it was the
// second approval, tries to settle right away. A failed settlement does not
// fail the approval; the settlement job retries it.
type RecordRefundApprovalCommandHandler struct {
	updater *OrderUpdater
	settler RefundSettler
	clock   ports.Clock
	log     zerolog.Logger
}

func NewRecordRefundApprovalCommandHandler(
	updater *OrderUpdater,
	settler RefundSettler,
	clock ports.Clock,
	log zerolog.Logger,
) *RecordRefundApprovalCommandHandler {
	return &RecordRefundApprovalCommandHandler{updater: updater, settler: settler, clock: clock, log: log}
}

func (h *RecordRefundApprovalCommandHandler) Handle(ctx context.Context, cmd RecordRefundApprovalCommand) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	updated, err := h.updater.Update(ctx, cmd.OrderID(), "refund_approval", func(o *order.Order) error {
		return o.RecordApproval(cmd.Party(), cmd.Decision(), cmd.Actor(), h.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	if !updated.NeedsSettlement() || h.settler == nil {
		return updated, nil
	}

	settled, err := h.settler.Settle(ctx, updated.ID())
	if err != nil {
		h.log.Warn().Err(err).Str("order_id", updated.ID().String()).Msg("settle approved refund")
		return updated, nil
	}
	return settled, nil
}
