package commands

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"go.uber.org/multierr"
)

// ErrSettlementFailed is returned when the payment provider did not settle a
// refund. The failure is recorded on the order.
var ErrSettlementFailed = errors.New("refund settlement failed")

// SettleRefundCommandHandler pays out approved refunds.
//
// The provider is called outside the CAS cycle so a version conflict never
// triggers a second payout; the result is then written with the usual retry.
// PaymentPort.Refund is idempotent per order, which covers a crash between
// the payout and the write.
type SettleRefundCommandHandler struct {
	store   ports.OrderStore
	updater *OrderUpdater
	payment ports.PaymentPort
	clock   ports.Clock
}

func NewSettleRefundCommandHandler(
	store ports.OrderStore,
	updater *OrderUpdater,
	payment ports.PaymentPort,
	clock ports.Clock,
) *SettleRefundCommandHandler {
	return &SettleRefundCommandHandler{store: store, updater: updater, payment: payment, clock: clock}
}

// Settle returns the order unchanged when it is already refunded and
// order.ErrRefundNotApproved when the refund was not approved. While another
// caller is settling the order it returns ports.ErrSettlementInProgress and
// records nothing.
func (h *SettleRefundCommandHandler) Settle(ctx context.Context, orderID kernel.UUID) (*order.Order, error) {
	current, err := h.store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if r := current.Refund(); r != nil && r.Status == order.RefundStatusRefunded {
		return current, nil
	}
	if !current.NeedsSettlement() {
		return nil, order.ErrRefundNotApproved
	}

	result, callErr := h.payment.Refund(ctx, orderID, current.Refund().Amount)
	if errors.Is(callErr, ports.ErrSettlementInProgress) {
		return current, callErr
	}
	settled := callErr == nil && result.Status == ports.SettlementSettled
	reason := settlementFailureReason(result, callErr)

	updated, err := h.updater.Update(ctx, orderID, "settle_refund", func(o *order.Order) error {
		if settled {
			return o.MarkRefunded(h.clock.Now())
		}
		return o.RecordSettlementFailure(reason, h.clock.Now())
	})
	if err != nil {
		return nil, err
	}
	if !settled {
		return updated, fmt.Errorf("%w: order %s: %s", ErrSettlementFailed, orderID, reason)
	}
	return updated, nil
}

func settlementFailureReason(result ports.SettlementResult, err error) string {
	switch {
	case err != nil:
		return err.Error()
	case result.Reason != "":
		return result.Reason
	}
	return "provider returned " + result.Status.String()
}

// SettlementSummary counts the refunds one settlement pass handled.
type SettlementSummary struct {
	Pending int
	Settled int
	Failed  int
}

// SettlePendingRefundsCommandHandler retries every approved, unpaid refund.
type SettlePendingRefundsCommandHandler struct {
	store    ports.OrderStore
	settler  RefundSettler
	pageSize int
}

func NewSettlePendingRefundsCommandHandler(store ports.OrderStore, settler RefundSettler, pageSize int) *SettlePendingRefundsCommandHandler {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &SettlePendingRefundsCommandHandler{store: store, settler: settler, pageSize: pageSize}
}

func (h *SettlePendingRefundsCommandHandler) Handle(ctx context.Context) (SettlementSummary, error) {
	var (
		summary SettlementSummary
		result  error
		after   *kernel.UUID
	)

	for {
		if err := ctx.Err(); err != nil {
			return summary, multierr.Append(result, err)
		}
		page, err := h.store.ListNonTerminal(ctx, after, h.pageSize)
		if err != nil {
			return summary, multierr.Append(result, fmt.Errorf("list orders: %w", err))
		}

		for _, o := range page {
			if !o.NeedsSettlement() {
				continue
			}
			summary.Pending++
			if _, err := h.settler.Settle(ctx, o.ID()); err != nil {
				summary.Failed++
				result = multierr.Append(result, err)
				continue
			}
			summary.Settled++
		}

		if len(page) < h.pageSize {
			return summary, result
		}
		last := page[len(page)-1].ID()
		after = &last
	}
}
