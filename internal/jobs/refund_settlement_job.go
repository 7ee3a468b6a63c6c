package jobs

import (
	"context"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/rs/zerolog"
)

const RefundSettlementJobName = "refund_settlement"

type PendingRefundSettler interface {
	Handle(ctx context.Context) (commands.SettlementSummary, error)
}

// RefundSettlementJob retries approved refunds left unpaid by a failed
// provider call.
type RefundSettlementJob struct {
	*scheduledJob
}

func NewRefundSettlementJob(handler PendingRefundSettler, opts Options) *RefundSettlementJob {
	return &RefundSettlementJob{
		scheduledJob: newScheduledJob(RefundSettlementJobName, opts, func(ctx context.Context, log zerolog.Logger) error {
			summary, err := handler.Handle(ctx)
			if summary.Pending > 0 {
				log.Info().
					Int("pending", summary.Pending).
					Int("settled", summary.Settled).
					Int("failed", summary.Failed).
					Msg("refund settlement")
			}
			return err
		}),
	}
}
