package jobs

import (
	"context"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/rs/zerolog"
)

const DispatchSweepJobName = "dispatch_sweep"

type DispatchSweeper interface {
	Handle(ctx context.Context) (commands.SweepResult, error)
}

// DispatchSweepJob drives dispatch forward for orders nobody has accepted yet.
type DispatchSweepJob struct {
	*scheduledJob
}

func NewDispatchSweepJob(handler DispatchSweeper, opts Options) *DispatchSweepJob {
	return &DispatchSweepJob{
		scheduledJob: newScheduledJob(DispatchSweepJobName, opts, func(ctx context.Context, log zerolog.Logger) error {
			res, err := handler.Handle(ctx)
			if res.Advanced > 0 || res.Exhausted > 0 {
				log.Info().
					Int("scanned", res.Scanned).
					Int("advanced", res.Advanced).
					Int("offered", res.Offered).
					Int("expired", res.Expired).
					Int("exhausted", res.Exhausted).
					Msg("dispatch sweep")
			}
			return err
		}),
	}
}
