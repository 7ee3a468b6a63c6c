package jobs

import (
	"context"

	"orderflow/internal/core/application/usecases/commands"

	"github.com/rs/zerolog"
)

const WorkflowRulesJobName = "workflow_rules"

type RuleRunner interface {
	Handle(ctx context.Context) (commands.RulesResult, error)
}

// WorkflowRulesJob evaluates the time based rules on every tick.
type WorkflowRulesJob struct {
	*scheduledJob
}

func NewWorkflowRulesJob(handler RuleRunner, opts Options) *WorkflowRulesJob {
	return &WorkflowRulesJob{
		scheduledJob: newScheduledJob(WorkflowRulesJobName, opts, func(ctx context.Context, log zerolog.Logger) error {
			res, err := handler.Handle(ctx)
			if res.Changed > 0 {
				fired := zerolog.Dict()
				for rule, n := range res.Fired {
					fired.Int(rule, n)
				}
				log.Info().
					Int("scanned", res.Scanned).
					Int("changed", res.Changed).
					Dict("fired", fired).
					Msg("workflow rules applied")
			}
			return err
		}),
	}
}
