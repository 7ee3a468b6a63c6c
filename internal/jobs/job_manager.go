package jobs

import (
	"errors"
	"fmt"
	"time"

	"orderflow/internal/pkg/metrics"

	"github.com/rs/zerolog"
)

// Schedules holds the cron expression of every job.
type Schedules struct {
	DispatchSweep    string
	WorkflowRules    string
	RefundSettlement string
}

// DefaultSchedules runs the sweep every 5s, the rules every 30s and the
// settlement retry every minute.
func DefaultSchedules() Schedules {
	return Schedules{
		DispatchSweep:    "*/5 * * * * *",
		WorkflowRules:    "*/30 * * * * *",
		RefundSettlement: "0 * * * * *",
	}
}

// Deps are shared by all jobs. Locks is optional; without it ticks are not
// coordinated across instances.
type Deps struct {
	Locks   func(job string) (Lock, error)
	Metrics *metrics.JobMetrics
	Logger  zerolog.Logger
	Timeout time.Duration
}

type job interface {
	Name() string
	Start() error
	Stop()
}

// JobManager coordinates all scheduled jobs in the application.
type JobManager struct {
	jobs    []job
	started []job
}

func NewJobManager(
	schedules Schedules,
	sweeper DispatchSweeper,
	rules RuleRunner,
	settler PendingRefundSettler,
	deps Deps,
) (*JobManager, error) {
	if sweeper == nil || rules == nil || settler == nil {
		return nil, errors.New("job handlers are required")
	}

	opts := func(name, schedule string) (Options, error) {
		o := Options{
			Schedule: schedule,
			Timeout:  deps.Timeout,
			Metrics:  deps.Metrics,
			Logger:   deps.Logger,
		}
		if deps.Locks != nil {
			lock, err := deps.Locks(name)
			if err != nil {
				return Options{}, fmt.Errorf("lock for %s: %w", name, err)
			}
			o.Lock = lock
		}
		return o, nil
	}

	sweepOpts, err := opts(DispatchSweepJobName, schedules.DispatchSweep)
	if err != nil {
		return nil, err
	}
	rulesOpts, err := opts(WorkflowRulesJobName, schedules.WorkflowRules)
	if err != nil {
		return nil, err
	}
	settleOpts, err := opts(RefundSettlementJobName, schedules.RefundSettlement)
	if err != nil {
		return nil, err
	}

	return &JobManager{
		jobs: []job{
			NewDispatchSweepJob(sweeper, sweepOpts),
			NewWorkflowRulesJob(rules, rulesOpts),
			NewRefundSettlementJob(settler, settleOpts),
		},
	}, nil
}

// StartAll starts all scheduled jobs. If one fails to start, the jobs
// already started are stopped.
func (jm *JobManager) StartAll() error {
	for _, j := range jm.jobs {
		if err := j.Start(); err != nil {
			jm.StopAll()
			return fmt.Errorf("failed to start %s job: %w", j.Name(), err)
		}
		jm.started = append(jm.started, j)
	}
	return nil
}

// StopAll stops started jobs in reverse order and waits for running ticks.
func (jm *JobManager) StopAll() {
	for i := len(jm.started) - 1; i >= 0; i-- {
		jm.started[i].Stop()
	}
	jm.started = nil
}
