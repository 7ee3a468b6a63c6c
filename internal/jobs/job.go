package jobs

import (
	"context"
	"errors"
	"time"

	"orderflow/internal/pkg/logger"
	"orderflow/internal/pkg/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const defaultTimeout = 30 * time.Second

// Lock serializes ticks across instances. Acquire reports false when another
// holder has it.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Options configure one scheduled job.
type Options struct {
	// Schedule is a cron expression with a leading seconds field, or a
	// descriptor such as "@every 5s".
	Schedule string
	Timeout  time.Duration
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Logger   zerolog.Logger
}

type task func(ctx context.Context, log zerolog.Logger) error

type scheduledJob struct {
	name     string
	schedule string
	timeout  time.Duration
	lock     Lock
	metrics  *metrics.JobMetrics
	logger   zerolog.Logger
	task     task

	cron   *cron.Cron
	cancel context.CancelFunc
}

func newScheduledJob(name string, opts Options, t task) *scheduledJob {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &scheduledJob{
		name:     name,
		schedule: opts.Schedule,
		timeout:  timeout,
		lock:     opts.Lock,
		metrics:  opts.Metrics,
		logger:   logger.Component(opts.Logger, name+"_job"),
		task:     t,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

func (j *scheduledJob) Name() string {
	return j.name
}

// Start registers the job on its schedule and starts the scheduler.
func (j *scheduledJob) Start() error {
	if j.schedule == "" {
		return errors.New(j.name + ": schedule is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err := j.cron.AddFunc(j.schedule, func() {
		tickCtx, done := context.WithTimeout(ctx, j.timeout)
		defer done()
		_ = j.RunOnce(tickCtx)
	})
	if err != nil {
		cancel()
		return err
	}

	j.cancel = cancel
	j.cron.Start()
	j.logger.Info().Str("schedule", j.schedule).Msg("job started")
	return nil
}

// Stop cancels a running tick and waits for it to return.
func (j *scheduledJob) Stop() {
	stopped := j.cron.Stop()
	if j.cancel != nil {
		j.cancel()
	}
	<-stopped.Done()
	j.logger.Info().Msg("job stopped")
}

// RunOnce runs a single tick: lock, task, metrics.
func (j *scheduledJob) RunOnce(ctx context.Context) error {
	if j.lock != nil {
		locked, err := j.lock.Acquire(ctx)
		if err != nil {
			j.logger.Error().Err(err).Msg("lock acquire failed")
			j.metrics.IncFailure(j.name)
			return err
		}
		if !locked {
			j.logger.Debug().Msg("another instance holds the lock; skipping tick")
			j.metrics.IncSkipped(j.name)
			return nil
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx)); err != nil {
				j.logger.Warn().Err(err).Msg("lock release failed")
			}
		}()
	}

	start := time.Now()
	err := j.task(ctx, j.logger)
	elapsed := time.Since(start)
	j.metrics.ObserveDuration(j.name, elapsed)

	if err != nil {
		j.logger.Error().Err(err).Dur("duration", elapsed).Msg("tick failed")
		j.metrics.IncFailure(j.name)
		return err
	}
	j.metrics.IncSuccess(j.name)
	return nil
}
