// Package jobs provides the scheduled background tasks of the order service.
//
// Jobs are built on github.com/robfig/cron/v3. Each job owns its own cron
// scheduler with seconds precision and skips a tick while the previous one is
// still running.
//
// # Available Jobs
//
// 1. DispatchSweepJob - expires stale delivery requests and opens the next
// broadcast round for orders still waiting for a courier
// 2. WorkflowRulesJob - applies the time based workflow rules (auto cancel,
// auto complete, advisories)
// 3. RefundSettlementJob - retries approved refunds the payment provider has
// not settled yet
//
// # Usage
//
//	jobManager, err := jobs.NewJobManager(schedules, sweeper, rules, settler, jobs.Deps{Logger: logger})
//	if err != nil {
//		return err
//	}
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// # Locking
//
// When a Lock is configured every tick first acquires it and is skipped when
// another instance holds it. Correctness never depends on the lock: all order
// writes are compare-and-swap.
//
// # Error Handling
//
// A failing tick is logged and counted; the next tick runs as scheduled.
// Failed job starts stop any already running jobs.
package jobs
