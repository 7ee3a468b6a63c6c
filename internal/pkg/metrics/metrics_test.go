package metrics_test

import (
	"testing"
	"time"

	"orderflow/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetrics_RecordsRuns(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewJobMetrics(reg)

	m.ObserveDuration("dispatch_sweep", 250*time.Millisecond)
	m.IncSuccess("dispatch_sweep")
	m.IncFailure("dispatch_sweep")
	m.IncSkipped("")

	count, err := testutil.GatherAndCount(reg,
		"orderflow_job_success_total",
		"orderflow_job_failure_total",
		"orderflow_job_skipped_total",
		"orderflow_job_duration_seconds",
	)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestDispatchMetrics_CountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewDispatchMetrics(reg)

	m.Add(metrics.OutcomeOffered, 3)
	m.Inc(metrics.OutcomeLostRace)
	m.Add(metrics.OutcomeExpired, 0)
	m.IncRetry("respond_delivery_request")

	count, err := testutil.GatherAndCount(reg, "orderflow_dispatch_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var jobs *metrics.JobMetrics
	var dispatch *metrics.DispatchMetrics

	assert.NotPanics(t, func() {
		jobs.IncSuccess("x")
		jobs.ObserveDuration("x", time.Second)
		dispatch.Inc(metrics.OutcomeAccepted)
		dispatch.IncRetry("x")
	})
	assert.Nil(t, metrics.NewJobMetrics(nil))
}
