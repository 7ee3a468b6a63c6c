package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch outcome labels.
const (
	OutcomeOffered   = "offered"
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeLostRace  = "lost_race"
	OutcomeExpired   = "expired"
	OutcomeExhausted = "exhausted"
	OutcomeManual    = "manual"
)

// DispatchMetrics counts delivery request outcomes and CAS retries.
// A nil receiver is a no-op.
type DispatchMetrics struct {
	outcomes   *prometheus.CounterVec
	casRetries *prometheus.CounterVec
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return nil
	}
	m := &DispatchMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_outcomes_total",
			Help:      "Delivery request outcomes by kind.",
		}, []string{"outcome"}),
		casRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_cas_retries_total",
			Help:      "Order writes retried after a version conflict or storage error.",
		}, []string{"operation"}),
	}
	reg.MustRegister(m.outcomes, m.casRetries)
	return m
}

func (m *DispatchMetrics) Add(outcome string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Add(float64(n))
}

func (m *DispatchMetrics) Inc(outcome string) {
	m.Add(outcome, 1)
}

func (m *DispatchMetrics) IncRetry(operation string) {
	if m == nil {
		return
	}
	m.casRetries.WithLabelValues(normalizeLabel(operation)).Inc()
}
