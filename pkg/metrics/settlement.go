package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SettlementMetrics records sweep outcomes for the buyer-protection window.
type SettlementMetrics struct {
	sweepDuration *prometheus.HistogramVec
	settled       prometheus.Counter
	failures      prometheus.Counter
}

// NewSettlementMetrics registers settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	sweepDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "settlement_sweep_duration_seconds",
		Help:    "Duration of settlement sweep runs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	settled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_settled_total",
		Help: "Transactions auto-settled past the buyer-protection window.",
	})
	failures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_sweep_failures_total",
		Help: "Transactions the sweep failed to settle.",
	})
	reg.MustRegister(sweepDuration, settled, failures)
	return &SettlementMetrics{
		sweepDuration: sweepDuration,
		settled:       settled,
		failures:      failures,
	}
}

// ObserveSweep records the duration of one sweep run.
func (m *SettlementMetrics) ObserveSweep(outcome string, duration time.Duration) {
	if m == nil || m.sweepDuration == nil {
		return
	}
	m.sweepDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncSettled counts one auto-settled transaction.
func (m *SettlementMetrics) IncSettled() {
	if m == nil || m.settled == nil {
		return
	}
	m.settled.Inc()
}

// IncFailure counts one failed settlement attempt.
func (m *SettlementMetrics) IncFailure() {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Inc()
}
