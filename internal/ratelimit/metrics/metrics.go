package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions          *prometheus.CounterVec
	Blocks             *prometheus.CounterVec
	FailedAttempts     *prometheus.CounterVec
	Resets             prometheus.Counter
	StoreFallback      prometheus.Gauge
	StoreErrors        *prometheus.CounterVec
	CleanupRunsTotal   *prometheus.CounterVec
	CleanupDeleted     prometheus.Counter
	CleanupDurationSec prometheus.Histogram
}

// New registers the metrics with the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg, so tests can use a private registry.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_decisions_total",
			Help: "Rate limit decisions by policy prefix and outcome",
		}, []string{"policy", "outcome"}),
		Blocks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_blocks_total",
			Help: "Blocks placed on keys by policy prefix and reason",
		}, []string{"policy", "reason"}),
		FailedAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_failed_attempts_total",
			Help: "Failed authentication attempts recorded by policy prefix",
		}, []string{"policy"}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_resets_total",
			Help: "Records cleared after a successful sign-in or by an admin",
		}),
		StoreFallback: f.NewGauge(prometheus.GaugeOpts{
			Name: "escrowgate_ratelimit_store_fallback",
			Help: "1 while the record store is serving from the in-memory fallback",
		}),
		StoreErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_store_errors_total",
			Help: "Primary record store errors by operation",
		}, []string{"op"}),
		CleanupRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_cleanup_runs_total",
			Help: "Cleanup sweeps by status",
		}, []string{"status"}),
		CleanupDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "escrowgate_ratelimit_cleanup_deleted_total",
			Help: "Expired records removed by the cleanup sweep",
		}),
		CleanupDurationSec: f.NewHistogram(prometheus.HistogramOpts{
			Name: "escrowgate_ratelimit_cleanup_duration_seconds",
			Help: "Duration of cleanup sweeps in seconds",
		}),
	}
}

func (m *Metrics) ObserveDecision(policy string, allowed bool) {
	if m == nil {
		return
	}
	outcome := "allowed"
	if !allowed {
		outcome = "rejected"
	}
	m.Decisions.WithLabelValues(policy, outcome).Inc()
}

func (m *Metrics) IncrementBlocks(policy, reason string) {
	if m == nil {
		return
	}
	m.Blocks.WithLabelValues(policy, reason).Inc()
}

func (m *Metrics) IncrementFailedAttempts(policy string) {
	if m == nil {
		return
	}
	m.FailedAttempts.WithLabelValues(policy).Inc()
}

func (m *Metrics) IncrementResets() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

func (m *Metrics) SetFallback(active bool) {
	if m == nil {
		return
	}
	if active {
		m.StoreFallback.Set(1)
		return
	}
	m.StoreFallback.Set(0)
}

func (m *Metrics) IncrementStoreErrors(op string) {
	if m == nil {
		return
	}
	m.StoreErrors.WithLabelValues(op).Inc()
}
