package flow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Transitions    *prometheus.CounterVec
	VerifyDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers the flow metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_passwordless_transitions_total",
			Help: "Passwordless flow state transitions by target state",
		}, []string{"state"}),
		VerifyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrowgate_passwordless_verify_duration_seconds",
			Help:    "Duration of sign-in link verification calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observeTransition(s State) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) observeVerify(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "failure"
	if ok {
		outcome = "success"
	}
	m.VerifyDuration.WithLabelValues(outcome).Observe(d.Seconds())
}
