package request

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
	Requests        *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on reg instead of the default registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escrowgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
		}, []string{"endpoint"}),
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "escrowgate_http_requests_total",
			Help: "HTTP requests by route and status class",
		}, []string{"endpoint", "class"}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	m.EndpointLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	m.Requests.WithLabelValues(endpoint, statusClass(status)).Inc()
}

// statusClass buckets a status code as "2xx", "4xx" and so on, keeping 429
// separate so throttling stands out.
func statusClass(status int) string {
	if status == 429 {
		return "429"
	}
	if status < 100 || status > 599 {
		return "other"
	}
	return strconv.Itoa(status/100) + "xx"
}
