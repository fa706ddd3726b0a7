package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts remote calls per procedure and outcome. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "doin",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Remote store requests by procedure and outcome.",
		}, []string{"procedure", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "doin",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Remote store request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}
}

func (m *Metrics) observe(procedure string, err error, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(procedure, outcome).Inc()
	m.duration.WithLabelValues(procedure).Observe(d.Seconds())
}
