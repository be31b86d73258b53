package sbclient

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records client-side request outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   prometheus.Histogram
	mismatches prometheus.Counter
}

// NewMetrics creates the client collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sb_client_requests_total",
			Help: "Link creation calls by outcome code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sb_client_request_duration_seconds",
			Help:    "Duration of link creation calls.",
			Buckets: prometheus.DefBuckets,
		}),
		mismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sb_client_status_mismatch_total",
			Help: "Error responses whose body status disagrees with the HTTP status.",
		}),
	}

	for _, c := range []prometheus.Collector{m.requests, m.duration, m.mismatches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observe(code string, d time.Duration) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(code).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) statusMismatch() {
	if m == nil {
		return
	}

	m.mismatches.Inc()
}
