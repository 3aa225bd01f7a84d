package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts accessor outcomes. All methods are safe on a nil receiver.
type Metrics struct {
	Hits   prometheus.Counter
	Misses prometheus.Counter
	Errors *prometheus.CounterVec
}

// NewMetrics registers the cache counters with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Hits: f.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Reads served from the cache store.",
		}),
		Misses: f.NewCounter(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Reads that fell through to the origin fetcher.",
		}),
		Errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "anchor",
			Subsystem: "cache",
			Name:      "store_errors_total",
			Help:      "Swallowed cache store failures by operation.",
		}, []string{"op"}),
	}
}

func (m *Metrics) hit() {
	if m != nil {
		m.Hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.Misses.Inc()
	}
}

func (m *Metrics) storeError(op string) {
	if m != nil {
		m.Errors.WithLabelValues(op).Inc()
	}
}
