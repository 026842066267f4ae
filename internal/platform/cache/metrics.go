package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the cache layer.
type Metrics struct {
	// Lookups by namespace and result (hit, miss, error)
	Lookups *prometheus.CounterVec

	// Populate calls by namespace and outcome (stored, empty, error, bypass)
	Populates *prometheus.CounterVec

	// Invalidations by namespace and outcome (ok, error)
	Invalidations *prometheus.CounterVec
}

// NewMetrics registers cache metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Lookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atatek_cache_lookups_total",
			Help: "Cache lookups by namespace and result",
		}, []string{"namespace", "result"}),
		Populates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atatek_cache_populates_total",
			Help: "Populate calls on cache miss by namespace and outcome",
		}, []string{"namespace", "outcome"}),
		Invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atatek_cache_invalidations_total",
			Help: "Cache invalidations by namespace and outcome",
		}, []string{"namespace", "outcome"}),
	}
}

func (m *Metrics) lookup(key, result string) {
	if m != nil {
		m.Lookups.WithLabelValues(namespaceOf(key), result).Inc()
	}
}

func (m *Metrics) populate(key, outcome string) {
	if m != nil {
		m.Populates.WithLabelValues(namespaceOf(key), outcome).Inc()
	}
}

func (m *Metrics) invalidation(key, outcome string) {
	if m != nil {
		m.Invalidations.WithLabelValues(namespaceOf(key), outcome).Inc()
	}
}
