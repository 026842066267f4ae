package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the tree sync and mutation paths.
type Metrics struct {
	// Sync attempts by outcome (synced, noop, upstream_error, circuit_open, store_error)
	SyncOutcomes *prometheus.CounterVec

	// Nodes inserted by sync
	NodesInserted prometheus.Counter

	// Fetch-and-merge latency
	SyncDuration prometheus.Histogram

	// Visibility toggles by action (delete, restore)
	VisibilityChanges *prometheus.CounterVec
}

// New registers tree metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SyncOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atatek_tree_sync_total",
			Help: "Child sync attempts by outcome",
		}, []string{"outcome"}),
		NodesInserted: f.NewCounter(prometheus.CounterOpts{
			Name: "atatek_tree_sync_nodes_inserted_total",
			Help: "Nodes inserted from the external source",
		}),
		SyncDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "atatek_tree_sync_duration_seconds",
			Help:    "Time spent fetching and merging children from the external source",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
		VisibilityChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "atatek_tree_visibility_changes_total",
			Help: "Soft delete and restore operations",
		}, []string{"action"}),
	}
}

// ObserveSync records one sync attempt.
func (m *Metrics) ObserveSync(outcome string, inserted int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.SyncOutcomes.WithLabelValues(outcome).Inc()
	m.NodesInserted.Add(float64(inserted))
	m.SyncDuration.Observe(elapsed.Seconds())
}

// IncrementVisibilityChange records a delete or restore.
func (m *Metrics) IncrementVisibilityChange(action string) {
	if m == nil {
		return
	}
	m.VisibilityChanges.WithLabelValues(action).Inc()
}
