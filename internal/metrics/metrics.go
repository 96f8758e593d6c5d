// Package metrics holds the prometheus collectors for an ingest run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts ingest outcomes on its own registry so runs never share
// state through the global default registerer.
type Recorder struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	children *prometheus.CounterVec
	fuse     prometheus.Histogram
}

// New registers a fresh set of collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workfusion",
			Name:      "records_total",
			Help:      "Records processed, by outcome (new, existing, skipped, failed).",
		}, []string{"outcome"}),
		children: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workfusion",
			Name:      "merges_total",
			Help:      "Edition, entity and subject merges, by kind (matched, created, rejected).",
		}, []string{"child", "kind"}),
		fuse: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "workfusion",
			Name:      "fuse_duration_seconds",
			Help:      "Time spent in one fuse transaction.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
	}
	r.registry.MustRegister(r.records, r.children, r.fuse)
	return r
}

// Record counts one record outcome.
func (r *Recorder) Record(outcome string) {
	r.records.WithLabelValues(outcome).Inc()
}

// Merge counts one child merge.
func (r *Recorder) Merge(child, kind string) {
	r.children.WithLabelValues(child, kind).Inc()
}

// ObserveFuse records the duration of one fuse call.
func (r *Recorder) ObserveFuse(d time.Duration) {
	r.fuse.Observe(d.Seconds())
}

// Registry exposes the collectors for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile dumps the collectors in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
