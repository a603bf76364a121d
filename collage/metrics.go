package collage

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the compositor.
type Metrics struct {
	Registry        *prometheus.Registry
	TilesTotal      *prometheus.CounterVec
	ComposeDuration prometheus.Histogram
	CollagesTotal   *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	tiles := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collage_tiles_total",
			Help: "Per-image tile outcomes while compositing.",
		},
		[]string{"status"},
	)
	composeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "collage_compose_duration_seconds",
			Help:    "Time spent building one collage.",
			Buckets: prometheus.DefBuckets,
		},
	)
	collages := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collage_collages_total",
			Help: "Collage outcomes.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(tiles, composeDuration, collages)

	return &Metrics{
		Registry:        registry,
		TilesTotal:      tiles,
		ComposeDuration: composeDuration,
		CollagesTotal:   collages,
	}
}

// IncTile records one tile outcome.
func (m *Metrics) IncTile(status string) {
	if m == nil {
		return
	}
	m.TilesTotal.WithLabelValues(status).Inc()
}

// ObserveDuration records a compose duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ComposeDuration.Observe(d.Seconds())
}

// IncCollage records one collage outcome.
func (m *Metrics) IncCollage(outcome string) {
	if m == nil {
		return
	}
	m.CollagesTotal.WithLabelValues(outcome).Inc()
}
