package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the aggregation engine.
type Metrics struct {
	Registry           *prometheus.Registry
	SearchesTotal      *prometheus.CounterVec
	SearchDuration     prometheus.Histogram
	ItemsFilteredTotal prometheus.Counter
	FallbacksTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	searches := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_searches_total",
			Help: "Total searches by outcome.",
		},
		[]string{"outcome"},
	)
	searchDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_search_duration_seconds",
			Help:    "End-to-end aggregation latency for uncached searches.",
			Buckets: prometheus.DefBuckets,
		},
	)
	filtered := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "engine_items_filtered_total",
			Help: "Catalog items rejected by the relevance filter.",
		},
	)
	fallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_enrichment_fallbacks_total",
			Help: "Per-item enrichment failures degraded to fallback values.",
		},
		[]string{"field"},
	)

	registry.MustRegister(searches, searchDuration, filtered, fallbacks)

	return &Metrics{
		Registry:           registry,
		SearchesTotal:      searches,
		SearchDuration:     searchDuration,
		ItemsFilteredTotal: filtered,
		FallbacksTotal:     fallbacks,
	}
}

// IncSearch increments the search counter for an outcome label.
func (m *Metrics) IncSearch(outcome string) {
	if m == nil {
		return
	}
	m.SearchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an aggregation duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
}

// IncFiltered increments the relevance-rejection counter.
func (m *Metrics) IncFiltered() {
	if m == nil {
		return
	}
	m.ItemsFilteredTotal.Inc()
}

// IncFallback increments the enrichment fallback counter for a field label.
func (m *Metrics) IncFallback(field string) {
	if m == nil {
		return
	}
	m.FallbacksTotal.WithLabelValues(field).Inc()
}
