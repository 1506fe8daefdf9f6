package metrics

import (
	"time"

	"mercator-hq/meridian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RegistryMetrics tracks the project registry cache.
type RegistryMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	cached    prometheus.Gauge
	engines   prometheus.Counter

	// lookupsTotal counts ResourceFor calls by result (hit, miss, error)
	lookupsTotal   *prometheus.CounterVec
	lookupDuration prometheus.Histogram
}

// NewRegistryMetrics creates and registers project registry metrics.
func NewRegistryMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RegistryMetrics {
	m := &RegistryMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "cache_hits_total",
			Help:      "Project lookups answered from the cache",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "cache_misses_total",
			Help:      "Project lookups that constructed a new project",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "evictions_total",
			Help:      "Projects removed from the cache",
		}),
		cached: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "cached_projects",
			Help:      "Current number of cached projects",
		}),
		engines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "search_engines_total",
			Help:      "Search engines created",
		}),
		lookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "registry",
				Name:      "resource_lookups_total",
				Help:      "Resource lookups by result",
			},
			[]string{"result"},
		),
		lookupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "registry",
			Name:      "resource_lookup_duration_seconds",
			Help:      "Resource lookup latency",
			Buckets:   cfg.FlushDurationBuckets,
		}),
	}

	registry.MustRegister(
		m.hits,
		m.misses,
		m.evictions,
		m.cached,
		m.engines,
		m.lookupsTotal,
		m.lookupDuration,
	)

	return m
}

// RecordLookup records one resource lookup.
func (m *RegistryMetrics) RecordLookup(result string, duration time.Duration) {
	m.lookupsTotal.WithLabelValues(result).Inc()
	m.lookupDuration.Observe(duration.Seconds())
}
