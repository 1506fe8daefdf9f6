package metrics

import (
	"mercator-hq/meridian/pkg/config"
	"mercator-hq/meridian/pkg/instrumentation"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentationMetrics tracks instrumentation builder flushes.
type InstrumentationMetrics struct {
	// flushesTotal counts flushed records by operation
	flushesTotal *prometheus.CounterVec

	// entriesTotal counts delivered entries by sensitivity (data, metric)
	entriesTotal *prometheus.CounterVec

	// deferredTotal counts deferred entries by outcome
	// (resolved, timeout, failed)
	deferredTotal *prometheus.CounterVec

	// flushWait measures how long Flush blocked on deferred values
	flushWait *prometheus.HistogramVec

	// builderLifetime measures the time between opening and flushing a builder
	builderLifetime *prometheus.HistogramVec
}

// NewInstrumentationMetrics creates and registers instrumentation metrics.
func NewInstrumentationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *InstrumentationMetrics {
	m := &InstrumentationMetrics{
		flushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "instrumentation",
				Name:      "flushes_total",
				Help:      "Total number of flushed instrumentation records",
			},
			[]string{"operation"},
		),
		entriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "instrumentation",
				Name:      "entries_total",
				Help:      "Total number of delivered entries by sensitivity",
			},
			[]string{"sensitivity"},
		),
		deferredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "instrumentation",
				Name:      "deferred_total",
				Help:      "Total number of deferred entries by outcome",
			},
			[]string{"outcome"},
		),
		flushWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "instrumentation",
				Name:      "flush_wait_seconds",
				Help:      "Time Flush spent waiting for deferred values",
				Buckets:   cfg.FlushDurationBuckets,
			},
			[]string{"operation"},
		),
		builderLifetime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "instrumentation",
				Name:      "builder_lifetime_seconds",
				Help:      "Time between opening and flushing a builder",
				Buckets:   cfg.FlushDurationBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.flushesTotal,
		m.entriesTotal,
		m.deferredTotal,
		m.flushWait,
		m.builderLifetime,
	)

	return m
}

// RecordFlush records one flush. operation must already be cardinality
// limited.
func (m *InstrumentationMetrics) RecordFlush(operation string, stats instrumentation.FlushStats) {
	m.flushesTotal.WithLabelValues(operation).Inc()

	if stats.Sensitive > 0 {
		m.entriesTotal.WithLabelValues(instrumentation.Sensitive.String()).Add(float64(stats.Sensitive))
	}
	if stats.Metrics > 0 {
		m.entriesTotal.WithLabelValues(instrumentation.Metric.String()).Add(float64(stats.Metrics))
	}

	if stats.Deferred > 0 {
		resolved := stats.Deferred - stats.TimedOut - stats.Failed
		if resolved > 0 {
			m.deferredTotal.WithLabelValues("resolved").Add(float64(resolved))
		}
		if stats.TimedOut > 0 {
			m.deferredTotal.WithLabelValues("timeout").Add(float64(stats.TimedOut))
		}
		if stats.Failed > 0 {
			m.deferredTotal.WithLabelValues("failed").Add(float64(stats.Failed))
		}
	}

	m.flushWait.WithLabelValues(operation).Observe(stats.Wait.Seconds())
	m.builderLifetime.WithLabelValues(operation).Observe(stats.Lifetime.Seconds())
}
