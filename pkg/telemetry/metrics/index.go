package metrics

import (
	"time"

	"mercator-hq/meridian/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// IndexMetrics tracks the shared code index.
type IndexMetrics struct {
	elements      prometheus.Gauge
	runsTotal     *prometheus.CounterVec
	addedTotal    prometheus.Counter
	indexDuration prometheus.Histogram
}

// NewIndexMetrics creates and registers index metrics.
func NewIndexMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IndexMetrics {
	m := &IndexMetrics{
		elements: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: "index",
			Name:      "elements",
			Help:      "Current number of elements in the index",
		}),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "index",
				Name:      "project_runs_total",
				Help:      "Project indexing runs by status",
			},
			[]string{"status"},
		),
		addedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: "index",
			Name:      "elements_added_total",
			Help:      "Elements contributed by project indexing runs",
		}),
		indexDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: "index",
			Name:      "project_duration_seconds",
			Help:      "Time spent indexing one project",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}),
	}

	registry.MustRegister(m.elements, m.runsTotal, m.addedTotal, m.indexDuration)
	return m
}

// RecordRun records one project indexing run.
func (m *IndexMetrics) RecordRun(elements int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(status).Inc()
	if elements > 0 {
		m.addedTotal.Add(float64(elements))
	}
	m.indexDuration.Observe(duration.Seconds())
}
