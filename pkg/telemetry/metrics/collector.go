package metrics

import (
	"sync"
	"time"

	"mercator-hq/meridian/pkg/config"
	"mercator-hq/meridian/pkg/instrumentation"

	"github.com/prometheus/client_golang/prometheus"
)

// overflowLabel replaces label values once the cardinality limit is reached.
const overflowLabel = "other"

// Collector owns every Prometheus metric exported by meridian. It implements
// instrumentation.Observer for builder flushes and the project registry
// observer for cache events, so both can be handed the same value.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	instrumentation *InstrumentationMetrics
	projects        *RegistryMetrics
	index           *IndexMetrics

	// operation names are caller-supplied, so they are capped
	operations *CardinalityLimiter
}

// NewCollector creates a collector registered on registry. If registry is nil
// a fresh one is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg == nil {
		cfg = &config.MetricsConfig{Enabled: true}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}
	if len(cfg.FlushDurationBuckets) == 0 {
		cfg.FlushDurationBuckets = append([]float64(nil), config.DefaultFlushDurationBuckets...)
	}

	return &Collector{
		config:          cfg,
		registry:        registry,
		instrumentation: NewInstrumentationMetrics(cfg, registry),
		projects:        NewRegistryMetrics(cfg, registry),
		index:           NewIndexMetrics(cfg, registry),
		operations:      NewCardinalityLimiter(1000),
	}
}

// ObserveFlush records the statistics of one builder flush.
func (c *Collector) ObserveFlush(stats instrumentation.FlushStats) {
	if !c.config.Enabled {
		return
	}

	op := stats.Operation
	if !c.operations.Allow(op) {
		op = overflowLabel
	}
	c.instrumentation.RecordFlush(op, stats)
}

// ProjectCacheHit records a registry lookup that found a cached project.
func (c *Collector) ProjectCacheHit() {
	if !c.config.Enabled {
		return
	}
	c.projects.hits.Inc()
}

// ProjectCreated records a cache miss that constructed a new project.
// cached is the cache size after the insert.
func (c *Collector) ProjectCreated(cached int) {
	if !c.config.Enabled {
		return
	}
	c.projects.misses.Inc()
	c.projects.cached.Set(float64(cached))
}

// ProjectEvicted records the removal of a cached project.
func (c *Collector) ProjectEvicted(cached int) {
	if !c.config.Enabled {
		return
	}
	c.projects.evictions.Inc()
	c.projects.cached.Set(float64(cached))
}

// SearchEngineCreated records one NewSearchEngine call.
func (c *Collector) SearchEngineCreated() {
	if !c.config.Enabled {
		return
	}
	c.projects.engines.Inc()
}

// ResourceLookup records one ResourceFor call. result is "hit", "miss" or
// "error".
func (c *Collector) ResourceLookup(result string, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.projects.RecordLookup(result, duration)
}

// ProjectIndexed records one project contributing elements to the index.
func (c *Collector) ProjectIndexed(elements int, duration time.Duration, err error) {
	if !c.config.Enabled {
		return
	}
	c.index.RecordRun(elements, duration, err)
}

// IndexSize sets the total number of elements in the shared index.
func (c *Collector) IndexSize(elements int) {
	if !c.config.Enabled {
		return
	}
	c.index.elements.Set(float64(elements))
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a limiter admitting at most maxCardinality
// distinct values.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Values seen before are
// always allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
