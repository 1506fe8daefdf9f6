// Package metrics exports meridian's Prometheus metrics.
//
// # Metrics Categories
//
//   - Instrumentation: flushed records by operation, entries by sensitivity,
//     deferred entry outcomes, flush wait and builder lifetime histograms
//   - Registry: project cache hits and misses, cached project gauge,
//     evictions, search engines created, resource lookups by result
//   - Index: element gauge, project indexing runs and latency
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//
//	inst := instrumentation.New(logger, &instrumentation.Config{
//		Observer: collector,
//	})
//	registry := project.NewRegistry(root, &project.Config{
//		Instrumentation: inst,
//		Observer:        collector,
//	})
//
//	http.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// All metric names carry the configured namespace ("meridian" by default).
// Operation labels are capped by a CardinalityLimiter; values past the cap
// are reported as "other".
package metrics
