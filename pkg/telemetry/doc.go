// Package telemetry groups meridian's observability packages.
//
//   - logging: structured slog logging with PII redaction
//   - metrics: Prometheus metrics for instrumentation, the registry and the index
//   - health: liveness and readiness endpoints served next to /metrics
//   - tracing: OpenTelemetry export of instrumentation records as spans
//
// Operation-level records are produced by package instrumentation. The
// recorder stores them and the tracing sink exports them.
package telemetry
