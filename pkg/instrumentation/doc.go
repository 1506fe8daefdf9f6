// Package instrumentation collects structured, privacy-tagged telemetry about
// engine operations.
//
// # Overview
//
// A Builder is opened around one monitored operation, accumulates named
// entries and is flushed exactly once. Every entry carries a sensitivity tag:
//
//   - Sensitive ("data"): may identify a user or contain user intellectual
//     property (paths, names, source text).
//   - Metric: aggregate, non-identifying values (counts, durations, flags).
//
// The tag is the only privacy contract between the code that collects
// telemetry and the Logger that receives it. Loggers decide retention and
// redaction per tag; see the recorder package.
//
// # Usage
//
//	inst := instrumentation.New(logger, instrumentation.DefaultConfig())
//	defer inst.Close()
//
//	b := inst.Builder("Registry.project.create")
//	b.DataString("resource", path).
//		MetricInt("cached", int64(n)).
//		DataFunc("vcs_head", func(ctx context.Context) (instrumentation.Value, error) {
//			return headOf(ctx, path)
//		})
//	if err := b.Flush(); err != nil {
//		// only protocol violations are reported here
//	}
//
// # Deferred values
//
// DataFunc and MetricFunc take a DeferredValue that runs on the shared worker
// pool, so the caller never waits for it. Flush waits for every outstanding
// generator up to Config.FlushTimeout. A generator that fails, panics or does
// not finish in time is recorded as an Unavailable value; telemetry never
// fails the operation it observes.
//
// # Protocol
//
// A Builder is single-use. Calling Flush twice returns a *ProtocolError;
// appending after Flush panics with a *ProtocolError. Both wrap
// ErrBuilderClosed.
package instrumentation
