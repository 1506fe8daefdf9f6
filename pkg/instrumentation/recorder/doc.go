// Package recorder provides the sinks that receive instrumentation records.
//
// # Recorder
//
// Recorder is an instrumentation.Logger that persists records to an
// instrumentation.Storage without blocking the flushing goroutine:
//
//	rec := recorder.NewRecorder(store, &recorder.Config{
//	    AsyncBuffer:  1000,
//	    WriteTimeout: 5 * time.Second,
//	    Privacy:      recorder.PrivacyHash,
//	})
//	defer rec.Close()
//
//	inst := instrumentation.New(rec, nil)
//
// Log enqueues the record on a buffered channel and a single background
// goroutine writes it. When the channel stays full for WriteTimeout the
// record is dropped and counted. Close drains the channel before returning.
//
// # Privacy
//
// Before a record leaves the process, a Sanitizer applies the privacy
// policy to entries tagged as data:
//
//   - keep: stored as is
//   - hash: replaced by "sha256:<hex>" of the value
//   - drop: removed from the record
//
// Metric entries are always kept. Strings longer than MaxFieldLength are
// truncated in both kinds of entries.
//
// # Other Sinks
//
// LogSink writes each record as one structured log line. Multi fans a
// record out to several loggers.
package recorder
