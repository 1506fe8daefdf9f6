package recorder

import (
	"context"
	"log/slog"

	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/telemetry/logging"
)

// LogSink writes each record as one structured log line.
type LogSink struct {
	logger    *logging.Logger
	level     slog.Level
	sanitizer *Sanitizer
}

// NewLogSink creates a sink logging at level through logger. Data entries
// are treated according to privacy before they are written.
func NewLogSink(logger *logging.Logger, level slog.Level, privacy Privacy, maxFieldLength int) *LogSink {
	return &LogSink{
		logger:    logger,
		level:     level,
		sanitizer: &Sanitizer{Privacy: privacy, MaxFieldLength: maxFieldLength},
	}
}

type loggedEntry struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	Value       string `json:"value"`
	Sensitivity string `json:"sensitivity"`
	Deferred    bool   `json:"deferred,omitempty"`
}

// Log implements instrumentation.Logger.
func (s *LogSink) Log(record *instrumentation.Record) {
	if !s.logger.Enabled(s.level) {
		return
	}

	sanitized := s.sanitizer.Apply(record)
	redactor := s.logger.Redactor()

	entries := make([]loggedEntry, len(sanitized.Entries))
	for i, e := range sanitized.Entries {
		value := e.Value.String()
		if e.Sensitivity == instrumentation.Sensitive {
			value = redactor.RedactString(value)
		}
		entries[i] = loggedEntry{
			Name:        e.Name,
			Kind:        e.Value.Kind().String(),
			Value:       value,
			Sensitivity: e.Sensitivity.String(),
			Deferred:    e.Deferred,
		}
	}

	ctx := logging.WithRecordID(logging.WithOperation(context.Background(), record.Operation), record.ID)
	s.logger.WithContext(ctx).Log(ctx, s.level, "instrumentation record",
		"duration_ms", record.Duration.Milliseconds(),
		"entries", entries,
	)
}
