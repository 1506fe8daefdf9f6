package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/recorder"
)

const (
	// AttrRecordID carries the record ID.
	AttrRecordID = "meridian.record.id"

	// AttrEntryPrefix prefixes the attribute key of every entry.
	AttrEntryPrefix = "meridian.entry."

	// EventUnavailable is the span event for an unavailable entry.
	EventUnavailable = "entry unavailable"
)

// SpanSink is an instrumentation.Logger that exports records as spans.
type SpanSink struct {
	tracer    *Tracer
	sanitizer *recorder.Sanitizer
}

// NewSpanSink creates a sink exporting through tracer. Data entries are
// treated according to privacy before they become attributes.
func NewSpanSink(tracer *Tracer, privacy recorder.Privacy, maxFieldLength int) *SpanSink {
	return &SpanSink{
		tracer:    tracer,
		sanitizer: &recorder.Sanitizer{Privacy: privacy, MaxFieldLength: maxFieldLength},
	}
}

// Log implements instrumentation.Logger.
func (s *SpanSink) Log(record *instrumentation.Record) {
	if !s.tracer.Enabled() {
		return
	}

	sanitized := s.sanitizer.Apply(record)

	attrs := make([]attribute.KeyValue, 0, len(sanitized.Entries)+1)
	attrs = append(attrs, attribute.String(AttrRecordID, record.ID))

	var unavailable []instrumentation.Entry
	for _, e := range sanitized.Entries {
		if e.Value.IsUnavailable() {
			unavailable = append(unavailable, e)
			continue
		}
		attrs = append(attrs, entryAttribute(e))
	}

	_, span := s.tracer.Start(context.Background(), record.Operation,
		trace.WithTimestamp(record.StartTime),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	for _, e := range unavailable {
		span.AddEvent(EventUnavailable,
			trace.WithTimestamp(record.FlushTime),
			trace.WithAttributes(
				attribute.String("entry.name", e.Name),
				attribute.String("entry.reason", e.Value.Reason()),
			),
		)
	}
	span.End(trace.WithTimestamp(record.FlushTime))
}

// entryAttribute converts an available entry into a typed attribute.
func entryAttribute(e instrumentation.Entry) attribute.KeyValue {
	key := AttrEntryPrefix + e.Name
	switch e.Value.Kind() {
	case instrumentation.KindInt:
		v, _ := e.Value.Int64()
		return attribute.Int64(key, v)
	case instrumentation.KindStrings:
		v, _ := e.Value.List()
		return attribute.StringSlice(key, v)
	default:
		v, _ := e.Value.Text()
		return attribute.String(key, v)
	}
}
