package instrumentation

import (
	"context"
	"io"
	"time"
)

// Record is the unit delivered to a Logger: every entry collected by one
// builder, in append order.
type Record struct {
	// ID is a UUID v4 assigned when the builder is opened.
	ID string `json:"id"`

	// Operation names the monitored operation (e.g. "Registry.resourceFor").
	Operation string `json:"operation"`

	// StartTime is when the builder was opened.
	StartTime time.Time `json:"start_time"`

	// FlushTime is when Flush delivered the record.
	FlushTime time.Time `json:"flush_time"`

	// Duration is FlushTime - StartTime.
	Duration time.Duration `json:"duration"`

	// Entries in append order.
	Entries []Entry `json:"entries"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	out := *r
	out.Entries = make([]Entry, len(r.Entries))
	copy(out.Entries, r.Entries)
	return &out
}

// Lookup returns the first entry with the given name.
func (r *Record) Lookup(name string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Logger ingests completed records. Log is called once per Flush and must
// not retain the record after returning unless it copies it.
type Logger interface {
	Log(record *Record)
}

// LoggerFunc adapts a function to the Logger interface.
type LoggerFunc func(record *Record)

// Log calls f(record).
func (f LoggerFunc) Log(record *Record) { f(record) }

// NopLogger discards every record.
var NopLogger Logger = LoggerFunc(func(*Record) {})

// Query defines filter parameters for stored records.
type Query struct {
	// Time range over StartTime, both inclusive.
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`

	// ID selects a single record.
	ID string `json:"id,omitempty"`

	// Operation filters by exact operation name.
	Operation string `json:"operation,omitempty"`

	// EntryName keeps only records containing an entry with this name.
	EntryName string `json:"entry_name,omitempty"`

	// Pagination
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`

	// SortOrder is "desc" (newest first, default) or "asc".
	SortOrder string `json:"sort_order,omitempty"`
}

// Storage persists records for later querying.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists a record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the filters.
	// Returns an empty slice if nothing matches.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// QueryStream streams matching records. Both channels are closed when
	// the query completes; errCh carries at most one error.
	QueryStream(ctx context.Context, query *Query) (<-chan *Record, <-chan error, error)

	// Count returns the number of records matching the filters.
	Count(ctx context.Context, query *Query) (int64, error)

	// Delete removes matching records and returns how many were removed.
	Delete(ctx context.Context, query *Query) (int64, error)

	// Close releases resources held by the backend.
	Close() error
}

// Exporter writes records in some interchange format.
type Exporter interface {
	Export(ctx context.Context, records []*Record, w io.Writer) error
}
