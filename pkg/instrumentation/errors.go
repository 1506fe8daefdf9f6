package instrumentation

import (
	"errors"
	"fmt"
)

var (
	// ErrBuilderClosed is wrapped by every protocol violation: a second
	// Flush, or an append after Flush.
	ErrBuilderClosed = errors.New("instrumentation builder already flushed")

	// ErrInstrumentationClosed is returned when work is submitted to a
	// closed worker pool.
	ErrInstrumentationClosed = errors.New("instrumentation is closed")

	// ErrCloseTimeout is returned by Close when generators are still
	// running after the grace period.
	ErrCloseTimeout = errors.New("instrumentation generators still running at close")
)

// ProtocolError reports misuse of a Builder.
type ProtocolError struct {
	Operation string // builder operation name
	Call      string // offending call ("Flush", "Data", ...)
	Entry     string // entry name for append calls
	Cause     error
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	if e.Entry != "" {
		return fmt.Sprintf("instrumentation protocol error [operation=%s, call=%s, entry=%s]: %v",
			e.Operation, e.Call, e.Entry, e.Cause)
	}
	return fmt.Sprintf("instrumentation protocol error [operation=%s, call=%s]: %v",
		e.Operation, e.Call, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ProtocolError) Unwrap() error {
	return e.Cause
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(operation, call, entry string, cause error) *ProtocolError {
	return &ProtocolError{
		Operation: operation,
		Call:      call,
		Entry:     entry,
		Cause:     cause,
	}
}

// StorageError represents an error from a storage backend.
type StorageError struct {
	Backend   string // "sqlite", "memory"
	Operation string // "store", "query", "delete", ...
	Cause     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error [backend=%s, operation=%s]: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// NewStorageError creates a new StorageError.
func NewStorageError(backend, operation string, cause error) *StorageError {
	return &StorageError{
		Backend:   backend,
		Operation: operation,
		Cause:     cause,
	}
}

// QueryError represents an invalid or failed query.
type QueryError struct {
	Query *Query
	Cause error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// NewQueryError creates a new QueryError.
func NewQueryError(query *Query, cause error) *QueryError {
	return &QueryError{
		Query: query,
		Cause: cause,
	}
}

// RecorderError represents a record that could not be handed to storage.
type RecorderError struct {
	RecordID string
	Cause    error
}

// Error implements the error interface.
func (e *RecorderError) Error() string {
	if e.RecordID != "" {
		return fmt.Sprintf("recorder error [record_id=%s]: %v", e.RecordID, e.Cause)
	}
	return fmt.Sprintf("recorder error: %v", e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RecorderError) Unwrap() error {
	return e.Cause
}

// NewRecorderError creates a new RecorderError.
func NewRecorderError(recordID string, cause error) *RecorderError {
	return &RecorderError{
		RecordID: recordID,
		Cause:    cause,
	}
}

// RetentionError represents an error during retention enforcement.
type RetentionError struct {
	RetentionDays int
	Cause         error
}

// Error implements the error interface.
func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention error [retention_days=%d]: %v", e.RetentionDays, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *RetentionError) Unwrap() error {
	return e.Cause
}

// NewRetentionError creates a new RetentionError.
func NewRetentionError(retentionDays int, cause error) *RetentionError {
	return &RetentionError{
		RetentionDays: retentionDays,
		Cause:         cause,
	}
}

// ExportError represents an error during export.
type ExportError struct {
	Format      string
	RecordCount int
	Cause       error
}

// Error implements the error interface.
func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [format=%s, record_count=%d]: %v", e.Format, e.RecordCount, e.Cause)
}

// Unwrap returns the underlying cause error.
func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, recordCount int, cause error) *ExportError {
	return &ExportError{
		Format:      format,
		RecordCount: recordCount,
		Cause:       cause,
	}
}
