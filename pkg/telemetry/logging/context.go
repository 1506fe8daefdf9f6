package logging

import (
	"context"
)

// Context keys for common log fields.
type contextKey string

const (
	// OperationKey is the context key for the instrumented operation name.
	OperationKey contextKey = "operation"

	// ProjectKey is the context key for the project resource path.
	ProjectKey contextKey = "project"

	// RecordIDKey is the context key for instrumentation record IDs.
	RecordIDKey contextKey = "record_id"

	// SessionKey is the context key for session identifiers.
	SessionKey contextKey = "session"
)

// contextFields lists the keys extracted into log fields, in output order.
var contextFields = []contextKey{OperationKey, ProjectKey, RecordIDKey, SessionKey}

// WithOperation adds an operation name to the context.
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, OperationKey, operation)
}

// GetOperation retrieves the operation name from the context.
func GetOperation(ctx context.Context) string {
	return getString(ctx, OperationKey)
}

// WithProject adds a project path to the context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, ProjectKey, project)
}

// GetProject retrieves the project path from the context.
func GetProject(ctx context.Context) string {
	return getString(ctx, ProjectKey)
}

// WithRecordID adds an instrumentation record ID to the context.
func WithRecordID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RecordIDKey, id)
}

// GetRecordID retrieves the record ID from the context.
func GetRecordID(ctx context.Context) string {
	return getString(ctx, RecordIDKey)
}

// WithSession adds a session identifier to the context.
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}

// GetSession retrieves the session identifier from the context.
func GetSession(ctx context.Context) string {
	return getString(ctx, SessionKey)
}

func getString(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// extractContextFields returns the context values as key/value pairs
// suitable for logger.With().
func extractContextFields(ctx context.Context) []any {
	var fields []any
	for _, key := range contextFields {
		if v := getString(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// ContextLogger is a logger that automatically includes context fields.
type ContextLogger struct {
	logger *Logger
	ctx    context.Context
}

// NewContextLogger creates a logger that automatically includes context fields.
func NewContextLogger(logger *Logger, ctx context.Context) *ContextLogger {
	return &ContextLogger{
		logger: logger.WithContext(ctx),
		ctx:    ctx,
	}
}

// Debug logs a debug message with context fields.
func (cl *ContextLogger) Debug(msg string, args ...any) {
	cl.logger.Debug(msg, args...)
}

// Info logs an info message with context fields.
func (cl *ContextLogger) Info(msg string, args ...any) {
	cl.logger.Info(msg, args...)
}

// Warn logs a warning message with context fields.
func (cl *ContextLogger) Warn(msg string, args ...any) {
	cl.logger.Warn(msg, args...)
}

// Error logs an error message with context fields.
func (cl *ContextLogger) Error(msg string, args ...any) {
	cl.logger.Error(msg, args...)
}

// With creates a new context logger with additional fields.
func (cl *ContextLogger) With(args ...any) *ContextLogger {
	return &ContextLogger{
		logger: cl.logger.With(args...),
		ctx:    cl.ctx,
	}
}
