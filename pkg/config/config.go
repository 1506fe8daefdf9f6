package config

import "time"

// Config is the root configuration structure for Meridian.
// It contains the workspace layout, the shared code index, the
// instrumentation pipeline, and telemetry settings.
type Config struct {
	// Workspace describes where projects live and whether they are watched.
	Workspace WorkspaceConfig `yaml:"workspace"`

	// Index contains configuration for the shared code index.
	Index IndexConfig `yaml:"index"`

	// Instrumentation contains configuration for operation records,
	// deferred value workers, record storage, and retention.
	Instrumentation InstrumentationConfig `yaml:"instrumentation"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// WorkspaceConfig describes the workspace root and its projects.
type WorkspaceConfig struct {
	// Root is the directory whose child directories are projects.
	// Default: "."
	Root string `yaml:"root"`

	// Projects lists explicit project directories. When non-empty, the
	// workspace is exactly this list (in order) and Root is not scanned.
	Projects []string `yaml:"projects"`

	// IncludeHidden includes child directories whose names start with ".".
	// Default: false
	IncludeHidden bool `yaml:"include_hidden"`

	// IgnoreDirs are directory names skipped while indexing a project.
	// Default: [".git", "node_modules", "vendor"]
	IgnoreDirs []string `yaml:"ignore_dirs"`

	// Extensions restricts indexing to files with these extensions.
	// Empty means every regular file.
	Extensions []string `yaml:"extensions"`

	// Watch enables filesystem watching of the workspace root.
	// Default: false
	Watch bool `yaml:"watch"`

	// WatchDebounce is the quiet period before a change event is emitted.
	// Default: 100ms
	WatchDebounce time.Duration `yaml:"watch_debounce"`
}

// IndexConfig contains configuration for the shared code index.
type IndexConfig struct {
	// Backend selects the index store.
	// Options: "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file for the "sqlite" backend.
	// Default: "data/index.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BusyTimeout is the SQLite busy timeout.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// InstrumentationConfig contains configuration for operation records.
type InstrumentationConfig struct {
	// Enabled controls whether records are delivered anywhere. Disabled
	// instrumentation still hands out builders backed by a no-op logger.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Workers bounds how many deferred values are computed concurrently.
	// Default: 4
	Workers int `yaml:"workers"`

	// FlushTimeout is how long Flush waits for outstanding deferred values.
	// Default: 5s
	FlushTimeout time.Duration `yaml:"flush_timeout"`

	// Backend selects where records go.
	// Options: "memory", "sqlite", "log"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains configuration for the "sqlite" backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Recorder contains configuration for the async record writer.
	Recorder RecorderConfig `yaml:"recorder"`

	// Retention contains configuration for pruning old records.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite record storage configuration.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/instrumentation.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RecorderConfig contains configuration for the async record writer.
type RecorderConfig struct {
	// AsyncBuffer is the size of the write channel.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout bounds both enqueueing and each storage write.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// SensitivePolicy controls what happens to entries tagged as data.
	// Options: "keep", "hash", "drop"
	// Default: "hash"
	SensitivePolicy string `yaml:"sensitive_policy"`

	// MaxFieldLength truncates long string values. 0 disables truncation.
	// Default: 500
	MaxFieldLength int `yaml:"max_field_length"`
}

// RetentionConfig contains configuration for record retention.
type RetentionConfig struct {
	// Days is how long records are kept. A negative value keeps records
	// forever.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for the pruning job.
	// Default: "0 3 * * *"
	PruneSchedule string `yaml:"prune_schedule"`

	// ArchiveBeforeDelete writes pruned records to ArchivePath as JSON.
	// Default: false
	ArchiveBeforeDelete bool `yaml:"archive_before_delete"`

	// ArchivePath is the directory for archives.
	// Default: "data/archives/"
	ArchivePath string `yaml:"archive_path"`

	// MaxRecords caps the number of stored records. 0 means unlimited.
	// Default: 0
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains configuration for exporting records as spans.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in log fields.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Address is the listen address of the metrics endpoint.
	// Default: "127.0.0.1:9090"
	Address string `yaml:"address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "meridian"
	Namespace string `yaml:"namespace"`

	// FlushDurationBuckets defines histogram buckets for flush latency (seconds).
	// Default: [0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	FlushDurationBuckets []float64 `yaml:"flush_duration_buckets"`
}

// TracingConfig contains configuration for exporting instrumentation
// records as OpenTelemetry spans.
type TracingConfig struct {
	// Enabled controls whether records are exported as spans.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of records to export (0.0 to 1.0).
	// Only used when Sampler is "ratio".
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`

	// Exporter determines the span exporter.
	// Options: "otlp"
	// Default: "otlp"
	Exporter string `yaml:"exporter"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name attached to every span.
	// Default: "meridian"
	ServiceName string `yaml:"service_name"`

	// OTLP contains OTLP exporter specific configuration.
	OTLP OTLPConfig `yaml:"otlp"`
}

// OTLPConfig contains OTLP exporter configuration.
type OTLPConfig struct {
	// Insecure disables TLS for the collector connection.
	// Default: false
	Insecure bool `yaml:"insecure"`

	// Timeout bounds each export.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}
