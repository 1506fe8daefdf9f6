package config

import "time"

// Default values for configuration fields.
const (
	// Workspace defaults
	DefaultWorkspaceRoot          = "."
	DefaultWorkspaceWatchDebounce = 100 * time.Millisecond

	// Index defaults
	DefaultIndexBackend     = "memory"
	DefaultIndexSQLitePath  = "data/index.db"
	DefaultIndexBusyTimeout = 5 * time.Second

	// Instrumentation defaults
	DefaultInstrumentationEnabled      = true
	DefaultInstrumentationWorkers      = 4
	DefaultInstrumentationFlushTimeout = 5 * time.Second
	DefaultInstrumentationBackend      = "sqlite"
	DefaultSQLitePath                  = "data/instrumentation.db"
	DefaultSQLiteMaxOpenConns          = 10
	DefaultSQLiteMaxIdleConns          = 5
	DefaultSQLiteWALMode               = true
	DefaultSQLiteBusyTimeout           = 5 * time.Second
	DefaultRecorderAsyncBuffer         = 1000
	DefaultRecorderWriteTimeout        = 5 * time.Second
	DefaultRecorderSensitivePolicy     = "hash"
	DefaultRecorderMaxFieldLength      = 500
	DefaultRetentionDays               = 30
	DefaultRetentionPruneSchedule      = "0 3 * * *"
	DefaultRetentionArchivePath        = "data/archives/"

	// Telemetry defaults
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
	DefaultLogRedactPII       = true
	DefaultMetricsEnabled     = true
	DefaultMetricsAddress     = "127.0.0.1:9090"
	DefaultMetricsPath        = "/metrics"
	DefaultMetricsNamespace   = "meridian"
	DefaultTracingSampler     = "always"
	DefaultTracingSampleRatio = 1.0
	DefaultTracingExporter    = "otlp"
	DefaultTracingEndpoint    = "localhost:4317"
	DefaultTracingServiceName = "meridian"
	DefaultTracingOTLPTimeout = 10 * time.Second
)

// DefaultIgnoreDirs are directory names skipped while indexing.
var DefaultIgnoreDirs = []string{".git", "node_modules", "vendor"}

// DefaultFlushDurationBuckets are histogram buckets for flush latency.
var DefaultFlushDurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a configuration with every field set to its default.
// Boolean fields whose default is true are only set here, so a YAML file
// loaded on top of Default can still switch them off.
func Default() *Config {
	cfg := &Config{}
	cfg.Instrumentation.Enabled = DefaultInstrumentationEnabled
	cfg.Instrumentation.SQLite.WALMode = DefaultSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLogRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero-valued fields with their defaults.
func ApplyDefaults(cfg *Config) {
	// Workspace defaults
	if cfg.Workspace.Root == "" {
		cfg.Workspace.Root = DefaultWorkspaceRoot
	}
	if cfg.Workspace.IgnoreDirs == nil {
		cfg.Workspace.IgnoreDirs = append([]string(nil), DefaultIgnoreDirs...)
	}
	if cfg.Workspace.WatchDebounce == 0 {
		cfg.Workspace.WatchDebounce = DefaultWorkspaceWatchDebounce
	}

	// Index defaults
	if cfg.Index.Backend == "" {
		cfg.Index.Backend = DefaultIndexBackend
	}
	if cfg.Index.SQLitePath == "" {
		cfg.Index.SQLitePath = DefaultIndexSQLitePath
	}
	if cfg.Index.BusyTimeout == 0 {
		cfg.Index.BusyTimeout = DefaultIndexBusyTimeout
	}

	applyInstrumentationDefaults(&cfg.Instrumentation)

	// Logging defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}

	// Metrics defaults
	if cfg.Telemetry.Metrics.Address == "" {
		cfg.Telemetry.Metrics.Address = DefaultMetricsAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Telemetry.Metrics.FlushDurationBuckets) == 0 {
		cfg.Telemetry.Metrics.FlushDurationBuckets = append([]float64(nil), DefaultFlushDurationBuckets...)
	}

	// Tracing defaults
	tr := &cfg.Telemetry.Tracing
	if tr.Sampler == "" {
		tr.Sampler = DefaultTracingSampler
	}
	if tr.SampleRatio == 0 {
		tr.SampleRatio = DefaultTracingSampleRatio
	}
	if tr.Exporter == "" {
		tr.Exporter = DefaultTracingExporter
	}
	if tr.Endpoint == "" {
		tr.Endpoint = DefaultTracingEndpoint
	}
	if tr.ServiceName == "" {
		tr.ServiceName = DefaultTracingServiceName
	}
	if tr.OTLP.Timeout == 0 {
		tr.OTLP.Timeout = DefaultTracingOTLPTimeout
	}
}

func applyInstrumentationDefaults(cfg *InstrumentationConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = DefaultInstrumentationWorkers
	}
	if cfg.FlushTimeout == 0 {
		cfg.FlushTimeout = DefaultInstrumentationFlushTimeout
	}
	if cfg.Backend == "" {
		cfg.Backend = DefaultInstrumentationBackend
	}

	// SQLite defaults
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultSQLitePath
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultSQLiteMaxIdleConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultSQLiteBusyTimeout
	}

	// Recorder defaults
	if cfg.Recorder.AsyncBuffer == 0 {
		cfg.Recorder.AsyncBuffer = DefaultRecorderAsyncBuffer
	}
	if cfg.Recorder.WriteTimeout == 0 {
		cfg.Recorder.WriteTimeout = DefaultRecorderWriteTimeout
	}
	if cfg.Recorder.SensitivePolicy == "" {
		cfg.Recorder.SensitivePolicy = DefaultRecorderSensitivePolicy
	}
	if cfg.Recorder.MaxFieldLength == 0 {
		cfg.Recorder.MaxFieldLength = DefaultRecorderMaxFieldLength
	}

	// Retention defaults
	if cfg.Retention.Days == 0 {
		cfg.Retention.Days = DefaultRetentionDays
	}
	if cfg.Retention.PruneSchedule == "" {
		cfg.Retention.PruneSchedule = DefaultRetentionPruneSchedule
	}
	if cfg.Retention.ArchivePath == "" {
		cfg.Retention.ArchivePath = DefaultRetentionArchivePath
	}
}
