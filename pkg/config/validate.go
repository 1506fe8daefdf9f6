package config

import (
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "index.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateWorkspace(&cfg.Workspace)...)
	errs = append(errs, validateIndex(&cfg.Index)...)
	errs = append(errs, validateInstrumentation(&cfg.Instrumentation)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validateWorkspace(cfg *WorkspaceConfig) []FieldError {
	var errs []FieldError

	if cfg.Root == "" && len(cfg.Projects) == 0 {
		errs = append(errs, FieldError{
			Field:   "workspace.root",
			Message: "root is required when no projects are listed",
		})
	}

	seen := make(map[string]bool)
	for i, p := range cfg.Projects {
		field := fmt.Sprintf("workspace.projects[%d]", i)
		if strings.TrimSpace(p) == "" {
			errs = append(errs, FieldError{Field: field, Message: "project path must not be empty"})
			continue
		}
		if seen[p] {
			errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf("duplicate project %q", p)})
		}
		seen[p] = true
	}

	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("workspace.extensions[%d]", i),
				Message: fmt.Sprintf("extension %q must start with '.'", ext),
			})
		}
	}

	if cfg.WatchDebounce < 0 {
		errs = append(errs, FieldError{
			Field:   "workspace.watch_debounce",
			Message: "watch debounce must not be negative",
		})
	}

	return errs
}

func validateIndex(cfg *IndexConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLitePath == "" {
			errs = append(errs, FieldError{
				Field:   "index.sqlite_path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "index.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory' or 'sqlite'", cfg.Backend),
		})
	}

	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "index.busy_timeout",
			Message: "busy timeout must not be negative",
		})
	}

	return errs
}

func validateInstrumentation(cfg *InstrumentationConfig) []FieldError {
	var errs []FieldError

	if cfg.Workers < 1 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.workers",
			Message: "workers must be at least 1",
		})
	}
	if cfg.FlushTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.flush_timeout",
			Message: "flush timeout must be positive",
		})
	}

	// Storage settings only matter when records are delivered.
	if !cfg.Enabled {
		return errs
	}

	validBackends := map[string]bool{"memory": true, "sqlite": true, "log": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, FieldError{
			Field:   "instrumentation.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'log'", cfg.Backend),
		})
	}

	if cfg.Backend == "sqlite" {
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "instrumentation.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.MaxOpenConns < 1 {
			errs = append(errs, FieldError{
				Field:   "instrumentation.sqlite.max_open_conns",
				Message: "max open connections must be at least 1",
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "instrumentation.sqlite.max_idle_conns",
				Message: "max idle connections cannot exceed max open connections",
			})
		}
	}

	// Recorder
	if cfg.Recorder.AsyncBuffer < 1 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.recorder.async_buffer",
			Message: "async buffer must be at least 1",
		})
	}
	if cfg.Recorder.WriteTimeout <= 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.recorder.write_timeout",
			Message: "write timeout must be positive",
		})
	}
	validPolicies := map[string]bool{"keep": true, "hash": true, "drop": true}
	if !validPolicies[cfg.Recorder.SensitivePolicy] {
		errs = append(errs, FieldError{
			Field:   "instrumentation.recorder.sensitive_policy",
			Message: fmt.Sprintf("invalid policy %q: must be 'keep', 'hash', or 'drop'", cfg.Recorder.SensitivePolicy),
		})
	}
	if cfg.Recorder.MaxFieldLength < 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.recorder.max_field_length",
			Message: "max field length must not be negative",
		})
	}

	// Retention
	if cfg.Retention.Days > 0 && cfg.Backend != "log" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		if _, err := parser.Parse(cfg.Retention.PruneSchedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "instrumentation.retention.prune_schedule",
				Message: fmt.Sprintf("invalid cron expression: %v", err),
			})
		}
	}
	if cfg.Retention.ArchiveBeforeDelete && cfg.Retention.ArchivePath == "" {
		errs = append(errs, FieldError{
			Field:   "instrumentation.retention.archive_path",
			Message: "archive path is required when archive_before_delete is enabled",
		})
	}
	if cfg.Retention.MaxRecords < 0 {
		errs = append(errs, FieldError{
			Field:   "instrumentation.retention.max_records",
			Message: "max records must not be negative",
		})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		field := fmt.Sprintf("telemetry.logging.redact_patterns[%d]", i)
		if p.Name == "" {
			errs = append(errs, FieldError{Field: field + ".name", Message: "pattern name is required"})
		}
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   field + ".pattern",
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(cfg.Metrics.Address); err != nil {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.address",
				Message: fmt.Sprintf("invalid address %q: %v", cfg.Metrics.Address, err),
			})
		}
		if !strings.HasPrefix(cfg.Metrics.Path, "/") {
			errs = append(errs, FieldError{
				Field:   "telemetry.metrics.path",
				Message: "metrics path must start with '/'",
			})
		}
		for i := 1; i < len(cfg.Metrics.FlushDurationBuckets); i++ {
			if cfg.Metrics.FlushDurationBuckets[i] <= cfg.Metrics.FlushDurationBuckets[i-1] {
				errs = append(errs, FieldError{
					Field:   "telemetry.metrics.flush_duration_buckets",
					Message: "buckets must be strictly increasing",
				})
				break
			}
		}
	}

	if cfg.Tracing.Enabled {
		validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
		if !validSamplers[cfg.Tracing.Sampler] {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sampler",
				Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
			})
		}
		if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.sample_ratio",
				Message: "sample ratio must be between 0.0 and 1.0",
			})
		}
		if cfg.Tracing.Exporter != "otlp" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.exporter",
				Message: fmt.Sprintf("invalid exporter %q: must be 'otlp'", cfg.Tracing.Exporter),
			})
		}
		if cfg.Tracing.Endpoint == "" {
			errs = append(errs, FieldError{
				Field:   "telemetry.tracing.endpoint",
				Message: "tracing endpoint is required when tracing is enabled",
			})
		}
	}

	return errs
}
