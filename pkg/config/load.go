package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, so omitted fields keep their
// default values. The result is validated. Environment variables are not
// consulted; use LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	// Explicit zero values in the file fall back to defaults.
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention MERIDIAN_SECTION_FIELD (e.g., MERIDIAN_WORKSPACE_ROOT).
// Environment variables always take precedence over file-based configuration.
//
// An empty path skips the file and starts from Default.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean, and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Workspace overrides
	if val := os.Getenv("MERIDIAN_WORKSPACE_ROOT"); val != "" {
		cfg.Workspace.Root = val
	}
	if val := os.Getenv("MERIDIAN_WORKSPACE_PROJECTS"); val != "" {
		cfg.Workspace.Projects = splitList(val)
	}
	if val := os.Getenv("MERIDIAN_WORKSPACE_WATCH"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Workspace.Watch = b
		}
	}
	if val := os.Getenv("MERIDIAN_WORKSPACE_WATCH_DEBOUNCE"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Workspace.WatchDebounce = d
		}
	}

	// Index overrides
	if val := os.Getenv("MERIDIAN_INDEX_BACKEND"); val != "" {
		cfg.Index.Backend = val
	}
	if val := os.Getenv("MERIDIAN_INDEX_SQLITE_PATH"); val != "" {
		cfg.Index.SQLitePath = val
	}

	// Instrumentation overrides
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Instrumentation.Enabled = b
		}
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_WORKERS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Instrumentation.Workers = i
		}
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_FLUSH_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Instrumentation.FlushTimeout = d
		}
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_BACKEND"); val != "" {
		cfg.Instrumentation.Backend = val
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_SQLITE_PATH"); val != "" {
		cfg.Instrumentation.SQLite.Path = val
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_RECORDER_SENSITIVE_POLICY"); val != "" {
		cfg.Instrumentation.Recorder.SensitivePolicy = val
	}
	if val := os.Getenv("MERIDIAN_INSTRUMENTATION_RETENTION_DAYS"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Instrumentation.Retention.Days = i
		}
	}

	// Telemetry overrides
	if val := os.Getenv("MERIDIAN_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_METRICS_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_METRICS_ADDRESS"); val != "" {
		cfg.Telemetry.Metrics.Address = val
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_TRACING_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Telemetry.Tracing.Enabled = b
		}
	}
	if val := os.Getenv("MERIDIAN_TELEMETRY_TRACING_ENDPOINT"); val != "" {
		cfg.Telemetry.Tracing.Endpoint = val
	}
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(val string) []string {
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
