package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meridian.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
workspace:
  root: "/src/workspace"
  extensions: [".go", ".md"]
  watch: true
index:
  backend: "sqlite"
  sqlite_path: "/tmp/index.db"
instrumentation:
  workers: 8
  flush_timeout: "250ms"
  backend: "memory"
  recorder:
    sensitive_policy: "drop"
telemetry:
  logging:
    level: "debug"
    format: "text"
    redact_pii: false
  metrics:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Workspace.Root != "/src/workspace" {
		t.Errorf("Workspace.Root = %q", cfg.Workspace.Root)
	}
	if !cfg.Workspace.Watch {
		t.Error("Workspace.Watch = false, want true")
	}
	if len(cfg.Workspace.Extensions) != 2 {
		t.Errorf("Extensions = %v", cfg.Workspace.Extensions)
	}
	if cfg.Index.Backend != "sqlite" || cfg.Index.SQLitePath != "/tmp/index.db" {
		t.Errorf("Index = %+v", cfg.Index)
	}
	if cfg.Instrumentation.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Instrumentation.Workers)
	}
	if cfg.Instrumentation.FlushTimeout != 250*time.Millisecond {
		t.Errorf("FlushTimeout = %v, want 250ms", cfg.Instrumentation.FlushTimeout)
	}
	if cfg.Instrumentation.Recorder.SensitivePolicy != "drop" {
		t.Errorf("SensitivePolicy = %q, want drop", cfg.Instrumentation.Recorder.SensitivePolicy)
	}
	if cfg.Telemetry.Logging.RedactPII {
		t.Error("RedactPII = true, want explicit false kept")
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled = true, want explicit false kept")
	}

	// Omitted fields keep defaults.
	if !cfg.Instrumentation.Enabled {
		t.Error("Instrumentation.Enabled = false, want default true")
	}
	if cfg.Instrumentation.Recorder.AsyncBuffer != DefaultRecorderAsyncBuffer {
		t.Errorf("AsyncBuffer = %d, want default", cfg.Instrumentation.Recorder.AsyncBuffer)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid yaml", "workspace: [", "failed to parse"},
		{"invalid values", "index:\n  backend: \"cassandra\"\n", "index.backend"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() on missing file succeeded, want error")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "workspace:\n  root: \"/from/file\"\n")

	t.Setenv("MERIDIAN_WORKSPACE_ROOT", "/from/env")
	t.Setenv("MERIDIAN_WORKSPACE_PROJECTS", "/p1, /p2,")
	t.Setenv("MERIDIAN_INSTRUMENTATION_WORKERS", "2")
	t.Setenv("MERIDIAN_INSTRUMENTATION_FLUSH_TIMEOUT", "1s")
	t.Setenv("MERIDIAN_INSTRUMENTATION_ENABLED", "false")
	t.Setenv("MERIDIAN_TELEMETRY_LOGGING_LEVEL", "warn")
	t.Setenv("MERIDIAN_INDEX_BACKEND", "sqlite")
	t.Setenv("MERIDIAN_TELEMETRY_TRACING_ENABLED", "true")
	t.Setenv("MERIDIAN_TELEMETRY_TRACING_ENDPOINT", "collector:4317")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}

	if cfg.Workspace.Root != "/from/env" {
		t.Errorf("Root = %q, want /from/env", cfg.Workspace.Root)
	}
	if got := strings.Join(cfg.Workspace.Projects, ";"); got != "/p1;/p2" {
		t.Errorf("Projects = %q, want /p1;/p2", got)
	}
	if cfg.Instrumentation.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Instrumentation.Workers)
	}
	if cfg.Instrumentation.FlushTimeout != time.Second {
		t.Errorf("FlushTimeout = %v, want 1s", cfg.Instrumentation.FlushTimeout)
	}
	if cfg.Instrumentation.Enabled {
		t.Error("Enabled = true, want false from env")
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Telemetry.Logging.Level)
	}
	if cfg.Index.Backend != "sqlite" {
		t.Errorf("Index.Backend = %q, want sqlite", cfg.Index.Backend)
	}
	if !cfg.Telemetry.Tracing.Enabled || cfg.Telemetry.Tracing.Endpoint != "collector:4317" {
		t.Errorf("Tracing = %+v, want enabled with collector:4317", cfg.Telemetry.Tracing)
	}
}

func TestLoadConfigWithEnvOverrides_IgnoresMalformed(t *testing.T) {
	t.Setenv("MERIDIAN_INSTRUMENTATION_WORKERS", "many")
	t.Setenv("MERIDIAN_WORKSPACE_WATCH", "sometimes")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}
	if cfg.Instrumentation.Workers != DefaultInstrumentationWorkers {
		t.Errorf("Workers = %d, want default", cfg.Instrumentation.Workers)
	}
	if cfg.Workspace.Watch {
		t.Error("Watch = true, want default false")
	}
}

func TestInitialize(t *testing.T) {
	t.Cleanup(func() { Set(nil) })

	if _, err := Initialize(writeConfig(t, "index:\n  backend: \"bogus\"\n")); err == nil {
		t.Fatal("Initialize() with invalid config succeeded")
	}
	if Get() != nil {
		t.Error("Get() after failed Initialize should be nil")
	}

	cfg, err := Initialize(writeConfig(t, "workspace:\n  root: \"/ws\"\n"))
	if err != nil {
		t.Fatalf("Initialize() failed: %v", err)
	}
	if Get() != cfg || MustGet().Workspace.Root != "/ws" {
		t.Error("Get() does not return the initialized configuration")
	}
}
