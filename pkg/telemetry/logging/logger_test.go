package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/meridian/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"valid JSON config", Config{Level: "info", Format: "json", RedactPII: true}, false},
		{"valid text config", Config{Level: "debug", Format: "text"}, false},
		{"valid console config", Config{Level: "warn", Format: "console", RedactPII: true}, false},
		{"uppercase level", Config{Level: "ERROR", Format: "json"}, false},
		{"empty values", Config{}, false},
		{"invalid log level", Config{Level: "invalid", Format: "json"}, true},
		{"invalid format", Config{Level: "info", Format: "invalid"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := decodeLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %s", len(lines), buf.String())
	}
	if lines[0]["msg"] != "warn message" || lines[1]["msg"] != "error message" {
		t.Errorf("unexpected messages: %v", lines)
	}
	if logger.Enabled(slog.LevelInfo) {
		t.Error("Enabled(info) = true for warn logger")
	}
}

func TestLogger_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.With("path", "/home/alice/src/app").Info("opened",
		"api_token", "abcdef123456",
		"note", "key sk-abc123 used",
		"count", 3,
	)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	line := lines[0]

	if line["path"] != "/home/***/src/app" {
		t.Errorf("path = %v, want /home/***/src/app", line["path"])
	}
	if line["api_token"] != "abcd***" {
		t.Errorf("api_token = %v, want abcd***", line["api_token"])
	}
	if strings.Contains(line["note"].(string), "sk-abc123") {
		t.Errorf("note not redacted: %v", line["note"])
	}
	if line["count"] != float64(3) {
		t.Errorf("count = %v, want 3", line["count"])
	}
}

func TestLogger_SetDefaultSharesRedaction(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "json", RedactPII: true, Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.SetDefault()

	slog.Default().With("component", "test").Info("hello", "password", "hunter22")

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0]["password"] != "hunt***" {
		t.Errorf("password = %v, want hunt***", lines[0]["password"])
	}
	if lines[0]["component"] != "test" {
		t.Errorf("component = %v, want test", lines[0]["component"])
	}
}

func TestLogger_ContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "debug", Format: "json", Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := WithOperation(context.Background(), "Registry.resourceFor")
	ctx = WithRecordID(ctx, "rec-1")

	logger.InfoContext(ctx, "resolved", "hit", true)

	lines := decodeLines(t, buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	if lines[0]["operation"] != "Registry.resourceFor" || lines[0]["record_id"] != "rec-1" {
		t.Errorf("context fields missing: %v", lines[0])
	}
	if _, ok := lines[0]["project"]; ok {
		t.Error("unset project field should be omitted")
	}
}

func TestLogger_ConsoleOmitsTime(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "info", Format: "console", Writer: buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("ready", "projects", 2)

	out := buf.String()
	if strings.Contains(out, "time=") {
		t.Errorf("console output contains time: %q", out)
	}
	if !strings.Contains(out, "msg=ready") || !strings.Contains(out, "projects=2") {
		t.Errorf("unexpected console output: %q", out)
	}
}

func TestFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := FromConfig(config.LoggingConfig{Level: "info", Format: "text", RedactPII: true}, buf)
	if err != nil {
		t.Fatalf("FromConfig() failed: %v", err)
	}
	if logger.Redactor() == nil {
		t.Error("Redactor() = nil with RedactPII enabled")
	}
	logger.Info("x")
	if !strings.Contains(buf.String(), "msg=x") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
