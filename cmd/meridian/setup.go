package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/analysis/project"
	"mercator-hq/meridian/pkg/cli"
	"mercator-hq/meridian/pkg/config"
	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/recorder"
	"mercator-hq/meridian/pkg/instrumentation/storage"
	"mercator-hq/meridian/pkg/telemetry/logging"
	"mercator-hq/meridian/pkg/telemetry/metrics"
	"mercator-hq/meridian/pkg/telemetry/tracing"
	"mercator-hq/meridian/pkg/workspace"
)

// app holds the components shared by the workspace commands.
type app struct {
	cfg       *config.Config
	logger    *logging.Logger
	records   instrumentation.Storage
	recorder  *recorder.Recorder
	tracer    *tracing.Tracer
	inst      *instrumentation.Instrumentation
	collector *metrics.Collector
	registry  *project.Registry
}

// loadConfig loads the configuration and applies the global flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Initialize(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if workspaceRoot != "" {
		cfg.Workspace.Root = workspaceRoot
		cfg.Workspace.Projects = nil
	}
	if logLevel != "" {
		cfg.Telemetry.Logging.Level = logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// setupLogging installs the configured logger as the slog default. Logs go
// to stderr so command output on stdout stays machine readable.
func setupLogging(cfg *config.Config) (*logging.Logger, error) {
	logger, err := logging.FromConfig(cfg.Telemetry.Logging, os.Stderr)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	logger.SetDefault()
	return logger, nil
}

// newApp wires configuration, logging, record storage, instrumentation,
// metrics and the project registry. The caller must Close the result.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := setupLogging(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
	}

	sink, err := a.openSink()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.inst = instrumentation.New(sink, &instrumentation.Config{
		Enabled:      cfg.Instrumentation.Enabled,
		Workers:      cfg.Instrumentation.Workers,
		FlushTimeout: cfg.Instrumentation.FlushTimeout,
		Observer:     a.collector,
	})

	store, err := openIndexStore(&cfg.Index)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.registry = project.NewRegistry(workspace.FromConfig(&cfg.Workspace), &project.Config{
		Store: store,
		Projects: project.Options{
			IgnoreDirs:    cfg.Workspace.IgnoreDirs,
			Extensions:    cfg.Workspace.Extensions,
			IncludeHidden: cfg.Workspace.IncludeHidden,
		},
		Instrumentation: a.inst,
		Observer:        a.collector,
	})

	slog.Debug("meridian initialized",
		"workspace", cfg.Workspace.Root,
		"index_backend", cfg.Index.Backend,
		"instrumentation_backend", cfg.Instrumentation.Backend,
		"instrumentation_enabled", cfg.Instrumentation.Enabled,
	)
	return a, nil
}

// openSink builds the instrumentation logger for the configured backend.
// With debug logging on, stored records are also echoed to the log. With
// tracing on, every record is also exported as a span.
func (a *app) openSink() (instrumentation.Logger, error) {
	ic := a.cfg.Instrumentation
	if !ic.Enabled {
		return nil, nil
	}

	privacy, err := recorder.ParsePrivacy(ic.Recorder.SensitivePolicy)
	if err != nil {
		return nil, cli.NewConfigError("instrumentation.recorder.sensitive_policy", err.Error())
	}

	var sinks []instrumentation.Logger
	logSink := recorder.NewLogSink(a.logger, slog.LevelDebug, privacy, ic.Recorder.MaxFieldLength)

	if ic.Backend == "log" {
		sinks = append(sinks, logSink)
	} else {
		records, err := openRecordStorage(&ic)
		if err != nil {
			return nil, err
		}
		a.records = records
		a.recorder = recorder.NewRecorder(records, &recorder.Config{
			AsyncBuffer:    ic.Recorder.AsyncBuffer,
			WriteTimeout:   ic.Recorder.WriteTimeout,
			Privacy:        privacy,
			MaxFieldLength: ic.Recorder.MaxFieldLength,
		})
		sinks = append(sinks, a.recorder)
		if a.logger.Enabled(slog.LevelDebug) {
			sinks = append(sinks, logSink)
		}
	}

	if a.cfg.Telemetry.Tracing.Enabled {
		tracer, err := tracing.New(&a.cfg.Telemetry.Tracing, Version)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.tracer = tracer
		sinks = append(sinks, tracing.NewSpanSink(tracer, privacy, ic.Recorder.MaxFieldLength))
		slog.Debug("exporting records as spans", "endpoint", a.cfg.Telemetry.Tracing.Endpoint)
	}

	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return recorder.Multi(sinks...), nil
}

// Close releases components in dependency order: the registry stops
// producing records, instrumentation waits for generators, then the span
// exporter flushes and the recorder drains before storage is closed.
func (a *app) Close() error {
	var errs []error
	if a.registry != nil {
		errs = append(errs, a.registry.Close())
	}
	if a.inst != nil {
		errs = append(errs, a.inst.Close())
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.tracer.Shutdown(ctx))
		cancel()
	}
	if a.recorder != nil {
		errs = append(errs, a.recorder.Close())
	}
	if a.records != nil {
		errs = append(errs, a.records.Close())
	}
	return errors.Join(errs...)
}

// openRecordStorage opens the record backend named by cfg.Backend.
func openRecordStorage(cfg *config.InstrumentationConfig) (instrumentation.Storage, error) {
	switch cfg.Backend {
	case "sqlite":
		if err := ensureParentDir(cfg.SQLite.Path); err != nil {
			return nil, err
		}
		store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite storage: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStorage(), nil
	default:
		return nil, cli.NewConfigError("instrumentation.backend",
			fmt.Sprintf("backend %q does not store records", cfg.Backend))
	}
}

// openIndexStore opens the index store named by cfg.Backend.
func openIndexStore(cfg *config.IndexConfig) (index.Store, error) {
	switch cfg.Backend {
	case "sqlite":
		if err := ensureParentDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		store, err := index.NewSQLiteStore(index.SQLiteStoreConfig{
			Path:        cfg.SQLitePath,
			BusyTimeout: cfg.BusyTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open index: %w", err)
		}
		return store, nil
	case "memory":
		return index.NewMemoryStore(), nil
	default:
		return nil, cli.NewConfigError("index.backend", fmt.Sprintf("unsupported backend %q", cfg.Backend))
	}
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %q: %w", dir, err)
	}
	return nil
}
