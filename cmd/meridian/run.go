package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/cli"
	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/retention"
	"mercator-hq/meridian/pkg/telemetry/health"
	"mercator-hq/meridian/pkg/workspace"
)

const shutdownTimeout = 5 * time.Second

var runFlags struct {
	metricsAddress string
	noWatch        bool
	once           bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Index the workspace and keep it up to date",
	Long: `Index every project of the workspace, then keep running: new project
directories are picked up and removed ones are evicted (when workspace.watch
is enabled), old instrumentation records are pruned on the retention
schedule, and Prometheus metrics are served on the configured address.

Examples:
  # Run against the configured workspace
  meridian run --config meridian.yaml

  # Override the workspace and the metrics address
  meridian run --workspace ~/src --metrics-listen 127.0.0.1:9191

  # Index once and exit
  meridian run --once`,
	RunE: runWorkspace,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.metricsAddress, "metrics-listen", "", "override metrics listen address")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not watch the workspace for changes")
	runCmd.Flags().BoolVar(&runFlags.once, "once", false, "index the workspace and exit")
}

func runWorkspace(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	if runFlags.metricsAddress != "" {
		cfg.Telemetry.Metrics.Address = runFlags.metricsAddress
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	out := cmd.OutOrStdout()
	printBanner(out, a)

	elements, err := a.registry.IndexAll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("workspace indexed with errors", "error", err)
	}
	fmt.Fprintf(out, "✓ Indexed %d projects (%d elements)\n", a.registry.Len(), elements)

	if runFlags.once {
		return nil
	}

	errChan := make(chan error, 2)

	// Retention pruning only applies to stored records
	if a.records != nil && cfg.Instrumentation.Retention.PruneSchedule != "" {
		pruner := retention.NewPruner(a.records, &retention.Config{
			RetentionDays:       cfg.Instrumentation.Retention.Days,
			PruneSchedule:       cfg.Instrumentation.Retention.PruneSchedule,
			ArchiveBeforeDelete: cfg.Instrumentation.Retention.ArchiveBeforeDelete,
			ArchivePath:         cfg.Instrumentation.Retention.ArchivePath,
			MaxRecords:          cfg.Instrumentation.Retention.MaxRecords,
		})
		if err := pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else {
			defer pruner.Stop()
			if next := pruner.NextPruning(); next != nil {
				slog.Debug("retention scheduler started", "next_pruning", next)
			}
			fmt.Fprintln(out, "✓ Retention scheduler started")
		}
	}

	// A fixed project list has no root to watch
	if cfg.Workspace.Watch && !runFlags.noWatch && len(cfg.Workspace.Projects) == 0 {
		watcher, err := workspace.NewWatcher(&workspace.WatcherConfig{
			Path:             cfg.Workspace.Root,
			DebounceInterval: cfg.Workspace.WatchDebounce,
			IncludeHidden:    cfg.Workspace.IncludeHidden,
		}, nil)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer watcher.Stop()

		go func() {
			if err := a.registry.Watch(ctx, watcher); err != nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
		fmt.Fprintf(out, "✓ Watching %s\n", cfg.Workspace.Root)
	}

	var srv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		srv = &http.Server{
			Handler:           a.serveMux(),
			ReadHeaderTimeout: 5 * time.Second,
		}

		ln, err := net.Listen("tcp", cfg.Telemetry.Metrics.Address)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("failed to listen on %s: %w", cfg.Telemetry.Metrics.Address, err))
		}
		go func() {
			slog.Info("starting metrics server", "address", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", ln.Addr().String(), cfg.Telemetry.Metrics.Path)
		fmt.Fprintf(out, "✓ Health endpoints: http://%s%s, %s\n", ln.Addr().String(), health.LivenessPath, health.ReadinessPath)
	}

	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	var runErr error
	select {
	case runErr = <-errChan:
	case <-ctx.Done():
		fmt.Fprintln(out, "\nShutting down...")
	}

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", "error", err)
		}
	}

	if runErr != nil {
		return cli.NewCommandError("run", runErr)
	}
	fmt.Fprintln(out, "✓ Stopped")
	return nil
}

// serveMux routes the metrics endpoint and the health probes.
func (a *app) serveMux() *http.ServeMux {
	checker := health.New(2 * time.Second)
	checker.RegisterCheck("index", func(ctx context.Context) error {
		_, err := a.registry.Index().Len(ctx)
		return err
	})
	checker.RegisterCheck("workspace", func(ctx context.Context) error {
		_, err := a.registry.Root().Resources(ctx)
		return err
	})
	if a.records != nil {
		checker.RegisterCheck("records", func(ctx context.Context) error {
			_, err := a.records.Count(ctx, &instrumentation.Query{Limit: 1})
			return err
		})
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Telemetry.Metrics.Path, a.collector.Handler())
	mux.Handle(health.LivenessPath, checker.LivenessHandler())
	mux.Handle(health.ReadinessPath, checker.ReadinessHandler())
	return mux
}

func printBanner(w io.Writer, a *app) {
	fmt.Fprintf(w, "Meridian v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(w, "Loading configuration from: %s\n", cfgFile)
	}
	fmt.Fprintln(w, "✓ Configuration loaded")

	if len(a.cfg.Workspace.Projects) > 0 {
		slog.Debug("workspace mode", "mode", "static", "projects", len(a.cfg.Workspace.Projects))
	} else {
		slog.Debug("workspace mode", "mode", "directory", "root", a.cfg.Workspace.Root)
	}
	if a.cfg.Instrumentation.Enabled {
		slog.Debug("instrumentation enabled", "backend", a.cfg.Instrumentation.Backend)
	}
}
