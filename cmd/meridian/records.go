package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/cli"
	"mercator-hq/meridian/pkg/config"
	"mercator-hq/meridian/pkg/instrumentation"
	"mercator-hq/meridian/pkg/instrumentation/export"
	"mercator-hq/meridian/pkg/instrumentation/retention"
)

var recordsFlags struct {
	timeRange    string
	id           string
	operation    string
	entry        string
	limit        int
	exportLimit  int
	offset       int
	ascending    bool
	format       string
	exportFormat string
	output       string
	pretty       bool
	noHeader     bool
	days         int
	maxRecords   int64
}

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Query stored instrumentation records",
	Long: `Query, export and prune the instrumentation records written by the
registry. Records are read from the configured instrumentation backend,
which must be "sqlite" for records to outlive a single process.

Subcommands:
  query   - Query records with filters
  export  - Stream records as JSON or CSV
  prune   - Apply the retention policy now

Examples:
  # Last 20 lookups
  meridian records query --operation Registry.resourceFor --limit 20

  # Records of one day as CSV
  meridian records export --format csv --time-range "2026-10-18T00:00:00Z/2026-10-19T00:00:00Z"`,
}

var recordsQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query records",
	Long: `Query records with filters, newest first.

Time Range Format:
  RFC3339 interval format: "start/end"; either side may be empty
  Example: "2026-10-18T00:00:00Z/2026-10-19T00:00:00Z"`,
	Args: cobra.NoArgs,
	RunE: queryRecords,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export records as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE:  exportRecords,
}

var recordsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records outside the retention policy",
	Long: `Delete records older than the retention period and, when a record cap is
configured, the oldest records above the cap. Archiving follows
instrumentation.retention.archive_before_delete.`,
	Args: cobra.NoArgs,
	RunE: pruneRecords,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsQueryCmd, recordsExportCmd, recordsPruneCmd)

	for _, c := range []*cobra.Command{recordsQueryCmd, recordsExportCmd} {
		c.Flags().StringVar(&recordsFlags.timeRange, "time-range", "", "time range (RFC3339 interval: start/end)")
		c.Flags().StringVar(&recordsFlags.id, "id", "", "filter by record ID")
		c.Flags().StringVar(&recordsFlags.operation, "operation", "", "filter by operation name")
		c.Flags().StringVar(&recordsFlags.entry, "entry", "", "only records containing an entry with this name")
		c.Flags().IntVar(&recordsFlags.offset, "offset", 0, "pagination offset")
		c.Flags().BoolVar(&recordsFlags.ascending, "asc", false, "oldest first")
	}
	recordsQueryCmd.Flags().IntVar(&recordsFlags.limit, "limit", 100, "max results")
	recordsQueryCmd.Flags().StringVar(&recordsFlags.format, "format", "text", "output format: text, json, csv")

	recordsExportCmd.Flags().IntVar(&recordsFlags.exportLimit, "limit", 0, "max results (0 for all)")
	recordsExportCmd.Flags().StringVar(&recordsFlags.exportFormat, "format", "json", "export format: json, csv")
	recordsExportCmd.Flags().StringVarP(&recordsFlags.output, "output", "o", "", "output file (default: stdout)")
	recordsExportCmd.Flags().BoolVar(&recordsFlags.pretty, "pretty", false, "indent JSON output")
	recordsExportCmd.Flags().BoolVar(&recordsFlags.noHeader, "no-header", false, "omit the CSV header row")

	recordsPruneCmd.Flags().IntVar(&recordsFlags.days, "days", 0, "override retention days")
	recordsPruneCmd.Flags().Int64Var(&recordsFlags.maxRecords, "max-records", 0, "override the record cap")
}

// openRecords loads the configuration and opens the record backend.
func openRecords() (*recordsEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if _, err := setupLogging(cfg); err != nil {
		return nil, err
	}
	if cfg.Instrumentation.Backend == "memory" {
		slog.Warn("memory backend holds no records between runs")
	}

	store, err := openRecordStorage(&cfg.Instrumentation)
	if err != nil {
		return nil, err
	}
	return &recordsEnv{retention: cfg.Instrumentation.Retention, store: store}, nil
}

type recordsEnv struct {
	retention config.RetentionConfig
	store     instrumentation.Storage
}

func queryRecords(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(recordsFlags.format)
	if err != nil {
		return cli.NewCommandError("records query", err)
	}
	query, err := buildRecordQuery(recordsFlags.limit)
	if err != nil {
		return cli.NewCommandError("records query", err)
	}

	env, err := openRecords()
	if err != nil {
		return err
	}
	defer env.store.Close()

	ctx := cmd.Context()
	records, err := env.store.Query(ctx, query)
	if err != nil {
		return cli.NewCommandError("records query", err)
	}

	out := cmd.OutOrStdout()
	switch format {
	case cli.FormatJSON:
		total, err := env.store.Count(ctx, &instrumentation.Query{
			StartTime: query.StartTime,
			EndTime:   query.EndTime,
			ID:        query.ID,
			Operation: query.Operation,
			EntryName: query.EntryName,
		})
		if err != nil {
			return cli.NewCommandError("records query", err)
		}
		output := map[string]interface{}{
			"total_records": total,
			"records":       records,
		}
		return (&cli.JSONFormatter{Indent: true}).FormatTo(out, output)

	case cli.FormatCSV:
		return export.NewCSVExporter(true).Export(ctx, records, out)

	default:
		if len(records) == 0 {
			fmt.Fprintln(out, "No records found")
			return nil
		}
		return printRecords(out, records)
	}
}

func printRecords(w io.Writer, records []*instrumentation.Record) error {
	table := &cli.Table{Headers: []string{"ID", "OPERATION", "START", "DURATION", "ENTRIES"}}
	for _, r := range records {
		table.Append(
			r.ID,
			r.Operation,
			r.StartTime.Format(time.RFC3339),
			r.Duration.String(),
			strconv.Itoa(len(r.Entries)),
		)
	}
	if err := (&cli.TextFormatter{}).FormatTo(w, table); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d records\n", len(records))
	return nil
}

func exportRecords(cmd *cobra.Command, args []string) error {
	exporter, err := export.ForFormat(recordsFlags.exportFormat, recordsFlags.pretty, !recordsFlags.noHeader)
	if err != nil {
		return cli.NewCommandError("records export", err)
	}
	query, err := buildRecordQuery(recordsFlags.exportLimit)
	if err != nil {
		return cli.NewCommandError("records export", err)
	}

	env, err := openRecords()
	if err != nil {
		return err
	}
	defer env.store.Close()

	var w io.Writer = cmd.OutOrStdout()
	if recordsFlags.output != "" {
		f, err := os.Create(recordsFlags.output)
		if err != nil {
			return cli.NewCommandError("records export", err)
		}
		defer f.Close()
		w = f
	}

	if err := export.FromStorage(cmd.Context(), env.store, query, exporter, w); err != nil {
		return cli.NewCommandError("records export", err)
	}
	if recordsFlags.output != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Exported records to %s\n", recordsFlags.output)
	}
	return nil
}

func pruneRecords(cmd *cobra.Command, args []string) error {
	env, err := openRecords()
	if err != nil {
		return err
	}
	defer env.store.Close()

	cfg := &retention.Config{
		RetentionDays:       env.retention.Days,
		ArchiveBeforeDelete: env.retention.ArchiveBeforeDelete,
		ArchivePath:         env.retention.ArchivePath,
		MaxRecords:          env.retention.MaxRecords,
	}
	if recordsFlags.days != 0 {
		cfg.RetentionDays = recordsFlags.days
	}
	if recordsFlags.maxRecords != 0 {
		cfg.MaxRecords = recordsFlags.maxRecords
	}

	deleted, err := retention.NewPruner(env.store, cfg).Prune(cmd.Context())
	if err != nil {
		return cli.NewCommandError("records prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Pruned %d records\n", deleted)
	return nil
}

// buildRecordQuery turns the query flags into a storage query.
func buildRecordQuery(limit int) (*instrumentation.Query, error) {
	query := &instrumentation.Query{
		ID:        recordsFlags.id,
		Operation: recordsFlags.operation,
		EntryName: recordsFlags.entry,
		Limit:     limit,
		Offset:    recordsFlags.offset,
		SortOrder: "desc",
	}
	if recordsFlags.ascending {
		query.SortOrder = "asc"
	}

	if recordsFlags.timeRange != "" {
		start, end, err := parseTimeRange(recordsFlags.timeRange)
		if err != nil {
			return nil, err
		}
		query.StartTime = start
		query.EndTime = end
	}
	return query, nil
}

// parseTimeRange parses an RFC3339 interval "start/end". Either side may be
// empty to leave it open.
func parseTimeRange(s string) (*time.Time, *time.Time, error) {
	startStr, endStr, ok := strings.Cut(s, "/")
	if !ok {
		return nil, nil, fmt.Errorf("invalid time range format (expected: start/end)")
	}

	var start, end *time.Time
	if startStr != "" {
		t, err := time.Parse(time.RFC3339, startStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid start time: %w", err)
		}
		start = &t
	}
	if endStr != "" {
		t, err := time.Parse(time.RFC3339, endStr)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid end time: %w", err)
		}
		end = &t
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, fmt.Errorf("end time %s is before start time %s", endStr, startStr)
	}
	return start, end, nil
}
