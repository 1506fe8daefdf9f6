package export

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"mercator-hq/meridian/pkg/instrumentation"
)

// CSVExporter exports records to CSV format, one row per entry. A record
// without entries produces a single row with empty entry columns.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Header returns the CSV column names.
func Header() []string {
	return []string{
		"record_id",
		"operation",
		"start_time",
		"flush_time",
		"duration_ms",
		"entry_index",
		"entry_name",
		"sensitivity",
		"kind",
		"value",
		"deferred",
	}
}

// Export writes records to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, records []*instrumentation.Record, w io.Writer) error {
	writer := csv.NewWriter(w)

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return instrumentation.NewExportError("csv", len(records), err)
		}
	}

	for _, record := range records {
		if err := writer.WriteAll(recordRows(record)); err != nil {
			return instrumentation.NewExportError("csv", len(records), err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return instrumentation.NewExportError("csv", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel in CSV format, flushing after
// every 100 records.
func (e *CSVExporter) ExportStream(ctx context.Context, recordsCh <-chan *instrumentation.Record, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(Header()); err != nil {
			return instrumentation.NewExportError("csv", 0, err)
		}
	}

	recordCount := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return instrumentation.NewExportError("csv", recordCount, err)
				}
				return nil
			}

			for _, row := range recordRows(record) {
				if err := writer.Write(row); err != nil {
					return instrumentation.NewExportError("csv", recordCount, err)
				}
			}

			recordCount++
			if recordCount%100 == 0 {
				writer.Flush()
				if err := writer.Error(); err != nil {
					return instrumentation.NewExportError("csv", recordCount, err)
				}
			}
		}
	}
}

func recordRows(record *instrumentation.Record) [][]string {
	prefix := []string{
		record.ID,
		record.Operation,
		formatTime(record.StartTime),
		formatTime(record.FlushTime),
		strconv.FormatInt(record.Duration.Milliseconds(), 10),
	}

	if len(record.Entries) == 0 {
		return [][]string{append(prefix, "", "", "", "", "", "")}
	}

	rows := make([][]string, 0, len(record.Entries))
	for i, entry := range record.Entries {
		row := make([]string, 0, len(prefix)+6)
		row = append(row, prefix...)
		row = append(row,
			strconv.Itoa(i),
			entry.Name,
			entry.Sensitivity.String(),
			entry.Value.Kind().String(),
			entryValue(entry.Value),
			strconv.FormatBool(entry.Deferred),
		)
		rows = append(rows, row)
	}
	return rows
}

// entryValue renders a value cell. Unavailable values show their reason.
func entryValue(v instrumentation.Value) string {
	if v.IsUnavailable() {
		return v.Reason()
	}
	return v.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
