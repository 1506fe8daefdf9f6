package export

import (
	"context"
	"fmt"
	"io"

	"mercator-hq/meridian/pkg/instrumentation"
)

// StreamExporter is an exporter that can also consume a record channel.
type StreamExporter interface {
	instrumentation.Exporter
	ExportStream(ctx context.Context, recordsCh <-chan *instrumentation.Record, w io.Writer) error
}

// ForFormat returns the exporter for "json" or "csv".
func ForFormat(format string, pretty, header bool) (StreamExporter, error) {
	switch format {
	case "json":
		return NewJSONExporter(pretty), nil
	case "csv":
		return NewCSVExporter(header), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q: must be 'json' or 'csv'", format)
	}
}

// FromStorage streams the records matching query from storage into w.
func FromStorage(ctx context.Context, storage instrumentation.Storage, query *instrumentation.Query, exporter StreamExporter, w io.Writer) error {
	recordsCh, errCh, err := storage.QueryStream(ctx, query)
	if err != nil {
		return err
	}

	if err := exporter.ExportStream(ctx, recordsCh, w); err != nil {
		// Let the producer finish so it does not block on a full channel.
		for range recordsCh {
		}
		return err
	}

	if err := <-errCh; err != nil {
		return err
	}
	return nil
}
