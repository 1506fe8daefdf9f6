package export

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/meridian/pkg/instrumentation"
)

// JSONExporter exports records to JSON format.
type JSONExporter struct {
	// Pretty enables pretty-printing with indentation.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes records to w as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, records []*instrumentation.Record, w io.Writer) error {
	if records == nil {
		records = []*instrumentation.Record{}
	}

	var data []byte
	var err error
	if e.Pretty {
		data, err = json.MarshalIndent(records, "", "  ")
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return instrumentation.NewExportError("json", len(records), err)
	}

	if _, err := w.Write(data); err != nil {
		return instrumentation.NewExportError("json", len(records), err)
	}
	return nil
}

// ExportStream writes records from a channel as a JSON array without
// holding them all in memory. It returns when the channel is closed or ctx
// is done.
func (e *JSONExporter) ExportStream(ctx context.Context, recordsCh <-chan *instrumentation.Record, w io.Writer) error {
	if _, err := w.Write([]byte("[")); err != nil {
		return instrumentation.NewExportError("json", 0, err)
	}

	first := true
	recordCount := 0

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case record, ok := <-recordsCh:
			if !ok {
				closing := "]"
				if e.Pretty && !first {
					closing = "\n]"
				}
				if _, err := w.Write([]byte(closing)); err != nil {
					return instrumentation.NewExportError("json", recordCount, err)
				}
				return nil
			}

			sep := ","
			if first {
				sep = ""
			}
			if e.Pretty {
				sep += "\n  "
			}
			first = false

			data, err := e.serializeRecord(record)
			if err != nil {
				return instrumentation.NewExportError("json", recordCount, err)
			}
			if _, err := w.Write(append([]byte(sep), data...)); err != nil {
				return instrumentation.NewExportError("json", recordCount, err)
			}

			recordCount++
		}
	}
}

func (e *JSONExporter) serializeRecord(record *instrumentation.Record) ([]byte, error) {
	if e.Pretty {
		return json.MarshalIndent(record, "  ", "  ")
	}
	return json.Marshal(record)
}
