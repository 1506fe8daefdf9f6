// Package export writes instrumentation records as JSON or CSV.
//
// Both exporters accept either a slice (Export) or the channel returned by
// Storage.QueryStream (ExportStream). JSON output is always an array of
// records; CSV output has one row per entry.
package export
