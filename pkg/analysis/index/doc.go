// Package index implements the shared code index.
//
// An Index holds the elements contributed by every project of a registry.
// Storage is pluggable: NewMemoryStore keeps elements in process memory and
// NewSQLiteStore persists them in a SQLite database, so an index can survive
// restarts of the CLI.
//
// Stores are internally synchronized. An Index may be read by any number of
// search engines concurrently while projects replace their own elements.
package index
