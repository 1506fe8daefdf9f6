// Package storage provides backends that persist instrumentation records.
//
// # Backends
//
//   - MemoryStorage: in-process map, for tests and for short-lived CLI runs.
//   - SQLiteStorage: durable storage on github.com/mattn/go-sqlite3 with WAL
//     mode and a versioned schema.
//
// Both implement instrumentation.Storage and are safe for concurrent use.
// Records are returned newest first unless Query.SortOrder is "asc".
//
// # Usage
//
//	store, err := storage.NewSQLiteStorage(&storage.SQLiteConfig{
//	    Path:    "data/instrumentation.db",
//	    WALMode: true,
//	})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	records, err := store.Query(ctx, &instrumentation.Query{
//	    Operation: "Registry.resourceFor",
//	    Limit:     50,
//	})
package storage
