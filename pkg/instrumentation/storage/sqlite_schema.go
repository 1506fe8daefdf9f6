package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the instrumentation record tables.
//
// Entries are stored as one JSON array per record; entry-name filters use
// json_each. Times are UTC Unix nanoseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,
    start_time INTEGER NOT NULL,
    flush_time INTEGER NOT NULL,
    duration INTEGER NOT NULL,
    entry_count INTEGER NOT NULL,
    entries TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_start_time ON records(start_time);
CREATE INDEX IF NOT EXISTS idx_records_operation ON records(operation);
`

// InsertSchemaVersion records the schema version.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the newest applied schema version.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const insertRecord = `
INSERT INTO records (id, operation, start_time, flush_time, duration, entry_count, entries)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    operation = excluded.operation,
    start_time = excluded.start_time,
    flush_time = excluded.flush_time,
    duration = excluded.duration,
    entry_count = excluded.entry_count,
    entries = excluded.entries;
`

const selectColumns = `id, operation, start_time, flush_time, duration, entries`
