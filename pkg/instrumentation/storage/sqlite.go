package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mercator-hq/meridian/pkg/instrumentation"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/instrumentation.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements instrumentation.Storage using SQLite.
type SQLiteStorage struct {
	db         *sql.DB
	config     *SQLiteConfig
	insertStmt *sql.Stmt
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewSQLiteStorage opens (or creates) the database, applies the schema and
// enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "instrumentation.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, instrumentation.NewStorageError("sqlite", "open", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up pragmas, the schema and the prepared insert.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return instrumentation.NewStorageError("sqlite", "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return instrumentation.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return instrumentation.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return instrumentation.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return instrumentation.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return instrumentation.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	stmt, err := s.db.Prepare(insertRecord)
	if err != nil {
		return instrumentation.NewStorageError("sqlite", "prepare_insert", err)
	}
	s.insertStmt = stmt

	return nil
}

// Store persists a record. Storing an existing ID replaces it.
func (s *SQLiteStorage) Store(ctx context.Context, record *instrumentation.Record) error {
	entries := record.Entries
	if entries == nil {
		entries = []instrumentation.Entry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return instrumentation.NewStorageError("sqlite", "marshal_entries", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err = s.insertStmt.ExecContext(ctx,
		record.ID,
		record.Operation,
		record.StartTime.UTC().UnixNano(),
		record.FlushTime.UTC().UnixNano(),
		int64(record.Duration),
		len(record.Entries),
		string(data),
	)
	if err != nil {
		return instrumentation.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Query retrieves records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *instrumentation.Query) ([]*instrumentation.Record, error) {
	if err := validateQuery(query); err != nil {
		return nil, err
	}

	sqlQuery, args := s.buildSelect(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, instrumentation.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*instrumentation.Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, instrumentation.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, instrumentation.NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// QueryStream streams matching records over a channel.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *instrumentation.Query) (<-chan *instrumentation.Record, <-chan error, error) {
	if err := validateQuery(query); err != nil {
		return nil, nil, err
	}

	recordsCh := make(chan *instrumentation.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := s.buildSelect(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- instrumentation.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRecord(rows)
			if err != nil {
				errCh <- instrumentation.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- instrumentation.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *instrumentation.Query) (int64, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, instrumentation.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *instrumentation.Query) (int64, error) {
	where, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, instrumentation.NewStorageError("sqlite", "delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, instrumentation.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close releases the prepared statement and the database handle.
func (s *SQLiteStorage) Close() error {
	s.mu.Lock()
	if s.insertStmt != nil {
		s.insertStmt.Close()
		s.insertStmt = nil
	}
	s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return instrumentation.NewStorageError("sqlite", "close", err)
	}

	s.logger.Info("SQLite storage closed")
	return nil
}

// buildSelect assembles the SELECT statement with ordering and pagination.
func (s *SQLiteStorage) buildSelect(query *instrumentation.Query) (string, []any) {
	where, args := buildWhereClause(query)

	sqlQuery := "SELECT " + selectColumns + " FROM records"
	if where != "" {
		sqlQuery += " WHERE " + where
	}

	order := "DESC"
	if query.SortOrder == "asc" {
		order = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY start_time %s, id %s", order, order)

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	return sqlQuery, args
}

// buildWhereClause builds the WHERE clause (without the keyword) and its
// arguments from the query filters.
func buildWhereClause(query *instrumentation.Query) (string, []any) {
	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "start_time >= ?")
		args = append(args, query.StartTime.UTC().UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "start_time <= ?")
		args = append(args, query.EndTime.UTC().UnixNano())
	}
	if query.ID != "" {
		conditions = append(conditions, "id = ?")
		args = append(args, query.ID)
	}
	if query.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, query.Operation)
	}
	if query.EntryName != "" {
		conditions = append(conditions,
			"EXISTS (SELECT 1 FROM json_each(records.entries) WHERE json_extract(json_each.value, '$.name') = ?)")
		args = append(args, query.EntryName)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRecord scans one row produced by selectColumns.
func scanRecord(rows *sql.Rows) (*instrumentation.Record, error) {
	var record instrumentation.Record
	var startNs, flushNs, durationNs int64
	var entries string

	if err := rows.Scan(&record.ID, &record.Operation, &startNs, &flushNs, &durationNs, &entries); err != nil {
		return nil, err
	}

	record.StartTime = time.Unix(0, startNs).UTC()
	record.FlushTime = time.Unix(0, flushNs).UTC()
	record.Duration = time.Duration(durationNs)

	if err := json.Unmarshal([]byte(entries), &record.Entries); err != nil {
		return nil, fmt.Errorf("decode entries of record %s: %w", record.ID, err)
	}
	return &record, nil
}
