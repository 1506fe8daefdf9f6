package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore persists elements in a SQLite database.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	deleteStmt *sql.Stmt
	insertStmt *sql.Stmt
}

// SQLiteStoreConfig configures the SQLite store.
type SQLiteStoreConfig struct {
	// Path is the database file. ":memory:" keeps the index in memory.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteStore opens (creating if needed) the index database at
// cfg.Path.
func NewSQLiteStore(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS elements (
		project TEXT NOT NULL,
		path TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (project, path)
	);

	CREATE INDEX IF NOT EXISTS idx_elements_name ON elements(name);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.deleteStmt, err = s.db.Prepare(`DELETE FROM elements WHERE project = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO elements (project, path, name, kind)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project, path) DO UPDATE SET
			name = excluded.name,
			kind = excluded.kind
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}

	return nil
}

// Replace swaps the project's elements in one transaction.
func (s *SQLiteStore) Replace(ctx context.Context, project string, elements []Element) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.StmtContext(ctx, s.deleteStmt).ExecContext(ctx, project); err != nil {
		return fmt.Errorf("failed to delete elements: %w", err)
	}

	insert := tx.StmtContext(ctx, s.insertStmt)
	for _, e := range elements {
		if _, err := insert.ExecContext(ctx, project, e.Path, e.Name, string(e.Kind)); err != nil {
			return fmt.Errorf("failed to insert element %q: %w", e.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteProject removes every element of project.
func (s *SQLiteStore) DeleteProject(ctx context.Context, project string) error {
	if _, err := s.deleteStmt.ExecContext(ctx, project); err != nil {
		return fmt.Errorf("failed to delete elements: %w", err)
	}
	return nil
}

// Find pushes the query down to SQL. Glob patterns use SQLite's GLOB and
// are re-checked with Query.Match so both stores agree on the result.
func (s *SQLiteStore) Find(ctx context.Context, q Query) ([]Element, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if q.Project != "" {
		conditions = append(conditions, "project = ?")
		args = append(args, q.Project)
	}
	if q.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(q.Kind))
	}
	if q.Name != "" {
		switch q.Mode {
		case MatchPrefix:
			conditions = append(conditions, "substr(name, 1, length(?)) = ?")
			args = append(args, q.Name, q.Name)
		case MatchContains:
			conditions = append(conditions, "instr(name, ?) > 0")
			args = append(args, q.Name)
		case MatchGlob:
			conditions = append(conditions, "name GLOB ?")
			args = append(args, q.Name)
		default:
			conditions = append(conditions, "name = ?")
			args = append(args, q.Name)
		}
	}

	query := "SELECT project, path, name, kind FROM elements"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY name, path"
	if q.Limit > 0 && q.Mode != MatchGlob {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elements: %w", err)
	}
	defer rows.Close()

	var out []Element
	for rows.Next() {
		var (
			e    Element
			kind string
		)
		if err := rows.Scan(&e.Project, &e.Path, &e.Name, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Kind = ElementKind(kind)

		if q.Mode == MatchGlob && !q.Match(e) {
			continue
		}
		out = append(out, e)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Count returns the number of elements.
func (s *SQLiteStore) Count(ctx context.Context, project string) (int, error) {
	query := "SELECT COUNT(*) FROM elements"
	var args []interface{}
	if project != "" {
		query += " WHERE project = ?"
		args = append(args, project)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count elements: %w", err)
	}
	return n, nil
}

// Projects returns the indexed project paths.
func (s *SQLiteStore) Projects(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT project FROM elements ORDER BY project")
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return projects, nil
}

// Close closes the statements and the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.deleteStmt, s.insertStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}
