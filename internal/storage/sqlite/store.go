package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"pm/internal/models"
)

// Store wraps access to the SQLite database file and executes bound statements.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Result reports the outcome of a write statement.
type Result struct {
	RowsAffected int64
	LastInsertID int64
}

// Open creates the database file and its parent directory when missing and
// ensures the schema exists. It is safe to call on every startup.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: empty database path", models.ErrValidation)
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, fmt.Errorf("%w: create database directory: %w", models.ErrStorage, err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", models.ErrStorage, err)
	}

	// One connection at a time, none kept idle: every operation acquires a
	// fresh connection and releases it when it finishes.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(0)
	conn.SetConnMaxLifetime(0)

	s := &Store{db: conn, path: dbPath, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Debug("database ready", slog.String("path", dbPath))
	return s, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS projects (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL UNIQUE,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            project_id INTEGER,
            title TEXT NOT NULL,
            description TEXT,
            status TEXT NOT NULL DEFAULT 'todo' CHECK (status IN ('todo', 'in-progress', 'done')),
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            FOREIGN KEY(project_id) REFERENCES projects(id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: migration failed: %w", models.ErrStorage, err)
		}
	}
	s.logger.Debug("schema ensured", slog.Int("statements", len(stmts)))
	return nil
}

// Exec runs a single write statement with bound parameters.
func (s *Store) Exec(ctx context.Context, stmt string, args ...any) (Result, error) {
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return Result{}, classify(err)
	}

	var out Result
	if out.RowsAffected, err = res.RowsAffected(); err != nil {
		return Result{}, classify(err)
	}
	if out.LastInsertID, err = res.LastInsertId(); err != nil {
		return Result{}, classify(err)
	}

	s.logger.Debug("exec", slog.Int("args", len(args)), slog.Int64("rows_affected", out.RowsAffected))
	return out, nil
}

// ExecBatch runs a fixed sequence of statements inside one transaction.
func (s *Store) ExecBatch(ctx context.Context, stmts ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(err)
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return classify(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	s.logger.Debug("batch committed", slog.Int("statements", len(stmts)))
	return nil
}

// Query runs a read statement with bound parameters and returns every row
// as an ordered column-name-to-value record.
func (s *Store) Query(ctx context.Context, stmt string, args ...any) (RowSet, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return RowSet{}, classify(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return RowSet{}, classify(err)
	}

	set := RowSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return RowSet{}, classify(err)
		}
		set.Rows = append(set.Rows, Row{columns: columns, values: values})
	}
	if err := rows.Err(); err != nil {
		return RowSet{}, classify(err)
	}

	s.logger.Debug("query", slog.Int("args", len(args)), slog.Int("rows", len(set.Rows)))
	return set, nil
}

// classify maps driver errors onto the shared error kinds.
func classify(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return fmt.Errorf("%w: %w", models.ErrConstraint, err)
	}
	return fmt.Errorf("%w: %w", models.ErrStorage, err)
}
