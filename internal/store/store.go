// Package store provides the local store gateway: a single embedded SQLite
// database holding the replicated catalog tables and the device-local cart and
// note tables.
//
// The database runs in embedded mode (ncruces/go-sqlite3) with WAL enabled.
// All mutating access is serialized through one logical writer: interleaved
// large write transactions against a single embedded connection are how the
// previous generation of this app corrupted its cache, so the single-writer
// guard is a hard constraint here, not a tuning knob.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// ErrMissingTable is returned by table preconditions when a required synced
// table has not been replicated yet.
var ErrMissingTable = errors.New("required table missing")

// Statement is one parameterized SQL statement of a batch.
type Statement struct {
	SQL  string
	Args []any
}

// Store wraps the embedded database connection. Safe for concurrent use;
// writers are serialized internally.
type Store struct {
	conn *sql.DB
	path string

	// writeMu serializes every mutating transaction. Readers go straight to
	// the pool and ride on WAL snapshots.
	writeMu sync.Mutex
}

// Open creates or opens the database at path, enables WAL and foreign keys,
// and returns the gateway. The caller must Close it.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := s.conn.Exec(pragma); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// Exec runs a single mutating statement under the writer guard.
func (s *Store) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.ExecContext(ctx, query, args...)
}

// Query runs a read-only query. Not serialized; WAL allows concurrent readers.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, query, args...)
}

// QueryRow runs a read-only single-row query.
func (s *Store) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, query, args...)
}

// RunBatch executes all statements inside one transaction, in order. Either
// every statement commits or none does; this is what keeps a domain replace
// atomic under a reader's feet.
func (s *Store) RunBatch(ctx context.Context, stmts []Statement) error {
	return s.WithTx(ctx, func(tx *sql.Tx) error {
		for _, st := range stmts {
			if _, err := tx.ExecContext(ctx, st.SQL, st.Args...); err != nil {
				return fmt.Errorf("batch statement failed (%.60s): %w", st.SQL, err)
			}
		}
		return nil
	})
}

// WithTx runs fn inside a write transaction under the writer guard. The
// transaction is rolled back if fn returns an error.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TableExists reports whether a table is present in the schema.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var count int
	err := s.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", name, err)
	}
	return count == 1, nil
}

// CountRows returns the row count of a table. The table name comes from the
// fixed domain registry, never from user input.
func (s *Store) CountRows(ctx context.Context, table string) (int, error) {
	ok, err := s.TableExists(ctx, table)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingTable, table)
	}
	var count int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}
