package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// testStorePath returns a temporary path for test databases
func testStorePath(t *testing.T) string {
	return filepath.Join(t.TempDir(), "test.db")
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(testStorePath(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// TestOpen_Success tests database creation and pragma setup
func TestOpen_Success(t *testing.T) {
	path := testStorePath(t)
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}

	var mode string
	if err := s.QueryRow(context.Background(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("journal_mode query failed: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

// TestInitSchema_Idempotent tests that schema creation can run repeatedly
func TestInitSchema_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.InitSchema(ctx); err != nil {
			t.Fatalf("InitSchema() run %d failed: %v", i+1, err)
		}
	}

	tables := []string{"dataIntegrityChecksums", "carts", "cartProducts", "cartSettings", "unsentNotes", "currentExceptions"}
	for _, table := range tables {
		ok, err := s.TableExists(ctx, table)
		if err != nil {
			t.Fatalf("TableExists(%s) failed: %v", table, err)
		}
		if !ok {
			t.Errorf("table %s does not exist", table)
		}
	}
}

// TestRunBatch_Atomic tests that a failing statement rolls back the batch
func TestRunBatch_Atomic(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Exec(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	err := s.RunBatch(ctx, []Statement{
		{SQL: "INSERT INTO t VALUES (1)"},
		{SQL: "INSERT INTO t VALUES (2)"},
		{SQL: "INSERT INTO t VALUES (1)"}, // duplicate key
	})
	if err == nil {
		t.Fatal("RunBatch() should have failed on duplicate key")
	}

	n, err := s.CountRows(ctx, "t")
	if err != nil {
		t.Fatalf("CountRows failed: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after failed batch = %d, want 0 (rollback)", n)
	}
}

// TestWithTx_Rollback tests explicit transaction rollback on error
func TestWithTx_Rollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.Exec(ctx, "CREATE TABLE t (id INTEGER)"); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	wantErr := errors.New("boom")
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO t VALUES (1)"); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithTx() error = %v, want %v", err, wantErr)
	}

	n, _ := s.CountRows(ctx, "t")
	if n != 0 {
		t.Errorf("rows after rolled-back tx = %d, want 0", n)
	}
}

// TestChecksumUpsert tests insert-or-replace semantics for checksum rows
func TestChecksumUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.InitSchema(ctx); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	now := time.Now()
	if err := s.RunBatch(ctx, []Statement{ChecksumUpsert("products", "aaa", now)}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := s.RunBatch(ctx, []Statement{ChecksumUpsert("products", "bbb", now.Add(time.Minute))}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	sums, err := s.Checksums(ctx)
	if err != nil {
		t.Fatalf("Checksums() failed: %v", err)
	}
	if len(sums) != 1 {
		t.Fatalf("checksum rows = %d, want 1", len(sums))
	}
	if sums[0].DataTable != "products" || sums[0].Checksum != "bbb" {
		t.Errorf("checksum row = %+v, want products/bbb", sums[0])
	}
}

// TestTableExists_Missing tests the negative case
func TestTableExists_Missing(t *testing.T) {
	s := openTestStore(t)

	ok, err := s.TableExists(context.Background(), "nope")
	if err != nil {
		t.Fatalf("TableExists failed: %v", err)
	}
	if ok {
		t.Error("TableExists(nope) = true, want false")
	}
}

// TestCountRows_MissingTable tests the sentinel error
func TestCountRows_MissingTable(t *testing.T) {
	s := openTestStore(t)

	_, err := s.CountRows(context.Background(), "nope")
	if !errors.Is(err, ErrMissingTable) {
		t.Errorf("CountRows error = %v, want ErrMissingTable", err)
	}
}
