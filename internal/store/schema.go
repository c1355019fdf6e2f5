package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mobiorder/mobiorder/internal/model"
)

// InitSchema creates the device-local tables. Synced catalog tables are not
// created here: each domain sync drops and recreates its own tables so the
// local schema always matches the server payload it was built from.
//
// Idempotent - safe to call on every startup.
func (s *Store) InitSchema(ctx context.Context) error {
	schema := `
	-- Replication bookkeeping: one row per synced data domain.
	CREATE TABLE IF NOT EXISTS dataIntegrityChecksums (
		dataTable TEXT PRIMARY KEY,
		checksum TEXT,
		dateChanged DATETIME
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_dataIntegrityChecksums_dataTable
	    ON dataIntegrityChecksums(dataTable);

	-- Draft and sent orders. At most one row has active=1.
	CREATE TABLE IF NOT EXISTS carts (
		id INTEGER PRIMARY KEY,
		name TEXT,
		customer INTEGER NOT NULL,
		address INTEGER NOT NULL,
		lastChangeDate DATETIME,
		sendDate DATETIME,
		send BOOLEAN NOT NULL DEFAULT 0,
		sendOk BOOLEAN NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS cartProducts (
		cart INTEGER NOT NULL,
		product INTEGER NOT NULL,
		amount INTEGER NOT NULL,
		PRIMARY KEY (cart, product)
	);
	CREATE TABLE IF NOT EXISTS cartSettings (
		cart INTEGER PRIMARY KEY,
		deliveryDate TEXT,
		reference TEXT,
		comment TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_carts_active ON carts(active);
	CREATE INDEX IF NOT EXISTS idx_carts_send ON carts(send, sendOk);

	-- Visit note outbox.
	CREATE TABLE IF NOT EXISTS unsentNotes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer INTEGER NOT NULL,
		address INTEGER NOT NULL,
		date DATETIME NOT NULL,
		text TEXT,
		nextVisit TEXT,
		customerCloseFrom TEXT,
		customerOpenFrom TEXT,
		toSend BOOLEAN NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_unsentNotes_customer ON unsentNotes(customer, address);

	-- Materialized visibility set for the active customer context.
	CREATE TABLE IF NOT EXISTS currentExceptions (
		productId INTEGER PRIMARY KEY
	);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// The images table predates the document sync domains; drop it if an old
	// install left it behind.
	if _, err := s.conn.ExecContext(ctx, "DROP TABLE IF EXISTS images"); err != nil {
		return fmt.Errorf("failed to drop legacy images table: %w", err)
	}

	return nil
}

// ChecksumUpsert builds the statement that records a domain's new checksum.
// It is appended to the domain's replace batch so checksum and table contents
// commit together.
func ChecksumUpsert(dataTable, checksum string, at time.Time) Statement {
	return Statement{
		SQL: `INSERT OR REPLACE INTO dataIntegrityChecksums (dataTable, checksum, dateChanged)
		      VALUES (?, ?, ?)`,
		Args: []any{dataTable, checksum, at.UTC().Format(time.RFC3339)},
	}
}

// Checksums loads every checksum record.
func (s *Store) Checksums(ctx context.Context) ([]model.Checksum, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT dataTable, checksum, dateChanged FROM dataIntegrityChecksums")
	if err != nil {
		return nil, fmt.Errorf("failed to load checksums: %w", err)
	}
	defer rows.Close()

	var result []model.Checksum
	for rows.Next() {
		var cs model.Checksum
		var changed sql.NullString
		if err := rows.Scan(&cs.DataTable, &cs.Checksum, &changed); err != nil {
			return nil, fmt.Errorf("failed to scan checksum row: %w", err)
		}
		if changed.Valid {
			cs.DateChanged, _ = time.Parse(time.RFC3339, changed.String)
		}
		result = append(result, cs)
	}
	return result, rows.Err()
}
