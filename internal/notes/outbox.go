// Package notes keeps the visit note outbox: notes written on the road are
// stored locally and posted to the server when a flush runs online.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/api"
	"github.com/mobiorder/mobiorder/internal/model"
	"github.com/mobiorder/mobiorder/internal/store"
)

const noteColumns = "id, customer, address, date, text, nextVisit, customerCloseFrom, customerOpenFrom, toSend"

// Outbox owns the unsentNotes table and reads the synced notes table.
type Outbox struct {
	store  *store.Store
	client *api.Client
	log    *zap.Logger
}

func NewOutbox(st *store.Store, client *api.Client, log *zap.Logger) *Outbox {
	return &Outbox{store: st, client: client, log: log}
}

// Save inserts or updates a note. A note with a positive id updates in
// place; otherwise a new row is created and the generated id written back.
// queue marks the note for the next flush.
func (o *Outbox) Save(ctx context.Context, note *model.UnsentVisitNote, queue bool) error {
	note.ToSend = queue
	if note.ID > 0 {
		_, err := o.store.Exec(ctx,
			"UPDATE unsentNotes SET date = ?, text = ?, nextVisit = ?, customerCloseFrom = ?, customerOpenFrom = ?, toSend = ? WHERE id = ?",
			note.Date.UTC(), note.Text, note.NextVisit,
			note.CustomerCloseFrom, note.CustomerOpenFrom, note.ToSend, note.ID)
		if err != nil {
			return fmt.Errorf("update note %d: %w", note.ID, err)
		}
		return nil
	}

	res, err := o.store.Exec(ctx,
		"INSERT INTO unsentNotes (customer, address, date, text, nextVisit, customerCloseFrom, customerOpenFrom, toSend) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		note.Customer, note.Address, note.Date.UTC(), note.Text,
		note.NextVisit, note.CustomerCloseFrom, note.CustomerOpenFrom, note.ToSend)
	if err != nil {
		return fmt.Errorf("insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	note.ID = int(id)
	return nil
}

// LastUnsent returns the most recent outbox note for the customer address,
// or nil when there is none.
func (o *Outbox) LastUnsent(ctx context.Context, customer, address int) (*model.UnsentVisitNote, error) {
	notes, err := o.scanUnsent(ctx,
		"SELECT "+noteColumns+" FROM unsentNotes WHERE customer = ? AND address = ? ORDER BY date DESC LIMIT 1",
		customer, address)
	if err != nil || len(notes) == 0 {
		return nil, err
	}
	return &notes[0], nil
}

// Unsent returns the outbox notes for the customer address, newest first.
func (o *Outbox) Unsent(ctx context.Context, customer, address int) ([]model.UnsentVisitNote, error) {
	return o.scanUnsent(ctx,
		"SELECT "+noteColumns+" FROM unsentNotes WHERE customer = ? AND address = ? ORDER BY date DESC",
		customer, address)
}

// HasUnsent reports whether the customer address has anything in the outbox.
func (o *Outbox) HasUnsent(ctx context.Context, customer, address int) (bool, error) {
	var n int
	err := o.store.QueryRow(ctx,
		"SELECT COUNT(*) FROM unsentNotes WHERE customer = ? AND address = ?",
		customer, address).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CustomerNotes returns the synced (already sent) notes for the customer
// address, newest first. limit <= 0 means no limit.
func (o *Outbox) CustomerNotes(ctx context.Context, customer, address, limit int) ([]model.VisitNote, error) {
	q := "SELECT customer, address, date, text FROM notes WHERE customer = ? AND address = ? ORDER BY date DESC"
	args := []any{customer, address}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := o.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	defer rows.Close()

	var out []model.VisitNote
	for rows.Next() {
		var n model.VisitNote
		var date sql.NullTime
		var text sql.NullString
		if err := rows.Scan(&n.Customer, &n.Address, &date, &text); err != nil {
			return nil, err
		}
		n.Date = date.Time
		n.Text = text.String
		out = append(out, n)
	}
	return out, rows.Err()
}

// Delete removes a note from the outbox.
func (o *Outbox) Delete(ctx context.Context, noteID int) error {
	_, err := o.store.Exec(ctx, "DELETE FROM unsentNotes WHERE id = ?", noteID)
	return err
}

// Flush posts every queued note to the server and deletes the ones the
// server accepted. Transport failures stop the flush; the remaining notes
// stay queued for the next run. Returns how many notes were delivered.
func (o *Outbox) Flush(ctx context.Context) (int, error) {
	queued, err := o.scanUnsent(ctx,
		"SELECT "+noteColumns+" FROM unsentNotes WHERE toSend = 1 ORDER BY date")
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, note := range queued {
		ok, err := o.client.CreateNote(ctx, note)
		if err != nil {
			if !errors.Is(err, api.ErrNoChanges) {
				return sent, fmt.Errorf("post note %d: %w", note.ID, err)
			}
			ok = true
		}
		if !ok {
			o.log.Warn("server rejected note", zap.Int("id", note.ID))
			continue
		}
		if err := o.Delete(ctx, note.ID); err != nil {
			return sent, err
		}
		sent++
	}
	if sent > 0 {
		o.log.Info("flushed visit notes", zap.Int("sent", sent))
	}
	return sent, nil
}

func (o *Outbox) scanUnsent(ctx context.Context, q string, args ...any) ([]model.UnsentVisitNote, error) {
	rows, err := o.store.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("load unsent notes: %w", err)
	}
	defer rows.Close()

	var out []model.UnsentVisitNote
	for rows.Next() {
		var n model.UnsentVisitNote
		var date sql.NullTime
		var text, next, closeFrom, openFrom sql.NullString
		if err := rows.Scan(&n.ID, &n.Customer, &n.Address, &date, &text,
			&next, &closeFrom, &openFrom, &n.ToSend); err != nil {
			return nil, err
		}
		n.Date = date.Time
		n.Text = text.String
		n.NextVisit = next.String
		n.CustomerCloseFrom = closeFrom.String
		n.CustomerOpenFrom = openFrom.String
		out = append(out, n)
	}
	return out, rows.Err()
}
