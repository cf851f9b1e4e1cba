package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
)

// EntryRepo implements EntryRepository using PostgreSQL.
type EntryRepo struct{ db *DB }

// NewEntryRepo constructs an entry repository.
func NewEntryRepo(db *DB) *EntryRepo { return &EntryRepo{db: db} }

// Upsert inserts or overwrites the entry for (user_id, date) in one statement.
// The ON CONFLICT arbiter makes the existence check and the write atomic;
// concurrent writers to the same key serialize on the row, last commit wins.
func (r *EntryRepo) Upsert(ctx context.Context, e *model.Entry) error {
	const q = `
INSERT INTO entries (user_id, date, text)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, date)
DO UPDATE SET text = EXCLUDED.text, updated_at = now()`
	_, err := r.db.Pool.Exec(ctx, q, e.UserID, e.Date, []byte(e.Text))
	return err
}

// Get returns the entry for (user_id, date).
func (r *EntryRepo) Get(ctx context.Context, userID uuid.UUID, date time.Time) (*model.Entry, error) {
	const q = `
SELECT user_id, date, text, created_at, updated_at
FROM entries WHERE user_id=$1 AND date=$2`
	row := r.db.Pool.QueryRow(ctx, q, userID, date)
	var e model.Entry
	var text []byte
	if err := row.Scan(&e.UserID, &e.Date, &text, &e.CreatedAt, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	e.Text = text
	return &e, nil
}

// Delete removes the entry for (user_id, date). Zero rows affected is success.
func (r *EntryRepo) Delete(ctx context.Context, userID uuid.UUID, date time.Time) error {
	const q = `DELETE FROM entries WHERE user_id=$1 AND date=$2`
	_, err := r.db.Pool.Exec(ctx, q, userID, date)
	return err
}

// ListDates returns all dates the user has an entry for. The primary key
// guarantees uniqueness; no ordering is promised to callers.
func (r *EntryRepo) ListDates(ctx context.Context, userID uuid.UUID) ([]time.Time, error) {
	const q = `SELECT date FROM entries WHERE user_id=$1`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d time.Time
		if err = rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
