package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(model.DateLayout, s, time.UTC)
	require.NoError(t, err)
	return d
}

func TestEntryRepo_Upsert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()

	e := &model.Entry{
		UserID: uuid.Must(uuid.NewV4()),
		Date:   day(t, "2024-01-01"),
		Text:   []byte(`{"type":"doc"}`),
	}

	// Insert and overwrite go through the same statement.
	for i := 0; i < 2; i++ {
		mock.ExpectExec(`INSERT INTO entries \(user_id, date, text\) VALUES \(\$1, \$2, \$3\) ON CONFLICT \(user_id, date\) DO UPDATE SET text = EXCLUDED\.text, updated_at = now\(\)`).
			WithArgs(e.UserID, e.Date, []byte(e.Text)).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, r.Upsert(ctx, e))
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()

	userID := uuid.Must(uuid.NewV4())
	date := day(t, "2024-01-01")
	text := []byte(`{"type":"doc"}`)

	mock.ExpectQuery(`SELECT user_id, date, text, created_at, updated_at FROM entries WHERE user_id=\$1 AND date=\$2`).
		WithArgs(userID, date).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "date", "text", "created_at", "updated_at"}).
			AddRow(userID, date, text, time.Now(), time.Now()))
	e, err := r.Get(ctx, userID, date)
	require.NoError(t, err)
	require.Equal(t, userID, e.UserID)
	require.JSONEq(t, string(text), string(e.Text))

	// Absence maps to the NotFound sentinel, not a generic failure.
	mock.ExpectQuery(`SELECT user_id, date, text, created_at, updated_at FROM entries WHERE user_id=\$1 AND date=\$2`).
		WithArgs(userID, date).
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, userID, date)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEntryRepo_Delete_IdempotentOnMissingRow(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()

	userID := uuid.Must(uuid.NewV4())
	date := day(t, "2024-01-02")

	mock.ExpectExec(`DELETE FROM entries WHERE user_id=\$1 AND date=\$2`).
		WithArgs(userID, date).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, userID, date))

	mock.ExpectExec(`DELETE FROM entries WHERE user_id=\$1 AND date=\$2`).
		WithArgs(userID, date).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.NoError(t, r.Delete(ctx, userID, date))
}

func TestEntryRepo_ListDates(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()

	userID := uuid.Must(uuid.NewV4())
	d1 := day(t, "2024-01-01")
	d2 := day(t, "2024-02-29")

	mock.ExpectQuery(`SELECT date FROM entries WHERE user_id=\$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"date"}).AddRow(d1).AddRow(d2))
	dates, err := r.ListDates(ctx, userID)
	require.NoError(t, err)
	require.ElementsMatch(t, []time.Time{d1, d2}, dates)

	// No entries: empty set, no error.
	mock.ExpectQuery(`SELECT date FROM entries WHERE user_id=\$1`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"date"}))
	dates, err = r.ListDates(ctx, userID)
	require.NoError(t, err)
	require.Empty(t, dates)
}
