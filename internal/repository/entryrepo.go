package repository

import (
	"context"
	"time"

	"github.com/ekropotin/daybook/internal/model"
	"github.com/gofrs/uuid/v5"
)

// EntryRepository provides keyed access to journal entries. Every operation
// is scoped by (userID, date); callers never see another user's rows.
type EntryRepository interface {
	// Upsert atomically inserts or wholesale-overwrites the entry for the key.
	Upsert(ctx context.Context, e *model.Entry) error

	// Get returns the entry for (userID, date), or errs.ErrNotFound.
	Get(ctx context.Context, userID uuid.UUID, date time.Time) (*model.Entry, error)

	// Delete removes the entry for (userID, date). Missing rows are not an error.
	Delete(ctx context.Context, userID uuid.UUID, date time.Time) error

	// ListDates returns the set of dates for which the user has an entry.
	ListDates(ctx context.Context, userID uuid.UUID) ([]time.Time, error)
}
