package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ekropotin/daybook/internal/document"
	"github.com/ekropotin/daybook/internal/errs"
	"github.com/ekropotin/daybook/internal/model"
	"github.com/ekropotin/daybook/internal/repository"
	"github.com/gofrs/uuid/v5"
)

// EntryService defines journal entry operations, all scoped to a user.
type EntryService interface {
	// Put validates inputs and atomically inserts or overwrites the entry.
	Put(ctx context.Context, userID uuid.UUID, date string, text json.RawMessage) error
	// Get returns the entry for the date, or errs.ErrNotFound when absent.
	Get(ctx context.Context, userID uuid.UUID, date string) (*model.Entry, error)
	// Delete removes the entry for the date; absent entries are not an error.
	Delete(ctx context.Context, userID uuid.UUID, date string) error
	// ListDates returns every date the user has written on, in canonical form.
	ListDates(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type EntryServiceImpl struct {
	entries repository.EntryRepository
}

// NewEntryService constructs EntryService with the backing repository.
func NewEntryService(entries repository.EntryRepository) *EntryServiceImpl {
	return &EntryServiceImpl{entries: entries}
}

// ParseDate parses a strict YYYY-MM-DD calendar day into midnight UTC.
func ParseDate(date string) (time.Time, error) {
	d, err := time.ParseInLocation(model.DateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", errs.ErrInvalidInput, date)
	}
	return d, nil
}

// Put validates the date and document shape before touching the store.
func (s *EntryServiceImpl) Put(ctx context.Context, userID uuid.UUID, date string, text json.RawMessage) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	if _, err := document.Parse(text); err != nil {
		return fmt.Errorf("%w: text: %v", errs.ErrInvalidInput, err)
	}
	return s.entries.Upsert(ctx, &model.Entry{UserID: userID, Date: d, Text: text})
}

// Get returns the entry for (userID, date).
func (s *EntryServiceImpl) Get(ctx context.Context, userID uuid.UUID, date string) (*model.Entry, error) {
	d, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	return s.entries.Get(ctx, userID, d)
}

// Delete removes the entry for (userID, date), idempotently.
func (s *EntryServiceImpl) Delete(ctx context.Context, userID uuid.UUID, date string) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	return s.entries.Delete(ctx, userID, d)
}

// ListDates returns the set of dates with entries as YYYY-MM-DD strings.
func (s *EntryServiceImpl) ListDates(ctx context.Context, userID uuid.UUID) ([]string, error) {
	dates, err := s.entries.ListDates(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(model.DateLayout))
	}
	return out, nil
}
