package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// RegimenStore holds the medication regimen. Last write wins.
type RegimenStore interface {
	List(ctx context.Context) ([]model.Medication, error)
	Get(ctx context.Context, id string) (model.Medication, error)
	Add(ctx context.Context, med model.Medication) error
	Update(ctx context.Context, med model.Medication) error
	Delete(ctx context.Context, id string) error
}

// DoseLogStore is the append-only dose log keyed by calendar date
type DoseLogStore interface {
	Append(ctx context.Context, event model.DoseEvent, date timeutil.Date) error
	Query(ctx context.Context, date timeutil.Date) ([]model.DoseEvent, error)
	QueryRange(ctx context.Context, from, to timeutil.Date) (map[timeutil.Date][]model.DoseEvent, error)
}

// DatedDoseEvent is a dose event with the log date it was filed under
type DatedDoseEvent struct {
	Date  timeutil.Date   `json:"date"`
	Event model.DoseEvent `json:"event"`
}

// DoseLogAdmin adds the bulk operations reserved for data export and reset
type DoseLogAdmin interface {
	DoseLogStore
	All(ctx context.Context) ([]DatedDoseEvent, error)
	Clear(ctx context.Context) (int64, error)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("failed to %s: %w", op, errors.Join(model.ErrStoreUnavailable, err))
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
}
