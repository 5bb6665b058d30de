package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// MemoryMedicationRepository is a process-local RegimenStore. Reads return copies.
type MemoryMedicationRepository struct {
	mu    sync.RWMutex
	byID  map[string]model.Medication
	order []string
}

// NewMemoryMedicationRepository creates an empty MemoryMedicationRepository
func NewMemoryMedicationRepository() *MemoryMedicationRepository {
	return &MemoryMedicationRepository{byID: make(map[string]model.Medication)}
}

func (r *MemoryMedicationRepository) Add(_ context.Context, med model.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if med.ID == "" {
		return fmt.Errorf("medication id required")
	}
	if _, exists := r.byID[med.ID]; exists {
		return fmt.Errorf("medication %s already exists", med.ID)
	}

	r.byID[med.ID] = med.Clone()
	r.order = append(r.order, med.ID)
	return nil
}

func (r *MemoryMedicationRepository) List(_ context.Context) ([]model.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Medication, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

func (r *MemoryMedicationRepository) Get(_ context.Context, id string) (model.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	med, ok := r.byID[id]
	if !ok {
		return model.Medication{}, notFound("medication", id)
	}
	return med.Clone(), nil
}

func (r *MemoryMedicationRepository) Update(_ context.Context, med model.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[med.ID]
	if !ok {
		return notFound("medication", med.ID)
	}

	updated := med.Clone()
	updated.CreatedAt = existing.CreatedAt
	r.byID[med.ID] = updated
	return nil
}

func (r *MemoryMedicationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return notFound("medication", id)
	}

	delete(r.byID, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemoryDoseLogRepository is a process-local dose log. Reads return copies.
type MemoryDoseLogRepository struct {
	mu     sync.RWMutex
	byDate map[timeutil.Date][]model.DoseEvent
}

// NewMemoryDoseLogRepository creates an empty MemoryDoseLogRepository
func NewMemoryDoseLogRepository() *MemoryDoseLogRepository {
	return &MemoryDoseLogRepository{byDate: make(map[timeutil.Date][]model.DoseEvent)}
}

func (r *MemoryDoseLogRepository) Append(_ context.Context, event model.DoseEvent, date timeutil.Date) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byDate[date] = append(r.byDate[date], event)
	return nil
}

func (r *MemoryDoseLogRepository) Query(_ context.Context, date timeutil.Date) ([]model.DoseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.DoseEvent{}, r.byDate[date]...), nil
}

func (r *MemoryDoseLogRepository) QueryRange(_ context.Context, from, to timeutil.Date) (map[timeutil.Date][]model.DoseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[timeutil.Date][]model.DoseEvent)
	for d, events := range r.byDate {
		if d.Before(from) || d.After(to) || len(events) == 0 {
			continue
		}
		out[d] = append([]model.DoseEvent(nil), events...)
	}
	return out, nil
}

func (r *MemoryDoseLogRepository) All(_ context.Context) ([]DatedDoseEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dates := make([]timeutil.Date, 0, len(r.byDate))
	for d := range r.byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := []DatedDoseEvent{}
	for _, d := range dates {
		for _, ev := range r.byDate[d] {
			out = append(out, DatedDoseEvent{Date: d, Event: ev})
		}
	}
	return out, nil
}

func (r *MemoryDoseLogRepository) Clear(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, events := range r.byDate {
		n += int64(len(events))
	}
	r.byDate = make(map[timeutil.Date][]model.DoseEvent)
	return n, nil
}
