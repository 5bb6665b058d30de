// Package reminder keeps the notification service's recurring triggers in
// step with the regimen and reminder settings.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/metrics"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// NotificationService delivers recurring local notifications. Schedule
// returns model.ErrPermissionDenied when delivery is not allowed.
type NotificationService interface {
	Schedule(ctx context.Context, id int, fire model.FireSpec, title, body string) error
	Cancel(ctx context.Context, id int)
	CheckPermission(ctx context.Context) bool
	RequestPermission(ctx context.Context) bool
}

// Phase is the lifecycle state of one category
type Phase string

const (
	PhaseUnscheduled Phase = "unscheduled"
	PhaseScheduled   Phase = "scheduled"
)

// CategoryState is the outcome of the last reschedule of a category
type CategoryState struct {
	Category          model.ReminderCategory  `json:"category"`
	Phase             Phase                   `json:"phase"`
	Triggers          []model.ReminderTrigger `json:"triggers"`
	PermissionGranted bool                    `json:"permission_granted"`
	Dropped           int                     `json:"dropped,omitempty"`
	LastError         string                  `json:"last_error,omitempty"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// IDs returns the trigger IDs issued in this state
func (s CategoryState) IDs() []int {
	ids := make([]int, 0, len(s.Triggers))
	for _, t := range s.Triggers {
		ids = append(ids, t.ID)
	}
	return ids
}

// Scheduler reconciles reminder triggers with a regimen. Reschedules of
// the same category never interleave; cancellation of a category's whole
// ID block completes before any of its triggers is issued.
type Scheduler struct {
	notifier NotificationService
	logger   *zap.Logger
	now      func() time.Time

	locks map[model.ReminderCategory]*sync.Mutex

	settingsMu sync.RWMutex
	settings   Settings

	stateMu sync.RWMutex
	state   map[model.ReminderCategory]CategoryState
}

// NewScheduler creates a Scheduler. It panics if the category ID blocks overlap.
func NewScheduler(notifier NotificationService, settings Settings, logger *zap.Logger) *Scheduler {
	if err := validateBlocks(blocks); err != nil {
		panic(fmt.Sprintf("reminder: %v", err))
	}

	s := &Scheduler{
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		locks:    make(map[model.ReminderCategory]*sync.Mutex, len(blocks)),
		settings: settings,
		state:    make(map[model.ReminderCategory]CategoryState, len(blocks)),
	}
	for _, b := range blocks {
		s.locks[b.Category] = &sync.Mutex{}
		s.state[b.Category] = CategoryState{Category: b.Category, Phase: PhaseUnscheduled}
	}
	return s
}

// Settings returns the current reminder settings
func (s *Scheduler) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// UpdateSettings validates and stores new settings, then reschedules every
// category against meds.
func (s *Scheduler) UpdateSettings(ctx context.Context, settings Settings, meds []model.Medication) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid reminder settings: %w", err)
	}

	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()

	s.logger.Info("reminder settings updated",
		zap.Bool("enabled", settings.Enabled),
		zap.Bool("water", settings.Water.Enabled),
		zap.Bool("medication", settings.Medication.Enabled),
		zap.Bool("check_in", settings.CheckIn.Enabled),
	)

	return s.RescheduleAll(ctx, meds)
}

// RescheduleAll reschedules every category
func (s *Scheduler) RescheduleAll(ctx context.Context, meds []model.Medication) error {
	var errs []error
	for _, category := range Categories() {
		if err := s.Reschedule(ctx, category, meds); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reschedule replaces every trigger of category with the triggers computed
// from meds and the current settings. The category's ID block is always
// cleared first; when notifications are not permitted nothing is issued
// and nil is returned. Failures other than permission denial are collected
// and returned; nothing is retried.
func (s *Scheduler) Reschedule(ctx context.Context, category model.ReminderCategory, meds []model.Medication) error {
	block, ok := BlockFor(category)
	if !ok {
		return fmt.Errorf("unknown reminder category %q", category)
	}

	lock := s.locks[category]
	lock.Lock()
	defer lock.Unlock()

	triggers, dropped := BuildTriggers(category, s.Settings(), meds)
	if dropped > 0 {
		s.logger.Warn("reminder slots exceed category id block, dropping the rest",
			zap.String("category", string(category)),
			zap.Int("block_size", block.Size),
			zap.Int("dropped", dropped),
		)
	}

	for id := block.Base; id < block.Base+block.Size; id++ {
		s.notifier.Cancel(ctx, id)
	}

	if !s.permitted(ctx) {
		s.logger.Warn("notification permission not granted, reminders disabled",
			zap.String("category", string(category)),
		)
		metrics.PermissionDenials.Inc()
		metrics.Reschedules.WithLabelValues(string(category), "permission_denied").Inc()
		metrics.ScheduledTriggers.WithLabelValues(string(category)).Set(0)
		s.record(CategoryState{Category: category, Phase: PhaseUnscheduled, PermissionGranted: false})
		return nil
	}

	issued := make([]model.ReminderTrigger, 0, len(triggers))
	var errs []error
	permissionLost := false
	for _, trigger := range triggers {
		err := s.notifier.Schedule(ctx, trigger.ID, trigger.Fire, trigger.Title, trigger.Body)
		if errors.Is(err, model.ErrPermissionDenied) {
			s.logger.Warn("notification permission revoked while scheduling",
				zap.String("category", string(category)),
				zap.Int("trigger_id", trigger.ID),
			)
			metrics.PermissionDenials.Inc()
			permissionLost = true
			break
		}
		if err != nil {
			s.logger.Error("failed to schedule reminder",
				zap.Error(err),
				zap.String("category", string(category)),
				zap.Int("trigger_id", trigger.ID),
			)
			errs = append(errs, fmt.Errorf("trigger %d: %w", trigger.ID, err))
			continue
		}
		issued = append(issued, trigger)
	}

	state := CategoryState{
		Category:          category,
		Phase:             PhaseScheduled,
		Triggers:          issued,
		PermissionGranted: !permissionLost,
		Dropped:           dropped,
	}
	if len(issued) == 0 {
		state.Phase = PhaseUnscheduled
	}

	err := errors.Join(errs...)
	outcome := "ok"
	switch {
	case err != nil:
		state.LastError = err.Error()
		outcome = "error"
	case permissionLost:
		outcome = "permission_denied"
	}
	s.record(state)
	metrics.Reschedules.WithLabelValues(string(category), outcome).Inc()
	metrics.ScheduledTriggers.WithLabelValues(string(category)).Set(float64(len(issued)))

	s.logger.Info("reminders rescheduled",
		zap.String("category", string(category)),
		zap.Int("triggers", len(issued)),
		zap.String("outcome", outcome),
	)

	if err != nil {
		return fmt.Errorf("failed to reschedule %s reminders: %w", category, err)
	}
	return nil
}

// RequestPermission asks the notification service for permission and
// reports whether it was granted.
func (s *Scheduler) RequestPermission(ctx context.Context) bool {
	granted := s.permitted(ctx)
	s.logger.Info("notification permission requested", zap.Bool("granted", granted))
	return granted
}

// PermissionGranted reports the current permission without prompting
func (s *Scheduler) PermissionGranted(ctx context.Context) bool {
	return s.notifier.CheckPermission(ctx)
}

// State returns the last recorded state of every category in reschedule order
func (s *Scheduler) State() []CategoryState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	out := make([]CategoryState, 0, len(blocks))
	for _, category := range Categories() {
		st := s.state[category]
		st.Triggers = append([]model.ReminderTrigger(nil), st.Triggers...)
		out = append(out, st)
	}
	return out
}

func (s *Scheduler) permitted(ctx context.Context) bool {
	if s.notifier.CheckPermission(ctx) {
		return true
	}
	return s.notifier.RequestPermission(ctx)
}

func (s *Scheduler) record(state CategoryState) {
	state.UpdatedAt = s.now()
	s.stateMu.Lock()
	s.state[state.Category] = state
	s.stateMu.Unlock()
}
