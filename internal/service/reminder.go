package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/notify"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// TriggerStatus is an issued trigger with its next fire instant
type TriggerStatus struct {
	model.ReminderTrigger
	NextFire *time.Time `json:"next_fire,omitempty"`
}

// CategoryStatus is the reported state of one reminder category
type CategoryStatus struct {
	Category  model.ReminderCategory `json:"category"`
	Phase     reminder.Phase         `json:"phase"`
	Triggers  []TriggerStatus        `json:"triggers"`
	Dropped   int                    `json:"dropped,omitempty"`
	LastError string                 `json:"last_error,omitempty"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// ReminderStatus summarises the reminder subsystem. PermissionGranted
// false is the dismissible "reminders are off" notice.
type ReminderStatus struct {
	Enabled           bool             `json:"enabled"`
	PermissionGranted bool             `json:"permission_granted"`
	Categories        []CategoryStatus `json:"categories"`
}

// ReminderService exposes reminder status and settings
type ReminderService struct {
	scheduler ReminderScheduler
	meds      repository.RegimenStore
	audit     *audit.Logger
	now       Clock
	logger    *zap.Logger
}

// NewReminderService creates a new ReminderService
func NewReminderService(scheduler ReminderScheduler, meds repository.RegimenStore, auditLogger *audit.Logger, loc *time.Location, logger *zap.Logger) *ReminderService {
	return &ReminderService{
		scheduler: scheduler,
		meds:      meds,
		audit:     auditLogger,
		now:       systemClock(loc),
		logger:    logger,
	}
}

// Status reports every category with the next fire time of each trigger
func (s *ReminderService) Status(ctx context.Context) ReminderStatus {
	now := s.now()
	status := ReminderStatus{
		Enabled:           s.scheduler.Settings().Enabled,
		PermissionGranted: s.scheduler.PermissionGranted(ctx),
	}

	for _, st := range s.scheduler.State() {
		cs := CategoryStatus{
			Category:  st.Category,
			Phase:     st.Phase,
			Triggers:  make([]TriggerStatus, 0, len(st.Triggers)),
			Dropped:   st.Dropped,
			LastError: st.LastError,
			UpdatedAt: st.UpdatedAt,
		}
		for _, t := range st.Triggers {
			ts := TriggerStatus{ReminderTrigger: t}
			if next, err := notify.NextFire(t.Fire, now, 1); err == nil && len(next) == 1 {
				ts.NextFire = &next[0]
			} else if err != nil {
				s.logger.Warn("failed to compute next fire time",
					zap.Error(err),
					zap.Int("trigger_id", t.ID),
				)
			}
			cs.Triggers = append(cs.Triggers, ts)
		}
		status.Categories = append(status.Categories, cs)
	}

	return status
}

// RequestPermission asks for notification permission and, once granted,
// issues every category so reminders start without another edit.
func (s *ReminderService) RequestPermission(ctx context.Context) (bool, error) {
	if !s.scheduler.RequestPermission(ctx) {
		return false, nil
	}
	if err := s.RescheduleAll(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// RescheduleAll reissues every category from the stored regimen
func (s *ReminderService) RescheduleAll(ctx context.Context) error {
	meds, err := s.meds.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load regimen: %w", err)
	}
	return s.scheduler.RescheduleAll(ctx, meds)
}

// Settings returns the current reminder settings
func (s *ReminderService) Settings() reminder.Settings {
	return s.scheduler.Settings()
}

// UpdateSettings stores new settings and reschedules every category
func (s *ReminderService) UpdateSettings(ctx context.Context, settings reminder.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}

	meds, err := s.meds.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load regimen: %w", err)
	}

	if err := s.scheduler.UpdateSettings(ctx, settings, meds); err != nil {
		return err
	}

	if s.audit != nil {
		if err := s.audit.LogUpdate(ctx, audit.ResourceReminderSettings, "settings", map[string]interface{}{
			"enabled":    settings.Enabled,
			"water":      settings.Water.Enabled,
			"medication": settings.Medication.Enabled,
			"check_in":   settings.CheckIn.Enabled,
		}); err != nil {
			s.logger.Warn("reminder settings change not audited", zap.Error(err))
		}
	}

	return nil
}
