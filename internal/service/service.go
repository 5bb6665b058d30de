package service

import (
	"context"
	"errors"
	"time"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
)

// ErrInvalidArgument is returned for malformed request parameters that are not medications
var ErrInvalidArgument = errors.New("invalid argument")

// ReminderScheduler is the part of the reminder scheduler the services drive
type ReminderScheduler interface {
	Reschedule(ctx context.Context, category model.ReminderCategory, meds []model.Medication) error
	RescheduleAll(ctx context.Context, meds []model.Medication) error
	UpdateSettings(ctx context.Context, settings reminder.Settings, meds []model.Medication) error
	Settings() reminder.Settings
	RequestPermission(ctx context.Context) bool
	PermissionGranted(ctx context.Context) bool
	State() []reminder.CategoryState
}

var _ ReminderScheduler = (*reminder.Scheduler)(nil)

// Clock returns the current instant
type Clock func() time.Time

func systemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return func() time.Time {
		return time.Now().In(loc)
	}
}
