package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/metrics"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/schedule"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// TodayView is the day screen: the classified schedule plus the as-needed
// medications that can be taken at any time
type TodayView struct {
	Date      timeutil.Date         `json:"date"`
	Now       time.Time             `json:"now"`
	Scheduled []model.ScheduledDose `json:"scheduled"`
	AsNeeded  []model.Medication    `json:"as_needed"`
	Next      []NextReminder        `json:"next_reminders"`
}

// NextReminder is when an active scheduled medication is next due
type NextReminder struct {
	MedicationID   string    `json:"medication_id"`
	MedicationName string    `json:"medication_name"`
	At             time.Time `json:"at"`
}

// DoseService logs doses and classifies the day's schedule
type DoseService struct {
	meds    repository.RegimenStore
	doses   repository.DoseLogStore
	builder *schedule.Builder
	now     Clock
	logger  *zap.Logger
}

// NewDoseService creates a new DoseService. loc is the patient's timezone;
// dates and minute-of-day values are taken in it.
func NewDoseService(meds repository.RegimenStore, doses repository.DoseLogStore, policy schedule.Policy, loc *time.Location, logger *zap.Logger) *DoseService {
	return &DoseService{
		meds:    meds,
		doses:   doses,
		builder: schedule.NewBuilder(policy),
		now:     systemClock(loc),
		logger:  logger,
	}
}

// TodaySchedule builds today's schedule from snapshots of the regimen and today's log
func (s *DoseService) TodaySchedule(ctx context.Context) (TodayView, error) {
	now := s.now()
	today := timeutil.DateOf(now)

	meds, err := s.meds.List(ctx)
	if err != nil {
		return TodayView{}, fmt.Errorf("failed to load regimen: %w", err)
	}

	doses, err := s.doses.Query(ctx, today)
	if err != nil {
		return TodayView{}, fmt.Errorf("failed to load today's doses: %w", err)
	}

	view := TodayView{
		Date:      today,
		Now:       now,
		Scheduled: s.builder.BuildTodaySchedule(meds, doses, now),
		AsNeeded:  schedule.Unscheduled(meds),
		Next:      nextReminders(meds, now),
	}
	if view.Scheduled == nil {
		view.Scheduled = []model.ScheduledDose{}
	}
	if view.AsNeeded == nil {
		view.AsNeeded = []model.Medication{}
	}

	return view, nil
}

// MarkTaken logs a dose of a scheduled medication at the current instant.
// It is not idempotent: every call appends one event.
func (s *DoseService) MarkTaken(ctx context.Context, medicationID string) (model.DoseEvent, error) {
	med, err := s.activeMedication(ctx, medicationID)
	if err != nil {
		return model.DoseEvent{}, err
	}
	if !med.Frequency.Scheduled() {
		return model.DoseEvent{}, fmt.Errorf("%w: %s has no scheduled doses, take it now instead", model.ErrInvalidMedication, med.Name)
	}
	return s.logDose(ctx, med, "schedule")
}

// TakeNow logs an unscheduled dose at the current instant
func (s *DoseService) TakeNow(ctx context.Context, medicationID string) (model.DoseEvent, error) {
	med, err := s.activeMedication(ctx, medicationID)
	if err != nil {
		return model.DoseEvent{}, err
	}
	return s.logDose(ctx, med, "take-now")
}

// DosesOn returns the doses logged on date
func (s *DoseService) DosesOn(ctx context.Context, date timeutil.Date) ([]model.DoseEvent, error) {
	doses, err := s.doses.Query(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to load doses: %w", err)
	}
	return doses, nil
}

// Today returns the current date in the patient's timezone
func (s *DoseService) Today() timeutil.Date {
	return timeutil.DateOf(s.now())
}

func (s *DoseService) activeMedication(ctx context.Context, id string) (model.Medication, error) {
	med, err := s.meds.Get(ctx, id)
	if err != nil {
		return model.Medication{}, fmt.Errorf("failed to find medication: %w", err)
	}
	if !med.Active {
		return model.Medication{}, fmt.Errorf("%w: %s is not active", model.ErrInvalidMedication, med.Name)
	}
	return med, nil
}

func (s *DoseService) logDose(ctx context.Context, med model.Medication, source string) (model.DoseEvent, error) {
	now := s.now().Truncate(time.Microsecond)
	event := model.DoseEvent{
		MedicationID:   med.ID,
		MedicationName: med.Name,
		Timestamp:      now,
		Taken:          true,
	}

	if err := s.doses.Append(ctx, event, timeutil.DateOf(now)); err != nil {
		s.logger.Error("failed to log dose",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		return model.DoseEvent{}, fmt.Errorf("failed to log dose: %w", err)
	}

	metrics.DosesLogged.WithLabelValues(source).Inc()
	s.logger.Info("dose logged",
		zap.String("medication_id", med.ID),
		zap.String("source", source),
		zap.Time("taken_at", now),
	)

	return event, nil
}

// nextReminders lists active scheduled medications by next due time
func nextReminders(meds []model.Medication, now time.Time) []NextReminder {
	out := []NextReminder{}
	for _, med := range meds {
		if !med.Active {
			continue
		}
		at, ok := schedule.NextReminder(med, now)
		if !ok {
			continue
		}
		out = append(out, NextReminder{MedicationID: med.ID, MedicationName: med.Name, At: at})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].MedicationID < out[j].MedicationID
	})
	return out
}
