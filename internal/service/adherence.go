package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/adherence"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/interaction"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

const (
	// DefaultAdherenceDays is the rolling window of the adherence report
	DefaultAdherenceDays = 7
	// MaxAdherenceDays bounds how far back a report may reach
	MaxAdherenceDays = 90
)

// AdherenceService reports rolling adherence statistics
type AdherenceService struct {
	meds   repository.RegimenStore
	doses  repository.DoseLogStore
	now    Clock
	logger *zap.Logger
}

// NewAdherenceService creates a new AdherenceService
func NewAdherenceService(meds repository.RegimenStore, doses repository.DoseLogStore, loc *time.Location, logger *zap.Logger) *AdherenceService {
	return &AdherenceService{
		meds:   meds,
		doses:  doses,
		now:    systemClock(loc),
		logger: logger,
	}
}

// Report computes adherence over the last days days ending today
func (s *AdherenceService) Report(ctx context.Context, days int) (model.WeeklyReport, error) {
	if days < 1 || days > MaxAdherenceDays {
		return model.WeeklyReport{}, fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidArgument, MaxAdherenceDays, days)
	}

	today := timeutil.DateOf(s.now())
	dates := timeutil.Window(today, days)

	meds, err := s.meds.List(ctx)
	if err != nil {
		return model.WeeklyReport{}, fmt.Errorf("failed to load regimen: %w", err)
	}

	byDate, err := s.doses.QueryRange(ctx, dates[0], dates[len(dates)-1])
	if err != nil {
		return model.WeeklyReport{}, fmt.Errorf("failed to load dose log: %w", err)
	}

	report := adherence.ComputeWeeklyAdherence(meds, dates, func(d timeutil.Date) []model.DoseEvent {
		return byDate[d]
	}, today)

	s.logger.Debug("adherence report computed",
		zap.Int("days", days),
		zap.Int("rows", len(report.Rows)),
		zap.Int("compliance_percent", report.CompliancePercent),
	)

	return report, nil
}

// Weekly computes the standard seven-day report
func (s *AdherenceService) Weekly(ctx context.Context) (model.WeeklyReport, error) {
	return s.Report(ctx, DefaultAdherenceDays)
}

// WarningService cross-checks the active regimen against the interaction rule table
type WarningService struct {
	meds  repository.RegimenStore
	rules []model.InteractionRule
}

// NewWarningService creates a new WarningService. Rules must already be validated.
func NewWarningService(meds repository.RegimenStore, rules []model.InteractionRule) *WarningService {
	return &WarningService{
		meds:  meds,
		rules: rules,
	}
}

// Warnings returns the interaction warnings for the current regimen
func (s *WarningService) Warnings(ctx context.Context) ([]model.InteractionWarning, error) {
	meds, err := s.meds.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load regimen: %w", err)
	}

	warnings := interaction.EvaluateWarnings(meds, s.rules)
	if warnings == nil {
		warnings = []model.InteractionWarning{}
	}
	return warnings, nil
}

// Rules returns the rule table in evaluation order
func (s *WarningService) Rules() []model.InteractionRule {
	return append([]model.InteractionRule(nil), s.rules...)
}
