package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// MedicationInput is the user-editable part of a medication as it arrives
// from a form or API request
type MedicationInput struct {
	Name          string
	Dosage        string
	Frequency     model.Frequency
	ReminderTimes []timeutil.MinuteOfDay
	Active        *bool
}

// MedicationService handles regimen management and keeps medication
// reminders in step with every mutation
type MedicationService struct {
	repo      repository.RegimenStore
	audit     *audit.Logger
	reminders ReminderScheduler
	now       Clock
	logger    *zap.Logger
}

// NewMedicationService creates a new MedicationService
func NewMedicationService(repo repository.RegimenStore, auditLogger *audit.Logger, reminders ReminderScheduler, logger *zap.Logger) *MedicationService {
	return &MedicationService{
		repo:      repo,
		audit:     auditLogger,
		reminders: reminders,
		now:       systemClock(time.UTC),
		logger:    logger,
	}
}

// ListMedications returns the whole regimen in creation order
func (s *MedicationService) ListMedications(ctx context.Context) ([]model.Medication, error) {
	meds, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list medications", zap.Error(err))
		return nil, fmt.Errorf("failed to list medications: %w", err)
	}
	return meds, nil
}

// GetMedication returns one medication
func (s *MedicationService) GetMedication(ctx context.Context, id string) (model.Medication, error) {
	med, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Medication{}, fmt.Errorf("failed to get medication: %w", err)
	}
	return med, nil
}

// AddMedication validates the input and adds a new medication
func (s *MedicationService) AddMedication(ctx context.Context, in MedicationInput) (model.Medication, error) {
	med, err := normalizeMedication(in)
	if err != nil {
		return model.Medication{}, err
	}

	now := s.timestamp()
	med.ID = uuid.New().String()
	med.Active = true
	if in.Active != nil {
		med.Active = *in.Active
	}
	med.CreatedAt = now
	med.UpdatedAt = now

	if err := s.repo.Add(ctx, med); err != nil {
		s.logger.Error("failed to add medication",
			zap.Error(err),
			zap.String("medication_name", med.Name),
		)
		return model.Medication{}, fmt.Errorf("failed to add medication: %w", err)
	}

	s.logger.Info("medication added successfully",
		zap.String("medication_id", med.ID),
		zap.String("name", med.Name),
		zap.String("frequency", string(med.Frequency)),
	)

	s.record(ctx, audit.OperationCreate, med)
	s.syncReminders(ctx)

	return med, nil
}

// UpdateMedication replaces the editable fields of an existing medication
func (s *MedicationService) UpdateMedication(ctx context.Context, id string, in MedicationInput) (model.Medication, error) {
	updates, err := normalizeMedication(in)
	if err != nil {
		return model.Medication{}, err
	}

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Medication{}, fmt.Errorf("failed to find medication for update: %w", err)
	}

	updates.ID = existing.ID
	updates.CreatedAt = existing.CreatedAt
	updates.Active = existing.Active
	if in.Active != nil {
		updates.Active = *in.Active
	}
	updates.UpdatedAt = s.timestamp()

	if err := s.repo.Update(ctx, updates); err != nil {
		s.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", id),
		)
		return model.Medication{}, fmt.Errorf("failed to update medication: %w", err)
	}

	s.logger.Info("medication updated successfully",
		zap.String("medication_id", id),
		zap.String("name", updates.Name),
	)

	s.record(ctx, audit.OperationUpdate, updates)
	s.syncReminders(ctx)

	return updates, nil
}

// SetActive toggles whether a medication is part of the current regimen
func (s *MedicationService) SetActive(ctx context.Context, id string, active bool) (model.Medication, error) {
	med, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Medication{}, fmt.Errorf("failed to find medication: %w", err)
	}

	if med.Active == active {
		return med, nil
	}

	med.Active = active
	med.UpdatedAt = s.timestamp()

	if err := s.repo.Update(ctx, med); err != nil {
		s.logger.Error("failed to toggle medication",
			zap.Error(err),
			zap.String("medication_id", id),
		)
		return model.Medication{}, fmt.Errorf("failed to toggle medication: %w", err)
	}

	s.logger.Info("medication toggled",
		zap.String("medication_id", id),
		zap.Bool("active", active),
	)

	s.record(ctx, audit.OperationUpdate, med)
	s.syncReminders(ctx)

	return med, nil
}

// DeleteMedication hard-deletes a medication. Its logged doses are kept.
func (s *MedicationService) DeleteMedication(ctx context.Context, id string) error {
	med, err := s.repo.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to find medication: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete medication",
			zap.Error(err),
			zap.String("medication_id", id),
		)
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	s.logger.Info("medication deleted successfully",
		zap.String("medication_id", id),
	)

	s.record(ctx, audit.OperationDelete, med)
	s.syncReminders(ctx)

	return nil
}

// syncReminders reissues the medication reminders from the stored regimen.
// The mutation has already been committed, so failures are only logged.
func (s *MedicationService) syncReminders(ctx context.Context) {
	if s.reminders == nil {
		return
	}

	meds, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to load regimen for reminder reschedule", zap.Error(err))
		return
	}

	if err := s.reminders.Reschedule(ctx, model.ReminderCategoryMedication, meds); err != nil {
		s.logger.Error("failed to reschedule medication reminders", zap.Error(err))
	}
}

func (s *MedicationService) record(ctx context.Context, op audit.OperationType, med model.Medication) {
	if s.audit == nil {
		return
	}

	data := map[string]interface{}{
		"name":      med.Name,
		"frequency": string(med.Frequency),
		"active":    med.Active,
	}
	if err := s.audit.Log(ctx, audit.Entry{
		OperationType:  op,
		ResourceType:   audit.ResourceMedication,
		ResourceID:     med.ID,
		AdditionalData: data,
	}); err != nil {
		s.logger.Warn("medication change not audited",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
	}
}

// timestamp matches the precision the Postgres store keeps
func (s *MedicationService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// normalizeMedication parses external input into a medication that holds the
// regimen invariants: scheduled frequencies carry a sorted set of reminder
// times, as-needed carries none.
func normalizeMedication(in MedicationInput) (model.Medication, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Medication{}, fmt.Errorf("%w: medication name is required", model.ErrInvalidMedication)
	}

	dosage := strings.TrimSpace(in.Dosage)
	if dosage == "" {
		return model.Medication{}, fmt.Errorf("%w: medication dosage is required", model.ErrInvalidMedication)
	}

	if !in.Frequency.Valid() {
		return model.Medication{}, fmt.Errorf("%w: unknown frequency %q", model.ErrInvalidMedication, in.Frequency)
	}

	times := slices.Clone(in.ReminderTimes)
	for _, t := range times {
		if !t.Valid() {
			return model.Medication{}, fmt.Errorf("%w: reminder time %d is out of range", model.ErrInvalidMedication, int(t))
		}
	}
	slices.Sort(times)
	for i := 1; i < len(times); i++ {
		if times[i] == times[i-1] {
			return model.Medication{}, fmt.Errorf("%w: duplicate reminder time %s", model.ErrInvalidMedication, times[i])
		}
	}

	switch {
	case !in.Frequency.Scheduled() && len(times) > 0:
		return model.Medication{}, fmt.Errorf("%w: as-needed medications take no reminder times", model.ErrInvalidMedication)
	case in.Frequency.Scheduled() && len(times) == 0:
		times = in.Frequency.DefaultReminderTimes()
		if len(times) == 0 {
			return model.Medication{}, fmt.Errorf("%w: %s frequency needs at least one reminder time", model.ErrInvalidMedication, in.Frequency)
		}
	}
	if times == nil {
		times = []timeutil.MinuteOfDay{}
	}

	return model.Medication{
		Name:          name,
		Dosage:        dosage,
		Frequency:     in.Frequency,
		ReminderTimes: times,
	}, nil
}
