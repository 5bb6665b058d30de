package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// PostgresMedicationRepository stores the regimen in the medications table
type PostgresMedicationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresMedicationRepository creates a new PostgresMedicationRepository
func NewPostgresMedicationRepository(db *pgxpool.Pool, logger *zap.Logger) *PostgresMedicationRepository {
	return &PostgresMedicationRepository{
		db:     db,
		logger: logger,
	}
}

const medicationColumns = `id, name, dosage, frequency, reminder_minutes, active, created_at, updated_at`

// Add inserts a new medication
func (r *PostgresMedicationRepository) Add(ctx context.Context, med model.Medication) error {
	query := `
		INSERT INTO medications (` + medicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		med.ID,
		med.Name,
		med.Dosage,
		string(med.Frequency),
		toMinutes(med.ReminderTimes),
		med.Active,
		med.CreatedAt,
		med.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		return unavailable("create medication", err)
	}

	return nil
}

// List returns every medication in creation order
func (r *PostgresMedicationRepository) List(ctx context.Context) ([]model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to list medications", zap.Error(err))
		return nil, unavailable("list medications", err)
	}
	defer rows.Close()

	medications := []model.Medication{}
	for rows.Next() {
		med, err := scanMedication(rows)
		if err != nil {
			r.logger.Error("failed to scan medication", zap.Error(err))
			return nil, unavailable("scan medication", err)
		}
		medications = append(medications, med)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating medications", zap.Error(err))
		return nil, unavailable("iterate medications", err)
	}

	return medications, nil
}

// Get retrieves a medication by ID
func (r *PostgresMedicationRepository) Get(ctx context.Context, id string) (model.Medication, error) {
	query := `SELECT ` + medicationColumns + ` FROM medications WHERE id = $1`

	med, err := scanMedication(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Medication{}, notFound("medication", id)
	}
	if err != nil {
		r.logger.Error("failed to get medication", zap.Error(err), zap.String("medication_id", id))
		return model.Medication{}, unavailable("get medication", err)
	}

	return med, nil
}

// Update overwrites every field of an existing medication
func (r *PostgresMedicationRepository) Update(ctx context.Context, med model.Medication) error {
	query := `
		UPDATE medications
		SET name = $2, dosage = $3, frequency = $4, reminder_minutes = $5,
		    active = $6, updated_at = $7
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		med.ID,
		med.Name,
		med.Dosage,
		string(med.Frequency),
		toMinutes(med.ReminderTimes),
		med.Active,
		med.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update medication",
			zap.Error(err),
			zap.String("medication_id", med.ID),
		)
		return unavailable("update medication", err)
	}

	if tag.RowsAffected() == 0 {
		return notFound("medication", med.ID)
	}

	return nil
}

// Delete removes a medication. Its dose events are kept.
func (r *PostgresMedicationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("failed to delete medication", zap.Error(err), zap.String("medication_id", id))
		return unavailable("delete medication", err)
	}

	if tag.RowsAffected() == 0 {
		return notFound("medication", id)
	}

	return nil
}

func scanMedication(row pgx.Row) (model.Medication, error) {
	var (
		med       model.Medication
		frequency string
		minutes   []int32
	)
	err := row.Scan(
		&med.ID,
		&med.Name,
		&med.Dosage,
		&frequency,
		&minutes,
		&med.Active,
		&med.CreatedAt,
		&med.UpdatedAt,
	)
	if err != nil {
		return model.Medication{}, err
	}

	med.Frequency = model.Frequency(frequency)
	med.ReminderTimes = fromMinutes(minutes)
	med.CreatedAt = med.CreatedAt.UTC()
	med.UpdatedAt = med.UpdatedAt.UTC()
	return med, nil
}

func toMinutes(times []timeutil.MinuteOfDay) []int32 {
	out := make([]int32, 0, len(times))
	for _, t := range times {
		out = append(out, int32(t))
	}
	return out
}

func fromMinutes(minutes []int32) []timeutil.MinuteOfDay {
	if len(minutes) == 0 {
		return []timeutil.MinuteOfDay{}
	}
	out := make([]timeutil.MinuteOfDay, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, timeutil.MinuteOfDay(m))
	}
	return out
}
