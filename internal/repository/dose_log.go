package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/model"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/timeutil"
)

// PostgresDoseLogRepository stores the dose log in the dose_events table
type PostgresDoseLogRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresDoseLogRepository creates a new PostgresDoseLogRepository
func NewPostgresDoseLogRepository(db *pgxpool.Pool, logger *zap.Logger) *PostgresDoseLogRepository {
	return &PostgresDoseLogRepository{
		db:     db,
		logger: logger,
	}
}

// Append files event under date
func (r *PostgresDoseLogRepository) Append(ctx context.Context, event model.DoseEvent, date timeutil.Date) error {
	query := `
		INSERT INTO dose_events (log_date, medication_id, medication_name, taken_at, taken)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		date.Midnight(time.UTC),
		event.MedicationID,
		event.MedicationName,
		event.Timestamp,
		event.Taken,
	)
	if err != nil {
		r.logger.Error("failed to append dose event",
			zap.Error(err),
			zap.String("medication_id", event.MedicationID),
			zap.String("date", date.String()),
		)
		return unavailable("append dose event", err)
	}

	return nil
}

// Query returns the events filed under date in insertion order
func (r *PostgresDoseLogRepository) Query(ctx context.Context, date timeutil.Date) ([]model.DoseEvent, error) {
	byDate, err := r.QueryRange(ctx, date, date)
	if err != nil {
		return nil, err
	}
	events := byDate[date]
	if events == nil {
		events = []model.DoseEvent{}
	}
	return events, nil
}

// QueryRange returns the events filed between from and to inclusive, grouped by date
func (r *PostgresDoseLogRepository) QueryRange(ctx context.Context, from, to timeutil.Date) (map[timeutil.Date][]model.DoseEvent, error) {
	query := `
		SELECT log_date, medication_id, medication_name, taken_at, taken
		FROM dose_events
		WHERE log_date BETWEEN $1 AND $2
		ORDER BY log_date, id
	`

	rows, err := r.db.Query(ctx, query, from.Midnight(time.UTC), to.Midnight(time.UTC))
	if err != nil {
		r.logger.Error("failed to query dose events",
			zap.Error(err),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
		return nil, unavailable("query dose events", err)
	}
	defer rows.Close()

	out := make(map[timeutil.Date][]model.DoseEvent)
	for rows.Next() {
		dated, err := scanDoseEvent(rows)
		if err != nil {
			r.logger.Error("failed to scan dose event", zap.Error(err))
			return nil, unavailable("scan dose event", err)
		}
		out[dated.Date] = append(out[dated.Date], dated.Event)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("error iterating dose events", zap.Error(err))
		return nil, unavailable("iterate dose events", err)
	}

	return out, nil
}

// All returns the whole log ordered by date
func (r *PostgresDoseLogRepository) All(ctx context.Context) ([]DatedDoseEvent, error) {
	query := `
		SELECT log_date, medication_id, medication_name, taken_at, taken
		FROM dose_events
		ORDER BY log_date, id
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.Error("failed to read dose log", zap.Error(err))
		return nil, unavailable("read dose log", err)
	}
	defer rows.Close()

	events := []DatedDoseEvent{}
	for rows.Next() {
		dated, err := scanDoseEvent(rows)
		if err != nil {
			r.logger.Error("failed to scan dose event", zap.Error(err))
			return nil, unavailable("scan dose event", err)
		}
		events = append(events, dated)
	}

	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate dose events", err)
	}

	return events, nil
}

// Clear deletes the whole log and returns how many events were removed
func (r *PostgresDoseLogRepository) Clear(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM dose_events`)
	if err != nil {
		r.logger.Error("failed to clear dose log", zap.Error(err))
		return 0, unavailable("clear dose log", err)
	}

	r.logger.Info("dose log cleared", zap.Int64("events_deleted", tag.RowsAffected()))
	return tag.RowsAffected(), nil
}

func scanDoseEvent(rows pgx.Rows) (DatedDoseEvent, error) {
	var (
		logDate time.Time
		ev      model.DoseEvent
	)
	if err := rows.Scan(&logDate, &ev.MedicationID, &ev.MedicationName, &ev.Timestamp, &ev.Taken); err != nil {
		return DatedDoseEvent{}, err
	}
	ev.Timestamp = ev.Timestamp.UTC()
	return DatedDoseEvent{Date: timeutil.DateOf(logDate.UTC()), Event: ev}, nil
}
