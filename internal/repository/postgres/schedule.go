package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/model"
)

// Time columns are cast to text so the wall-clock strings survive the
// scan; lib/pq would otherwise decode TIME into time.Time.
const scheduleColumns = `
	id, doctor_id, day_of_week, is_available,
	start_time::text AS start_time, end_time::text AS end_time,
	break_start_time::text AS break_start_time,
	break_end_time::text AS break_end_time`

func (r *scheduleRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleEntry, error) {
	query := `SELECT` + scheduleColumns + `
		FROM doctor_schedules
		WHERE doctor_id = $1
		ORDER BY day_of_week ASC
	`
	var entries []*model.ScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list schedule: %w", err)
	}
	return entries, nil
}

func (r *scheduleRepository) GetForDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*model.ScheduleEntry, error) {
	query := `SELECT` + scheduleColumns + `
		FROM doctor_schedules
		WHERE doctor_id = $1 AND day_of_week = $2
	`
	var entry model.ScheduleEntry
	err := r.db.GetContext(ctx, &entry, query, doctorID, dayOfWeek)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule entry: %w", err)
	}
	return &entry, nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScheduleEntry, error) {
	query := `SELECT` + scheduleColumns + `
		FROM doctor_schedules
		WHERE id = $1
	`
	var entry model.ScheduleEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, fmt.Errorf("failed to get schedule entry: %w", err)
	}
	return &entry, nil
}

func (r *scheduleRepository) Update(ctx context.Context, entry *model.ScheduleEntry) error {
	query := `
		UPDATE doctor_schedules
		SET is_available = $1, start_time = $2, end_time = $3,
			break_start_time = $4, break_end_time = $5
		WHERE id = $6 AND doctor_id = $7
	`
	result, err := r.db.ExecContext(ctx, query,
		entry.IsAvailable,
		entry.StartTime,
		entry.EndTime,
		entry.BreakStartTime,
		entry.BreakEndTime,
		entry.ID,
		entry.DoctorID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("schedule entry not found")
	}
	return nil
}

// InitDefaultWeek seeds Mon-Fri 09:00-17:00 working, Sat/Sun off, for a
// doctor with no schedule rows yet.
func (r *scheduleRepository) InitDefaultWeek(ctx context.Context, doctorID uuid.UUID) error {
	query := `
		INSERT INTO doctor_schedules (
			id, doctor_id, day_of_week, is_available, start_time, end_time
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	for day := 0; day < 7; day++ {
		working := day >= 1 && day <= 5
		_, err := r.db.ExecContext(ctx, query,
			uuid.New(), doctorID, day, working, "09:00:00", "17:00:00")
		if err != nil {
			return fmt.Errorf("failed to initialise schedule: %w", err)
		}
	}
	return nil
}
