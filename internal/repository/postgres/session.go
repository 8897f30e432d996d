package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/model"
)

// Date and time columns are cast to text so the wall-clock strings
// survive the scan (see appointmentColumns).
const sessionColumns = `
	s.id, s.doctor_id, s.organisation_id,
	s.date::text AS date,
	s.start_time::text AS start_time, s.end_time::text AS end_time,
	s.label, s.slot_duration_minutes, s.status, s.created_at,
	(SELECT COUNT(*) FROM appointments a
	 WHERE a.doctor_id = s.doctor_id
	 AND a.appointment_date = s.date
	 AND a.start_time >= s.start_time
	 AND a.start_time < s.end_time) AS appointment_count`

func (r *sessionRepository) Create(ctx context.Context, session *model.SessionBlock) error {
	query := `
		INSERT INTO doctor_sessions (
			id, doctor_id, organisation_id, date, start_time, end_time,
			label, slot_duration_minutes, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.DoctorID,
		session.OrganisationID,
		session.Date,
		session.StartTime,
		session.EndTime,
		session.Label,
		session.SlotDurationMinutes,
		session.Status,
		session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.SessionBlock, error) {
	query := `SELECT` + sessionColumns + ` FROM doctor_sessions s WHERE s.id = $1`

	var session model.SessionBlock
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *sessionRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]*model.SessionBlock, error) {
	query := `SELECT` + sessionColumns + ` FROM doctor_sessions s WHERE s.doctor_id = $1`
	args := []interface{}{doctorID}
	argCount := 2

	if fromDate != "" {
		query += fmt.Sprintf(" AND s.date >= $%d", argCount)
		args = append(args, fromDate)
		argCount++
	}
	if toDate != "" {
		query += fmt.Sprintf(" AND s.date <= $%d", argCount)
		args = append(args, toDate)
		argCount++
	}

	query += " ORDER BY s.date ASC, s.start_time ASC"

	var sessions []*model.SessionBlock
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE doctor_sessions SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found")
	}
	return nil
}
