package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medifollow/care-api/internal/model"
)

// Date and time columns are cast to text so the wall-clock strings
// survive the scan; lib/pq would otherwise decode DATE/TIME into
// time.Time and database/sql would stringify those as RFC3339.
const appointmentColumns = `
	a.id, a.patient_id, a.doctor_id, a.organisation_id,
	a.appointment_date::text AS appointment_date,
	a.start_time::text AS start_time, a.end_time::text AS end_time,
	a.status, a.notes,
	a.previous_appointment_id, a.payment_status, a.consultation_notes,
	a.diagnosis, a.reminder_sent_at, a.created_at,
	p.full_name AS patient_name, d.full_name AS doctor_name`

const appointmentJoins = `
	FROM appointments a
	JOIN profiles p ON p.id = a.patient_id
	JOIN profiles d ON d.id = a.doctor_id`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	// The partial unique index on (doctor_id, appointment_date, start_time)
	// WHERE status IN ('pending','confirmed') is the last line of defence
	// against two concurrent bookings of the same slot.
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, organisation_id,
			appointment_date, start_time, end_time, status, notes,
			previous_appointment_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.OrganisationID,
		appointment.AppointmentDate,
		appointment.StartTime,
		appointment.EndTime,
		appointment.Status,
		appointment.Notes,
		appointment.PreviousAppointmentID,
		appointment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + appointmentJoins + ` WHERE a.id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (r *appointmentRepository) Complete(ctx context.Context, id uuid.UUID, consultationNotes, diagnosis string) error {
	query := `
		UPDATE appointments
		SET status = $1, consultation_notes = $2, diagnosis = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		model.AppointmentStatusCompleted, consultationNotes, diagnosis, id)
	if err != nil {
		return fmt.Errorf("failed to complete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("appointment not found")
	}
	return nil
}

func (r *appointmentRepository) listBy(ctx context.Context, column string, id uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + appointmentJoins +
		fmt.Sprintf(` WHERE a.%s = $1 ORDER BY a.appointment_date ASC, a.start_time ASC`, column)

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, id); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	return r.listBy(ctx, "patient_id", patientID)
}

func (r *appointmentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	return r.listBy(ctx, "doctor_id", doctorID)
}

func (r *appointmentRepository) ListForOrganisation(ctx context.Context, organisationID uuid.UUID) ([]*model.Appointment, error) {
	return r.listBy(ctx, "organisation_id", organisationID)
}

func (r *appointmentRepository) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + appointmentJoins + `
		WHERE a.doctor_id = ? AND a.appointment_date = ? AND a.status IN (?)
		ORDER BY a.start_time ASC`

	query, args, err := sqlx.In(query, doctorID, date, statuses)
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	query = r.db.Rebind(query)

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments for date: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, date, startTime, endTime string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			AND appointment_date = $2
			AND status IN ('pending', 'confirmed')
			AND start_time < $4
			AND end_time > $3
		)
	`
	var overlap bool
	if err := r.db.GetContext(ctx, &overlap, query, doctorID, date, startTime, endTime); err != nil {
		return false, fmt.Errorf("failed to check overlap: %w", err)
	}
	return overlap, nil
}

func (r *appointmentRepository) ListDueReminders(ctx context.Context, fromDate, toDate string) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + appointmentJoins + `
		WHERE a.status IN ('pending', 'confirmed')
		AND a.reminder_sent_at IS NULL
		AND a.appointment_date >= $1
		AND a.appointment_date <= $2
		ORDER BY a.appointment_date ASC, a.start_time ASC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, fromDate, toDate); err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE appointments SET reminder_sent_at = $1 WHERE id = $2`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	return nil
}
