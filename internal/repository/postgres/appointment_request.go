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
// survive the scan (see appointmentColumns).
const requestColumns = `
	r.id, r.patient_id, r.doctor_id, r.organisation_id,
	r.appointment_date::text AS appointment_date,
	r.start_time::text AS start_time, r.end_time::text AS end_time,
	r.notes, r.status,
	r.linked_appointment_id, r.created_at,
	p.full_name AS patient_name, d.full_name AS doctor_name`

const requestJoins = `
	FROM appointment_requests r
	JOIN profiles p ON p.id = r.patient_id
	JOIN profiles d ON d.id = r.doctor_id`

func (r *appointmentRequestRepository) Create(ctx context.Context, request *model.AppointmentRequest) error {
	query := `
		INSERT INTO appointment_requests (
			id, patient_id, doctor_id, organisation_id,
			appointment_date, start_time, end_time, notes, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	request.CreatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		request.ID,
		request.PatientID,
		request.DoctorID,
		request.OrganisationID,
		request.AppointmentDate,
		request.StartTime,
		request.EndTime,
		request.Notes,
		request.Status,
		request.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment request: %w", err)
	}
	return nil
}

func (r *appointmentRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	query := `SELECT` + requestColumns + requestJoins + ` WHERE r.id = $1`

	var request model.AppointmentRequest
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment request: %w", err)
	}
	return &request, nil
}

func (r *appointmentRequestRepository) listBy(ctx context.Context, column string, id uuid.UUID) ([]*model.AppointmentRequest, error) {
	query := `SELECT` + requestColumns + requestJoins +
		fmt.Sprintf(` WHERE r.%s = $1 ORDER BY r.appointment_date ASC, r.start_time ASC`, column)

	var requests []*model.AppointmentRequest
	if err := r.db.SelectContext(ctx, &requests, query, id); err != nil {
		return nil, fmt.Errorf("failed to list appointment requests: %w", err)
	}
	return requests, nil
}

func (r *appointmentRequestRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentRequest, error) {
	return r.listBy(ctx, "patient_id", patientID)
}

func (r *appointmentRequestRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentRequest, error) {
	return r.listBy(ctx, "doctor_id", doctorID)
}

func (r *appointmentRequestRepository) ListForOrganisation(ctx context.Context, organisationID uuid.UUID) ([]*model.AppointmentRequest, error) {
	return r.listBy(ctx, "organisation_id", organisationID)
}

// Approve inserts the confirmed appointment and flips the request to
// approved with its linked_appointment_id stamped, atomically. A request
// that is no longer pending is left untouched.
func (r *appointmentRequestRepository) Approve(ctx context.Context, requestID uuid.UUID, appointment *model.Appointment) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if appointment.ID == uuid.Nil {
			appointment.ID = uuid.New()
		}
		appointment.CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, `
			INSERT INTO appointments (
				id, patient_id, doctor_id, organisation_id,
				appointment_date, start_time, end_time, status, notes, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			appointment.ID,
			appointment.PatientID,
			appointment.DoctorID,
			appointment.OrganisationID,
			appointment.AppointmentDate,
			appointment.StartTime,
			appointment.EndTime,
			appointment.Status,
			appointment.Notes,
			appointment.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create appointment from request: %w", err)
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE appointment_requests
			SET status = $1, linked_appointment_id = $2
			WHERE id = $3 AND status = $4`,
			model.RequestStatusApproved, appointment.ID, requestID, model.RequestStatusPending,
		)
		if err != nil {
			return fmt.Errorf("failed to update request status: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("request is not pending")
		}
		return nil
	})
}

func (r *appointmentRequestRepository) Reject(ctx context.Context, requestID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE appointment_requests SET status = $1
		WHERE id = $2 AND status = $3`,
		model.RequestStatusRejected, requestID, model.RequestStatusPending,
	)
	if err != nil {
		return fmt.Errorf("failed to reject request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("request is not pending")
	}
	return nil
}
