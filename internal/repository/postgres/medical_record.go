package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medifollow/care-api/internal/model"
)

func (r *medicalRecordRepository) Create(ctx context.Context, record *model.MedicalRecord) error {
	query := `
		INSERT INTO medical_records (
			id, patient_id, doctor_id, content, file_url, file_name,
			description, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	if record.Status == "" {
		record.Status = "final"
	}

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.PatientID,
		record.DoctorID,
		record.Content,
		record.FileURL,
		record.FileName,
		record.Description,
		record.Status,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medical record: %w", err)
	}
	return nil
}

func (r *medicalRecordRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	query := `
		SELECT m.id, m.patient_id, m.doctor_id, m.content, m.file_url,
			   m.file_name, m.description, m.status, m.created_at,
			   d.full_name AS doctor_name
		FROM medical_records m
		JOIN profiles d ON d.id = m.doctor_id
		WHERE m.id = $1
	`
	var record model.MedicalRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, fmt.Errorf("failed to get medical record: %w", err)
	}
	return &record, nil
}

func (r *medicalRecordRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	query := `
		SELECT m.id, m.patient_id, m.doctor_id, m.content, m.file_url,
			   m.file_name, m.description, m.status, m.created_at,
			   d.full_name AS doctor_name
		FROM medical_records m
		JOIN profiles d ON d.id = m.doctor_id
		WHERE m.patient_id = $1
		ORDER BY m.created_at DESC
	`
	var records []*model.MedicalRecord
	if err := r.db.SelectContext(ctx, &records, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	return records, nil
}

func (r *medicalRecordRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedBy uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE medical_records SET content = $1 WHERE id = $2`, content, id)
		if err != nil {
			return fmt.Errorf("failed to update record content: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("medical record not found")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO medical_record_versions (id, record_id, content, created_by, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), id, content, editedBy, time.Now())
		if err != nil {
			return fmt.Errorf("failed to create record version: %w", err)
		}
		return nil
	})
}

func (r *medicalRecordRepository) ListVersionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecordVersion, error) {
	query := `
		SELECT v.id, v.record_id, v.content, v.created_by, v.created_at
		FROM medical_record_versions v
		JOIN medical_records m ON m.id = v.record_id
		WHERE m.patient_id = $1
		ORDER BY v.created_at DESC
	`
	var versions []*model.MedicalRecordVersion
	if err := r.db.SelectContext(ctx, &versions, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list record versions: %w", err)
	}
	return versions, nil
}
