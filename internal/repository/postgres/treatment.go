package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medifollow/care-api/internal/model"
)

func (r *treatmentRepository) ListDiagnoses(ctx context.Context) ([]*model.Diagnosis, error) {
	var diagnoses []*model.Diagnosis
	err := r.db.SelectContext(ctx, &diagnoses,
		`SELECT id, name, description, created_at, updated_at FROM diagnoses ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnoses: %w", err)
	}
	return diagnoses, nil
}

func (r *treatmentRepository) SearchDiagnoses(ctx context.Context, query string, limit int) ([]*model.Diagnosis, error) {
	var diagnoses []*model.Diagnosis
	err := r.db.SelectContext(ctx, &diagnoses, `
		SELECT id, name, description, created_at, updated_at FROM diagnoses
		WHERE name ILIKE '%' || $1 || '%'
		ORDER BY name ASC
		LIMIT $2`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search diagnoses: %w", err)
	}
	return diagnoses, nil
}

func (r *treatmentRepository) GetDiagnosis(ctx context.Context, id uuid.UUID) (*model.Diagnosis, error) {
	var diagnosis model.Diagnosis
	err := r.db.GetContext(ctx, &diagnosis,
		`SELECT id, name, description, created_at, updated_at FROM diagnoses WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnosis: %w", err)
	}
	return &diagnosis, nil
}

func (r *treatmentRepository) CreateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error {
	if diagnosis.ID == uuid.Nil {
		diagnosis.ID = uuid.New()
	}
	now := time.Now()
	diagnosis.CreatedAt = now
	diagnosis.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO diagnoses (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		diagnosis.ID, diagnosis.Name, diagnosis.Description,
		diagnosis.CreatedAt, diagnosis.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create diagnosis: %w", err)
	}
	return nil
}

func (r *treatmentRepository) UpdateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error {
	diagnosis.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE diagnoses SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		diagnosis.Name, diagnosis.Description, diagnosis.UpdatedAt, diagnosis.ID)
	if err != nil {
		return fmt.Errorf("failed to update diagnosis: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("diagnosis not found")
	}
	return nil
}

func (r *treatmentRepository) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM diagnoses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete diagnosis: %w", err)
	}
	return nil
}

func (r *treatmentRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*model.TreatmentTemplate, error) {
	var template model.TreatmentTemplate
	err := r.db.GetContext(ctx, &template, `
		SELECT id, diagnosis_id, name, description, created_at
		FROM treatment_templates WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get template: %w", err)
	}
	return &template, nil
}

func (r *treatmentRepository) ListTemplates(ctx context.Context, diagnosisID uuid.UUID) ([]*model.TreatmentTemplate, error) {
	var templates []*model.TreatmentTemplate
	err := r.db.SelectContext(ctx, &templates, `
		SELECT id, diagnosis_id, name, description, created_at
		FROM treatment_templates
		WHERE diagnosis_id = $1
		ORDER BY created_at DESC`, diagnosisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	return templates, nil
}

func (r *treatmentRepository) CreateTemplate(ctx context.Context, template *model.TreatmentTemplate) error {
	if template.ID == uuid.Nil {
		template.ID = uuid.New()
	}
	template.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO treatment_templates (id, diagnosis_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		template.ID, template.DiagnosisID, template.Name, template.Description, template.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	return nil
}

func (r *treatmentRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM treatment_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return nil
}

func (r *treatmentRepository) ListTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]model.TemplateStep, error) {
	var steps []model.TemplateStep
	err := r.db.SelectContext(ctx, &steps, `
		SELECT id, template_id, step_order, title, appointment_type, suggested_time_gap
		FROM treatment_template_steps
		WHERE template_id = $1
		ORDER BY step_order ASC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list template steps: %w", err)
	}
	return steps, nil
}

func (r *treatmentRepository) CountTemplateSteps(ctx context.Context, templateID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM treatment_template_steps WHERE template_id = $1`, templateID)
	if err != nil {
		return 0, fmt.Errorf("failed to count template steps: %w", err)
	}
	return count, nil
}

func (r *treatmentRepository) AddTemplateStep(ctx context.Context, step *model.TemplateStep) error {
	if step.ID == uuid.Nil {
		step.ID = uuid.New()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO treatment_template_steps (
			id, template_id, step_order, title, appointment_type, suggested_time_gap
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		step.ID, step.TemplateID, step.StepOrder, step.Title,
		step.AppointmentType, step.SuggestedTimeGap)
	if err != nil {
		return fmt.Errorf("failed to add template step: %w", err)
	}
	return nil
}

// DeleteTemplateStep removes the step without renumbering the survivors;
// step_order gaps are tolerated.
func (r *treatmentRepository) DeleteTemplateStep(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM treatment_template_steps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete template step: %w", err)
	}
	return nil
}

func (r *treatmentRepository) CreatePlanWithSteps(ctx context.Context, plan *model.PatientTreatmentPlan, stepIDs []uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if plan.ID == uuid.Nil {
			plan.ID = uuid.New()
		}
		now := time.Now()
		plan.CreatedAt = now
		plan.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO patient_treatment_plans (
				id, patient_id, doctor_id, diagnosis_id, template_id,
				status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			plan.ID, plan.PatientID, plan.DoctorID, plan.DiagnosisID,
			plan.TemplateID, plan.Status, plan.CreatedAt, plan.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to create plan: %w", err)
		}

		for _, stepID := range stepIDs {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO treatment_plan_appointments (id, plan_id, step_id, status)
				VALUES ($1, $2, $3, $4)`,
				uuid.New(), plan.ID, stepID, model.PlanAppointmentPending)
			if err != nil {
				return fmt.Errorf("failed to create plan appointment: %w", err)
			}
		}
		return nil
	})
}

func (r *treatmentRepository) ListPlansForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientTreatmentPlan, error) {
	var plans []*model.PatientTreatmentPlan
	err := r.db.SelectContext(ctx, &plans, `
		SELECT id, patient_id, doctor_id, diagnosis_id, template_id,
			   status, created_at, updated_at
		FROM patient_treatment_plans
		WHERE patient_id = $1
		ORDER BY created_at DESC`, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}

	for _, plan := range plans {
		diagnosis, err := r.GetDiagnosis(ctx, plan.DiagnosisID)
		if err == nil {
			plan.Diagnosis = diagnosis
		}

		if plan.TemplateID != nil {
			template, err := r.GetTemplate(ctx, *plan.TemplateID)
			if err == nil {
				steps, err := r.ListTemplateSteps(ctx, template.ID)
				if err != nil {
					return nil, err
				}
				template.Steps = steps
				plan.Template = template
			}
		}

		var planAppointments []model.PlanAppointment
		err = r.db.SelectContext(ctx, &planAppointments, `
			SELECT id, plan_id, step_id, appointment_id, status
			FROM treatment_plan_appointments
			WHERE plan_id = $1`, plan.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list plan appointments: %w", err)
		}
		plan.PlanAppointments = planAppointments
	}

	return plans, nil
}

func (r *treatmentRepository) GetPendingPlanAppointmentForStep(ctx context.Context, patientID, stepID uuid.UUID) (*model.PlanAppointment, error) {
	var pa model.PlanAppointment
	err := r.db.GetContext(ctx, &pa, `
		SELECT pa.id, pa.plan_id, pa.step_id, pa.appointment_id, pa.status
		FROM treatment_plan_appointments pa
		JOIN patient_treatment_plans p ON p.id = pa.plan_id
		WHERE p.patient_id = $1
		AND pa.step_id = $2
		AND pa.status = $3
		AND p.status = $4
		ORDER BY p.created_at DESC
		LIMIT 1`,
		patientID, stepID, model.PlanAppointmentPending, model.PlanStatusActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan appointment for step: %w", err)
	}
	return &pa, nil
}

func (r *treatmentRepository) LinkPlanAppointment(ctx context.Context, planAppointmentID, appointmentID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE treatment_plan_appointments
		SET appointment_id = $1, status = $2
		WHERE id = $3 AND status = $4`,
		appointmentID, model.PlanAppointmentScheduled,
		planAppointmentID, model.PlanAppointmentPending)
	if err != nil {
		return fmt.Errorf("failed to link plan appointment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("plan appointment is not pending")
	}
	return nil
}

func (r *treatmentRepository) CompleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE treatment_plan_appointments
		SET status = $1
		WHERE appointment_id = $2 AND status = $3`,
		model.PlanAppointmentCompleted, appointmentID, model.PlanAppointmentScheduled)
	if err != nil {
		return fmt.Errorf("failed to complete plan appointment: %w", err)
	}
	return nil
}
