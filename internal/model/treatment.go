package model

import (
	"time"

	"github.com/google/uuid"
)

type Diagnosis struct {
	Base

	Name        string  `db:"name" json:"name"`
	Description *string `db:"description" json:"description,omitempty"`
}

type TreatmentTemplate struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DiagnosisID uuid.UUID `db:"diagnosis_id" json:"diagnosis_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	Steps []TemplateStep `json:"steps,omitempty"`
}

// TemplateStep ordering is 1-based; new steps always append at count+1 and
// deletions leave gaps.
type TemplateStep struct {
	ID               uuid.UUID `db:"id" json:"id"`
	TemplateID       uuid.UUID `db:"template_id" json:"template_id"`
	StepOrder        int       `db:"step_order" json:"step_order"`
	Title            string    `db:"title" json:"title"`
	AppointmentType  string    `db:"appointment_type" json:"appointment_type"`
	SuggestedTimeGap *string   `db:"suggested_time_gap" json:"suggested_time_gap,omitempty"`
}

type PlanStatus string

const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusCancelled PlanStatus = "cancelled"
)

type PatientTreatmentPlan struct {
	Base

	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	DiagnosisID uuid.UUID  `db:"diagnosis_id" json:"diagnosis_id"`
	TemplateID  *uuid.UUID `db:"template_id" json:"template_id,omitempty"`
	Status      PlanStatus `db:"status" json:"status"`

	Diagnosis        *Diagnosis         `json:"diagnosis,omitempty"`
	Template         *TreatmentTemplate `json:"template,omitempty"`
	PlanAppointments []PlanAppointment  `json:"plan_appointments,omitempty"`
}

type PlanAppointmentStatus string

const (
	PlanAppointmentPending   PlanAppointmentStatus = "pending"
	PlanAppointmentScheduled PlanAppointmentStatus = "scheduled"
	PlanAppointmentCompleted PlanAppointmentStatus = "completed"
	PlanAppointmentSkipped   PlanAppointmentStatus = "skipped"
)

// PlanAppointment tracks one template step inside one patient's plan. The
// appointment_id stays null until a real booking is linked to the step.
type PlanAppointment struct {
	ID            uuid.UUID             `db:"id" json:"id"`
	PlanID        uuid.UUID             `db:"plan_id" json:"plan_id"`
	StepID        uuid.UUID             `db:"step_id" json:"step_id"`
	AppointmentID *uuid.UUID            `db:"appointment_id" json:"appointment_id,omitempty"`
	Status        PlanAppointmentStatus `db:"status" json:"status"`

	Step *TemplateStep `json:"step,omitempty"`
}

type DiagnosisInput struct {
	Name        string `json:"name" binding:"required,max=300"`
	Description string `json:"description" binding:"max=2000"`
}

type TemplateInput struct {
	DiagnosisID string `json:"diagnosis_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"required,max=300"`
	Description string `json:"description" binding:"max=2000"`
}

type TemplateStepInput struct {
	TemplateID       string `json:"template_id" binding:"required,uuid"`
	Title            string `json:"title" binding:"required,max=300"`
	AppointmentType  string `json:"appointment_type" binding:"required,max=100"`
	SuggestedTimeGap string `json:"suggested_time_gap" binding:"max=100"`
}

type AssignPlanRequest struct {
	PatientID   string `json:"patient_id" binding:"required,uuid"`
	DiagnosisID string `json:"diagnosis_id" binding:"required,uuid"`
	TemplateID  string `json:"template_id" binding:"required,uuid"`
}
