package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending         AppointmentStatus = "pending"
	AppointmentStatusConfirmed       AppointmentStatus = "confirmed"
	AppointmentStatusAwaitingPayment AppointmentStatus = "awaiting_payment"
	AppointmentStatusCompleted       AppointmentStatus = "completed"
	AppointmentStatusCancelled       AppointmentStatus = "cancelled"
)

// Active reports whether the appointment still blocks its slot.
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusConfirmed
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusAwaitingPayment, AppointmentStatusCompleted,
		AppointmentStatusCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID                    uuid.UUID         `db:"id" json:"id"`
	PatientID             uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID              uuid.UUID         `db:"doctor_id" json:"doctor_id"`
	OrganisationID        uuid.UUID         `db:"organisation_id" json:"organisation_id"`
	AppointmentDate       string            `db:"appointment_date" json:"appointment_date"`
	StartTime             string            `db:"start_time" json:"start_time"`
	EndTime               string            `db:"end_time" json:"end_time"`
	Status                AppointmentStatus `db:"status" json:"status"`
	Notes                 *string           `db:"notes" json:"notes,omitempty"`
	PreviousAppointmentID *uuid.UUID        `db:"previous_appointment_id" json:"previous_appointment_id,omitempty"`
	PaymentStatus         *string           `db:"payment_status" json:"payment_status,omitempty"`
	ConsultationNotes     *string           `db:"consultation_notes" json:"consultation_notes,omitempty"`
	Diagnosis             *string           `db:"diagnosis" json:"diagnosis,omitempty"`
	ReminderSentAt        *time.Time        `db:"reminder_sent_at" json:"reminder_sent_at,omitempty"`
	CreatedAt             time.Time         `db:"created_at" json:"created_at"`

	// Joined display names, populated by list queries.
	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
	DoctorName  string `db:"doctor_name" json:"doctor_name,omitempty"`
}

// AppointmentNode is an appointment plus its follow-ups, as produced by
// BuildAppointmentTree.
type AppointmentNode struct {
	Appointment
	Children []*AppointmentNode `json:"children"`
}

type AppointmentRequestStatus string

const (
	RequestStatusPending  AppointmentRequestStatus = "pending"
	RequestStatusApproved AppointmentRequestStatus = "approved"
	RequestStatusRejected AppointmentRequestStatus = "rejected"
)

type AppointmentRequest struct {
	ID                  uuid.UUID                `db:"id" json:"id"`
	PatientID           uuid.UUID                `db:"patient_id" json:"patient_id"`
	DoctorID            uuid.UUID                `db:"doctor_id" json:"doctor_id"`
	OrganisationID      uuid.UUID                `db:"organisation_id" json:"organisation_id"`
	AppointmentDate     string                   `db:"appointment_date" json:"appointment_date"`
	StartTime           string                   `db:"start_time" json:"start_time"`
	EndTime             string                   `db:"end_time" json:"end_time"`
	Notes               *string                  `db:"notes" json:"notes,omitempty"`
	Status              AppointmentRequestStatus `db:"status" json:"status"`
	LinkedAppointmentID *uuid.UUID               `db:"linked_appointment_id" json:"linked_appointment_id,omitempty"`
	CreatedAt           time.Time                `db:"created_at" json:"created_at"`

	PatientName string `db:"patient_name" json:"patient_name,omitempty"`
	DoctorName  string `db:"doctor_name" json:"doctor_name,omitempty"`
}

type BookAppointmentRequest struct {
	DoctorID              string `json:"doctor_id" binding:"required,uuid"`
	AppointmentDate       string `json:"appointment_date" binding:"required,dateonly"`
	StartTime             string `json:"start_time" binding:"required,timeofday"`
	EndTime               string `json:"end_time" binding:"required,timeofday"`
	Notes                 string `json:"notes" binding:"max=1000"`
	PreviousAppointmentID string `json:"previous_appointment_id" binding:"omitempty,uuid"`
	StepID                string `json:"step_id" binding:"omitempty,uuid"`
}

type FollowUpRequest struct {
	PreviousAppointmentID string `json:"previous_appointment_id" binding:"required,uuid"`
	AppointmentDate       string `json:"appointment_date" binding:"required,dateonly"`
	StartTime             string `json:"start_time" binding:"required,timeofday"`
	EndTime               string `json:"end_time" binding:"required,timeofday"`
	Notes                 string `json:"notes" binding:"max=1000"`
}

type CreateAppointmentRequestInput struct {
	DoctorID        string `json:"doctor_id" binding:"required,uuid"`
	AppointmentDate string `json:"appointment_date" binding:"required,dateonly"`
	StartTime       string `json:"start_time" binding:"required,timeofday"`
	EndTime         string `json:"end_time" binding:"required,timeofday"`
	Notes           string `json:"notes" binding:"max=1000"`
}

type CompleteAppointmentRequest struct {
	ConsultationNotes string `json:"consultation_notes" binding:"max=5000"`
	Diagnosis         string `json:"diagnosis" binding:"max=500"`
}
