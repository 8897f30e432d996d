package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCancelled SessionStatus = "cancelled"
	SessionStatusCompleted SessionStatus = "completed"
)

// SessionBlock is an ad-hoc availability window a doctor opens outside the
// recurring weekly schedule. Cancelling a block hides it from slot
// generation but leaves any appointments booked through it untouched.
type SessionBlock struct {
	ID                  uuid.UUID     `db:"id" json:"id"`
	DoctorID            uuid.UUID     `db:"doctor_id" json:"doctor_id"`
	OrganisationID      uuid.UUID     `db:"organisation_id" json:"organisation_id"`
	Date                string        `db:"date" json:"date"`
	StartTime           string        `db:"start_time" json:"start_time"`
	EndTime             string        `db:"end_time" json:"end_time"`
	Label               *string       `db:"label" json:"label,omitempty"`
	SlotDurationMinutes int           `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	Status              SessionStatus `db:"status" json:"status"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`

	AppointmentCount int `db:"appointment_count" json:"appointment_count"`
}

type CreateSessionRequest struct {
	Date         string `json:"date" binding:"required,dateonly"`
	StartTime    string `json:"start_time" binding:"required,timeofday"`
	EndTime      string `json:"end_time" binding:"required,timeofday"`
	Label        string `json:"label" binding:"max=200"`
	SlotDuration int    `json:"slot_duration_minutes" binding:"omitempty,min=5,max=240"`
}
