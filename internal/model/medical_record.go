package model

import (
	"time"

	"github.com/google/uuid"
)

// MedicalRecord is a clinical note, a file attachment, or both. A row
// carrying both content and a file surfaces twice on the timeline.
type MedicalRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	PatientID   uuid.UUID `db:"patient_id" json:"patient_id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Content     *string   `db:"content" json:"content,omitempty"`
	FileURL     *string   `db:"file_url" json:"file_url,omitempty"`
	FileName    *string   `db:"file_name" json:"file_name,omitempty"`
	Description *string   `db:"description" json:"description,omitempty"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`

	DoctorName string `db:"doctor_name" json:"doctor_name,omitempty"`
	SignedURL  string `db:"-" json:"signed_url,omitempty"`
}

// MedicalRecordVersion is an immutable snapshot taken whenever a record's
// content is edited.
type MedicalRecordVersion struct {
	ID        uuid.UUID `db:"id" json:"id"`
	RecordID  uuid.UUID `db:"record_id" json:"record_id"`
	Content   *string   `db:"content" json:"content,omitempty"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateRecordRequest struct {
	PatientID   string `json:"patient_id" binding:"required,uuid"`
	Content     string `json:"content" binding:"max=20000"`
	FilePath    string `json:"file_path" binding:"max=1024"`
	FileName    string `json:"file_name" binding:"max=512"`
	Description string `json:"description" binding:"max=2000"`
}

type UpdateRecordRequest struct {
	Content string `json:"content" binding:"required,max=20000"`
}
