package model

import (
	"time"

	"github.com/google/uuid"
)

type TimelineEventType string

const (
	EventAppointment   TimelineEventType = "appointment"
	EventClinicalNote  TimelineEventType = "clinical_note"
	EventRecordUpdate  TimelineEventType = "record_update"
	EventStatusChange  TimelineEventType = "status_change"
	EventProfileUpdate TimelineEventType = "profile_update"
	EventFileUpload    TimelineEventType = "file_upload"
)

// EventMetadata is the per-type payload of a timeline event. Each variant
// carries only the fields that event type actually has, so the aggregator
// and renderer can switch on the concrete type.
type EventMetadata interface {
	eventMetadata()
}

type AppointmentMetadata struct {
	DoctorName      string `json:"doctorName,omitempty"`
	AppointmentDate string `json:"appointmentDate"`
	Time            string `json:"time"`
}

type StatusChangeMetadata struct {
	InitialStatus string `json:"initialStatus"`
}

type ClinicalNoteMetadata struct {
	FullContent string    `json:"fullContent"`
	DoctorID    uuid.UUID `json:"doctorId"`
}

type FileUploadMetadata struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
}

type RecordUpdateMetadata struct {
	ContentSnippet string `json:"contentSnippet"`
}

func (AppointmentMetadata) eventMetadata()  {}
func (StatusChangeMetadata) eventMetadata() {}
func (ClinicalNoteMetadata) eventMetadata() {}
func (FileUploadMetadata) eventMetadata()   {}
func (RecordUpdateMetadata) eventMetadata() {}

// TimelineEvent is derived at query time; nothing here is persisted.
type TimelineEvent struct {
	ID                    string            `json:"id"`
	Type                  TimelineEventType `json:"type"`
	Date                  time.Time         `json:"date"`
	Title                 string            `json:"title"`
	Description           string            `json:"description,omitempty"`
	Status                string            `json:"status,omitempty"`
	ReferenceID           uuid.UUID         `json:"referenceId"`
	PreviousAppointmentID *uuid.UUID        `json:"previousAppointmentId,omitempty"`
	Metadata              EventMetadata     `json:"metadata,omitempty"`
}

// TimelineThread groups one lineage chain of appointment events, or a single
// unrelated event. Events inside a thread read oldest first; threads
// themselves are sorted by LatestDate, most recent first.
type TimelineThread struct {
	ID         string          `json:"id"`
	LatestDate time.Time       `json:"latestDate"`
	Events     []TimelineEvent `json:"events"`
}

type TimelineFilter struct {
	Types     []TimelineEventType
	Search    string
	StartDate *time.Time
	EndDate   *time.Time
}
