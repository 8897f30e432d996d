package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/medifollow/care-api/internal/model"
)

type (
	ProfileRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Profile, error)
		ListDoctors(ctx context.Context, organisationID *uuid.UUID, page model.Pagination) ([]*model.Profile, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error
		Complete(ctx context.Context, id uuid.UUID, consultationNotes, diagnosis string) error
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error)
		ListForOrganisation(ctx context.Context, organisationID uuid.UUID) ([]*model.Appointment, error)
		// ListForDoctorDate returns the doctor's appointments on one calendar
		// date, restricted to the given statuses.
		ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, statuses []model.AppointmentStatus) ([]*model.Appointment, error)
		// HasOverlap reports whether any active appointment for the doctor on
		// the date overlaps [startTime, endTime).
		HasOverlap(ctx context.Context, doctorID uuid.UUID, date, startTime, endTime string) (bool, error)
		ListDueReminders(ctx context.Context, fromDate, toDate string) ([]*model.Appointment, error)
		MarkReminderSent(ctx context.Context, id uuid.UUID) error
	}

	AppointmentRequestRepository interface {
		Create(ctx context.Context, request *model.AppointmentRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentRequest, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentRequest, error)
		ListForOrganisation(ctx context.Context, organisationID uuid.UUID) ([]*model.AppointmentRequest, error)
		// Approve inserts the confirmed appointment and stamps the request in
		// one transaction.
		Approve(ctx context.Context, requestID uuid.UUID, appointment *model.Appointment) error
		Reject(ctx context.Context, requestID uuid.UUID) error
	}

	ScheduleRepository interface {
		ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleEntry, error)
		// GetForDoctorDay returns (nil, nil) when the doctor has no entry for
		// the weekday; a missing row is not an error.
		GetForDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*model.ScheduleEntry, error)
		Get(ctx context.Context, id uuid.UUID) (*model.ScheduleEntry, error)
		Update(ctx context.Context, entry *model.ScheduleEntry) error
		InitDefaultWeek(ctx context.Context, doctorID uuid.UUID) error
	}

	SessionRepository interface {
		Create(ctx context.Context, session *model.SessionBlock) error
		Get(ctx context.Context, id uuid.UUID) (*model.SessionBlock, error)
		ListForDoctor(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]*model.SessionBlock, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error
	}

	TreatmentRepository interface {
		ListDiagnoses(ctx context.Context) ([]*model.Diagnosis, error)
		SearchDiagnoses(ctx context.Context, query string, limit int) ([]*model.Diagnosis, error)
		GetDiagnosis(ctx context.Context, id uuid.UUID) (*model.Diagnosis, error)
		CreateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error
		UpdateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error
		DeleteDiagnosis(ctx context.Context, id uuid.UUID) error

		GetTemplate(ctx context.Context, id uuid.UUID) (*model.TreatmentTemplate, error)
		ListTemplates(ctx context.Context, diagnosisID uuid.UUID) ([]*model.TreatmentTemplate, error)
		CreateTemplate(ctx context.Context, template *model.TreatmentTemplate) error
		DeleteTemplate(ctx context.Context, id uuid.UUID) error
		ListTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]model.TemplateStep, error)
		CountTemplateSteps(ctx context.Context, templateID uuid.UUID) (int, error)
		AddTemplateStep(ctx context.Context, step *model.TemplateStep) error
		DeleteTemplateStep(ctx context.Context, id uuid.UUID) error

		// CreatePlanWithSteps inserts the plan row and one pending
		// plan-appointment per step id in a single transaction.
		CreatePlanWithSteps(ctx context.Context, plan *model.PatientTreatmentPlan, stepIDs []uuid.UUID) error
		ListPlansForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientTreatmentPlan, error)
		// GetPendingPlanAppointmentForStep finds the pending tracking row for
		// a template step within the patient's active plans.
		GetPendingPlanAppointmentForStep(ctx context.Context, patientID, stepID uuid.UUID) (*model.PlanAppointment, error)
		LinkPlanAppointment(ctx context.Context, planAppointmentID, appointmentID uuid.UUID) error
		CompleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error
	}

	MedicalRecordRepository interface {
		Create(ctx context.Context, record *model.MedicalRecord) error
		Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error)
		ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error)
		// UpdateContent replaces the record's content and snapshots the new
		// text as a version row in the same transaction.
		UpdateContent(ctx context.Context, id uuid.UUID, content string, editedBy uuid.UUID) error
		ListVersionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecordVersion, error)
	}
)
