package appointment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	"github.com/medifollow/care-api/internal/service/notification"
	apperrors "github.com/medifollow/care-api/pkg/errors"
	"github.com/medifollow/care-api/pkg/metrics"
)

// PlanLinker connects bookings to treatment plan steps. Implemented by the
// treatment service; kept as an interface so the two services stay
// acyclic.
type PlanLinker interface {
	MarkStepScheduled(ctx context.Context, patientID, stepID, appointmentID uuid.UUID) error
	MarkStepCompleted(ctx context.Context, appointmentID uuid.UUID) error
}

// EventPublisher pushes notification events. Delivery is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event notification.Event) error
}

type Service struct {
	appointments repository.AppointmentRepository
	requests     repository.AppointmentRequestRepository
	planLinker   PlanLinker
	events       EventPublisher
	logger       *zerolog.Logger
	metrics      *metrics.Metrics
}

func NewService(
	appointments repository.AppointmentRepository,
	requests repository.AppointmentRequestRepository,
	planLinker PlanLinker,
	events EventPublisher,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		requests:     requests,
		planLinker:   planLinker,
		events:       events,
		logger:       logger,
		metrics:      m,
	}
}

// Book creates a pending appointment for the calling patient. The slot is
// re-checked for overlap against every active appointment of the doctor,
// not just start times, so two bookings with different widths cannot both
// hold the same interval.
func (s *Service) Book(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if actor.Role != model.RolePatient {
		return nil, apperrors.Unauthorized("only patients can book appointments")
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid doctor id", err)
	}
	if err := validateInterval(req.AppointmentDate, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	taken, err := s.appointments.HasOverlap(ctx, doctorID, req.AppointmentDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if taken {
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, apperrors.Conflict("slot is no longer available")
	}

	apt := &model.Appointment{
		PatientID:       actor.ID,
		DoctorID:        doctorID,
		OrganisationID:  actor.OrganisationID,
		AppointmentDate: req.AppointmentDate,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		Status:          model.AppointmentStatusPending,
	}
	if req.Notes != "" {
		apt.Notes = &req.Notes
	}
	if req.PreviousAppointmentID != "" {
		prevID, err := uuid.Parse(req.PreviousAppointmentID)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid previous appointment id", err)
		}
		apt.PreviousAppointmentID = &prevID
	}

	if err := s.appointments.Create(ctx, apt); err != nil {
		return nil, apperrors.Storage(err)
	}
	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}

	// A booking made for a treatment plan step moves that step from
	// pending to scheduled. Failure here doesn't unwind the booking.
	if req.StepID != "" && s.planLinker != nil {
		stepID, err := uuid.Parse(req.StepID)
		if err != nil {
			return nil, apperrors.InvalidInput("invalid step id", err)
		}
		if err := s.planLinker.MarkStepScheduled(ctx, actor.ID, stepID, apt.ID); err != nil {
			s.logger.Warn().Err(err).
				Str("appointment_id", apt.ID.String()).
				Str("step_id", stepID.String()).
				Msg("failed to link booking to treatment plan step")
		}
	}

	s.publish(ctx, notification.EventAppointmentBooked, apt)
	return apt, nil
}

// ScheduleFollowUp lets the treating doctor, or an admin of the same
// organisation, chain a new confirmed appointment onto an existing one.
func (s *Service) ScheduleFollowUp(ctx context.Context, actor model.Actor, req *model.FollowUpRequest) (*model.Appointment, error) {
	prevID, err := uuid.Parse(req.PreviousAppointmentID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid previous appointment id", err)
	}

	prev, err := s.getAppointment(ctx, prevID)
	if err != nil {
		return nil, err
	}
	if !s.canManageAppointment(actor, prev) {
		return nil, apperrors.Unauthorized("cannot schedule a follow-up for this appointment")
	}
	if err := validateInterval(req.AppointmentDate, req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	taken, err := s.appointments.HasOverlap(ctx, prev.DoctorID, req.AppointmentDate, req.StartTime, req.EndTime)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if taken {
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, apperrors.Conflict("slot is no longer available")
	}

	followUp := &model.Appointment{
		PatientID:             prev.PatientID,
		DoctorID:              prev.DoctorID,
		OrganisationID:        prev.OrganisationID,
		AppointmentDate:       req.AppointmentDate,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		Status:                model.AppointmentStatusConfirmed,
		PreviousAppointmentID: &prevID,
	}
	if req.Notes != "" {
		followUp.Notes = &req.Notes
	}

	if err := s.appointments.Create(ctx, followUp); err != nil {
		return nil, apperrors.Storage(err)
	}
	if s.metrics != nil {
		s.metrics.AppointmentsBooked.Inc()
	}

	s.publish(ctx, notification.EventAppointmentConfirmed, followUp)
	return followUp, nil
}

// Cancel releases the slot. Patients may cancel their own appointments;
// the doctor and same-organisation admins may cancel on their side.
func (s *Service) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return err
	}

	allowed := (actor.Role == model.RolePatient && apt.PatientID == actor.ID) || s.canManageAppointment(actor, apt)
	if !allowed {
		return apperrors.Unauthorized("cannot cancel this appointment")
	}
	if !apt.Status.Active() {
		return apperrors.InvalidInput(fmt.Sprintf("cannot cancel a %s appointment", apt.Status), nil)
	}

	if err := s.appointments.UpdateStatus(ctx, id, model.AppointmentStatusCancelled); err != nil {
		return apperrors.Storage(err)
	}

	apt.Status = model.AppointmentStatusCancelled
	s.publish(ctx, notification.EventAppointmentCancelled, apt)
	return nil
}

// UpdateStatus moves an appointment through its lifecycle. Doctor-side
// only; completion goes through Complete so consultation notes are
// captured with it.
func (s *Service) UpdateStatus(ctx context.Context, actor model.Actor, id uuid.UUID, status model.AppointmentStatus) error {
	if !status.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("invalid status %q", status), nil)
	}

	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return err
	}
	if !s.canManageAppointment(actor, apt) {
		return apperrors.Unauthorized("cannot update this appointment")
	}

	if err := s.appointments.UpdateStatus(ctx, id, status); err != nil {
		return apperrors.Storage(err)
	}

	if status == model.AppointmentStatusConfirmed {
		apt.Status = status
		s.publish(ctx, notification.EventAppointmentConfirmed, apt)
	}
	return nil
}

// Complete closes the appointment with the doctor's consultation notes and
// marks any linked treatment plan step as done.
func (s *Service) Complete(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.CompleteAppointmentRequest) error {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return err
	}
	if actor.Role != model.RoleDoctor || apt.DoctorID != actor.ID {
		return apperrors.Unauthorized("only the treating doctor can complete an appointment")
	}

	if err := s.appointments.Complete(ctx, id, req.ConsultationNotes, req.Diagnosis); err != nil {
		return apperrors.Storage(err)
	}

	if s.planLinker != nil {
		if err := s.planLinker.MarkStepCompleted(ctx, id); err != nil {
			s.logger.Warn().Err(err).
				Str("appointment_id", id.String()).
				Msg("failed to complete linked treatment plan step")
		}
	}

	apt.Status = model.AppointmentStatusCompleted
	s.publish(ctx, notification.EventAppointmentCompleted, apt)
	return nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.getAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, apt) {
		return nil, apperrors.Unauthorized("cannot view this appointment")
	}
	return apt, nil
}

// List returns the appointments visible to the actor: patients see their
// own, doctors their caseload, admins their organisation's.
func (s *Service) List(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	var (
		appointments []*model.Appointment
		err          error
	)
	switch actor.Role {
	case model.RolePatient:
		appointments, err = s.appointments.ListForPatient(ctx, actor.ID)
	case model.RoleDoctor:
		appointments, err = s.appointments.ListForDoctor(ctx, actor.ID)
	case model.RoleAdmin:
		appointments, err = s.appointments.ListForOrganisation(ctx, actor.OrganisationID)
	default:
		return nil, apperrors.Unauthorized("unknown role")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return appointments, nil
}

// Tree returns the actor's visible appointments arranged as a follow-up
// forest.
func (s *Service) Tree(ctx context.Context, actor model.Actor) ([]*model.AppointmentNode, error) {
	appointments, err := s.List(ctx, actor)
	if err != nil {
		return nil, err
	}
	return BuildAppointmentTree(appointments), nil
}

// CreateRequest files a patient's appointment request for doctor-side
// triage. Unlike Book, no slot is held.
func (s *Service) CreateRequest(ctx context.Context, actor model.Actor, input *model.CreateAppointmentRequestInput) (*model.AppointmentRequest, error) {
	if actor.Role != model.RolePatient {
		return nil, apperrors.Unauthorized("only patients can request appointments")
	}

	doctorID, err := uuid.Parse(input.DoctorID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid doctor id", err)
	}
	if err := validateInterval(input.AppointmentDate, input.StartTime, input.EndTime); err != nil {
		return nil, err
	}

	request := &model.AppointmentRequest{
		PatientID:       actor.ID,
		DoctorID:        doctorID,
		OrganisationID:  actor.OrganisationID,
		AppointmentDate: input.AppointmentDate,
		StartTime:       input.StartTime,
		EndTime:         input.EndTime,
		Status:          model.RequestStatusPending,
	}
	if input.Notes != "" {
		request.Notes = &input.Notes
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, apperrors.Storage(err)
	}
	return request, nil
}

func (s *Service) ListRequests(ctx context.Context, actor model.Actor) ([]*model.AppointmentRequest, error) {
	var (
		requests []*model.AppointmentRequest
		err      error
	)
	switch actor.Role {
	case model.RolePatient:
		requests, err = s.requests.ListForPatient(ctx, actor.ID)
	case model.RoleDoctor:
		requests, err = s.requests.ListForDoctor(ctx, actor.ID)
	case model.RoleAdmin:
		requests, err = s.requests.ListForOrganisation(ctx, actor.OrganisationID)
	default:
		return nil, apperrors.Unauthorized("unknown role")
	}
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return requests, nil
}

// ApproveRequest turns a pending request into a confirmed appointment and
// links the two, atomically. The requested slot is overlap-checked at
// approval time since availability may have moved on.
func (s *Service) ApproveRequest(ctx context.Context, actor model.Actor, requestID uuid.UUID) (*model.Appointment, error) {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !s.canTriage(actor, request) {
		return nil, apperrors.Unauthorized("cannot approve this request")
	}
	if request.Status != model.RequestStatusPending {
		return nil, apperrors.Conflict("request has already been resolved")
	}

	taken, err := s.appointments.HasOverlap(ctx, request.DoctorID, request.AppointmentDate, request.StartTime, request.EndTime)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if taken {
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, apperrors.Conflict("requested slot is no longer available")
	}

	apt := &model.Appointment{
		PatientID:       request.PatientID,
		DoctorID:        request.DoctorID,
		OrganisationID:  request.OrganisationID,
		AppointmentDate: request.AppointmentDate,
		StartTime:       request.StartTime,
		EndTime:         request.EndTime,
		Status:          model.AppointmentStatusConfirmed,
		Notes:           request.Notes,
	}
	if err := s.requests.Approve(ctx, requestID, apt); err != nil {
		return nil, apperrors.Storage(err)
	}
	if s.metrics != nil {
		s.metrics.RequestsApproved.Inc()
	}

	s.publish(ctx, notification.EventRequestApproved, apt)
	return apt, nil
}

func (s *Service) RejectRequest(ctx context.Context, actor model.Actor, requestID uuid.UUID) error {
	request, err := s.getRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !s.canTriage(actor, request) {
		return apperrors.Unauthorized("cannot reject this request")
	}
	if request.Status != model.RequestStatusPending {
		return apperrors.Conflict("request has already been resolved")
	}

	if err := s.requests.Reject(ctx, requestID); err != nil {
		return apperrors.Storage(err)
	}
	if s.metrics != nil {
		s.metrics.RequestsRejected.Inc()
	}

	s.publish(ctx, notification.EventRequestRejected, &model.Appointment{
		ID:              request.ID,
		PatientID:       request.PatientID,
		DoctorID:        request.DoctorID,
		AppointmentDate: request.AppointmentDate,
		StartTime:       request.StartTime,
		EndTime:         request.EndTime,
	})
	return nil
}

func (s *Service) getAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Storage(err)
	}
	return apt, nil
}

func (s *Service) getRequest(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	request, err := s.requests.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment request", err)
		}
		return nil, apperrors.Storage(err)
	}
	return request, nil
}

// canManageAppointment covers the doctor-side mutations: the treating
// doctor, or an admin within the same organisation.
func (s *Service) canManageAppointment(actor model.Actor, apt *model.Appointment) bool {
	if actor.Role == model.RoleDoctor && apt.DoctorID == actor.ID {
		return true
	}
	return actor.Role == model.RoleAdmin && apt.OrganisationID == actor.OrganisationID
}

func (s *Service) canTriage(actor model.Actor, request *model.AppointmentRequest) bool {
	if actor.Role == model.RoleDoctor && request.DoctorID == actor.ID {
		return true
	}
	return actor.Role == model.RoleAdmin && request.OrganisationID == actor.OrganisationID
}

func (s *Service) canView(actor model.Actor, apt *model.Appointment) bool {
	if actor.Role == model.RolePatient && apt.PatientID == actor.ID {
		return true
	}
	return s.canManageAppointment(actor, apt)
}

func (s *Service) publish(ctx context.Context, eventType string, apt *model.Appointment) {
	if s.events == nil {
		return
	}
	// Errors are logged by the publisher; notification delivery never
	// fails the booking path.
	_ = s.events.Publish(ctx, notification.Event{
		Type:          eventType,
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		DoctorID:      apt.DoctorID,
		Date:          apt.AppointmentDate,
		StartTime:     apt.StartTime,
		EndTime:       apt.EndTime,
	})
}

func validateInterval(date, startTime, endTime string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return apperrors.InvalidInput(fmt.Sprintf("invalid date %q", date), err)
	}
	start, err := model.ParseTimeOfDay(startTime)
	if err != nil {
		return apperrors.InvalidInput("invalid start time", err)
	}
	end, err := model.ParseTimeOfDay(endTime)
	if err != nil {
		return apperrors.InvalidInput("invalid end time", err)
	}
	if !start.Before(end) {
		return apperrors.InvalidInput("start time must be before end time", nil)
	}
	return nil
}
