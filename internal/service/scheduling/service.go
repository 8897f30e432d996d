package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	apperrors "github.com/medifollow/care-api/pkg/errors"
	"github.com/medifollow/care-api/pkg/metrics"
)

const (
	// DefaultSlotMinutes is the slot width for schedule-driven availability.
	DefaultSlotMinutes = 30

	// DefaultSessionSlotMinutes applies when a session block is created
	// without an explicit duration.
	DefaultSessionSlotMinutes = 15

	scheduleCacheTTL = 5 * time.Minute
)

type Service struct {
	schedules    repository.ScheduleRepository
	sessions     repository.SessionRepository
	appointments repository.AppointmentRepository
	profiles     repository.ProfileRepository
	cache        *gocache.Cache
	metrics      *metrics.Metrics
}

func NewService(
	schedules repository.ScheduleRepository,
	sessions repository.SessionRepository,
	appointments repository.AppointmentRepository,
	profiles repository.ProfileRepository,
	m *metrics.Metrics,
) *Service {
	return &Service{
		schedules:    schedules,
		sessions:     sessions,
		appointments: appointments,
		profiles:     profiles,
		cache:        gocache.New(scheduleCacheTTL, 2*scheduleCacheTTL),
		metrics:      m,
	}
}

// ListDoctors returns the bookable doctors, scoped to the caller's
// organisation when one is set on the token.
func (s *Service) ListDoctors(ctx context.Context, actor model.Actor, page model.Pagination) ([]*model.Profile, error) {
	var organisationID *uuid.UUID
	if actor.OrganisationID != uuid.Nil {
		organisationID = &actor.OrganisationID
	}

	doctors, err := s.profiles.ListDoctors(ctx, organisationID, page)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return doctors, nil
}

// AvailableSlots resolves the free booking slots for a doctor on one date.
// A doctor with no schedule row for that weekday, or one marked
// unavailable, yields an empty list, not an error. An active session block
// does not override a non-working weekday here; session availability is a
// separate path (SessionSlots).
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) ([]model.TimeSlot, error) {
	started := time.Now()

	day, err := dayOfWeek(date)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date %q", date), err)
	}

	entry, err := s.scheduleForDay(ctx, doctorID, day)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if entry == nil || !entry.IsAvailable {
		return []model.TimeSlot{}, nil
	}

	booked, err := s.appointments.ListForDoctorDate(ctx, doctorID, date,
		[]model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	slots, err := generateScheduleSlots(entry, booked, DefaultSlotMinutes)
	if err != nil {
		return nil, apperrors.InvalidInput("malformed schedule times", err)
	}

	if s.metrics != nil {
		s.metrics.SlotsComputed.Observe(float64(len(slots)))
		s.metrics.SlotQueryLatency.Observe(time.Since(started).Seconds())
	}
	return slots, nil
}

// SessionSlots generates booking slots for one ad-hoc session block using
// the block's own slot duration. Cancelled and completed blocks produce no
// slots. Break and weekday logic do not apply to session blocks.
func (s *Service) SessionSlots(ctx context.Context, sessionID uuid.UUID) ([]model.TimeSlot, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("session", err)
		}
		return nil, apperrors.Storage(err)
	}
	if session.Status != model.SessionStatusActive {
		return []model.TimeSlot{}, nil
	}

	booked, err := s.appointments.ListForDoctorDate(ctx, session.DoctorID, session.Date,
		[]model.AppointmentStatus{model.AppointmentStatusPending, model.AppointmentStatusConfirmed})
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	duration := session.SlotDurationMinutes
	if duration <= 0 {
		duration = DefaultSessionSlotMinutes
	}

	start, err := model.ParseTimeOfDay(session.StartTime)
	if err != nil {
		return nil, apperrors.InvalidInput("malformed session start time", err)
	}
	end, err := model.ParseTimeOfDay(session.EndTime)
	if err != nil {
		return nil, apperrors.InvalidInput("malformed session end time", err)
	}

	bookedStarts := bookedStartSet(booked)

	var slots []model.TimeSlot
	for cur := start; cur.Before(end); cur = cur.AddMinutes(duration) {
		slotEnd := cur.AddMinutes(duration)
		if end.Before(slotEnd) {
			break
		}
		if bookedStarts[cur.String()] {
			continue
		}
		slots = append(slots, model.TimeSlot{StartTime: cur.String(), EndTime: slotEnd.String()})
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	return slots, nil
}

// generateScheduleSlots walks the working window in fixed increments,
// excluding slots whose start matches a booked appointment's start and
// slots starting inside the break window. Only start-time equality is
// checked against bookings here; full overlap is enforced at booking time.
func generateScheduleSlots(entry *model.ScheduleEntry, booked []*model.Appointment, slotMinutes int) ([]model.TimeSlot, error) {
	start, err := model.ParseTimeOfDay(entry.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := model.ParseTimeOfDay(entry.EndTime)
	if err != nil {
		return nil, err
	}

	var breakStart, breakEnd *model.TimeOfDay
	if entry.BreakStartTime != nil && entry.BreakEndTime != nil {
		bs, err := model.ParseTimeOfDay(*entry.BreakStartTime)
		if err != nil {
			return nil, err
		}
		be, err := model.ParseTimeOfDay(*entry.BreakEndTime)
		if err != nil {
			return nil, err
		}
		breakStart, breakEnd = &bs, &be
	}

	bookedStarts := bookedStartSet(booked)

	var slots []model.TimeSlot
	for cur := start; cur.Before(end); cur = cur.AddMinutes(slotMinutes) {
		slotEnd := cur.AddMinutes(slotMinutes)
		if end.Before(slotEnd) {
			break
		}

		inBreak := breakStart != nil && !cur.Before(*breakStart) && cur.Before(*breakEnd)
		if inBreak {
			continue
		}
		if bookedStarts[cur.String()] {
			continue
		}

		slots = append(slots, model.TimeSlot{StartTime: cur.String(), EndTime: slotEnd.String()})
	}
	if slots == nil {
		slots = []model.TimeSlot{}
	}
	return slots, nil
}

func bookedStartSet(booked []*model.Appointment) map[string]bool {
	set := make(map[string]bool, len(booked))
	for _, apt := range booked {
		if t, err := model.ParseTimeOfDay(apt.StartTime); err == nil {
			set[t.String()] = true
		}
	}
	return set
}

// dayOfWeek returns 0 for Sunday through 6 for Saturday.
func dayOfWeek(date string) (int, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	return int(t.Weekday()), nil
}

func (s *Service) scheduleForDay(ctx context.Context, doctorID uuid.UUID, day int) (*model.ScheduleEntry, error) {
	key := fmt.Sprintf("%s:%d", doctorID, day)
	if cached, ok := s.cache.Get(key); ok {
		entry, _ := cached.(*model.ScheduleEntry)
		return entry, nil
	}

	entry, err := s.schedules.GetForDoctorDay(ctx, doctorID, day)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, entry, gocache.DefaultExpiration)
	return entry, nil
}

func (s *Service) invalidateSchedule(doctorID uuid.UUID) {
	for day := 0; day < 7; day++ {
		s.cache.Delete(fmt.Sprintf("%s:%d", doctorID, day))
	}
}

// DoctorSchedule returns the doctor's weekly schedule, seeding the default
// week on first access.
func (s *Service) DoctorSchedule(ctx context.Context, actor model.Actor, doctorID uuid.UUID) ([]*model.ScheduleEntry, error) {
	if doctorID == uuid.Nil {
		doctorID = actor.ID
	}

	entries, err := s.schedules.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	if len(entries) > 0 {
		return entries, nil
	}

	if err := s.schedules.InitDefaultWeek(ctx, doctorID); err != nil {
		return nil, apperrors.Storage(err)
	}
	// A slot lookup before seeding caches the weekday as missing; drop
	// those entries so the seeded week is visible immediately.
	s.invalidateSchedule(doctorID)
	entries, err = s.schedules.ListForDoctor(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return entries, nil
}

// UpdateScheduleEntry applies a partial update to one weekday entry. Only
// the owning doctor may mutate their schedule.
func (s *Service) UpdateScheduleEntry(ctx context.Context, actor model.Actor, entryID uuid.UUID, req *model.UpdateScheduleEntryRequest) error {
	if actor.Role != model.RoleDoctor {
		return apperrors.Unauthorized("only doctors can update schedules")
	}

	entry, err := s.schedules.Get(ctx, entryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("schedule entry", err)
		}
		return apperrors.Storage(err)
	}
	if entry.DoctorID != actor.ID {
		return apperrors.Unauthorized("cannot update another doctor's schedule")
	}

	if req.IsAvailable != nil {
		entry.IsAvailable = *req.IsAvailable
	}
	if req.StartTime != nil {
		entry.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		entry.EndTime = *req.EndTime
	}
	if req.BreakStartTime != nil {
		entry.BreakStartTime = req.BreakStartTime
	}
	if req.BreakEndTime != nil {
		entry.BreakEndTime = req.BreakEndTime
	}

	if err := validateScheduleEntry(entry); err != nil {
		return err
	}

	if err := s.schedules.Update(ctx, entry); err != nil {
		return apperrors.Storage(err)
	}
	s.invalidateSchedule(actor.ID)
	return nil
}

// BulkUpdateSchedule applies a set of weekday updates for the calling
// doctor, one at a time.
func (s *Service) BulkUpdateSchedule(ctx context.Context, actor model.Actor, updates []model.BulkScheduleUpdate) error {
	for _, u := range updates {
		if err := s.UpdateScheduleEntry(ctx, actor, u.ID, &u.UpdateScheduleEntryRequest); err != nil {
			return err
		}
	}
	return nil
}

func validateScheduleEntry(entry *model.ScheduleEntry) error {
	start, err := model.ParseTimeOfDay(entry.StartTime)
	if err != nil {
		return apperrors.InvalidInput("invalid start time", err)
	}
	end, err := model.ParseTimeOfDay(entry.EndTime)
	if err != nil {
		return apperrors.InvalidInput("invalid end time", err)
	}
	if !start.Before(end) {
		return apperrors.InvalidInput("start time must be before end time", nil)
	}

	if entry.BreakStartTime == nil && entry.BreakEndTime == nil {
		return nil
	}
	if entry.BreakStartTime == nil || entry.BreakEndTime == nil {
		return apperrors.InvalidInput("both break times must be set together", nil)
	}

	bs, err := model.ParseTimeOfDay(*entry.BreakStartTime)
	if err != nil {
		return apperrors.InvalidInput("invalid break start time", err)
	}
	be, err := model.ParseTimeOfDay(*entry.BreakEndTime)
	if err != nil {
		return apperrors.InvalidInput("invalid break end time", err)
	}
	if !bs.Before(be) {
		return apperrors.InvalidInput("break start must be before break end", nil)
	}
	if bs.Before(start) || end.Before(be) {
		return apperrors.InvalidInput("break must fall within working hours", nil)
	}
	return nil
}

// CreateSession opens an ad-hoc availability block for the calling doctor.
func (s *Service) CreateSession(ctx context.Context, actor model.Actor, req *model.CreateSessionRequest) (*model.SessionBlock, error) {
	if actor.Role != model.RoleDoctor {
		return nil, apperrors.Unauthorized("only doctors can create sessions")
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid date %q", req.Date), err)
	}
	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid start time", err)
	}
	end, err := model.ParseTimeOfDay(req.EndTime)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid end time", err)
	}
	if !start.Before(end) {
		return nil, apperrors.InvalidInput("start time must be before end time", nil)
	}

	duration := req.SlotDuration
	if duration <= 0 {
		duration = DefaultSessionSlotMinutes
	}

	session := &model.SessionBlock{
		DoctorID:            actor.ID,
		OrganisationID:      actor.OrganisationID,
		Date:                req.Date,
		StartTime:           start.String(),
		EndTime:             end.String(),
		SlotDurationMinutes: duration,
		Status:              model.SessionStatusActive,
	}
	if req.Label != "" {
		session.Label = &req.Label
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Storage(err)
	}
	return session, nil
}

// CancelSession hides the block from slot generation; appointments already
// booked through it are left alone.
func (s *Service) CancelSession(ctx context.Context, actor model.Actor, sessionID uuid.UUID) error {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("session", err)
		}
		return apperrors.Storage(err)
	}
	if session.DoctorID != actor.ID {
		return apperrors.Unauthorized("cannot cancel another doctor's session")
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID, model.SessionStatusCancelled); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func (s *Service) ListSessions(ctx context.Context, actor model.Actor, doctorID uuid.UUID, fromDate, toDate string) ([]*model.SessionBlock, error) {
	if doctorID == uuid.Nil {
		doctorID = actor.ID
	}

	sessions, err := s.sessions.ListForDoctor(ctx, doctorID, fromDate, toDate)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return sessions, nil
}
