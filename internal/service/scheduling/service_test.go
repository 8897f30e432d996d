package scheduling

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medifollow/care-api/internal/model"
	apperrors "github.com/medifollow/care-api/pkg/errors"
)

type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.ScheduleEntry, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.ScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) GetForDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) (*model.ScheduleEntry, error) {
	args := m.Called(ctx, doctorID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.ScheduleEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) Update(ctx context.Context, entry *model.ScheduleEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockScheduleRepository) InitDefaultWeek(ctx context.Context, doctorID uuid.UUID) error {
	return m.Called(ctx, doctorID).Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *model.SessionBlock) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.SessionBlock, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SessionBlock), args.Error(1)
}

func (m *MockSessionRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID, fromDate, toDate string) ([]*model.SessionBlock, error) {
	args := m.Called(ctx, doctorID, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.SessionBlock), args.Error(1)
}

func (m *MockSessionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SessionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	return m.Called(ctx, appointment).Error(0)
}

func (m *MockAppointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

func (m *MockAppointmentRepository) Complete(ctx context.Context, id uuid.UUID, consultationNotes, diagnosis string) error {
	return m.Called(ctx, id, consultationNotes, diagnosis).Error(0)
}

func (m *MockAppointmentRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Appointment, error) {
	args := m.Called(ctx, doctorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListForOrganisation(ctx context.Context, organisationID uuid.UUID) ([]*model.Appointment, error) {
	args := m.Called(ctx, organisationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) ListForDoctorDate(ctx context.Context, doctorID uuid.UUID, date string, statuses []model.AppointmentStatus) ([]*model.Appointment, error) {
	args := m.Called(ctx, doctorID, date, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) HasOverlap(ctx context.Context, doctorID uuid.UUID, date, startTime, endTime string) (bool, error) {
	args := m.Called(ctx, doctorID, date, startTime, endTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockAppointmentRepository) ListDueReminders(ctx context.Context, fromDate, toDate string) ([]*model.Appointment, error) {
	args := m.Called(ctx, fromDate, toDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) Get(ctx context.Context, id uuid.UUID) (*model.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Profile), args.Error(1)
}

func (m *MockProfileRepository) ListDoctors(ctx context.Context, organisationID *uuid.UUID, page model.Pagination) ([]*model.Profile, error) {
	args := m.Called(ctx, organisationID, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Profile), args.Error(1)
}

func newTestService(schedules *MockScheduleRepository, sessions *MockSessionRepository, appointments *MockAppointmentRepository) *Service {
	return NewService(schedules, sessions, appointments, new(MockProfileRepository), nil)
}

func strPtr(s string) *string { return &s }

func TestAvailableSlots_WorkingDayWithBreakAndBooking(t *testing.T) {
	schedules := new(MockScheduleRepository)
	sessions := new(MockSessionRepository)
	appointments := new(MockAppointmentRepository)

	doctorID := uuid.New()
	monday := "2026-09-07"

	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(&model.ScheduleEntry{
		DoctorID:       doctorID,
		DayOfWeek:      1,
		IsAvailable:    true,
		StartTime:      "09:00:00",
		EndTime:        "17:00:00",
		BreakStartTime: strPtr("12:00:00"),
		BreakEndTime:   strPtr("13:00:00"),
	}, nil)
	appointments.On("ListForDoctorDate", mock.Anything, doctorID, monday, mock.Anything).Return([]*model.Appointment{
		{DoctorID: doctorID, AppointmentDate: monday, StartTime: "10:00:00", EndTime: "10:30:00", Status: model.AppointmentStatusConfirmed},
	}, nil)

	svc := newTestService(schedules, sessions, appointments)
	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)

	starts := make([]string, 0, len(slots))
	for _, slot := range slots {
		starts = append(starts, slot.StartTime)
	}
	assert.Equal(t, []string{
		"09:00:00", "09:30:00", "10:30:00", "11:00:00", "11:30:00",
		"13:00:00", "13:30:00", "14:00:00", "14:30:00", "15:00:00",
		"15:30:00", "16:00:00", "16:30:00",
	}, starts)

	// Every slot end stays inside the working window and no slot starts
	// inside the break.
	for _, slot := range slots {
		assert.LessOrEqual(t, slot.EndTime, "17:00:00")
		if slot.StartTime >= "12:00:00" {
			assert.GreaterOrEqual(t, slot.StartTime, "13:00:00")
		}
	}
}

func TestAvailableSlots_NoScheduleRow(t *testing.T) {
	schedules := new(MockScheduleRepository)
	doctorID := uuid.New()

	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 0).Return(nil, nil)

	svc := newTestService(schedules, new(MockSessionRepository), new(MockAppointmentRepository))
	slots, err := svc.AvailableSlots(context.Background(), doctorID, "2026-09-06")
	require.NoError(t, err)
	assert.Empty(t, slots)
	assert.NotNil(t, slots)
}

func TestAvailableSlots_DayOff(t *testing.T) {
	schedules := new(MockScheduleRepository)
	doctorID := uuid.New()

	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(&model.ScheduleEntry{
		DoctorID:    doctorID,
		DayOfWeek:   1,
		IsAvailable: false,
		StartTime:   "09:00:00",
		EndTime:     "17:00:00",
	}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), new(MockAppointmentRepository))
	slots, err := svc.AvailableSlots(context.Background(), doctorID, "2026-09-07")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestAvailableSlots_InvalidDate(t *testing.T) {
	svc := newTestService(new(MockScheduleRepository), new(MockSessionRepository), new(MockAppointmentRepository))

	_, err := svc.AvailableSlots(context.Background(), uuid.New(), "07-09-2026")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestAvailableSlots_NoSlotCrossesEndTime(t *testing.T) {
	schedules := new(MockScheduleRepository)
	appointments := new(MockAppointmentRepository)
	doctorID := uuid.New()

	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(&model.ScheduleEntry{
		DoctorID:    doctorID,
		DayOfWeek:   1,
		IsAvailable: true,
		StartTime:   "09:00:00",
		EndTime:     "10:15:00",
	}, nil)
	appointments.On("ListForDoctorDate", mock.Anything, doctorID, "2026-09-07", mock.Anything).Return([]*model.Appointment{}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), appointments)
	slots, err := svc.AvailableSlots(context.Background(), doctorID, "2026-09-07")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "09:30:00", slots[1].StartTime)
	assert.Equal(t, "10:00:00", slots[1].EndTime)
}

func TestAvailableSlots_CachesScheduleLookup(t *testing.T) {
	schedules := new(MockScheduleRepository)
	appointments := new(MockAppointmentRepository)
	doctorID := uuid.New()

	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(&model.ScheduleEntry{
		DoctorID:    doctorID,
		DayOfWeek:   1,
		IsAvailable: true,
		StartTime:   "09:00:00",
		EndTime:     "10:00:00",
	}, nil).Once()
	appointments.On("ListForDoctorDate", mock.Anything, doctorID, "2026-09-07", mock.Anything).Return([]*model.Appointment{}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), appointments)
	_, err := svc.AvailableSlots(context.Background(), doctorID, "2026-09-07")
	require.NoError(t, err)
	_, err = svc.AvailableSlots(context.Background(), doctorID, "2026-09-07")
	require.NoError(t, err)

	schedules.AssertExpectations(t)
}

func TestDoctorSchedule_SeedingDropsCachedEmptyWeekdays(t *testing.T) {
	schedules := new(MockScheduleRepository)
	appointments := new(MockAppointmentRepository)
	doctorID := uuid.New()
	monday := "2026-09-07"

	// First slot lookup runs before the doctor has any schedule rows and
	// caches the weekday as missing.
	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(nil, nil).Once()

	seeded := &model.ScheduleEntry{
		DoctorID:    doctorID,
		DayOfWeek:   1,
		IsAvailable: true,
		StartTime:   "09:00:00",
		EndTime:     "17:00:00",
	}
	schedules.On("ListForDoctor", mock.Anything, doctorID).Return([]*model.ScheduleEntry{}, nil).Once()
	schedules.On("InitDefaultWeek", mock.Anything, doctorID).Return(nil).Once()
	schedules.On("ListForDoctor", mock.Anything, doctorID).Return([]*model.ScheduleEntry{seeded}, nil).Once()
	schedules.On("GetForDoctorDay", mock.Anything, doctorID, 1).Return(seeded, nil).Once()
	appointments.On("ListForDoctorDate", mock.Anything, doctorID, monday, mock.Anything).Return([]*model.Appointment{}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), appointments)
	actor := model.Actor{ID: doctorID, Role: model.RoleDoctor}

	slots, err := svc.AvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)

	_, err = svc.DoctorSchedule(context.Background(), actor, doctorID)
	require.NoError(t, err)

	// Seeding must evict the cached miss so slots appear immediately.
	slots, err = svc.AvailableSlots(context.Background(), doctorID, monday)
	require.NoError(t, err)
	assert.NotEmpty(t, slots)
	schedules.AssertExpectations(t)
}

func TestListDoctors_ScopedToActorOrganisation(t *testing.T) {
	profiles := new(MockProfileRepository)
	orgID := uuid.New()

	doctors := []*model.Profile{
		{ID: uuid.New(), FullName: "Dr. Osei", Role: model.RoleDoctor, OrganisationID: orgID},
	}
	profiles.On("ListDoctors", mock.Anything, &orgID, model.Pagination{}).Return(doctors, nil)

	svc := NewService(new(MockScheduleRepository), new(MockSessionRepository), new(MockAppointmentRepository), profiles, nil)
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient, OrganisationID: orgID}

	got, err := svc.ListDoctors(context.Background(), actor, model.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, doctors, got)
	profiles.AssertExpectations(t)
}

func TestListDoctors_NoOrganisationListsAll(t *testing.T) {
	profiles := new(MockProfileRepository)
	page := model.Pagination{Page: 2, PageSize: 10}
	profiles.On("ListDoctors", mock.Anything, (*uuid.UUID)(nil), page).Return([]*model.Profile{}, nil)

	svc := NewService(new(MockScheduleRepository), new(MockSessionRepository), new(MockAppointmentRepository), profiles, nil)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}

	got, err := svc.ListDoctors(context.Background(), actor, page)
	require.NoError(t, err)
	assert.Empty(t, got)
	profiles.AssertExpectations(t)
}

func TestSessionSlots_ActiveBlock(t *testing.T) {
	sessions := new(MockSessionRepository)
	appointments := new(MockAppointmentRepository)

	doctorID := uuid.New()
	sessionID := uuid.New()

	sessions.On("Get", mock.Anything, sessionID).Return(&model.SessionBlock{
		ID:                  sessionID,
		DoctorID:            doctorID,
		Date:                "2026-09-10",
		StartTime:           "14:00:00",
		EndTime:             "15:00:00",
		SlotDurationMinutes: 15,
		Status:              model.SessionStatusActive,
	}, nil)
	appointments.On("ListForDoctorDate", mock.Anything, doctorID, "2026-09-10", mock.Anything).Return([]*model.Appointment{
		{DoctorID: doctorID, StartTime: "14:15:00", EndTime: "14:30:00", Status: model.AppointmentStatusPending},
	}, nil)

	svc := newTestService(new(MockScheduleRepository), sessions, appointments)
	slots, err := svc.SessionSlots(context.Background(), sessionID)
	require.NoError(t, err)

	starts := make([]string, 0, len(slots))
	for _, slot := range slots {
		starts = append(starts, slot.StartTime)
	}
	assert.Equal(t, []string{"14:00:00", "14:30:00", "14:45:00"}, starts)
}

func TestSessionSlots_CancelledBlockYieldsNothing(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessionID := uuid.New()

	sessions.On("Get", mock.Anything, sessionID).Return(&model.SessionBlock{
		ID:        sessionID,
		DoctorID:  uuid.New(),
		Date:      "2026-09-10",
		StartTime: "14:00:00",
		EndTime:   "15:00:00",
		Status:    model.SessionStatusCancelled,
	}, nil)

	svc := newTestService(new(MockScheduleRepository), sessions, new(MockAppointmentRepository))
	slots, err := svc.SessionSlots(context.Background(), sessionID)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestUpdateScheduleEntry_BreakOutsideWindow(t *testing.T) {
	schedules := new(MockScheduleRepository)
	doctorID := uuid.New()
	entryID := uuid.New()

	schedules.On("Get", mock.Anything, entryID).Return(&model.ScheduleEntry{
		ID:          entryID,
		DoctorID:    doctorID,
		DayOfWeek:   2,
		IsAvailable: true,
		StartTime:   "09:00:00",
		EndTime:     "17:00:00",
	}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), new(MockAppointmentRepository))
	actor := model.Actor{ID: doctorID, Role: model.RoleDoctor}

	err := svc.UpdateScheduleEntry(context.Background(), actor, entryID, &model.UpdateScheduleEntryRequest{
		BreakStartTime: strPtr("08:00:00"),
		BreakEndTime:   strPtr("09:30:00"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestUpdateScheduleEntry_NotOwner(t *testing.T) {
	schedules := new(MockScheduleRepository)
	entryID := uuid.New()

	schedules.On("Get", mock.Anything, entryID).Return(&model.ScheduleEntry{
		ID:        entryID,
		DoctorID:  uuid.New(),
		DayOfWeek: 3,
		StartTime: "09:00:00",
		EndTime:   "17:00:00",
	}, nil)

	svc := newTestService(schedules, new(MockSessionRepository), new(MockAppointmentRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	err := svc.UpdateScheduleEntry(context.Background(), actor, entryID, &model.UpdateScheduleEntryRequest{
		StartTime: strPtr("08:00:00"),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestCreateSession_DefaultsSlotDuration(t *testing.T) {
	sessions := new(MockSessionRepository)
	sessions.On("Create", mock.Anything, mock.MatchedBy(func(s *model.SessionBlock) bool {
		return s.SlotDurationMinutes == DefaultSessionSlotMinutes && s.Status == model.SessionStatusActive
	})).Return(nil)

	svc := newTestService(new(MockScheduleRepository), sessions, new(MockAppointmentRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor, OrganisationID: uuid.New()}

	session, err := svc.CreateSession(context.Background(), actor, &model.CreateSessionRequest{
		Date:      "2026-09-12",
		StartTime: "10:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00:00", session.StartTime)
	sessions.AssertExpectations(t)
}

func TestCreateSession_PatientForbidden(t *testing.T) {
	svc := newTestService(new(MockScheduleRepository), new(MockSessionRepository), new(MockAppointmentRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := svc.CreateSession(context.Background(), actor, &model.CreateSessionRequest{
		Date: "2026-09-12", StartTime: "10:00", EndTime: "12:00",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}
