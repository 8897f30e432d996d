package treatment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medifollow/care-api/internal/model"
	apperrors "github.com/medifollow/care-api/pkg/errors"
)

type MockTreatmentRepository struct {
	mock.Mock
}

func (m *MockTreatmentRepository) ListDiagnoses(ctx context.Context) ([]*model.Diagnosis, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Diagnosis), args.Error(1)
}

func (m *MockTreatmentRepository) SearchDiagnoses(ctx context.Context, query string, limit int) ([]*model.Diagnosis, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Diagnosis), args.Error(1)
}

func (m *MockTreatmentRepository) GetDiagnosis(ctx context.Context, id uuid.UUID) (*model.Diagnosis, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Diagnosis), args.Error(1)
}

func (m *MockTreatmentRepository) CreateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error {
	return m.Called(ctx, diagnosis).Error(0)
}

func (m *MockTreatmentRepository) UpdateDiagnosis(ctx context.Context, diagnosis *model.Diagnosis) error {
	return m.Called(ctx, diagnosis).Error(0)
}

func (m *MockTreatmentRepository) DeleteDiagnosis(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTreatmentRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*model.TreatmentTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.TreatmentTemplate), args.Error(1)
}

func (m *MockTreatmentRepository) ListTemplates(ctx context.Context, diagnosisID uuid.UUID) ([]*model.TreatmentTemplate, error) {
	args := m.Called(ctx, diagnosisID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.TreatmentTemplate), args.Error(1)
}

func (m *MockTreatmentRepository) CreateTemplate(ctx context.Context, template *model.TreatmentTemplate) error {
	return m.Called(ctx, template).Error(0)
}

func (m *MockTreatmentRepository) DeleteTemplate(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTreatmentRepository) ListTemplateSteps(ctx context.Context, templateID uuid.UUID) ([]model.TemplateStep, error) {
	args := m.Called(ctx, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.TemplateStep), args.Error(1)
}

func (m *MockTreatmentRepository) CountTemplateSteps(ctx context.Context, templateID uuid.UUID) (int, error) {
	args := m.Called(ctx, templateID)
	return args.Int(0), args.Error(1)
}

func (m *MockTreatmentRepository) AddTemplateStep(ctx context.Context, step *model.TemplateStep) error {
	return m.Called(ctx, step).Error(0)
}

func (m *MockTreatmentRepository) DeleteTemplateStep(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTreatmentRepository) CreatePlanWithSteps(ctx context.Context, plan *model.PatientTreatmentPlan, stepIDs []uuid.UUID) error {
	return m.Called(ctx, plan, stepIDs).Error(0)
}

func (m *MockTreatmentRepository) ListPlansForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.PatientTreatmentPlan, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.PatientTreatmentPlan), args.Error(1)
}

func (m *MockTreatmentRepository) GetPendingPlanAppointmentForStep(ctx context.Context, patientID, stepID uuid.UUID) (*model.PlanAppointment, error) {
	args := m.Called(ctx, patientID, stepID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PlanAppointment), args.Error(1)
}

func (m *MockTreatmentRepository) LinkPlanAppointment(ctx context.Context, planAppointmentID, appointmentID uuid.UUID) error {
	return m.Called(ctx, planAppointmentID, appointmentID).Error(0)
}

func (m *MockTreatmentRepository) CompleteByAppointment(ctx context.Context, appointmentID uuid.UUID) error {
	return m.Called(ctx, appointmentID).Error(0)
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

func newTestService(treatments *MockTreatmentRepository, profiles *MockProfileRepository) *Service {
	nop := zerolog.Nop()
	return NewService(treatments, profiles, &nop, nil)
}

func TestAssignTreatmentPlan_SeedsAllSteps(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	profiles := new(MockProfileRepository)

	doctor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}
	patientID := uuid.New()
	diagnosisID := uuid.New()
	templateID := uuid.New()
	stepA, stepB := uuid.New(), uuid.New()

	profiles.On("Get", mock.Anything, patientID).Return(&model.Profile{
		ID: patientID, Role: model.RolePatient,
	}, nil)
	treatments.On("GetTemplate", mock.Anything, templateID).Return(&model.TreatmentTemplate{
		ID: templateID, DiagnosisID: diagnosisID,
	}, nil)
	treatments.On("ListTemplateSteps", mock.Anything, templateID).Return([]model.TemplateStep{
		{ID: stepA, TemplateID: templateID, StepOrder: 1},
		{ID: stepB, TemplateID: templateID, StepOrder: 2},
	}, nil)
	treatments.On("CreatePlanWithSteps", mock.Anything, mock.MatchedBy(func(p *model.PatientTreatmentPlan) bool {
		return p.PatientID == patientID && p.DoctorID == doctor.ID && p.Status == model.PlanStatusActive
	}), []uuid.UUID{stepA, stepB}).Return(nil)

	svc := newTestService(treatments, profiles)
	plan, err := svc.AssignTreatmentPlan(context.Background(), doctor, &model.AssignPlanRequest{
		PatientID:   patientID.String(),
		DiagnosisID: diagnosisID.String(),
		TemplateID:  templateID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, model.PlanStatusActive, plan.Status)
	treatments.AssertExpectations(t)
}

func TestAssignTreatmentPlan_PatientForbidden(t *testing.T) {
	svc := newTestService(new(MockTreatmentRepository), new(MockProfileRepository))

	_, err := svc.AssignTreatmentPlan(context.Background(), model.Actor{ID: uuid.New(), Role: model.RolePatient}, &model.AssignPlanRequest{
		PatientID:   uuid.New().String(),
		DiagnosisID: uuid.New().String(),
		TemplateID:  uuid.New().String(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestAssignTreatmentPlan_TemplateDiagnosisMismatch(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	profiles := new(MockProfileRepository)

	patientID := uuid.New()
	templateID := uuid.New()

	profiles.On("Get", mock.Anything, patientID).Return(&model.Profile{
		ID: patientID, Role: model.RolePatient,
	}, nil)
	treatments.On("GetTemplate", mock.Anything, templateID).Return(&model.TreatmentTemplate{
		ID: templateID, DiagnosisID: uuid.New(),
	}, nil)

	svc := newTestService(treatments, profiles)
	_, err := svc.AssignTreatmentPlan(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, &model.AssignPlanRequest{
		PatientID:   patientID.String(),
		DiagnosisID: uuid.New().String(),
		TemplateID:  templateID.String(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestGetPatientTreatmentPlans_AdminDenied(t *testing.T) {
	svc := newTestService(new(MockTreatmentRepository), new(MockProfileRepository))

	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin, OrganisationID: uuid.New()}
	_, err := svc.GetPatientTreatmentPlans(context.Background(), admin, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
	assert.Contains(t, err.Error(), "Admins are not authorized to view treatment plans")
}

func TestGetPatientTreatmentPlans_PatientSelfOnly(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := newTestService(treatments, new(MockProfileRepository)).
		GetPatientTreatmentPlans(context.Background(), actor, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	treatments.On("ListPlansForPatient", mock.Anything, actor.ID).Return([]*model.PatientTreatmentPlan{}, nil)
	_, err = newTestService(treatments, new(MockProfileRepository)).
		GetPatientTreatmentPlans(context.Background(), actor, actor.ID)
	require.NoError(t, err)
}

func TestGetTreatmentTemplates_StepsSorted(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	diagnosisID := uuid.New()
	templateID := uuid.New()

	treatments.On("ListTemplates", mock.Anything, diagnosisID).Return([]*model.TreatmentTemplate{
		{ID: templateID, DiagnosisID: diagnosisID},
	}, nil)
	treatments.On("ListTemplateSteps", mock.Anything, templateID).Return([]model.TemplateStep{
		{ID: uuid.New(), StepOrder: 3},
		{ID: uuid.New(), StepOrder: 1},
		{ID: uuid.New(), StepOrder: 5},
	}, nil)

	svc := newTestService(treatments, new(MockProfileRepository))
	templates, err := svc.GetTreatmentTemplates(context.Background(), diagnosisID)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Len(t, templates[0].Steps, 3)
	assert.Equal(t, 1, templates[0].Steps[0].StepOrder)
	assert.Equal(t, 3, templates[0].Steps[1].StepOrder)
	assert.Equal(t, 5, templates[0].Steps[2].StepOrder)
}

func TestMarkStepScheduled_NoPendingRowIsNoop(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	patientID, stepID := uuid.New(), uuid.New()

	treatments.On("GetPendingPlanAppointmentForStep", mock.Anything, patientID, stepID).Return(nil, nil)

	svc := newTestService(treatments, new(MockProfileRepository))
	require.NoError(t, svc.MarkStepScheduled(context.Background(), patientID, stepID, uuid.New()))
	treatments.AssertNotCalled(t, "LinkPlanAppointment", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkStepScheduled_LinksPendingRow(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	patientID, stepID := uuid.New(), uuid.New()
	planAptID, aptID := uuid.New(), uuid.New()

	treatments.On("GetPendingPlanAppointmentForStep", mock.Anything, patientID, stepID).Return(&model.PlanAppointment{
		ID: planAptID, StepID: stepID, Status: model.PlanAppointmentPending,
	}, nil)
	treatments.On("LinkPlanAppointment", mock.Anything, planAptID, aptID).Return(nil)

	svc := newTestService(treatments, new(MockProfileRepository))
	require.NoError(t, svc.MarkStepScheduled(context.Background(), patientID, stepID, aptID))
	treatments.AssertExpectations(t)
}

func TestAddTemplateStep_AppendsAtCountPlusOne(t *testing.T) {
	treatments := new(MockTreatmentRepository)
	admin := model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	templateID := uuid.New()

	treatments.On("GetTemplate", mock.Anything, templateID).Return(&model.TreatmentTemplate{ID: templateID}, nil)
	treatments.On("CountTemplateSteps", mock.Anything, templateID).Return(4, nil)
	treatments.On("AddTemplateStep", mock.Anything, mock.MatchedBy(func(s *model.TemplateStep) bool {
		return s.StepOrder == 5 && s.Title == "Final review"
	})).Return(nil)

	svc := newTestService(treatments, new(MockProfileRepository))
	step, err := svc.AddTemplateStep(context.Background(), admin, &model.TemplateStepInput{
		TemplateID:      templateID.String(),
		Title:           "Final review",
		AppointmentType: "consultation",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, step.StepOrder)
}

func TestCreateDiagnosis_DoctorForbidden(t *testing.T) {
	svc := newTestService(new(MockTreatmentRepository), new(MockProfileRepository))

	_, err := svc.CreateDiagnosis(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, &model.DiagnosisInput{
		Name: "Hypertension",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestListDiagnoses_Cached(t *testing.T) {
	treatments := new(MockTreatmentRepository)

	treatments.On("ListDiagnoses", mock.Anything).Return([]*model.Diagnosis{
		{Base: model.Base{ID: uuid.New()}, Name: "Hypertension"},
	}, nil).Once()

	svc := newTestService(treatments, new(MockProfileRepository))
	_, err := svc.ListDiagnoses(context.Background())
	require.NoError(t, err)
	again, err := svc.ListDiagnoses(context.Background())
	require.NoError(t, err)
	require.Len(t, again, 1)
	treatments.AssertExpectations(t)
}
