package treatment

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	apperrors "github.com/medifollow/care-api/pkg/errors"
	"github.com/medifollow/care-api/pkg/metrics"
)

const diagnosisCacheKey = "diagnoses"

type Service struct {
	treatments repository.TreatmentRepository
	profiles   repository.ProfileRepository
	cache      *gocache.Cache
	logger     *zerolog.Logger
	metrics    *metrics.Metrics
}

func NewService(
	treatments repository.TreatmentRepository,
	profiles repository.ProfileRepository,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		treatments: treatments,
		profiles:   profiles,
		cache:      gocache.New(10*time.Minute, 20*time.Minute),
		logger:     logger,
		metrics:    m,
	}
}

// AssignTreatmentPlan attaches a template-driven plan to a patient. The
// plan row and one pending tracking row per template step are written in a
// single transaction, so a plan can never exist half-seeded.
func (s *Service) AssignTreatmentPlan(ctx context.Context, actor model.Actor, req *model.AssignPlanRequest) (*model.PatientTreatmentPlan, error) {
	if !actor.Role.CanAssignTreatmentPlans() {
		return nil, apperrors.Unauthorized("only doctors can assign treatment plans")
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid patient id", err)
	}
	diagnosisID, err := uuid.Parse(req.DiagnosisID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid diagnosis id", err)
	}
	templateID, err := uuid.Parse(req.TemplateID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid template id", err)
	}

	patient, err := s.profiles.Get(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Storage(err)
	}
	if patient.Role != model.RolePatient {
		return nil, apperrors.InvalidInput("plans can only be assigned to patients", nil)
	}

	template, err := s.treatments.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("treatment template", err)
		}
		return nil, apperrors.Storage(err)
	}
	if template.DiagnosisID != diagnosisID {
		return nil, apperrors.InvalidInput("template does not belong to the diagnosis", nil)
	}

	steps, err := s.treatments.ListTemplateSteps(ctx, templateID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	stepIDs := make([]uuid.UUID, 0, len(steps))
	for _, step := range steps {
		stepIDs = append(stepIDs, step.ID)
	}

	plan := &model.PatientTreatmentPlan{
		PatientID:   patientID,
		DoctorID:    actor.ID,
		DiagnosisID: diagnosisID,
		TemplateID:  &templateID,
		Status:      model.PlanStatusActive,
	}
	if err := s.treatments.CreatePlanWithSteps(ctx, plan, stepIDs); err != nil {
		return nil, apperrors.Storage(err)
	}
	if s.metrics != nil {
		s.metrics.PlansAssigned.Inc()
	}

	s.logger.Info().
		Str("plan_id", plan.ID.String()).
		Str("patient_id", patientID.String()).
		Int("steps", len(stepIDs)).
		Msg("treatment plan assigned")
	return plan, nil
}

// GetPatientTreatmentPlans returns the patient's plans with diagnosis,
// template, steps and per-step progress hydrated. Patients see only their
// own plans; doctors may look up any patient. Admins are refused outright:
// plan contents are clinical data.
func (s *Service) GetPatientTreatmentPlans(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.PatientTreatmentPlan, error) {
	if !actor.Role.CanViewTreatmentPlans() {
		return nil, apperrors.Unauthorized("Admins are not authorized to view treatment plans")
	}
	if actor.Role == model.RolePatient && patientID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another patient's treatment plans")
	}

	plans, err := s.treatments.ListPlansForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	for _, plan := range plans {
		if plan.Template != nil {
			sortSteps(plan.Template.Steps)
		}
	}
	return plans, nil
}

// GetTreatmentTemplates lists a diagnosis's templates with their steps in
// step order.
func (s *Service) GetTreatmentTemplates(ctx context.Context, diagnosisID uuid.UUID) ([]*model.TreatmentTemplate, error) {
	templates, err := s.treatments.ListTemplates(ctx, diagnosisID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	for _, template := range templates {
		steps, err := s.treatments.ListTemplateSteps(ctx, template.ID)
		if err != nil {
			return nil, apperrors.Storage(err)
		}
		sortSteps(steps)
		template.Steps = steps
	}
	return templates, nil
}

func sortSteps(steps []model.TemplateStep) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepOrder < steps[j].StepOrder
	})
}

// MarkStepScheduled links a freshly booked appointment to the patient's
// pending tracking row for the step. A step with no pending row left is
// not an error; the booking simply stays unlinked.
func (s *Service) MarkStepScheduled(ctx context.Context, patientID, stepID, appointmentID uuid.UUID) error {
	planApt, err := s.treatments.GetPendingPlanAppointmentForStep(ctx, patientID, stepID)
	if err != nil {
		return apperrors.Storage(err)
	}
	if planApt == nil {
		return nil
	}
	if err := s.treatments.LinkPlanAppointment(ctx, planApt.ID, appointmentID); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// MarkStepCompleted closes whichever scheduled tracking row points at the
// appointment. No-op when the appointment was never linked to a plan.
func (s *Service) MarkStepCompleted(ctx context.Context, appointmentID uuid.UUID) error {
	if err := s.treatments.CompleteByAppointment(ctx, appointmentID); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// ListDiagnoses serves the diagnosis catalog from a short-lived cache; the
// catalog changes rarely and is read on every plan-assignment screen.
func (s *Service) ListDiagnoses(ctx context.Context) ([]*model.Diagnosis, error) {
	if cached, ok := s.cache.Get(diagnosisCacheKey); ok {
		return cached.([]*model.Diagnosis), nil
	}

	diagnoses, err := s.treatments.ListDiagnoses(ctx)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	s.cache.Set(diagnosisCacheKey, diagnoses, gocache.DefaultExpiration)
	return diagnoses, nil
}

func (s *Service) SearchDiagnoses(ctx context.Context, query string, limit int) ([]*model.Diagnosis, error) {
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	diagnoses, err := s.treatments.SearchDiagnoses(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return diagnoses, nil
}

func (s *Service) CreateDiagnosis(ctx context.Context, actor model.Actor, input *model.DiagnosisInput) (*model.Diagnosis, error) {
	if !actor.Role.CanManageCatalog() {
		return nil, apperrors.Unauthorized("only admins can manage the diagnosis catalog")
	}

	diagnosis := &model.Diagnosis{Name: input.Name}
	if input.Description != "" {
		diagnosis.Description = &input.Description
	}
	if err := s.treatments.CreateDiagnosis(ctx, diagnosis); err != nil {
		return nil, apperrors.Storage(err)
	}
	s.cache.Delete(diagnosisCacheKey)
	return diagnosis, nil
}

func (s *Service) UpdateDiagnosis(ctx context.Context, actor model.Actor, id uuid.UUID, input *model.DiagnosisInput) (*model.Diagnosis, error) {
	if !actor.Role.CanManageCatalog() {
		return nil, apperrors.Unauthorized("only admins can manage the diagnosis catalog")
	}

	diagnosis, err := s.treatments.GetDiagnosis(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("diagnosis", err)
		}
		return nil, apperrors.Storage(err)
	}

	diagnosis.Name = input.Name
	if input.Description != "" {
		diagnosis.Description = &input.Description
	} else {
		diagnosis.Description = nil
	}
	if err := s.treatments.UpdateDiagnosis(ctx, diagnosis); err != nil {
		return nil, apperrors.Storage(err)
	}
	s.cache.Delete(diagnosisCacheKey)
	return diagnosis, nil
}

func (s *Service) DeleteDiagnosis(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.Role.CanManageCatalog() {
		return apperrors.Unauthorized("only admins can manage the diagnosis catalog")
	}
	if err := s.treatments.DeleteDiagnosis(ctx, id); err != nil {
		return apperrors.Storage(err)
	}
	s.cache.Delete(diagnosisCacheKey)
	return nil
}

func (s *Service) CreateTemplate(ctx context.Context, actor model.Actor, input *model.TemplateInput) (*model.TreatmentTemplate, error) {
	if !actor.Role.CanManageCatalog() {
		return nil, apperrors.Unauthorized("only admins can manage treatment templates")
	}

	diagnosisID, err := uuid.Parse(input.DiagnosisID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid diagnosis id", err)
	}
	if _, err := s.treatments.GetDiagnosis(ctx, diagnosisID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("diagnosis", err)
		}
		return nil, apperrors.Storage(err)
	}

	template := &model.TreatmentTemplate{
		DiagnosisID: diagnosisID,
		Name:        input.Name,
	}
	if input.Description != "" {
		template.Description = &input.Description
	}
	if err := s.treatments.CreateTemplate(ctx, template); err != nil {
		return nil, apperrors.Storage(err)
	}
	return template, nil
}

func (s *Service) DeleteTemplate(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.Role.CanManageCatalog() {
		return apperrors.Unauthorized("only admins can manage treatment templates")
	}
	if err := s.treatments.DeleteTemplate(ctx, id); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

// AddTemplateStep appends a step at position count+1. Steps are never
// renumbered, so ordering survives concurrent deletions with gaps rather
// than shuffled positions.
func (s *Service) AddTemplateStep(ctx context.Context, actor model.Actor, input *model.TemplateStepInput) (*model.TemplateStep, error) {
	if !actor.Role.CanManageCatalog() {
		return nil, apperrors.Unauthorized("only admins can manage treatment templates")
	}

	templateID, err := uuid.Parse(input.TemplateID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid template id", err)
	}
	if _, err := s.treatments.GetTemplate(ctx, templateID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("treatment template", err)
		}
		return nil, apperrors.Storage(err)
	}

	count, err := s.treatments.CountTemplateSteps(ctx, templateID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}

	step := &model.TemplateStep{
		TemplateID:      templateID,
		StepOrder:       count + 1,
		Title:           input.Title,
		AppointmentType: input.AppointmentType,
	}
	if input.SuggestedTimeGap != "" {
		step.SuggestedTimeGap = &input.SuggestedTimeGap
	}
	if err := s.treatments.AddTemplateStep(ctx, step); err != nil {
		return nil, apperrors.Storage(err)
	}
	return step, nil
}

func (s *Service) DeleteTemplateStep(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	if !actor.Role.CanManageCatalog() {
		return apperrors.Unauthorized("only admins can manage treatment templates")
	}
	if err := s.treatments.DeleteTemplateStep(ctx, id); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}
