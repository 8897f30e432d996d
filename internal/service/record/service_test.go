package record

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/storage"
	apperrors "github.com/medifollow/care-api/pkg/errors"
)

type MockMedicalRecordRepository struct {
	mock.Mock
}

func (m *MockMedicalRecordRepository) Create(ctx context.Context, record *model.MedicalRecord) error {
	return m.Called(ctx, record).Error(0)
}

func (m *MockMedicalRecordRepository) Get(ctx context.Context, id uuid.UUID) (*model.MedicalRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MedicalRecord), args.Error(1)
}

func (m *MockMedicalRecordRepository) ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MedicalRecord), args.Error(1)
}

func (m *MockMedicalRecordRepository) UpdateContent(ctx context.Context, id uuid.UUID, content string, editedBy uuid.UUID) error {
	return m.Called(ctx, id, content, editedBy).Error(0)
}

func (m *MockMedicalRecordRepository) ListVersionsForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicalRecordVersion, error) {
	args := m.Called(ctx, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.MedicalRecordVersion), args.Error(1)
}

func newTestService(records *MockMedicalRecordRepository) *Service {
	nop := zerolog.Nop()
	signer := storage.NewSigner("https://files.example.com", "test-secret", 900)
	return NewService(records, signer, &nop)
}

func TestCreate_PatientForbidden(t *testing.T) {
	svc := newTestService(new(MockMedicalRecordRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := svc.Create(context.Background(), actor, &model.CreateRecordRequest{
		PatientID: uuid.New().String(),
		Content:   "note",
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestCreate_RequiresContentOrFile(t *testing.T) {
	svc := newTestService(new(MockMedicalRecordRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	_, err := svc.Create(context.Background(), actor, &model.CreateRecordRequest{
		PatientID: uuid.New().String(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
}

func TestCreate_FileRecordGetsSignedURL(t *testing.T) {
	records := new(MockMedicalRecordRepository)
	records.On("Create", mock.Anything, mock.MatchedBy(func(r *model.MedicalRecord) bool {
		return r.FileURL != nil && *r.FileURL == "records/scan.pdf"
	})).Return(nil)

	svc := newTestService(records)
	actor := model.Actor{ID: uuid.New(), Role: model.RoleDoctor}

	rec, err := svc.Create(context.Background(), actor, &model.CreateRecordRequest{
		PatientID: uuid.New().String(),
		FilePath:  "records/scan.pdf",
		FileName:  "scan.pdf",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rec.SignedURL, "https://files.example.com/records/scan.pdf?"))
	assert.Contains(t, rec.SignedURL, "sig=")
}

func TestListForPatient_OtherPatientForbidden(t *testing.T) {
	svc := newTestService(new(MockMedicalRecordRepository))
	actor := model.Actor{ID: uuid.New(), Role: model.RolePatient}

	_, err := svc.ListForPatient(context.Background(), actor, uuid.New())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))
}

func TestUpdateContent_OnlyAuthoringDoctor(t *testing.T) {
	records := new(MockMedicalRecordRepository)
	recID := uuid.New()
	author := uuid.New()

	records.On("Get", mock.Anything, recID).Return(&model.MedicalRecord{
		ID:       recID,
		DoctorID: author,
	}, nil)

	svc := newTestService(records)

	err := svc.UpdateContent(context.Background(), model.Actor{ID: uuid.New(), Role: model.RoleDoctor}, recID, &model.UpdateRecordRequest{Content: "edited"})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrUnauthorized))

	records.On("UpdateContent", mock.Anything, recID, "edited", author).Return(nil)
	err = svc.UpdateContent(context.Background(), model.Actor{ID: author, Role: model.RoleDoctor}, recID, &model.UpdateRecordRequest{Content: "edited"})
	require.NoError(t, err)
	records.AssertExpectations(t)
}
