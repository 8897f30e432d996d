package record

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medifollow/care-api/internal/model"
	"github.com/medifollow/care-api/internal/repository"
	"github.com/medifollow/care-api/internal/storage"
	apperrors "github.com/medifollow/care-api/pkg/errors"
)

type Service struct {
	records repository.MedicalRecordRepository
	signer  *storage.Signer
	logger  *zerolog.Logger
}

func NewService(records repository.MedicalRecordRepository, signer *storage.Signer, logger *zerolog.Logger) *Service {
	return &Service{records: records, signer: signer, logger: logger}
}

// Create stores a clinical note, a file attachment, or both on one record.
func (s *Service) Create(ctx context.Context, actor model.Actor, req *model.CreateRecordRequest) (*model.MedicalRecord, error) {
	if !actor.Role.CanUploadRecords() {
		return nil, apperrors.Unauthorized("only clinical staff can create medical records")
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid patient id", err)
	}
	if req.Content == "" && req.FilePath == "" {
		return nil, apperrors.InvalidInput("a record needs note content or a file", nil)
	}

	rec := &model.MedicalRecord{
		PatientID: patientID,
		DoctorID:  actor.ID,
	}
	if req.Content != "" {
		rec.Content = &req.Content
	}
	if req.FilePath != "" {
		rec.FileURL = &req.FilePath
		if req.FileName != "" {
			rec.FileName = &req.FileName
		}
	}
	if req.Description != "" {
		rec.Description = &req.Description
	}

	if err := s.records.Create(ctx, rec); err != nil {
		return nil, apperrors.Storage(err)
	}
	s.attachSignedURL(rec)
	return rec, nil
}

func (s *Service) Get(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.MedicalRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("medical record", err)
		}
		return nil, apperrors.Storage(err)
	}
	if actor.Role == model.RolePatient && rec.PatientID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another patient's record")
	}
	s.attachSignedURL(rec)
	return rec, nil
}

// ListForPatient returns the patient's records with short-lived signed
// URLs attached for any file-backed rows.
func (s *Service) ListForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.MedicalRecord, error) {
	if actor.Role == model.RolePatient && patientID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another patient's records")
	}

	records, err := s.records.ListForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	for _, rec := range records {
		s.attachSignedURL(rec)
	}
	return records, nil
}

// UpdateContent replaces a record's note text. The new text is snapshotted
// as an immutable version row in the same transaction, so edit history is
// never lost.
func (s *Service) UpdateContent(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.UpdateRecordRequest) error {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NotFound("medical record", err)
		}
		return apperrors.Storage(err)
	}
	if actor.Role != model.RoleDoctor || rec.DoctorID != actor.ID {
		return apperrors.Unauthorized("only the authoring doctor can edit a record")
	}

	if err := s.records.UpdateContent(ctx, id, req.Content, actor.ID); err != nil {
		return apperrors.Storage(err)
	}
	return nil
}

func (s *Service) ListVersionsForPatient(ctx context.Context, actor model.Actor, patientID uuid.UUID) ([]*model.MedicalRecordVersion, error) {
	if actor.Role == model.RolePatient && patientID != actor.ID {
		return nil, apperrors.Unauthorized("cannot view another patient's record history")
	}

	versions, err := s.records.ListVersionsForPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Storage(err)
	}
	return versions, nil
}

func (s *Service) attachSignedURL(rec *model.MedicalRecord) {
	if s.signer == nil || rec.FileURL == nil || *rec.FileURL == "" {
		return
	}
	rec.SignedURL = s.signer.SignedURL(*rec.FileURL)
}
