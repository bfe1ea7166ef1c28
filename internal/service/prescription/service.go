package prescription

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/internal/repository"
	apperrors "github.com/jwalitptl/prescription-api/pkg/errors"
	"github.com/jwalitptl/prescription-api/pkg/logger"
)

// Clock supplies the current instant. Injected so that the derived
// expired flag is deterministic under test.
type Clock func() time.Time

type PrescriptionService interface {
	Create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	GetByID(ctx context.Context, id int64) (*model.PrescriptionResponse, error)
	GetByPatientID(ctx context.Context, patientID int64) ([]*model.PrescriptionResponse, error)
	Update(ctx context.Context, id int64, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error)
	Delete(ctx context.Context, id int64) error
	GetByDoctorName(ctx context.Context, doctorName string) ([]*model.PrescriptionResponse, error)
	GetByDateRange(ctx context.Context, start, end model.Date) ([]*model.PrescriptionResponse, error)
}

type Service struct {
	repo        repository.PrescriptionRepository
	patientRepo repository.PatientRepository
	outboxRepo  repository.OutboxRepository
	clock       Clock
	logger      *logger.Logger
}

func NewService(
	repo repository.PrescriptionRepository,
	patientRepo repository.PatientRepository,
	outboxRepo repository.OutboxRepository,
	clock Clock,
	logger *logger.Logger,
) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:        repo,
		patientRepo: patientRepo,
		outboxRepo:  outboxRepo,
		clock:       clock,
		logger:      logger,
	}
}

func (s *Service) Create(ctx context.Context, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	s.logger.Info("creating prescription", "patient_id", req.PatientID)

	if err := s.validatePatientExists(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ValidUntil); err != nil {
		return nil, err
	}

	p := &model.Prescription{
		PatientID:  req.PatientID,
		DoctorName: req.DoctorName,
		Medication: req.Medication,
		Dosage:     req.Dosage,
		IssueDate:  req.IssueDate,
		ValidUntil: req.ValidUntil,
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}
	s.logger.Info("prescription created", "prescription_id", p.ID)

	resp := s.toResponse(p)
	s.enqueueCreatedEvent(ctx, resp)

	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*model.PrescriptionResponse, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("prescription", id)
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return s.toResponse(p), nil
}

func (s *Service) GetByPatientID(ctx context.Context, patientID int64) ([]*model.PrescriptionResponse, error) {
	prescriptions, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return s.toResponses(prescriptions), nil
}

func (s *Service) Update(ctx context.Context, id int64, req *model.PrescriptionRequest) (*model.PrescriptionResponse, error) {
	s.logger.Info("updating prescription", "prescription_id", id)

	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("prescription", id)
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}

	if err := s.validatePatientExists(ctx, req.PatientID); err != nil {
		return nil, err
	}
	if err := validateDates(req.IssueDate, req.ValidUntil); err != nil {
		return nil, err
	}

	// Full replacement of every mutable field, never a merge.
	existing.PatientID = req.PatientID
	existing.DoctorName = req.DoctorName
	existing.Medication = req.Medication
	existing.Dosage = req.Dosage
	existing.IssueDate = req.IssueDate
	existing.ValidUntil = req.ValidUntil

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update prescription: %w", err)
	}
	s.logger.Info("prescription updated", "prescription_id", id)

	return s.toResponse(existing), nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	s.logger.Info("deleting prescription", "prescription_id", id)

	exists, err := s.repo.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check prescription existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound("prescription", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}
	s.logger.Info("prescription deleted", "prescription_id", id)
	return nil
}

func (s *Service) GetByDoctorName(ctx context.Context, doctorName string) ([]*model.PrescriptionResponse, error) {
	prescriptions, err := s.repo.ListByDoctor(ctx, doctorName)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return s.toResponses(prescriptions), nil
}

func (s *Service) GetByDateRange(ctx context.Context, start, end model.Date) ([]*model.PrescriptionResponse, error) {
	if start.After(end) {
		return nil, apperrors.Validation("Start date must be before or equal to end date")
	}

	prescriptions, err := s.repo.ListByIssueDateRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return s.toResponses(prescriptions), nil
}

func (s *Service) validatePatientExists(ctx context.Context, patientID int64) error {
	exists, err := s.patientRepo.Exists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("failed to check patient existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound("patient", patientID)
	}
	return nil
}

func validateDates(issueDate, validUntil model.Date) error {
	if validUntil.Before(issueDate) {
		return apperrors.Validation(fmt.Sprintf(
			"Valid until date %s cannot be before issue date %s", validUntil, issueDate))
	}
	return nil
}

// enqueueCreatedEvent writes the notification to the outbox. Delivery is
// best-effort: a failed write is logged and never fails the create.
func (s *Service) enqueueCreatedEvent(ctx context.Context, resp *model.PrescriptionResponse) {
	payload, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error(err, "failed to marshal prescription for event", "prescription_id", resp.ID)
		return
	}
	if err := s.outboxRepo.Create(ctx, &model.OutboxEvent{
		EventType: model.EventPrescriptionCreated,
		Payload:   payload,
	}); err != nil {
		s.logger.Error(err, "failed to create outbox event", "prescription_id", resp.ID)
	}
}

func (s *Service) toResponse(p *model.Prescription) *model.PrescriptionResponse {
	today := model.DateOf(s.clock())
	return &model.PrescriptionResponse{
		ID:         p.ID,
		PatientID:  p.PatientID,
		DoctorName: p.DoctorName,
		Medication: p.Medication,
		Dosage:     p.Dosage,
		IssueDate:  p.IssueDate,
		ValidUntil: p.ValidUntil,
		Expired:    today.After(p.ValidUntil),
	}
}

func (s *Service) toResponses(prescriptions []*model.Prescription) []*model.PrescriptionResponse {
	responses := make([]*model.PrescriptionResponse, 0, len(prescriptions))
	for _, p := range prescriptions {
		responses = append(responses, s.toResponse(p))
	}
	return responses
}
