package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/prescription-api/internal/model"
)

// All repository interfaces in one file
type (
	// PrescriptionRepository handles prescription storage. Get returns a
	// wrapped sql.ErrNoRows when the id does not exist.
	PrescriptionRepository interface {
		Create(ctx context.Context, p *model.Prescription) error
		Get(ctx context.Context, id int64) (*model.Prescription, error)
		Exists(ctx context.Context, id int64) (bool, error)
		Update(ctx context.Context, p *model.Prescription) error
		Delete(ctx context.Context, id int64) error
		ListByPatient(ctx context.Context, patientID int64) ([]*model.Prescription, error)
		ListByDoctor(ctx context.Context, doctorName string) ([]*model.Prescription, error)
		ListByIssueDateRange(ctx context.Context, start, end model.Date) ([]*model.Prescription, error)
	}

	// PatientRepository exposes the existence predicate for patients; the
	// records themselves are owned elsewhere.
	PatientRepository interface {
		Exists(ctx context.Context, id int64) (bool, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
