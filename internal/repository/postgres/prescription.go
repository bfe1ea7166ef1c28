package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/prescription-api/internal/model"
	"github.com/jwalitptl/prescription-api/internal/repository"
)

type prescriptionRepository struct {
	db *sqlx.DB
}

func NewPrescriptionRepository(db *sqlx.DB) repository.PrescriptionRepository {
	return &prescriptionRepository{db: db}
}

func (r *prescriptionRepository) Create(ctx context.Context, p *model.Prescription) error {
	query := `
		INSERT INTO prescriptions (patient_id, doctor_name, medication, dosage, issue_date, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		p.PatientID,
		p.DoctorName,
		p.Medication,
		p.Dosage,
		p.IssueDate,
		p.ValidUntil,
		p.CreatedAt,
		p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id int64) (*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE id = $1`
	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) Exists(ctx context.Context, id int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM prescriptions WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check prescription existence: %w", err)
	}
	return exists, nil
}

func (r *prescriptionRepository) Update(ctx context.Context, p *model.Prescription) error {
	query := `
		UPDATE prescriptions
		SET patient_id = $1, doctor_name = $2, medication = $3, dosage = $4,
			issue_date = $5, valid_until = $6, updated_at = $7
		WHERE id = $8
	`
	p.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		p.PatientID,
		p.DoctorName,
		p.Medication,
		p.Dosage,
		p.IssueDate,
		p.ValidUntil,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM prescriptions WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to delete prescription: %w", err)
	}
	return nil
}

func (r *prescriptionRepository) ListByPatient(ctx context.Context, patientID int64) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE patient_id = $1 ORDER BY id`
	var prescriptions []*model.Prescription
	err := r.db.SelectContext(ctx, &prescriptions, query, patientID)
	return prescriptions, err
}

func (r *prescriptionRepository) ListByDoctor(ctx context.Context, doctorName string) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE doctor_name = $1 ORDER BY id`
	var prescriptions []*model.Prescription
	err := r.db.SelectContext(ctx, &prescriptions, query, doctorName)
	return prescriptions, err
}

func (r *prescriptionRepository) ListByIssueDateRange(ctx context.Context, start, end model.Date) ([]*model.Prescription, error) {
	query := `SELECT * FROM prescriptions WHERE issue_date BETWEEN $1 AND $2 ORDER BY id`
	var prescriptions []*model.Prescription
	err := r.db.SelectContext(ctx, &prescriptions, query, start, end)
	return prescriptions, err
}
