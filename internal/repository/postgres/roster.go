package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/biodash/vitals-api/internal/repository"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

type rosterRepository struct {
	db *sqlx.DB
}

func NewRosterRepository(db *sqlx.DB) repository.RosterRepository {
	return &rosterRepository{db: db}
}

// Link inserts the association; the (doctor_id, patient_id) primary key is
// the authoritative uniqueness guard.
func (r *rosterRepository) Link(ctx context.Context, doctorID, patientID string) error {
	query := `INSERT INTO doctor_patients (doctor_id, patient_id, created_at) VALUES ($1, $2, NOW())`
	_, err := r.db.ExecContext(ctx, query, doctorID, patientID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("this patient already exists", err)
		}
		return fmt.Errorf("failed to link patient: %w", err)
	}
	return nil
}

func (r *rosterRepository) Unlink(ctx context.Context, doctorID, patientID string) error {
	query := `DELETE FROM doctor_patients WHERE doctor_id = $1 AND patient_id = $2`
	result, err := r.db.ExecContext(ctx, query, doctorID, patientID)
	if err != nil {
		return fmt.Errorf("failed to unlink patient: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("this patient does not exist", nil)
	}
	return nil
}

func (r *rosterRepository) Linked(ctx context.Context, doctorID, patientID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM doctor_patients WHERE doctor_id = $1 AND patient_id = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, doctorID, patientID); err != nil {
		return false, fmt.Errorf("failed to check roster link: %w", err)
	}
	return exists, nil
}

func (r *rosterRepository) CountLinks(ctx context.Context, patientID string) (int, error) {
	query := `SELECT COUNT(*) FROM doctor_patients WHERE patient_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, patientID); err != nil {
		return 0, fmt.Errorf("failed to count roster links: %w", err)
	}
	return count, nil
}

func (r *rosterRepository) PatientsOf(ctx context.Context, doctorID string) ([]string, error) {
	query := `SELECT patient_id FROM doctor_patients WHERE doctor_id = $1`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list roster patients: %w", err)
	}
	return ids, nil
}
