package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

type measurementRepository struct {
	db *sqlx.DB
}

func NewMeasurementRepository(db *sqlx.DB) repository.MeasurementRepository {
	return &measurementRepository{db: db}
}

func (r *measurementRepository) InsertBloodPressure(ctx context.Context, m *model.BloodPressure) error {
	query := `
		INSERT INTO blood_pressure (patient_id, doctor_id, systolic, diastolic, heart_rate, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		m.PatientID, m.DoctorID, m.Systolic, m.Diastolic, m.HeartRate, m.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("measurement already exists", err)
		}
		return fmt.Errorf("failed to insert blood pressure: %w", err)
	}
	return nil
}

func (r *measurementRepository) GetBloodPressure(ctx context.Context, patientID string, at time.Time) (*model.BloodPressure, error) {
	query := `SELECT * FROM blood_pressure WHERE patient_id = $1 AND recorded_at = $2`
	var m model.BloodPressure
	err := r.db.GetContext(ctx, &m, query, patientID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("there is no such measurement", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blood pressure: %w", err)
	}
	return &m, nil
}

func (r *measurementRepository) ListBloodPressure(ctx context.Context, patientID string) ([]*model.BloodPressure, error) {
	query := `SELECT * FROM blood_pressure WHERE patient_id = $1 ORDER BY recorded_at`
	var ms []*model.BloodPressure
	if err := r.db.SelectContext(ctx, &ms, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list blood pressure: %w", err)
	}
	return ms, nil
}

func (r *measurementRepository) UpdateBloodPressure(ctx context.Context, m *model.BloodPressure) error {
	query := `
		UPDATE blood_pressure
		SET systolic = $1, diastolic = $2, heart_rate = $3
		WHERE patient_id = $4 AND recorded_at = $5
	`
	_, err := r.db.ExecContext(ctx, query, m.Systolic, m.Diastolic, m.HeartRate, m.PatientID, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to update blood pressure: %w", err)
	}
	return nil
}

func (r *measurementRepository) DeleteBloodPressure(ctx context.Context, patientID string, at *time.Time) (int64, error) {
	if at != nil {
		result, err := r.db.ExecContext(ctx,
			`DELETE FROM blood_pressure WHERE patient_id = $1 AND recorded_at = $2`, patientID, *at)
		if err != nil {
			return 0, fmt.Errorf("failed to delete blood pressure: %w", err)
		}
		return result.RowsAffected()
	}
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blood_pressure WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete blood pressure: %w", err)
	}
	return result.RowsAffected()
}

// ScanBloodPressure returns readings newer than since that meet or exceed any
// of the thresholds.
func (r *measurementRepository) ScanBloodPressure(ctx context.Context, th model.CardioThresholds, since time.Time) ([]*model.BloodPressure, error) {
	query := `
		SELECT * FROM blood_pressure
		WHERE recorded_at >= $1
		AND (systolic >= $2 OR diastolic >= $3 OR heart_rate >= $4)
		ORDER BY recorded_at
	`
	var ms []*model.BloodPressure
	if err := r.db.SelectContext(ctx, &ms, query, since, th.Systolic, th.Diastolic, th.HeartRate); err != nil {
		return nil, fmt.Errorf("failed to scan blood pressure: %w", err)
	}
	return ms, nil
}

func (r *measurementRepository) InsertBloodSugar(ctx context.Context, m *model.BloodSugar) error {
	query := `
		INSERT INTO blood_sugar (patient_id, doctor_id, value, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.ExecContext(ctx, query, m.PatientID, m.DoctorID, m.Value, m.RecordedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("measurement already exists", err)
		}
		return fmt.Errorf("failed to insert blood sugar: %w", err)
	}
	return nil
}

func (r *measurementRepository) GetBloodSugar(ctx context.Context, patientID string, at time.Time) (*model.BloodSugar, error) {
	query := `SELECT * FROM blood_sugar WHERE patient_id = $1 AND recorded_at = $2`
	var m model.BloodSugar
	err := r.db.GetContext(ctx, &m, query, patientID, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("there is no such measurement", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blood sugar: %w", err)
	}
	return &m, nil
}

func (r *measurementRepository) ListBloodSugar(ctx context.Context, patientID string) ([]*model.BloodSugar, error) {
	query := `SELECT * FROM blood_sugar WHERE patient_id = $1 ORDER BY recorded_at`
	var ms []*model.BloodSugar
	if err := r.db.SelectContext(ctx, &ms, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list blood sugar: %w", err)
	}
	return ms, nil
}

func (r *measurementRepository) UpdateBloodSugar(ctx context.Context, m *model.BloodSugar) error {
	query := `UPDATE blood_sugar SET value = $1 WHERE patient_id = $2 AND recorded_at = $3`
	_, err := r.db.ExecContext(ctx, query, m.Value, m.PatientID, m.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to update blood sugar: %w", err)
	}
	return nil
}

func (r *measurementRepository) DeleteBloodSugar(ctx context.Context, patientID string, at *time.Time) (int64, error) {
	if at != nil {
		result, err := r.db.ExecContext(ctx,
			`DELETE FROM blood_sugar WHERE patient_id = $1 AND recorded_at = $2`, patientID, *at)
		if err != nil {
			return 0, fmt.Errorf("failed to delete blood sugar: %w", err)
		}
		return result.RowsAffected()
	}
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM blood_sugar WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete blood sugar: %w", err)
	}
	return result.RowsAffected()
}

func (r *measurementRepository) ScanBloodSugar(ctx context.Context, threshold float64, since time.Time) ([]*model.BloodSugar, error) {
	query := `
		SELECT * FROM blood_sugar
		WHERE recorded_at >= $1 AND value >= $2
		ORDER BY recorded_at
	`
	var ms []*model.BloodSugar
	if err := r.db.SelectContext(ctx, &ms, query, since, threshold); err != nil {
		return nil, fmt.Errorf("failed to scan blood sugar: %w", err)
	}
	return ms, nil
}

func (r *measurementRepository) DeleteAllForPatient(ctx context.Context, patientID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blood_pressure WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("failed to delete blood pressure series: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM blood_sugar WHERE patient_id = $1`, patientID); err != nil {
		return fmt.Errorf("failed to delete blood sugar series: %w", err)
	}
	return nil
}
