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

type doctorRepository struct {
	db *sqlx.DB
}

func NewDoctorRepository(db *sqlx.DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (id, first_name, second_name, last_name, specialty, password_hash, portrait, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.FirstName,
		doctor.SecondName,
		doctor.LastName,
		doctor.Specialty,
		doctor.PasswordHash,
		doctor.Portrait,
		doctor.CreatedAt,
		doctor.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("doctor already exists", err)
		}
		return fmt.Errorf("failed to create doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id string) (*model.Doctor, error) {
	query := `SELECT * FROM doctors WHERE id = $1`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("doctor not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) Update(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET first_name = $1, second_name = $2, last_name = $3, specialty = $4, password_hash = $5, updated_at = $6
		WHERE id = $7
	`
	_, err := r.db.ExecContext(ctx, query,
		doctor.FirstName,
		doctor.SecondName,
		doctor.LastName,
		doctor.Specialty,
		doctor.PasswordHash,
		time.Now(),
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}
	return nil
}

func (r *doctorRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM doctors WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *doctorRepository) SetPortrait(ctx context.Context, id, portrait string) error {
	query := `UPDATE doctors SET portrait = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, portrait, time.Now(), id)
	return err
}

func (r *doctorRepository) GetVerification(ctx context.Context, doctorID string) (*model.EmailVerification, error) {
	query := `SELECT * FROM email_verifications WHERE doctor_id = $1`
	var v model.EmailVerification
	err := r.db.GetContext(ctx, &v, query, doctorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("no email registered for this doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email verification: %w", err)
	}
	return &v, nil
}

// UpsertVerification replaces the verification record whole, so a newly
// issued code always invalidates the previous one.
func (r *doctorRepository) UpsertVerification(ctx context.Context, v *model.EmailVerification) error {
	query := `
		INSERT INTO email_verifications (doctor_id, address, verified, code, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (doctor_id) DO UPDATE
		SET address = EXCLUDED.address, verified = EXCLUDED.verified, code = EXCLUDED.code, updated_at = EXCLUDED.updated_at
	`
	v.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query, v.DoctorID, v.Address, v.Verified, v.Code, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email verification: %w", err)
	}
	return nil
}

func (r *doctorRepository) MarkVerified(ctx context.Context, doctorID string) error {
	query := `UPDATE email_verifications SET verified = TRUE, updated_at = $1 WHERE doctor_id = $2`
	_, err := r.db.ExecContext(ctx, query, time.Now(), doctorID)
	return err
}
