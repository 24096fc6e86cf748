package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

// patientColumns maps filter/sort field tags to their columns. Dispatch goes
// through this table instead of branching on strings; init verifies every
// enum variant has a mapping.
var patientColumns = map[model.PatientField]string{
	model.FieldFirstName: "p.first_name",
	model.FieldLastName:  "p.last_name",
	model.FieldBirthDate: "p.birth_date",
	model.FieldGender:    "p.gender",
	model.FieldHeight:    "p.height",
	model.FieldWeight:    "p.weight",
	model.FieldSchooling: "p.schooling",
	model.FieldEmployee:  "p.employee",
	model.FieldMarried:   "p.married",
}

// rangeFields are the columns that support min/max range filtering.
var rangeFields = map[model.PatientField]bool{
	model.FieldBirthDate: true,
	model.FieldHeight:    true,
	model.FieldWeight:    true,
}

func init() {
	for _, f := range model.PatientFields {
		if _, ok := patientColumns[f]; !ok {
			panic(fmt.Sprintf("patient field %q has no column mapping", f))
		}
	}
}

type patientRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, first_name, second_name, last_name, birth_date, gender,
			height, weight, schooling, employee, married, address_id, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		patient.ID,
		patient.FirstName,
		patient.SecondName,
		patient.LastName,
		patient.BirthDate,
		patient.Gender,
		patient.Height,
		patient.Weight,
		patient.Schooling,
		patient.Employee,
		patient.Married,
		patient.AddressID,
		patient.PasswordHash,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("patient already exists", err)
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("this patient does not exist", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET first_name = $1, second_name = $2, last_name = $3, birth_date = $4, gender = $5,
			height = $6, weight = $7, schooling = $8, employee = $9, married = $10,
			address_id = $11, password_hash = $12, updated_at = $13
		WHERE id = $14
	`
	_, err := r.db.ExecContext(ctx, query,
		patient.FirstName,
		patient.SecondName,
		patient.LastName,
		patient.BirthDate,
		patient.Gender,
		patient.Height,
		patient.Weight,
		patient.Schooling,
		patient.Employee,
		patient.Married,
		patient.AddressID,
		patient.PasswordHash,
		time.Now(),
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM patients WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// ListForDoctor returns the doctor's roster restricted by the query, plus the
// unpaginated match count.
func (r *patientRepository) ListForDoctor(ctx context.Context, doctorID string, q *model.PatientQuery) ([]*model.Patient, int, error) {
	where, args := buildPatientFilter(doctorID, q)

	countQuery := `
		SELECT COUNT(DISTINCT p.id)
		FROM patients p
		JOIN doctor_patients dp ON dp.patient_id = p.id
	` + where
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count patients: %w", err)
	}

	orderCol, ok := patientColumns[q.OrderBy]
	if !ok {
		orderCol = patientColumns[model.FieldLastName]
	}
	direction := "ASC"
	if q.Order == model.OrderDesc {
		direction = "DESC"
	}

	listQuery := fmt.Sprintf(`
		SELECT p.*
		FROM patients p
		JOIN doctor_patients dp ON dp.patient_id = p.id
		%s
		ORDER BY %s %s
	`, where, orderCol, direction)

	if q.Limit > 0 {
		listQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
	}
	if q.Offset > 0 {
		listQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, total, nil
}

// buildPatientFilter assembles the WHERE clause for a roster listing. A
// concrete value wins over a range; ranges apply only to range-capable
// columns.
func buildPatientFilter(doctorID string, q *model.PatientQuery) (string, []interface{}) {
	clauses := []string{"dp.doctor_id = $1"}
	args := []interface{}{doctorID}
	n := 2

	col, ok := patientColumns[q.FilterBy]
	if !ok {
		return " WHERE " + strings.Join(clauses, " AND "), args
	}

	switch {
	case q.Value != "":
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, n))
		args = append(args, q.Value)
	case rangeFields[q.FilterBy] && q.FilterBy == model.FieldBirthDate && q.DateMin != nil && q.DateMax != nil:
		clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, n, n+1))
		args = append(args, *q.DateMin, *q.DateMax)
	case rangeFields[q.FilterBy] && q.RangeMin != nil && q.RangeMax != nil:
		clauses = append(clauses, fmt.Sprintf("%s BETWEEN $%d AND $%d", col, n, n+1))
		args = append(args, *q.RangeMin, *q.RangeMax)
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *patientRepository) GetNames(ctx context.Context, ids []string) (map[string]*model.Patient, error) {
	if len(ids) == 0 {
		return map[string]*model.Patient{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM patients WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build patient name query: %w", err)
	}
	query = r.db.Rebind(query)

	var patients []*model.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, fmt.Errorf("failed to resolve patient names: %w", err)
	}

	byID := make(map[string]*model.Patient, len(patients))
	for _, p := range patients {
		byID[p.ID] = p
	}
	return byID, nil
}

// GetOrCreateAddress stores identical addresses once; the content column is
// unique, so a concurrent insert of the same content falls back to a lookup.
func (r *patientRepository) GetOrCreateAddress(ctx context.Context, content string) (int64, error) {
	var id int64
	err := r.db.GetContext(ctx, &id, `SELECT id FROM addresses WHERE content = $1`, content)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up address: %w", err)
	}

	err = r.db.GetContext(ctx, &id,
		`INSERT INTO addresses (content) VALUES ($1) RETURNING id`, content)
	if err != nil {
		if isUniqueViolation(err) {
			if lookupErr := r.db.GetContext(ctx, &id, `SELECT id FROM addresses WHERE content = $1`, content); lookupErr == nil {
				return id, nil
			}
		}
		return 0, fmt.Errorf("failed to insert address: %w", err)
	}
	return id, nil
}

func (r *patientRepository) GetAddress(ctx context.Context, id int64) (string, error) {
	var content string
	err := r.db.GetContext(ctx, &content, `SELECT content FROM addresses WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.NotFound("address not found", err)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get address: %w", err)
	}
	return content, nil
}
