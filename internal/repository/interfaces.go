package repository

import (
	"context"
	"time"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/google/uuid"
)

type DoctorRepository interface {
	Create(ctx context.Context, doctor *model.Doctor) error
	Get(ctx context.Context, id string) (*model.Doctor, error)
	Update(ctx context.Context, doctor *model.Doctor) error
	Delete(ctx context.Context, id string) error
	SetPortrait(ctx context.Context, id, portrait string) error

	GetVerification(ctx context.Context, doctorID string) (*model.EmailVerification, error)
	UpsertVerification(ctx context.Context, v *model.EmailVerification) error
	MarkVerified(ctx context.Context, doctorID string) error
}

type PatientRepository interface {
	Create(ctx context.Context, patient *model.Patient) error
	Get(ctx context.Context, id string) (*model.Patient, error)
	Update(ctx context.Context, patient *model.Patient) error
	Delete(ctx context.Context, id string) error
	ListForDoctor(ctx context.Context, doctorID string, q *model.PatientQuery) ([]*model.Patient, int, error)
	GetNames(ctx context.Context, ids []string) (map[string]*model.Patient, error)

	// GetOrCreateAddress deduplicates addresses by byte-identical content.
	GetOrCreateAddress(ctx context.Context, content string) (int64, error)
	GetAddress(ctx context.Context, id int64) (string, error)
}

type RosterRepository interface {
	Link(ctx context.Context, doctorID, patientID string) error
	Unlink(ctx context.Context, doctorID, patientID string) error
	Linked(ctx context.Context, doctorID, patientID string) (bool, error)
	CountLinks(ctx context.Context, patientID string) (int, error)
	PatientsOf(ctx context.Context, doctorID string) ([]string, error)
}

type MeasurementRepository interface {
	InsertBloodPressure(ctx context.Context, m *model.BloodPressure) error
	GetBloodPressure(ctx context.Context, patientID string, at time.Time) (*model.BloodPressure, error)
	ListBloodPressure(ctx context.Context, patientID string) ([]*model.BloodPressure, error)
	UpdateBloodPressure(ctx context.Context, m *model.BloodPressure) error
	DeleteBloodPressure(ctx context.Context, patientID string, at *time.Time) (int64, error)
	ScanBloodPressure(ctx context.Context, th model.CardioThresholds, since time.Time) ([]*model.BloodPressure, error)

	InsertBloodSugar(ctx context.Context, m *model.BloodSugar) error
	GetBloodSugar(ctx context.Context, patientID string, at time.Time) (*model.BloodSugar, error)
	ListBloodSugar(ctx context.Context, patientID string) ([]*model.BloodSugar, error)
	UpdateBloodSugar(ctx context.Context, m *model.BloodSugar) error
	DeleteBloodSugar(ctx context.Context, patientID string, at *time.Time) (int64, error)
	ScanBloodSugar(ctx context.Context, threshold float64, since time.Time) ([]*model.BloodSugar, error)

	DeleteAllForPatient(ctx context.Context, patientID string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}
