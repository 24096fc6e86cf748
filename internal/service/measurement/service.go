package measurement

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
	"github.com/biodash/vitals-api/pkg/metrics"
)

// Measurement kinds used in events and metrics labels.
const (
	KindBloodPressure = "blood_pressure"
	KindBloodSugar    = "blood_sugar"
)

// Service records and maintains vital-sign measurements. Access control has
// already happened by the time a call reaches it.
type Service struct {
	measurements repository.MeasurementRepository
	outbox       repository.OutboxRepository
	metrics      *metrics.Metrics
	logger       *zerolog.Logger
}

func NewService(measurements repository.MeasurementRepository, outbox repository.OutboxRepository,
	m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{measurements: measurements, outbox: outbox, metrics: m, logger: logger}
}

// AddBloodPressure records a cardiovascular reading for a patient. A second
// reading at the same instant is a conflict.
func (s *Service) AddBloodPressure(ctx context.Context, doctorID string, req *model.AddBloodPressureRequest) (*model.BloodPressure, error) {
	if _, err := s.measurements.GetBloodPressure(ctx, req.PatientID, req.RecordedAt); err == nil {
		return nil, apperrors.Conflict("a blood pressure record at this time already exists", nil)
	}

	m := &model.BloodPressure{
		PatientID:  req.PatientID,
		DoctorID:   authorOf(doctorID),
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		HeartRate:  req.HeartRate,
		RecordedAt: req.RecordedAt,
	}
	if err := s.measurements.InsertBloodPressure(ctx, m); err != nil {
		return nil, err
	}
	s.metrics.MeasurementsRecorded.WithLabelValues(KindBloodPressure).Inc()
	s.publishRecorded(ctx, KindBloodPressure, m.PatientID, m.RecordedAt)
	return m, nil
}

// AddBloodSugar records a glucose reading, same uniqueness rule.
func (s *Service) AddBloodSugar(ctx context.Context, doctorID string, req *model.AddBloodSugarRequest) (*model.BloodSugar, error) {
	if _, err := s.measurements.GetBloodSugar(ctx, req.PatientID, req.RecordedAt); err == nil {
		return nil, apperrors.Conflict("a blood sugar record at this time already exists", nil)
	}

	m := &model.BloodSugar{
		PatientID:  req.PatientID,
		DoctorID:   authorOf(doctorID),
		Value:      req.Value,
		RecordedAt: req.RecordedAt,
	}
	if err := s.measurements.InsertBloodSugar(ctx, m); err != nil {
		return nil, err
	}
	s.metrics.MeasurementsRecorded.WithLabelValues(KindBloodSugar).Inc()
	s.publishRecorded(ctx, KindBloodSugar, m.PatientID, m.RecordedAt)
	return m, nil
}

// ListBloodPressure returns every cardiovascular reading for a patient, newest
// first. An empty series is reported as an absence, not an empty list.
func (s *Service) ListBloodPressure(ctx context.Context, patientID string) ([]*model.BloodPressure, error) {
	readings, err := s.measurements.ListBloodPressure(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(readings) == 0 {
		return nil, apperrors.NoRecords(patientID)
	}
	return readings, nil
}

// ListBloodSugar returns every glucose reading for a patient, newest first.
func (s *Service) ListBloodSugar(ctx context.Context, patientID string) ([]*model.BloodSugar, error) {
	readings, err := s.measurements.ListBloodSugar(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(readings) == 0 {
		return nil, apperrors.NoRecords(patientID)
	}
	return readings, nil
}

// UpdateBloodPressure merges a patch into the reading identified by
// (patient, recorded_at); absent fields keep their stored values.
func (s *Service) UpdateBloodPressure(ctx context.Context, patientID string, at time.Time, patch *model.BloodPressurePatch) (*model.BloodPressure, error) {
	m, err := s.measurements.GetBloodPressure(ctx, patientID, at)
	if err != nil {
		return nil, err
	}
	m.Systolic = patch.Systolic.Apply(m.Systolic)
	m.Diastolic = patch.Diastolic.Apply(m.Diastolic)
	m.HeartRate = patch.HeartRate.Apply(m.HeartRate)
	if err := s.measurements.UpdateBloodPressure(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// UpdateBloodSugar merges a patch into the identified glucose reading.
func (s *Service) UpdateBloodSugar(ctx context.Context, patientID string, at time.Time, patch *model.BloodSugarPatch) (*model.BloodSugar, error) {
	m, err := s.measurements.GetBloodSugar(ctx, patientID, at)
	if err != nil {
		return nil, err
	}
	m.Value = patch.Value.Apply(m.Value)
	if err := s.measurements.UpdateBloodSugar(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteBloodPressure removes one reading when at is set, otherwise the whole
// series. Deleting nothing is an error.
func (s *Service) DeleteBloodPressure(ctx context.Context, patientID string, at *time.Time) error {
	deleted, err := s.measurements.DeleteBloodPressure(ctx, patientID, at)
	if err != nil {
		return apperrors.Internal(err)
	}
	if deleted == 0 {
		return apperrors.NotFound("no blood pressure records to delete", nil)
	}
	return nil
}

// DeleteBloodSugar mirrors DeleteBloodPressure for glucose readings.
func (s *Service) DeleteBloodSugar(ctx context.Context, patientID string, at *time.Time) error {
	deleted, err := s.measurements.DeleteBloodSugar(ctx, patientID, at)
	if err != nil {
		return apperrors.Internal(err)
	}
	if deleted == 0 {
		return apperrors.NotFound("no blood sugar records to delete", nil)
	}
	return nil
}

// authorOf maps the authenticated doctor id to the authoring reference.
// Self-recorded readings carry no author.
func authorOf(doctorID string) *string {
	if doctorID == "" {
		return nil
	}
	return &doctorID
}

func (s *Service) publishRecorded(ctx context.Context, kind, patientID string, at time.Time) {
	payload, err := json.Marshal(map[string]any{
		"kind":        kind,
		"patient_id":  patientID,
		"recorded_at": at,
	})
	if err != nil {
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.EventMeasurementRecorded,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID).Msg("failed to enqueue measurement event")
	}
}
