package analysis

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

// Service computes per-patient aggregation reports and roster-wide warning
// scans over recorded measurements.
type Service struct {
	measurements repository.MeasurementRepository
	patients     repository.PatientRepository
	roster       repository.RosterRepository
	outbox       repository.OutboxRepository
	metrics      *metrics.Metrics
	logger       *zerolog.Logger
	now          func() time.Time
}

func NewService(measurements repository.MeasurementRepository, patients repository.PatientRepository,
	roster repository.RosterRepository, outbox repository.OutboxRepository,
	m *metrics.Metrics, logger *zerolog.Logger) *Service {
	return &Service{
		measurements: measurements,
		patients:     patients,
		roster:       roster,
		outbox:       outbox,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// CardioReport aggregates every blood pressure reading of a patient into
// independent {minimum, maximum, mean} triples per field.
func (s *Service) CardioReport(ctx context.Context, patientID string) (*model.CardioReport, error) {
	readings, err := s.measurements.ListBloodPressure(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(readings) == 0 {
		return nil, apperrors.NoRecords(patientID)
	}

	systolic := make([]float64, len(readings))
	diastolic := make([]float64, len(readings))
	heartRate := make([]float64, len(readings))
	for i, r := range readings {
		systolic[i] = float64(r.Systolic)
		diastolic[i] = float64(r.Diastolic)
		heartRate[i] = float64(r.HeartRate)
	}

	s.metrics.AggregationsServed.WithLabelValues("blood_pressure").Inc()
	return &model.CardioReport{
		PatientID: patientID,
		Systolic:  statsOf(systolic),
		Diastolic: statsOf(diastolic),
		HeartRate: statsOf(heartRate),
	}, nil
}

// SugarReport aggregates every glucose reading of a patient.
func (s *Service) SugarReport(ctx context.Context, patientID string) (*model.SugarReport, error) {
	readings, err := s.measurements.ListBloodSugar(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(readings) == 0 {
		return nil, apperrors.NoRecords(patientID)
	}

	values := make([]float64, len(readings))
	for i, r := range readings {
		values[i] = r.Value
	}

	s.metrics.AggregationsServed.WithLabelValues("blood_sugar").Inc()
	return &model.SugarReport{PatientID: patientID, Value: statsOf(values)}, nil
}

// ScanCardioWarnings finds every recent blood pressure reading on the
// doctor's roster that meets or exceeds any threshold. An empty result means
// everything is normal.
func (s *Service) ScanCardioWarnings(ctx context.Context, doctorID string, th model.CardioThresholds, w model.Window) ([]*model.CardioWarning, error) {
	since := s.now().Add(-w.Duration())
	readings, err := s.measurements.ScanBloodPressure(ctx, th, since)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	flagged, names, err := s.restrictToRoster(ctx, doctorID, cardioPatientIDs(readings))
	if err != nil {
		return nil, err
	}

	warnings := make([]*model.CardioWarning, 0, len(readings))
	for _, r := range readings {
		if !flagged[r.PatientID] {
			continue
		}
		p, ok := names[r.PatientID]
		if !ok {
			return nil, apperrors.OrphanMeasurement(r.PatientID)
		}
		warnings = append(warnings, &model.CardioWarning{
			PatientID:  r.PatientID,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Systolic:   r.Systolic,
			Diastolic:  r.Diastolic,
			HeartRate:  r.HeartRate,
			RecordedAt: r.RecordedAt,
		})
	}
	s.recordWarnings(ctx, "blood_pressure", doctorID, len(warnings))
	return warnings, nil
}

// ScanSugarWarnings mirrors ScanCardioWarnings for glucose readings.
func (s *Service) ScanSugarWarnings(ctx context.Context, doctorID string, threshold float64, w model.Window) ([]*model.SugarWarning, error) {
	since := s.now().Add(-w.Duration())
	readings, err := s.measurements.ScanBloodSugar(ctx, threshold, since)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	flagged, names, err := s.restrictToRoster(ctx, doctorID, sugarPatientIDs(readings))
	if err != nil {
		return nil, err
	}

	warnings := make([]*model.SugarWarning, 0, len(readings))
	for _, r := range readings {
		if !flagged[r.PatientID] {
			continue
		}
		p, ok := names[r.PatientID]
		if !ok {
			return nil, apperrors.OrphanMeasurement(r.PatientID)
		}
		warnings = append(warnings, &model.SugarWarning{
			PatientID:  r.PatientID,
			FirstName:  p.FirstName,
			LastName:   p.LastName,
			Value:      r.Value,
			RecordedAt: r.RecordedAt,
		})
	}
	s.recordWarnings(ctx, "blood_sugar", doctorID, len(warnings))
	return warnings, nil
}

// restrictToRoster intersects scan hits with the doctor's roster and resolves
// patient names for the survivors.
func (s *Service) restrictToRoster(ctx context.Context, doctorID string, patientIDs []string) (map[string]bool, map[string]*model.Patient, error) {
	roster, err := s.roster.PatientsOf(ctx, doctorID)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	onRoster := make(map[string]bool, len(roster))
	for _, id := range roster {
		onRoster[id] = true
	}

	flagged := make(map[string]bool, len(patientIDs))
	keep := make([]string, 0, len(patientIDs))
	for _, id := range patientIDs {
		if onRoster[id] && !flagged[id] {
			flagged[id] = true
			keep = append(keep, id)
		}
	}
	if len(keep) == 0 {
		return flagged, nil, nil
	}

	names, err := s.patients.GetNames(ctx, keep)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}
	return flagged, names, nil
}

func (s *Service) recordWarnings(ctx context.Context, kind, doctorID string, count int) {
	if count == 0 {
		return
	}
	s.metrics.WarningsDetected.WithLabelValues(kind).Add(float64(count))

	payload, err := json.Marshal(map[string]any{
		"kind":      kind,
		"doctor_id": doctorID,
		"count":     count,
	})
	if err != nil {
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.EventWarningDetected,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctorID).Msg("failed to enqueue warning event")
	}
}

func cardioPatientIDs(readings []*model.BloodPressure) []string {
	ids := make([]string, len(readings))
	for i, r := range readings {
		ids[i] = r.PatientID
	}
	return ids
}

func sugarPatientIDs(readings []*model.BloodSugar) []string {
	ids := make([]string, len(readings))
	for i, r := range readings {
		ids[i] = r.PatientID
	}
	return ids
}

// statsOf reduces a non-empty series to its {minimum, maximum, mean} triple.
func statsOf(values []float64) model.Stats {
	min, max, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	return model.Stats{Minimum: min, Maximum: max, Mean: sum / float64(len(values))}
}
