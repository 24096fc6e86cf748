package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodash/vitals-api/internal/model"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
	"github.com/biodash/vitals-api/pkg/metrics"
)

type fakeMeasurements struct {
	pressure []*model.BloodPressure
	sugar    []*model.BloodSugar
}

func (f *fakeMeasurements) InsertBloodPressure(ctx context.Context, m *model.BloodPressure) error {
	f.pressure = append(f.pressure, m)
	return nil
}

func (f *fakeMeasurements) GetBloodPressure(ctx context.Context, patientID string, at time.Time) (*model.BloodPressure, error) {
	for _, m := range f.pressure {
		if m.PatientID == patientID && m.RecordedAt.Equal(at) {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("record not found", nil)
}

func (f *fakeMeasurements) ListBloodPressure(ctx context.Context, patientID string) ([]*model.BloodPressure, error) {
	var out []*model.BloodPressure
	for _, m := range f.pressure {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeasurements) UpdateBloodPressure(ctx context.Context, m *model.BloodPressure) error {
	return nil
}

func (f *fakeMeasurements) DeleteBloodPressure(ctx context.Context, patientID string, at *time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeMeasurements) ScanBloodPressure(ctx context.Context, th model.CardioThresholds, since time.Time) ([]*model.BloodPressure, error) {
	var out []*model.BloodPressure
	for _, m := range f.pressure {
		if m.RecordedAt.Before(since) {
			continue
		}
		if m.Systolic >= th.Systolic || m.Diastolic >= th.Diastolic || m.HeartRate >= th.HeartRate {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeasurements) InsertBloodSugar(ctx context.Context, m *model.BloodSugar) error {
	f.sugar = append(f.sugar, m)
	return nil
}

func (f *fakeMeasurements) GetBloodSugar(ctx context.Context, patientID string, at time.Time) (*model.BloodSugar, error) {
	for _, m := range f.sugar {
		if m.PatientID == patientID && m.RecordedAt.Equal(at) {
			return m, nil
		}
	}
	return nil, apperrors.NotFound("record not found", nil)
}

func (f *fakeMeasurements) ListBloodSugar(ctx context.Context, patientID string) ([]*model.BloodSugar, error) {
	var out []*model.BloodSugar
	for _, m := range f.sugar {
		if m.PatientID == patientID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeasurements) UpdateBloodSugar(ctx context.Context, m *model.BloodSugar) error {
	return nil
}

func (f *fakeMeasurements) DeleteBloodSugar(ctx context.Context, patientID string, at *time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeMeasurements) ScanBloodSugar(ctx context.Context, threshold float64, since time.Time) ([]*model.BloodSugar, error) {
	var out []*model.BloodSugar
	for _, m := range f.sugar {
		if !m.RecordedAt.Before(since) && m.Value >= threshold {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMeasurements) DeleteAllForPatient(ctx context.Context, patientID string) error {
	return nil
}

type fakePatients struct {
	byID map[string]*model.Patient
}

func (f *fakePatients) Create(ctx context.Context, p *model.Patient) error { return nil }

func (f *fakePatients) Get(ctx context.Context, id string) (*model.Patient, error) {
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, apperrors.NotFound("patient not found", nil)
}

func (f *fakePatients) Update(ctx context.Context, p *model.Patient) error { return nil }
func (f *fakePatients) Delete(ctx context.Context, id string) error        { return nil }

func (f *fakePatients) ListForDoctor(ctx context.Context, doctorID string, q *model.PatientQuery) ([]*model.Patient, int, error) {
	return nil, 0, nil
}

func (f *fakePatients) GetNames(ctx context.Context, ids []string) (map[string]*model.Patient, error) {
	out := make(map[string]*model.Patient)
	for _, id := range ids {
		if p, ok := f.byID[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakePatients) GetOrCreateAddress(ctx context.Context, content string) (int64, error) {
	return 0, nil
}

func (f *fakePatients) GetAddress(ctx context.Context, id int64) (string, error) { return "", nil }

type fakeRoster struct {
	links map[string][]string // doctorID -> patientIDs
}

func (f *fakeRoster) Link(ctx context.Context, doctorID, patientID string) error {
	f.links[doctorID] = append(f.links[doctorID], patientID)
	return nil
}

func (f *fakeRoster) Unlink(ctx context.Context, doctorID, patientID string) error { return nil }

func (f *fakeRoster) Linked(ctx context.Context, doctorID, patientID string) (bool, error) {
	for _, id := range f.links[doctorID] {
		if id == patientID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoster) CountLinks(ctx context.Context, patientID string) (int, error) {
	count := 0
	for _, ids := range f.links {
		for _, id := range ids {
			if id == patientID {
				count++
			}
		}
	}
	return count, nil
}

func (f *fakeRoster) PatientsOf(ctx context.Context, doctorID string) ([]string, error) {
	return f.links[doctorID], nil
}

type fakeOutbox struct {
	events []*model.OutboxEvent
}

func (f *fakeOutbox) Create(ctx context.Context, event *model.OutboxEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return f.events, nil
}

func (f *fakeOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error { return nil }

func (f *fakeOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

var testMetrics = metrics.NewMetrics("test", "analysis")

func newTestService(m *fakeMeasurements, p *fakePatients, r *fakeRoster, o *fakeOutbox) *Service {
	logger := zerolog.Nop()
	svc := NewService(m, p, r, o, testMetrics, &logger)
	svc.now = func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCardioReport(t *testing.T) {
	base := time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{}
	for i, systolic := range []int{110, 130, 140} {
		meas.pressure = append(meas.pressure, &model.BloodPressure{
			PatientID:  "p1",
			Systolic:   systolic,
			Diastolic:  70 + i*10,
			HeartRate:  60 + i*5,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	svc := newTestService(meas, &fakePatients{}, &fakeRoster{links: map[string][]string{}}, &fakeOutbox{})
	report, err := svc.CardioReport(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, 110.0, report.Systolic.Minimum)
	assert.Equal(t, 140.0, report.Systolic.Maximum)
	assert.InDelta(t, 126.67, report.Systolic.Mean, 0.01)
	assert.Equal(t, 70.0, report.Diastolic.Minimum)
	assert.Equal(t, 90.0, report.Diastolic.Maximum)
	assert.LessOrEqual(t, report.HeartRate.Minimum, report.HeartRate.Mean)
	assert.LessOrEqual(t, report.HeartRate.Mean, report.HeartRate.Maximum)
}

func TestCardioReportNoRecords(t *testing.T) {
	svc := newTestService(&fakeMeasurements{}, &fakePatients{}, &fakeRoster{links: map[string][]string{}}, &fakeOutbox{})

	_, err := svc.CardioReport(context.Background(), "absent")
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNoRecords, appErr.Code)
	assert.Contains(t, appErr.Message, "absent")
}

func TestSugarReport(t *testing.T) {
	base := time.Date(2024, 5, 9, 8, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{}
	for i, v := range []float64{90, 110, 205} {
		meas.sugar = append(meas.sugar, &model.BloodSugar{
			PatientID:  "p1",
			Value:      v,
			RecordedAt: base.Add(time.Duration(i) * time.Hour),
		})
	}

	svc := newTestService(meas, &fakePatients{}, &fakeRoster{links: map[string][]string{}}, &fakeOutbox{})
	report, err := svc.SugarReport(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, 90.0, report.Value.Minimum)
	assert.Equal(t, 205.0, report.Value.Maximum)
	assert.InDelta(t, 135.0, report.Value.Mean, 0.01)
}

func TestScanCardioWarnings(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	old := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p1", Systolic: 140, Diastolic: 85, HeartRate: 70, RecordedAt: recent},
		{PatientID: "p1", Systolic: 110, Diastolic: 70, HeartRate: 65, RecordedAt: recent.Add(-time.Hour)},
		{PatientID: "p1", Systolic: 150, Diastolic: 95, HeartRate: 88, RecordedAt: old},
		{PatientID: "p2", Systolic: 160, Diastolic: 100, HeartRate: 90, RecordedAt: recent},
	}}
	patients := &fakePatients{byID: map[string]*model.Patient{
		"p1": {ID: "p1", FirstName: "Maria", LastName: "Santos"},
		"p2": {ID: "p2", FirstName: "Pedro"},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"p1"}}}
	outbox := &fakeOutbox{}

	svc := newTestService(meas, patients, roster, outbox)
	th := model.CardioThresholds{Systolic: 135, Diastolic: 1000, HeartRate: 1000}
	warnings, err := svc.ScanCardioWarnings(context.Background(), "d1", th, model.DefaultWindow())
	require.NoError(t, err)

	// The old reading falls outside the window and p2 is not on d1's roster.
	require.Len(t, warnings, 1)
	assert.Equal(t, "p1", warnings[0].PatientID)
	assert.Equal(t, "Maria", warnings[0].FirstName)
	assert.Equal(t, "Santos", warnings[0].LastName)
	assert.Equal(t, 140, warnings[0].Systolic)

	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventWarningDetected, outbox.events[0].EventType)
}

func TestScanCardioWarningsAllNormal(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p1", Systolic: 110, Diastolic: 70, HeartRate: 65, RecordedAt: recent},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"p1"}}}
	outbox := &fakeOutbox{}

	svc := newTestService(meas, &fakePatients{byID: map[string]*model.Patient{}}, roster, outbox)
	warnings, err := svc.ScanCardioWarnings(context.Background(), "d1", model.DefaultCardioThresholds(), model.DefaultWindow())
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, outbox.events)
}

func TestScanCardioWarningsOrphanMeasurement(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "ghost", Systolic: 200, Diastolic: 120, HeartRate: 110, RecordedAt: recent},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"ghost"}}}

	svc := newTestService(meas, &fakePatients{byID: map[string]*model.Patient{}}, roster, &fakeOutbox{})
	_, err := svc.ScanCardioWarnings(context.Background(), "d1", model.DefaultCardioThresholds(), model.DefaultWindow())
	require.Error(t, err)

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrOrphanMeasurement, appErr.Code)
}

func TestScanCardioWarningsOffRosterOrphanIgnored(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p1", Systolic: 140, Diastolic: 85, HeartRate: 70, RecordedAt: recent},
		// A dangling reading off the caller's roster never surfaces.
		{PatientID: "ghost", Systolic: 200, Diastolic: 120, HeartRate: 110, RecordedAt: recent},
	}}
	patients := &fakePatients{byID: map[string]*model.Patient{
		"p1": {ID: "p1", FirstName: "Maria"},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"p1"}}}

	svc := newTestService(meas, patients, roster, &fakeOutbox{})
	warnings, err := svc.ScanCardioWarnings(context.Background(), "d1", model.DefaultCardioThresholds(), model.DefaultWindow())
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, "p1", warnings[0].PatientID)
}

func TestScanCardioWarningsZeroWindow(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p1", Systolic: 200, Diastolic: 120, HeartRate: 110, RecordedAt: recent},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"p1"}}}
	outbox := &fakeOutbox{}

	svc := newTestService(meas, &fakePatients{byID: map[string]*model.Patient{}}, roster, outbox)
	warnings, err := svc.ScanCardioWarnings(context.Background(), "d1", model.DefaultCardioThresholds(), model.Window{})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Empty(t, outbox.events)
}

func TestScanSugarWarnings(t *testing.T) {
	recent := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{sugar: []*model.BloodSugar{
		{PatientID: "p1", Value: 210, RecordedAt: recent},
		{PatientID: "p1", Value: 95, RecordedAt: recent.Add(-time.Hour)},
	}}
	patients := &fakePatients{byID: map[string]*model.Patient{
		"p1": {ID: "p1", FirstName: "Maria"},
	}}
	roster := &fakeRoster{links: map[string][]string{"d1": {"p1"}}}

	svc := newTestService(meas, patients, roster, &fakeOutbox{})
	warnings, err := svc.ScanSugarWarnings(context.Background(), "d1", model.DefaultSugarThreshold, model.DefaultWindow())
	require.NoError(t, err)

	require.Len(t, warnings, 1)
	assert.Equal(t, 210.0, warnings[0].Value)
	assert.Equal(t, "Maria", warnings[0].FirstName)
}
