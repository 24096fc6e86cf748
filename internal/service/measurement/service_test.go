package measurement

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
	var kept []*model.BloodPressure
	var deleted int64
	for _, m := range f.pressure {
		if m.PatientID == patientID && (at == nil || m.RecordedAt.Equal(*at)) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.pressure = kept
	return deleted, nil
}

func (f *fakeMeasurements) ScanBloodPressure(ctx context.Context, th model.CardioThresholds, since time.Time) ([]*model.BloodPressure, error) {
	return nil, nil
}

func (f *fakeMeasurements) ScanBloodSugar(ctx context.Context, threshold float64, since time.Time) ([]*model.BloodSugar, error) {
	return nil, nil
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

func (f *fakeMeasurements) DeleteAllForPatient(ctx context.Context, patientID string) error {
	f.pressure = nil
	f.sugar = nil
	return nil
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

var testMetrics = metrics.NewMetrics("test", "measurement")

func newTestService() (*Service, *fakeMeasurements, *fakeOutbox) {
	meas := &fakeMeasurements{}
	outbox := &fakeOutbox{}
	logger := zerolog.Nop()
	return NewService(meas, outbox, testMetrics, &logger), meas, outbox
}

func TestAddBloodPressure(t *testing.T) {
	svc, meas, outbox := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	m, err := svc.AddBloodPressure(context.Background(), "d1", &model.AddBloodPressureRequest{
		PatientID:  "p1",
		Systolic:   120,
		Diastolic:  80,
		HeartRate:  72,
		RecordedAt: at,
	})
	require.NoError(t, err)
	require.NotNil(t, m.DoctorID)
	assert.Equal(t, "d1", *m.DoctorID)
	assert.Len(t, meas.pressure, 1)

	require.Len(t, outbox.events, 1)
	assert.Equal(t, model.EventMeasurementRecorded, outbox.events[0].EventType)
}

func TestAddBloodPressureSelfRecorded(t *testing.T) {
	svc, _, _ := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	m, err := svc.AddBloodPressure(context.Background(), "", &model.AddBloodPressureRequest{
		PatientID:  "p1",
		Systolic:   120,
		Diastolic:  80,
		RecordedAt: at,
	})
	require.NoError(t, err)
	assert.Nil(t, m.DoctorID)
}

func TestAddBloodPressureDuplicateTimestamp(t *testing.T) {
	svc, _, _ := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	req := &model.AddBloodPressureRequest{
		PatientID: "p1", Systolic: 120, Diastolic: 80, RecordedAt: at,
	}

	_, err := svc.AddBloodPressure(context.Background(), "d1", req)
	require.NoError(t, err)

	_, err = svc.AddBloodPressure(context.Background(), "d1", req)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestListBloodPressureEmpty(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ListBloodPressure(context.Background(), "p1")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNoRecords, appErr.Code)
	assert.Contains(t, appErr.Message, "p1")
}

func TestUpdateBloodPressureMergesPatch(t *testing.T) {
	svc, meas, _ := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas.pressure = append(meas.pressure, &model.BloodPressure{
		PatientID: "p1", Systolic: 120, Diastolic: 80, HeartRate: 72, RecordedAt: at,
	})

	patch := &model.BloodPressurePatch{Systolic: model.NewField(135)}
	m, err := svc.UpdateBloodPressure(context.Background(), "p1", at, patch)
	require.NoError(t, err)

	assert.Equal(t, 135, m.Systolic)
	assert.Equal(t, 80, m.Diastolic)
	assert.Equal(t, 72, m.HeartRate)
}

func TestUpdateBloodSugarUnknownTimestamp(t *testing.T) {
	svc, _, _ := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	_, err := svc.UpdateBloodSugar(context.Background(), "p1", at, &model.BloodSugarPatch{})
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestDeleteBloodPressure(t *testing.T) {
	svc, meas, _ := newTestService()
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas.pressure = append(meas.pressure,
		&model.BloodPressure{PatientID: "p1", RecordedAt: at},
		&model.BloodPressure{PatientID: "p1", RecordedAt: at.Add(time.Hour)},
	)

	require.NoError(t, svc.DeleteBloodPressure(context.Background(), "p1", &at))
	assert.Len(t, meas.pressure, 1)

	require.NoError(t, svc.DeleteBloodPressure(context.Background(), "p1", nil))
	assert.Empty(t, meas.pressure)

	err := svc.DeleteBloodPressure(context.Background(), "p1", nil)
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}
