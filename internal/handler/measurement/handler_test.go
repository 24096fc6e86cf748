package measurement

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodash/vitals-api/internal/middleware"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/service/access"
	measurementsvc "github.com/biodash/vitals-api/internal/service/measurement"
	"github.com/biodash/vitals-api/pkg/auth"
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
	var kept []*model.BloodSugar
	var deleted int64
	for _, m := range f.sugar {
		if m.PatientID == patientID && (at == nil || m.RecordedAt.Equal(*at)) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	f.sugar = kept
	return deleted, nil
}

func (f *fakeMeasurements) DeleteAllForPatient(ctx context.Context, patientID string) error {
	return nil
}

type fakeOutbox struct{}

func (f *fakeOutbox) Create(ctx context.Context, event *model.OutboxEvent) error { return nil }

func (f *fakeOutbox) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkProcessed(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error { return nil }

func (f *fakeOutbox) DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type stubRoster struct{}

func (s *stubRoster) Link(ctx context.Context, doctorID, patientID string) error   { return nil }
func (s *stubRoster) Unlink(ctx context.Context, doctorID, patientID string) error { return nil }

func (s *stubRoster) Linked(ctx context.Context, doctorID, patientID string) (bool, error) {
	return false, nil
}

func (s *stubRoster) CountLinks(ctx context.Context, patientID string) (int, error) { return 0, nil }

func (s *stubRoster) PatientsOf(ctx context.Context, doctorID string) ([]string, error) {
	return nil, nil
}

var testMetrics = metrics.NewMetrics("test", "measurement_handler")

// selfEngine mounts the patient-scoped routes behind pre-validated claims.
func selfEngine(t *testing.T, meas *fakeMeasurements, claims *auth.Claims) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zerolog.Nop()
	svc := measurementsvc.NewService(meas, &fakeOutbox{}, testMetrics, &logger)
	h := NewHandler(svc, access.NewService(&stubRoster{}))

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		middleware.SetClaims(c, claims)
		c.Next()
	})
	h.RegisterSelfRoutes(engine.Group(""))
	return engine
}

func patientClaims(subject string) *auth.Claims {
	return &auth.Claims{
		Scopes:           []string{model.ScopePatient},
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	}
}

func serve(engine *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestUpdateOwnBloodPressure(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p1", Systolic: 120, Diastolic: 80, HeartRate: 72, RecordedAt: at},
	}}
	engine := selfEngine(t, meas, patientClaims("p1"))

	w := serve(engine, "PATCH", "/patient/blood_pressure?recorded_at=2024-05-10T09:00:00Z",
		`{"systolic":135}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 135, meas.pressure[0].Systolic)
	assert.Equal(t, 80, meas.pressure[0].Diastolic)
}

func TestUpdateOwnBloodPressureAddressesOwnSeriesOnly(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{pressure: []*model.BloodPressure{
		{PatientID: "p2", Systolic: 120, Diastolic: 80, RecordedAt: at},
	}}
	engine := selfEngine(t, meas, patientClaims("p1"))

	w := serve(engine, "PATCH", "/patient/blood_pressure?recorded_at=2024-05-10T09:00:00Z",
		`{"systolic":135}`)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 120, meas.pressure[0].Systolic)
}

func TestDeleteOwnBloodSugar(t *testing.T) {
	at := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	meas := &fakeMeasurements{sugar: []*model.BloodSugar{
		{PatientID: "p1", Value: 95, RecordedAt: at},
		{PatientID: "p1", Value: 110, RecordedAt: at.Add(time.Hour)},
	}}
	engine := selfEngine(t, meas, patientClaims("p1"))

	w := serve(engine, "DELETE", "/patient/blood_sugar?recorded_at=2024-05-10T09:00:00Z", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, meas.sugar, 1)

	w = serve(engine, "DELETE", "/patient/blood_sugar", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, meas.sugar)

	w = serve(engine, "DELETE", "/patient/blood_sugar", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOwnBloodSugarRequiresPatientScope(t *testing.T) {
	meas := &fakeMeasurements{}
	claims := &auth.Claims{
		Scopes:           []string{model.ScopeDoctor},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "d1"},
	}
	engine := selfEngine(t, meas, claims)

	w := serve(engine, "PATCH", "/patient/blood_sugar?recorded_at=2024-05-10T09:00:00Z",
		`{"value":140}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
