package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/pkg/auth"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

type fakeDoctors struct {
	byID map[string]*model.Doctor
}

func (f *fakeDoctors) Create(ctx context.Context, d *model.Doctor) error { return nil }

func (f *fakeDoctors) Get(ctx context.Context, id string) (*model.Doctor, error) {
	if d, ok := f.byID[id]; ok {
		return d, nil
	}
	return nil, apperrors.NotFound("doctor not found", nil)
}

func (f *fakeDoctors) Update(ctx context.Context, d *model.Doctor) error             { return nil }
func (f *fakeDoctors) Delete(ctx context.Context, id string) error                   { return nil }
func (f *fakeDoctors) SetPortrait(ctx context.Context, id, portrait string) error    { return nil }
func (f *fakeDoctors) MarkVerified(ctx context.Context, doctorID string) error       { return nil }
func (f *fakeDoctors) UpsertVerification(ctx context.Context, v *model.EmailVerification) error {
	return nil
}
func (f *fakeDoctors) GetVerification(ctx context.Context, doctorID string) (*model.EmailVerification, error) {
	return nil, apperrors.NotFound("verification not found", nil)
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
	return nil, nil
}
func (f *fakePatients) GetOrCreateAddress(ctx context.Context, content string) (int64, error) {
	return 0, nil
}
func (f *fakePatients) GetAddress(ctx context.Context, id int64) (string, error) { return "", nil }

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (fakeHasher) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return apperrors.Unauthorized("", nil)
	}
	return nil
}

func newTestService() (*Service, auth.JWTService) {
	doctors := &fakeDoctors{byID: map[string]*model.Doctor{
		"d1": {ID: "d1", PasswordHash: "hashed:doctorpass"},
	}}
	patients := &fakePatients{byID: map[string]*model.Patient{
		"p1": {ID: "p1", PasswordHash: "hashed:patientpass"},
	}}
	jwtSvc := auth.NewJWTService("test-secret", time.Minute)
	return NewService(doctors, patients, jwtSvc, fakeHasher{}), jwtSvc
}

func TestLoginDoctorScopes(t *testing.T) {
	svc, jwtSvc := newTestService()

	resp, err := svc.Login(context.Background(), "d1", "doctorpass")
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)

	claims, err := jwtSvc.Validate(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "d1", claims.Subject)
	assert.True(t, claims.HasScope(model.ScopeDoctor))
	assert.True(t, claims.HasScope(model.ScopePatient))
}

func TestLoginPatientScopes(t *testing.T) {
	svc, jwtSvc := newTestService()

	resp, err := svc.Login(context.Background(), "p1", "patientpass")
	require.NoError(t, err)

	claims, err := jwtSvc.Validate(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "p1", claims.Subject)
	assert.False(t, claims.HasScope(model.ScopeDoctor))
	assert.True(t, claims.HasScope(model.ScopePatient))
}

func TestLoginBadCredentials(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Login(context.Background(), "d1", "wrong")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	_, err = svc.Login(context.Background(), "nobody", "whatever")
	require.Error(t, err)
}

func TestValidateToken(t *testing.T) {
	svc, jwtSvc := newTestService()

	token, err := jwtSvc.Generate("d1", []string{model.ScopeDoctor})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "d1", claims.Subject)

	_, err = svc.ValidateToken(context.Background(), "garbage")
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}
