package auth

import (
	"context"
	"errors"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	"github.com/biodash/vitals-api/pkg/auth"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
	"github.com/biodash/vitals-api/pkg/security"
)

var errInvalidCredentials = errors.New("incorrect username or password")

// Service authenticates subjects and issues bearer tokens. Doctors resolve
// first and receive both scopes; a patient token only ever carries the
// patient scope.
type Service struct {
	doctors  repository.DoctorRepository
	patients repository.PatientRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
}

func NewService(doctors repository.DoctorRepository, patients repository.PatientRepository,
	jwtSvc auth.JWTService, hasher security.PasswordHasher) *Service {
	return &Service{
		doctors:  doctors,
		patients: patients,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
	}
}

// Login verifies credentials and returns a signed access token.
func (s *Service) Login(ctx context.Context, username, password string) (*model.TokenResponse, error) {
	subject, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, apperrors.BadRequest("incorrect username or password", err)
	}

	token, err := s.jwtSvc.Generate(subject.ID, subject.Scopes)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	return &model.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	}, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *Service) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.Validate(token)
	if err != nil {
		return nil, apperrors.Unauthorized("could not validate credentials", err)
	}
	return claims, nil
}

func (s *Service) authenticate(ctx context.Context, username, password string) (*model.AuthSubject, error) {
	if doctor, err := s.doctors.Get(ctx, username); err == nil {
		if err := s.hasher.Compare(doctor.PasswordHash, password); err != nil {
			return nil, errInvalidCredentials
		}
		return &model.AuthSubject{
			ID:     doctor.ID,
			Kind:   model.SubjectDoctor,
			Scopes: []string{model.ScopeDoctor, model.ScopePatient},
		}, nil
	}

	patient, err := s.patients.Get(ctx, username)
	if err != nil {
		return nil, errInvalidCredentials
	}
	if err := s.hasher.Compare(patient.PasswordHash, password); err != nil {
		return nil, errInvalidCredentials
	}
	return &model.AuthSubject{
		ID:     patient.ID,
		Kind:   model.SubjectPatient,
		Scopes: []string{model.ScopePatient},
	}, nil
}
