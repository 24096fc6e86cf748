package access

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	"github.com/biodash/vitals-api/pkg/auth"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
)

const (
	linkCacheTTL     = 30 * time.Second
	linkCacheCleanup = time.Minute
)

// Service decides whether an authenticated subject may act on a target
// patient. Scope violations are Unauthorized; a doctor addressing a patient
// outside their roster gets NotFound, never Forbidden, so patient existence
// does not leak across offices.
type Service struct {
	roster repository.RosterRepository
	links  *gocache.Cache
}

func NewService(roster repository.RosterRepository) *Service {
	return &Service{
		roster: roster,
		links:  gocache.New(linkCacheTTL, linkCacheCleanup),
	}
}

// RequireScope verifies the token grants the scope an endpoint declares.
func (s *Service) RequireScope(claims *auth.Claims, scope string) error {
	if claims == nil {
		return apperrors.Unauthorized("could not validate credentials", nil)
	}
	if !claims.HasScope(scope) {
		return apperrors.Unauthorized("not enough permissions", nil)
	}
	return nil
}

// AuthorizeDoctorForPatient verifies scope plus an existing roster link
// between the authenticated doctor and the target patient.
func (s *Service) AuthorizeDoctorForPatient(ctx context.Context, claims *auth.Claims, patientID string) error {
	if err := s.RequireScope(claims, model.ScopeDoctor); err != nil {
		return err
	}

	linked, err := s.linked(ctx, claims.Subject, patientID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !linked {
		return apperrors.NotFound("this patient is not registered", nil)
	}
	return nil
}

// AuthorizePatientSelf verifies scope and that the target is the subject's
// own record. A patient can never address another patient's id.
func (s *Service) AuthorizePatientSelf(claims *auth.Claims, patientID string) error {
	if err := s.RequireScope(claims, model.ScopePatient); err != nil {
		return err
	}
	if patientID != "" && patientID != claims.Subject {
		return apperrors.NotFound("this patient does not exist", nil)
	}
	return nil
}

// Invalidate drops a cached roster membership after a link or unlink.
func (s *Service) Invalidate(doctorID, patientID string) {
	s.links.Delete(linkKey(doctorID, patientID))
}

func (s *Service) linked(ctx context.Context, doctorID, patientID string) (bool, error) {
	key := linkKey(doctorID, patientID)
	if cached, ok := s.links.Get(key); ok {
		return cached.(bool), nil
	}

	linked, err := s.roster.Linked(ctx, doctorID, patientID)
	if err != nil {
		return false, err
	}
	// Only positive results are cached: a denial must re-check so a fresh
	// link takes effect immediately.
	if linked {
		s.links.Set(key, true, linkCacheTTL)
	}
	return linked, nil
}

func linkKey(doctorID, patientID string) string {
	return doctorID + "\x00" + patientID
}
