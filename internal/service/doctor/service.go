package doctor

import (
	"context"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/biodash/vitals-api/internal/email"
	"github.com/biodash/vitals-api/internal/filestore"
	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	"github.com/biodash/vitals-api/internal/service/patient"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
	"github.com/biodash/vitals-api/pkg/security"
)

// Service manages doctor accounts: registration, profile updates, email
// verification and portrait uploads.
type Service struct {
	doctors    repository.DoctorRepository
	patientSvc *patient.Service
	hasher     security.PasswordHasher
	mailer     email.Sender
	photos     *filestore.Store
	logger     *zerolog.Logger
}

func NewService(doctors repository.DoctorRepository, patientSvc *patient.Service,
	hasher security.PasswordHasher, mailer email.Sender, photos *filestore.Store,
	logger *zerolog.Logger) *Service {
	return &Service{
		doctors:    doctors,
		patientSvc: patientSvc,
		hasher:     hasher,
		mailer:     mailer,
		photos:     photos,
		logger:     logger,
	}
}

// Register creates a doctor account. When an email address accompanies the
// registration a verification code is issued and mailed best-effort.
func (s *Service) Register(ctx context.Context, req *model.RegisterDoctorRequest) (*model.DoctorOut, error) {
	if _, err := s.doctors.Get(ctx, req.ID); err == nil {
		return nil, apperrors.Conflict("doctor already exists", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	doctor := &model.Doctor{
		ID:           req.ID,
		FirstName:    req.FirstName,
		SecondName:   req.SecondName,
		LastName:     req.LastName,
		Specialty:    req.Specialty,
		PasswordHash: hash,
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, err
	}

	out := outOf(doctor, nil)
	if req.Email != "" {
		v, err := s.issueVerification(ctx, doctor, req.Email)
		if err != nil {
			return nil, err
		}
		out.Email = v.Address
	}
	return out, nil
}

// Get returns a doctor's own profile with the email verification state.
func (s *Service) Get(ctx context.Context, doctorID string) (*model.DoctorOut, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	v, err := s.doctors.GetVerification(ctx, doctorID)
	if err != nil {
		if appErr, ok := apperrors.As(err); !ok || appErr.Code != apperrors.ErrNotFound {
			return nil, err
		}
		v = nil
	}
	return outOf(doctor, v), nil
}

// Update applies a three-state patch to the doctor's profile. Changing the
// email address resets verification and issues a fresh code.
func (s *Service) Update(ctx context.Context, doctorID string, patch *model.DoctorPatch) (*model.DoctorOut, error) {
	if patch.FirstName.Null() || patch.LastName.Null() || patch.Password.Null() {
		return nil, apperrors.Validation("identity and password fields may not be cleared", nil)
	}

	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	doctor.FirstName = patch.FirstName.Apply(doctor.FirstName)
	doctor.SecondName = patch.SecondName.Apply(doctor.SecondName)
	doctor.LastName = patch.LastName.Apply(doctor.LastName)
	doctor.Specialty = patch.Specialty.Apply(doctor.Specialty)

	if password, ok := patch.Password.Value(); ok {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		doctor.PasswordHash = hash
	}

	if err := s.doctors.Update(ctx, doctor); err != nil {
		return nil, err
	}

	var v *model.EmailVerification
	if patch.Email.Present() {
		if address, ok := patch.Email.Value(); ok {
			v, err = s.issueVerification(ctx, doctor, address)
			if err != nil {
				return nil, err
			}
		} else {
			return nil, apperrors.Validation("email may not be cleared; upload a new address instead", nil)
		}
	} else {
		v, _ = s.currentVerification(ctx, doctorID)
	}
	return outOf(doctor, v), nil
}

// Delete removes the doctor account. Roster links go first so orphaned
// patients cascade through the same path as an explicit unlink.
func (s *Service) Delete(ctx context.Context, doctorID string) error {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return err
	}
	if err := s.patientSvc.UnlinkAll(ctx, doctorID); err != nil {
		return err
	}
	return s.doctors.Delete(ctx, doctorID)
}

// Verify checks a submitted code against the pending verification record.
func (s *Service) Verify(ctx context.Context, doctorID string, code int) error {
	v, err := s.doctors.GetVerification(ctx, doctorID)
	if err != nil {
		return err
	}
	if v.Verified {
		return apperrors.Conflict("email already verified", nil)
	}
	if v.Code != code {
		return apperrors.BadRequest("wrong verification code", nil)
	}
	return s.doctors.MarkVerified(ctx, doctorID)
}

// ResendCode issues a fresh code for the doctor's pending email address.
func (s *Service) ResendCode(ctx context.Context, doctorID string) error {
	v, err := s.doctors.GetVerification(ctx, doctorID)
	if err != nil {
		return err
	}
	if v.Verified {
		return apperrors.Conflict("email already verified", nil)
	}
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return err
	}
	_, err = s.issueVerification(ctx, doctor, v.Address)
	return err
}

// SetPortrait stores the uploaded photo and schedules thumbnail generation.
// The profile references the thumbnail name immediately; generation failures
// are logged, not surfaced.
func (s *Service) SetPortrait(ctx context.Context, doctorID, filename string, data []byte) error {
	if _, err := s.doctors.Get(ctx, doctorID); err != nil {
		return err
	}
	saved, err := s.photos.Save(doctorID+"_"+filename, data)
	if err != nil {
		return apperrors.Internal(err)
	}

	portrait := doctorID + ".png"
	if err := s.doctors.SetPortrait(ctx, doctorID, portrait); err != nil {
		return err
	}

	go func() {
		if err := s.photos.Thumbnail(doctorID+"_"+filename, doctorID); err != nil {
			s.logger.Error().Err(err).Str("doctor_id", doctorID).Str("path", saved).
				Msg("failed to generate portrait thumbnail")
		}
	}()
	return nil
}

// PortraitPath resolves the on-disk portrait location for serving.
func (s *Service) PortraitPath(ctx context.Context, doctorID string) (string, error) {
	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return "", err
	}
	if doctor.Portrait == "" {
		return "", apperrors.NotFound("this doctor has no portrait", nil)
	}
	return s.photos.Path(doctor.Portrait), nil
}

func (s *Service) issueVerification(ctx context.Context, doctor *model.Doctor, address string) (*model.EmailVerification, error) {
	v := &model.EmailVerification{
		DoctorID: doctor.ID,
		Address:  address,
		Code:     generateCode(),
	}
	if err := s.doctors.UpsertVerification(ctx, v); err != nil {
		return nil, err
	}
	if err := s.mailer.SendVerificationCode(ctx, doctor.FirstName, address, v.Code); err != nil {
		s.logger.Warn().Err(err).Str("doctor_id", doctor.ID).Msg("failed to send verification email")
	}
	return v, nil
}

func (s *Service) currentVerification(ctx context.Context, doctorID string) (*model.EmailVerification, error) {
	v, err := s.doctors.GetVerification(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func outOf(d *model.Doctor, v *model.EmailVerification) *model.DoctorOut {
	out := &model.DoctorOut{
		ID:         d.ID,
		FirstName:  d.FirstName,
		SecondName: d.SecondName,
		LastName:   d.LastName,
		Specialty:  d.Specialty,
		Portrait:   d.Portrait,
	}
	if v != nil {
		out.Email = v.Address
		out.EmailVerified = v.Verified
	}
	return out
}

// generateCode returns a 5-digit verification code.
func generateCode() int {
	return 10_000 + rand.Intn(90_000)
}
