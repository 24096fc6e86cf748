package patient

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/biodash/vitals-api/internal/model"
	"github.com/biodash/vitals-api/internal/repository"
	"github.com/biodash/vitals-api/internal/service/access"
	apperrors "github.com/biodash/vitals-api/pkg/errors"
	"github.com/biodash/vitals-api/pkg/security"
	"github.com/biodash/vitals-api/pkg/validator"
)

// CreateResult is the outcome of registering a patient: the generated initial
// password is returned exactly once, when the record is first created.
type CreateResult struct {
	PatientID string `json:"id"`
	Password  string `json:"password,omitempty"`
}

// Service owns the doctor-patient roster and the patient record lifecycle.
type Service struct {
	patients     repository.PatientRepository
	roster       repository.RosterRepository
	measurements repository.MeasurementRepository
	outbox       repository.OutboxRepository
	accessSvc    *access.Service
	hasher       security.PasswordHasher
	validate     *validator.Validator
	logger       *zerolog.Logger
}

func NewService(patients repository.PatientRepository, roster repository.RosterRepository,
	measurements repository.MeasurementRepository, outbox repository.OutboxRepository,
	accessSvc *access.Service, hasher security.PasswordHasher, logger *zerolog.Logger) *Service {
	return &Service{
		patients:     patients,
		roster:       roster,
		measurements: measurements,
		outbox:       outbox,
		accessSvc:    accessSvc,
		hasher:       hasher,
		validate:     validator.New(),
		logger:       logger,
	}
}

// Create registers a patient for a doctor. If the id already exists under
// another doctor only, the caller gets an informational attach prompt rather
// than a silent merge; passing confirmAttach repeats the call as a pure link.
func (s *Service) Create(ctx context.Context, doctorID string, req *model.CreatePatientRequest, confirmAttach bool) (*CreateResult, error) {
	linked, err := s.roster.Linked(ctx, doctorID, req.ID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if linked {
		return nil, apperrors.Conflict("this patient already exists", nil)
	}

	if confirmAttach {
		if _, err := s.patients.Get(ctx, req.ID); err != nil {
			return nil, err
		}
		if err := s.roster.Link(ctx, doctorID, req.ID); err != nil {
			return nil, err
		}
		return &CreateResult{PatientID: req.ID}, nil
	}

	if existing, err := s.patients.Get(ctx, req.ID); err == nil {
		return nil, apperrors.AttachPrompt(req.ID, model.PatientOutOf(existing))
	}

	patient := &model.Patient{
		ID:         req.ID,
		FirstName:  req.FirstName,
		SecondName: req.SecondName,
		LastName:   req.LastName,
		BirthDate:  req.BirthDate,
		Gender:     req.Gender,
		Height:     req.Height,
		Weight:     req.Weight,
		Schooling:  req.Schooling,
		Employee:   req.Employee,
		Married:    req.Married,
	}

	if req.Address != "" {
		addressID, err := s.patients.GetOrCreateAddress(ctx, req.Address)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		patient.AddressID = &addressID
	}

	password := generatePassword(req.FirstName)
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	patient.PasswordHash = hash

	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	if err := s.roster.Link(ctx, doctorID, patient.ID); err != nil {
		return nil, err
	}

	return &CreateResult{PatientID: patient.ID, Password: password}, nil
}

// Get returns a patient with the address resolved.
func (s *Service) Get(ctx context.Context, patientID string) (*model.PatientOut, error) {
	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if err := s.resolveAddress(ctx, patient); err != nil {
		return nil, err
	}
	return model.PatientOutOf(patient), nil
}

// List returns a doctor's roster restricted by the query.
func (s *Service) List(ctx context.Context, doctorID string, q *model.PatientQuery) (*model.PatientList, error) {
	patients, total, err := s.patients.ListForDoctor(ctx, doctorID, q)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if len(patients) == 0 {
		return nil, apperrors.NotFound("no patients found", nil)
	}

	out := make([]*model.PatientOut, 0, len(patients))
	for _, p := range patients {
		if err := s.resolveAddress(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, model.PatientOutOf(p))
	}
	return &model.PatientList{Total: total, Patients: out}, nil
}

// Update applies a three-state patch to the patient record. id and
// first_name may be replaced but never cleared.
func (s *Service) Update(ctx context.Context, patientID string, patch *model.PatientPatch) error {
	if patch.ID.Null() {
		return apperrors.Validation("id may not be cleared", nil)
	}
	if patch.FirstName.Null() {
		return apperrors.Validation("first_name may not be cleared", nil)
	}

	// Enum fields bypass request binding when they arrive through a patch.
	if gender, ok := patch.Gender.Value(); ok {
		if err := s.validate.Var(gender, "oneof=male female"); err != nil {
			return apperrors.Validation("gender must be male or female", err)
		}
	}
	if schooling, ok := patch.Schooling.Value(); ok {
		if err := s.validate.Var(schooling, "oneof=primary secondary pre_university university middle_technical other"); err != nil {
			return apperrors.Validation("unknown schooling level", err)
		}
	}

	patient, err := s.patients.Get(ctx, patientID)
	if err != nil {
		return err
	}

	if id, ok := patch.ID.Value(); ok && id != patient.ID {
		return apperrors.Validation("id may not be changed through this endpoint", nil)
	}

	patient.FirstName = patch.FirstName.Apply(patient.FirstName)
	patient.SecondName = patch.SecondName.Apply(patient.SecondName)
	patient.LastName = patch.LastName.Apply(patient.LastName)
	patient.Gender = patch.Gender.Apply(patient.Gender)
	patient.Height = patch.Height.Apply(patient.Height)
	patient.Weight = patch.Weight.Apply(patient.Weight)
	patient.Schooling = patch.Schooling.Apply(patient.Schooling)
	patient.Employee = patch.Employee.Apply(patient.Employee)
	patient.Married = patch.Married.Apply(patient.Married)

	if patch.BirthDate.Present() {
		if bd, ok := patch.BirthDate.Value(); ok {
			patient.BirthDate = &bd
		} else {
			patient.BirthDate = nil
		}
	}

	if patch.Address.Present() {
		if addr, ok := patch.Address.Value(); ok {
			addressID, err := s.patients.GetOrCreateAddress(ctx, addr)
			if err != nil {
				return apperrors.Internal(err)
			}
			patient.AddressID = &addressID
		} else {
			patient.AddressID = nil
		}
	}

	if password, ok := patch.Password.Value(); ok {
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return apperrors.Internal(err)
		}
		patient.PasswordHash = hash
	}

	if err := s.patients.Update(ctx, patient); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Unlink removes a roster association. When the last association goes, the
// patient record and every measurement cascade with it; both the explicit
// unlink path and doctor deletion funnel through here so the invariant holds
// on every path.
func (s *Service) Unlink(ctx context.Context, doctorID, patientID string) error {
	linked, err := s.roster.Linked(ctx, doctorID, patientID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if !linked {
		return apperrors.NotFound("this patient does not exist", nil)
	}

	if err := s.roster.Unlink(ctx, doctorID, patientID); err != nil {
		return err
	}
	s.accessSvc.Invalidate(doctorID, patientID)

	remaining, err := s.roster.CountLinks(ctx, patientID)
	if err != nil {
		return apperrors.Internal(err)
	}
	if remaining > 0 {
		return nil
	}

	if err := s.measurements.DeleteAllForPatient(ctx, patientID); err != nil {
		return apperrors.Internal(err)
	}
	if err := s.patients.Delete(ctx, patientID); err != nil {
		return apperrors.Internal(err)
	}
	s.publishDeleted(ctx, patientID)
	return nil
}

// UnlinkAll removes every association a doctor holds, cascading orphaned
// patients. Used by doctor deletion.
func (s *Service) UnlinkAll(ctx context.Context, doctorID string) error {
	patientIDs, err := s.roster.PatientsOf(ctx, doctorID)
	if err != nil {
		return apperrors.Internal(err)
	}
	for _, patientID := range patientIDs {
		if err := s.Unlink(ctx, doctorID, patientID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) resolveAddress(ctx context.Context, patient *model.Patient) error {
	if patient.AddressID == nil {
		return nil
	}
	content, err := s.patients.GetAddress(ctx, *patient.AddressID)
	if err != nil {
		return err
	}
	patient.Address = content
	return nil
}

func (s *Service) publishDeleted(ctx context.Context, patientID string) {
	payload, err := json.Marshal(map[string]string{"patient_id": patientID})
	if err != nil {
		return
	}
	if err := s.outbox.Create(ctx, &model.OutboxEvent{
		EventType: model.EventPatientDeleted,
		Payload:   payload,
	}); err != nil {
		s.logger.Warn().Err(err).Str("patient_id", patientID).Msg("failed to enqueue patient deleted event")
	}
}

// generatePassword builds the initial patient credential handed back to the
// registering doctor.
func generatePassword(firstName string) string {
	return fmt.Sprintf("%s_%d", firstName, 10_000+rand.Intn(90_000))
}
