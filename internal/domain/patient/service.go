package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

// maxIDAttempts bounds the identifier generation retry loop. Six random
// digits give a million candidates, so collisions beyond a few retries mean
// something is wrong with the store.
const maxIDAttempts = 5

type Service struct {
	repo    Repository
	records RecordCounter
}

func NewService(repo Repository, records RecordCounter) *Service {
	return &Service{repo: repo, records: records}
}

func validateDemographics(p *Patient, now time.Time) error {
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.DateOfBirth.IsZero() {
		return apperr.Validation("dateOfBirth is required")
	}
	if p.DateOfBirth.After(now) {
		return apperr.Validation("dateOfBirth must not be in the future")
	}
	if !ValidGender(p.Gender) {
		return apperr.Validation("gender must be male or female")
	}
	if p.Gender != GenderFemale && p.IsPregnant {
		return apperr.Validation("isPregnant may only be set for female patients")
	}
	if p.BloodType != nil && !ValidBloodType(*p.BloodType) {
		return apperr.Validation("invalid blood type")
	}
	if p.InsuranceType != nil && !ValidInsuranceType(*p.InsuranceType) {
		return apperr.Validation("invalid insurance type")
	}
	return nil
}

// Create registers a patient. If no identifier is supplied one is generated;
// the store's unique constraint decides collisions, and generated candidates
// are retried. A caller-supplied identifier that collides is a conflict, not
// a retry.
func (s *Service) Create(ctx context.Context, p *Patient, password string) error {
	if err := validateDemographics(p, time.Now()); err != nil {
		return err
	}

	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return apperr.Internal("hash password", err)
		}
		p.PasswordHash = &hash
	}

	if p.PatientID != "" {
		if err := s.repo.Create(ctx, p); err != nil {
			if db.IsUniqueViolation(err) {
				return apperr.Conflict("a patient with this identifier or email already exists")
			}
			return apperr.Internal("create patient", err)
		}
		return nil
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		pid, err := GeneratePatientID()
		if err != nil {
			return apperr.Internal("generate patient id", err)
		}
		p.PatientID = pid

		err = s.repo.Create(ctx, p)
		if err == nil {
			return nil
		}
		if db.IsUniqueViolation(err) {
			continue
		}
		return apperr.Internal("create patient", err)
	}
	return apperr.Internal("create patient", apperr.Conflict("could not allocate a unique patient identifier"))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("patient not found")
		}
		return nil, apperr.Internal("get patient", err)
	}
	p.ComputeAge(time.Now())
	return p, nil
}

func (s *Service) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	p, err := s.repo.GetByPatientID(ctx, patientID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("patient not found")
		}
		return nil, apperr.Internal("get patient", err)
	}
	p.ComputeAge(time.Now())
	return p, nil
}

// GetInInstitution returns the patient only when they are registered with the
// given institution. Patients registered elsewhere are reported as missing so
// the nested routes never leak another institution's data.
func (s *Service) GetInInstitution(ctx context.Context, institutionID, id uuid.UUID) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.InstitutionID == nil || *p.InstitutionID != institutionID {
		return nil, apperr.NotFound("patient not found")
	}
	return p, nil
}

// UpdateInInstitution applies Update after confirming the patient belongs to
// the institution. The registration stays pinned to the path institution.
func (s *Service) UpdateInInstitution(ctx context.Context, institutionID uuid.UUID, p *Patient, password string, updatedBy *uuid.UUID) error {
	if _, err := s.GetInInstitution(ctx, institutionID, p.ID); err != nil {
		return err
	}
	p.InstitutionID = &institutionID
	return s.Update(ctx, p, password, updatedBy)
}

// DeleteInInstitution applies Delete after confirming the patient belongs to
// the institution.
func (s *Service) DeleteInInstitution(ctx context.Context, institutionID, id uuid.UUID) error {
	if _, err := s.GetInInstitution(ctx, institutionID, id); err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// Update applies changes to a patient. The business identifier is immutable.
// Changing gender to male clears the pregnancy flag.
func (s *Service) Update(ctx context.Context, p *Patient, password string, updatedBy *uuid.UUID) error {
	existing, err := s.Get(ctx, p.ID)
	if err != nil {
		return err
	}
	if p.PatientID != "" && p.PatientID != existing.PatientID {
		return apperr.Validation("patientId is immutable")
	}
	p.PatientID = existing.PatientID

	if p.Gender != GenderFemale {
		p.IsPregnant = false
	}
	if err := validateDemographics(p, time.Now()); err != nil {
		return err
	}

	p.PasswordHash = existing.PasswordHash
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return apperr.Internal("hash password", err)
		}
		p.PasswordHash = &hash
	}
	p.UpdatedBy = updatedBy

	if err := s.repo.Update(ctx, p); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("a patient with this email already exists")
		}
		return apperr.Internal("update patient", err)
	}
	return nil
}

// Delete refuses while medical records still reference the patient.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	n, err := s.records.CountByPatientID(ctx, p.PatientID)
	if err != nil {
		return apperr.Internal("count patient records", err)
	}
	if n > 0 {
		return apperr.Conflict("patient has medical records and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete patient", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Patient, int, error) {
	var (
		pats  []*Patient
		total int
		err   error
	)
	if len(filters) > 0 {
		pats, total, err = s.repo.Search(ctx, filters, limit, offset)
	} else {
		pats, total, err = s.repo.List(ctx, limit, offset)
	}
	if err != nil {
		return nil, 0, apperr.Internal("list patients", err)
	}
	now := time.Now()
	for _, p := range pats {
		p.ComputeAge(now)
	}
	return pats, total, nil
}

func (s *Service) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	pats, total, err := s.repo.ListByInstitution(ctx, institutionID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("list institution patients", err)
	}
	now := time.Now()
	for _, p := range pats {
		p.ComputeAge(now)
	}
	return pats, total, nil
}
