package doctor

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

type Service struct {
	repo    Repository
	records RecordCounter
}

func NewService(repo Repository, records RecordCounter) *Service {
	return &Service{repo: repo, records: records}
}

// CreateInput is the payload for doctor registration.
type CreateInput struct {
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	Password       string      `json:"password"`
	Specialization string      `json:"specialization"`
	LicenseNumber  string      `json:"licenseNumber"`
	Phone          *string     `json:"phone"`
	Address        *string     `json:"address"`
	InstitutionIDs []uuid.UUID `json:"institutionIds"`
}

func (in *CreateInput) validate() error {
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(in.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	if in.Specialization == "" {
		return apperr.Validation("specialization is required")
	}
	if in.LicenseNumber == "" {
		return apperr.Validation("licenseNumber is required")
	}
	if len(in.InstitutionIDs) == 0 {
		return apperr.Validation("at least one institution affiliation is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in *CreateInput) (*Doctor, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	d := &Doctor{
		Name:           in.Name,
		Email:          strings.ToLower(in.Email),
		PasswordHash:   hash,
		Specialization: in.Specialization,
		LicenseNumber:  in.LicenseNumber,
		Phone:          in.Phone,
		Address:        in.Address,
		InstitutionIDs: in.InstitutionIDs,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("a doctor with this email or license number already exists")
		}
		return nil, apperr.Internal("create doctor", err)
	}
	return d, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("doctor not found")
		}
		return nil, apperr.Internal("get doctor", err)
	}
	return d, nil
}

func (s *Service) Update(ctx context.Context, d *Doctor) error {
	existing, err := s.Get(ctx, d.ID)
	if err != nil {
		return err
	}
	if d.Name == "" || d.Specialization == "" || d.LicenseNumber == "" {
		return apperr.Validation("name, specialization, and licenseNumber are required")
	}
	if len(d.InstitutionIDs) == 0 {
		return apperr.Validation("at least one institution affiliation is required")
	}
	// Password changes go through their own path; keep the stored hash.
	d.PasswordHash = existing.PasswordHash

	if err := s.repo.Update(ctx, d); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("a doctor with this email or license number already exists")
		}
		return apperr.Internal("update doctor", err)
	}
	return nil
}

// Delete refuses while medical records still reference the doctor.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	n, err := s.records.CountByDoctor(ctx, id)
	if err != nil {
		return apperr.Internal("count doctor records", err)
	}
	if n > 0 {
		return apperr.Conflict("doctor has medical records and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete doctor", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Doctor, int, error) {
	if len(filters) > 0 {
		return s.repo.Search(ctx, filters, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	return s.repo.ListByInstitution(ctx, institutionID, limit, offset)
}
