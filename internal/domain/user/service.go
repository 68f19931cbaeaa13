package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput is the payload for staff account creation.
type CreateInput struct {
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	Password      string            `json:"password"`
	Role          auth.Role         `json:"role"`
	InstitutionID *uuid.UUID        `json:"institutionId"`
	Permissions   []auth.Permission `json:"permissions"`
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
	if in.Role != auth.RoleAdmin && in.Role != auth.RoleAdminInstitutions {
		return apperr.Validation(fmt.Sprintf("invalid staff role %q", in.Role))
	}
	if in.Role != auth.RoleAdmin && in.InstitutionID == nil {
		return apperr.Validation("institutionId is required for non-admin staff")
	}
	for _, p := range in.Permissions {
		if !auth.ValidPermission(p) {
			return apperr.Validation(fmt.Sprintf("unknown permission %q", p))
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in *CreateInput, createdBy *uuid.UUID) (*User, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	u := &User{
		Name:          in.Name,
		Email:         strings.ToLower(in.Email),
		PasswordHash:  hash,
		Role:          in.Role,
		InstitutionID: in.InstitutionID,
		Permissions:   in.Permissions,
		CreatedBy:     createdBy,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("create user", err)
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("get user", err)
	}
	return u, nil
}

// GetInInstitution returns the account only when it belongs to the given
// institution. Accounts of other institutions are reported as missing so the
// nested routes never expose them.
func (s *Service) GetInInstitution(ctx context.Context, institutionID, id uuid.UUID) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.InstitutionID == nil || *u.InstitutionID != institutionID {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

// UpdateInInstitution applies Update after confirming the account belongs to
// the institution.
func (s *Service) UpdateInInstitution(ctx context.Context, institutionID, id uuid.UUID, in *UpdateInput) (*User, error) {
	if _, err := s.GetInInstitution(ctx, institutionID, id); err != nil {
		return nil, err
	}
	return s.Update(ctx, id, in)
}

// DeleteInInstitution applies Delete after confirming the account belongs to
// the institution.
func (s *Service) DeleteInInstitution(ctx context.Context, institutionID, id uuid.UUID) error {
	if _, err := s.GetInInstitution(ctx, institutionID, id); err != nil {
		return err
	}
	return s.Delete(ctx, id)
}

// UpdateInput is the payload for staff account updates. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name        *string            `json:"name"`
	Email       *string            `json:"email"`
	Password    *string            `json:"password"`
	Permissions *[]auth.Permission `json:"permissions"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in *UpdateInput) (*User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, apperr.Validation("name must not be empty")
		}
		u.Name = *in.Name
	}
	if in.Email != nil {
		if !strings.Contains(*in.Email, "@") {
			return nil, apperr.Validation("a valid email is required")
		}
		u.Email = strings.ToLower(*in.Email)
	}
	if in.Password != nil {
		if len(*in.Password) < 6 {
			return nil, apperr.Validation("password must be at least 6 characters")
		}
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		u.PasswordHash = hash
		u.MustChangePassword = false
	}
	if in.Permissions != nil {
		for _, p := range *in.Permissions {
			if !auth.ValidPermission(p) {
				return nil, apperr.Validation(fmt.Sprintf("unknown permission %q", p))
			}
		}
		u.Permissions = *in.Permissions
	}

	if err := s.repo.Update(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("update user", err)
	}
	return u, nil
}

// Delete removes a staff account. Admin accounts cannot be deleted through
// this path.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == auth.RoleAdmin {
		return apperr.Forbidden("admin users cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete user", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*User, int, error) {
	return s.repo.ListByInstitution(ctx, institutionID, limit, offset)
}
