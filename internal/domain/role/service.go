package role

import (
	"context"
	"fmt"

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

func validatePermissions(perms []auth.Permission) error {
	for _, p := range perms {
		if !auth.ValidPermission(p) {
			return apperr.Validation(fmt.Sprintf("unknown permission %q", p))
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Role) error {
	if r.Name == "" {
		return apperr.Validation("role name is required")
	}
	if r.DisplayName == "" {
		r.DisplayName = r.Name
	}
	if err := validatePermissions(r.Permissions); err != nil {
		return err
	}
	r.IsSystem = false
	if err := s.repo.Create(ctx, r); err != nil {
		if db.IsUniqueViolation(err) {
			return apperr.Conflict("a role with this name already exists")
		}
		return apperr.Internal("create role", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("role not found")
		}
		return nil, apperr.Internal("get role", err)
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, r *Role) error {
	existing, err := s.Get(ctx, r.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem && r.Name != existing.Name {
		return apperr.Forbidden("system roles cannot be renamed")
	}
	if err := validatePermissions(r.Permissions); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return apperr.Internal("update role", err)
	}
	return nil
}

// Delete refuses to remove system roles.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	r, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if r.IsSystem {
		return apperr.Forbidden("system roles cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete role", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Role, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// EnsureSystemRoles seeds the built-in roles. Already-present roles are left
// untouched, so the call is idempotent.
func (s *Service) EnsureSystemRoles(ctx context.Context) error {
	for _, r := range SystemRoles() {
		_, err := s.repo.GetByName(ctx, r.Name)
		if err == nil {
			continue
		}
		if !db.IsNotFound(err) {
			return apperr.Internal("check system role", err)
		}
		if err := s.repo.Create(ctx, r); err != nil {
			if db.IsUniqueViolation(err) {
				continue
			}
			return apperr.Internal("seed system role", err)
		}
	}
	return nil
}
