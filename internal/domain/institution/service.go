package institution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

type Service struct {
	repo   Repository
	users  UserPurger
	runner db.TxRunner
	logger zerolog.Logger
}

func NewService(repo Repository, users UserPurger, runner db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, users: users, runner: runner, logger: logger}
}

func (s *Service) Create(ctx context.Context, inst *Institution) error {
	if inst.Name == "" {
		return apperr.Validation("institution name is required")
	}
	if !ValidType(inst.Type) {
		return apperr.Validation(fmt.Sprintf("invalid institution type %q", inst.Type))
	}
	if err := s.repo.Create(ctx, inst); err != nil {
		return apperr.Internal("create institution", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Institution, error) {
	inst, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("institution not found")
		}
		return nil, apperr.Internal("get institution", err)
	}
	return inst, nil
}

func (s *Service) Update(ctx context.Context, inst *Institution) error {
	if inst.Name == "" {
		return apperr.Validation("institution name is required")
	}
	if !ValidType(inst.Type) {
		return apperr.Validation(fmt.Sprintf("invalid institution type %q", inst.Type))
	}
	if _, err := s.Get(ctx, inst.ID); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, inst); err != nil {
		return apperr.Internal("update institution", err)
	}
	return nil
}

// Delete removes the institution and its affiliated staff users in one
// transaction. The cascade policy is CascadeUsersOnly: patients, doctors, and
// medical records are never touched.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	var purged int64
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		n, err := s.users.DeleteByInstitution(ctx, id)
		if err != nil {
			return fmt.Errorf("purge institution users: %w", err)
		}
		purged = n
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return apperr.Internal("delete institution", err)
	}

	s.logger.Info().
		Str("institution_id", id.String()).
		Int64("users_removed", purged).
		Str("cascade", string(CascadeUsersOnly)).
		Msg("institution deleted")
	return nil
}

func (s *Service) List(ctx context.Context, filters map[string]string, limit, offset int) ([]*Institution, int, error) {
	if len(filters) > 0 {
		return s.repo.Search(ctx, filters, limit, offset)
	}
	return s.repo.List(ctx, limit, offset)
}
