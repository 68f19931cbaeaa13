package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)
	ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*User, int, error)
	DeleteByInstitution(ctx context.Context, institutionID uuid.UUID) (int64, error)
	CountByRole(ctx context.Context, role auth.Role) (int, error)
	Count(ctx context.Context) (int, error)
}
