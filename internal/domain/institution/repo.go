package institution

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, inst *Institution) error
	GetByID(ctx context.Context, id uuid.UUID) (*Institution, error)
	Update(ctx context.Context, inst *Institution) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Institution, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Institution, int, error)
	Count(ctx context.Context) (int, error)
}

// UserPurger removes staff users affiliated with an institution. It is
// satisfied by the user repository and invoked inside the deletion
// transaction.
type UserPurger interface {
	DeleteByInstitution(ctx context.Context, institutionID uuid.UUID) (int64, error)
}
