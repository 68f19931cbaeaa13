package doctor

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error)
	Count(ctx context.Context) (int, error)
}

// RecordCounter reports how many medical records reference a doctor. It is
// satisfied by the medical record repository and consulted before deletion.
type RecordCounter interface {
	CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
}
