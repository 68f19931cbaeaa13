package doctor

import (
	"time"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
)

// Doctor maps to the doctor table. A doctor may practice at several
// institutions; license numbers are globally unique.
type Doctor struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Email          string      `db:"email" json:"email"`
	PasswordHash   string      `db:"password_hash" json:"-"`
	Specialization string      `db:"specialization" json:"specialization"`
	LicenseNumber  string      `db:"license_number" json:"licenseNumber"`
	Phone          *string     `db:"phone" json:"phone,omitempty"`
	Address        *string     `db:"address" json:"address,omitempty"`
	InstitutionIDs []uuid.UUID `db:"institution_ids" json:"institutionIds"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

// Principal converts the doctor into its authorization-engine view.
func (d *Doctor) Principal() *auth.Principal {
	p := &auth.Principal{
		ID:             d.ID,
		Kind:           auth.KindDoctor,
		Role:           auth.RoleDoctor,
		InstitutionIDs: d.InstitutionIDs,
	}
	if len(d.InstitutionIDs) > 0 {
		first := d.InstitutionIDs[0]
		p.InstitutionID = &first
	}
	return p
}

// AffiliatedWith reports whether the doctor practices at the institution.
func (d *Doctor) AffiliatedWith(institutionID uuid.UUID) bool {
	for _, id := range d.InstitutionIDs {
		if id == institutionID {
			return true
		}
	}
	return false
}
