package institution

import (
	"time"

	"github.com/google/uuid"
)

// Institution types.
const (
	TypeHospital   = "hospital"
	TypeClinic     = "clinic"
	TypePharmacy   = "pharmacy"
	TypeLaboratory = "laboratory"
)

// ValidType reports whether t is a known institution type.
func ValidType(t string) bool {
	switch t {
	case TypeHospital, TypeClinic, TypePharmacy, TypeLaboratory:
		return true
	}
	return false
}

// CascadePolicy names what is removed alongside an institution.
type CascadePolicy string

// CascadeUsersOnly removes affiliated staff users and nothing else: patients,
// doctors, and medical records always survive an institution deletion.
const CascadeUsersOnly CascadePolicy = "users_only"

// Institution maps to the institution table.
type Institution struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Type      string    `db:"type" json:"type"`
	Address   *string   `db:"address" json:"address,omitempty"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Email     *string   `db:"email" json:"email,omitempty"`
	Services  []string  `db:"services" json:"services,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
