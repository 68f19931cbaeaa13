package user

import (
	"time"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
)

// User is a staff account. Doctors and patients authenticate through their
// own stores; this table only holds administrative staff.
type User struct {
	ID                 uuid.UUID         `db:"id" json:"id"`
	Name               string            `db:"name" json:"name"`
	Email              string            `db:"email" json:"email"`
	PasswordHash       string            `db:"password_hash" json:"-"`
	Role               auth.Role         `db:"role" json:"role"`
	InstitutionID      *uuid.UUID        `db:"institution_id" json:"institutionId,omitempty"`
	Permissions        []auth.Permission `db:"permissions" json:"permissions,omitempty"`
	MustChangePassword bool              `db:"must_change_password" json:"mustChangePassword"`
	CreatedBy          *uuid.UUID        `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt          time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time         `db:"updated_at" json:"updatedAt"`
}

// Principal converts the user into its authorization-engine view.
func (u *User) Principal() *auth.Principal {
	return &auth.Principal{
		ID:            u.ID,
		Kind:          auth.KindUser,
		Role:          u.Role,
		InstitutionID: u.InstitutionID,
		Permissions:   u.Permissions,
	}
}
