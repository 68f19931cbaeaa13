package role

import (
	"time"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
)

// Role is a named permission bundle. System roles back the built-in role
// enum and cannot be deleted.
type Role struct {
	ID          uuid.UUID         `db:"id" json:"id"`
	Name        string            `db:"name" json:"name"`
	DisplayName string            `db:"display_name" json:"displayName"`
	Description string            `db:"description" json:"description,omitempty"`
	Permissions []auth.Permission `db:"permissions" json:"permissions"`
	IsSystem    bool              `db:"is_system" json:"isSystem"`
	CreatedAt   time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time         `db:"updated_at" json:"updatedAt"`
}

// SystemRoles are seeded at startup and mirror the built-in role enum.
func SystemRoles() []*Role {
	return []*Role{
		{
			Name:        string(auth.RoleAdmin),
			DisplayName: "Administrator",
			Description: "Full system access",
			Permissions: auth.DefaultPermissions(auth.RoleAdmin),
			IsSystem:    true,
		},
		{
			Name:        string(auth.RoleAdminInstitutions),
			DisplayName: "Institution Administrator",
			Description: "Manages a single institution",
			Permissions: auth.DefaultPermissions(auth.RoleAdminInstitutions),
			IsSystem:    true,
		},
		{
			Name:        string(auth.RoleDoctor),
			DisplayName: "Doctor",
			Description: "Clinical staff",
			Permissions: auth.DefaultPermissions(auth.RoleDoctor),
			IsSystem:    true,
		},
	}
}
