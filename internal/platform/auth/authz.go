package auth

import (
	"github.com/google/uuid"
)

// Role is a closed set of principal roles.
type Role string

const (
	RoleAdmin             Role = "admin"
	RoleAdminInstitutions Role = "admin_institutions"
	RoleDoctor            Role = "doctor"
	RolePatient           Role = "patient"
)

// Permission is a closed set of grantable capabilities. Unknown permission
// strings are rejected at the edge, never silently ignored.
type Permission string

const (
	PermManagePatients         Permission = "manage_patients"
	PermManageDoctors          Permission = "manage_doctors"
	PermManageMedicalRecords   Permission = "manage_medical_records"
	PermManageUsers            Permission = "manage_users"
	PermViewStatistics         Permission = "view_statistics"
	PermManageInstitutions     Permission = "manage_institutions"
	PermManageRoles            Permission = "manage_roles"
	PermCrossInstitutionAccess Permission = "cross_institution_access"
	PermCrossInstitutionModify Permission = "cross_institution_modify"
	PermEmergencyOverride      Permission = "emergency_override"
)

// AllPermissions enumerates every valid permission.
var AllPermissions = []Permission{
	PermManagePatients,
	PermManageDoctors,
	PermManageMedicalRecords,
	PermManageUsers,
	PermViewStatistics,
	PermManageInstitutions,
	PermManageRoles,
	PermCrossInstitutionAccess,
	PermCrossInstitutionModify,
	PermEmergencyOverride,
}

// ValidPermission reports whether p is a member of the closed enum.
func ValidPermission(p Permission) bool {
	for _, known := range AllPermissions {
		if p == known {
			return true
		}
	}
	return false
}

// DefaultPermissions returns the permission bundle implied by a role.
// Explicit grants on a principal add to these; they never subtract.
func DefaultPermissions(r Role) []Permission {
	switch r {
	case RoleAdmin:
		return append([]Permission(nil), AllPermissions...)
	case RoleAdminInstitutions:
		return []Permission{
			PermManagePatients,
			PermManageDoctors,
			PermManageMedicalRecords,
			PermManageUsers,
			PermViewStatistics,
		}
	case RoleDoctor:
		return []Permission{
			PermManagePatients,
			PermManageMedicalRecords,
		}
	default:
		return nil
	}
}

// Principal is the authenticated caller as seen by the authorization engine.
type Principal struct {
	ID            uuid.UUID
	Kind          string // token kind: user | doctor | patient
	Role          Role
	InstitutionID *uuid.UUID
	// InstitutionIDs holds additional affiliations for principals that work
	// across several institutions (doctors).
	InstitutionIDs []uuid.UUID
	Permissions    []Permission
}

// MemberOf reports whether the principal is affiliated with the institution.
func (p *Principal) MemberOf(id uuid.UUID) bool {
	if p.InstitutionID != nil && *p.InstitutionID == id {
		return true
	}
	for _, m := range p.InstitutionIDs {
		if m == id {
			return true
		}
	}
	return false
}

// HasPermission checks the principal's effective permission set: the role's
// implied bundle plus any explicit grants.
func (p *Principal) HasPermission(perm Permission) bool {
	for _, g := range DefaultPermissions(p.Role) {
		if g == perm {
			return true
		}
	}
	for _, g := range p.Permissions {
		if g == perm {
			return true
		}
	}
	return false
}

// Action describes what a request wants to do, for evaluation against a
// principal. Zero-valued fields are not checked.
type Action struct {
	// Permission required to perform the action, if any.
	Permission Permission
	// InstitutionID is the institution the target data belongs to, if the
	// action is institution-scoped.
	InstitutionID *uuid.UUID
	// Write marks mutations; cross-institution writes need a stronger grant
	// than cross-institution reads.
	Write bool
	// Roles restricts the action to the listed roles, if non-empty.
	Roles []Role
}

// DenyReason explains why an action was refused.
type DenyReason string

const (
	DenyUnauthenticated        DenyReason = "unauthenticated"
	DenyInsufficientPermission DenyReason = "insufficient_permission"
	DenyScopeViolation         DenyReason = "scope_violation"
)

// Decision is the outcome of evaluating an action.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision            { return Decision{Allowed: true} }
func deny(r DenyReason) Decision { return Decision{Reason: r} }

// Evaluate applies the access rules in order; the first matching rule wins:
//
//  1. An unauthenticated principal is denied.
//  2. The admin role passes every check.
//  3. A required permission the principal does not hold is denied.
//  4. Acting on another institution's data requires cross_institution_access
//     for reads and cross_institution_modify for writes.
//  5. A role restriction the principal does not satisfy is denied.
//
// The same inputs always produce the same decision.
func Evaluate(p *Principal, act Action) Decision {
	if p == nil {
		return deny(DenyUnauthenticated)
	}

	if p.Role == RoleAdmin {
		return allow()
	}

	if act.Permission != "" && !p.HasPermission(act.Permission) {
		return deny(DenyInsufficientPermission)
	}

	if act.InstitutionID != nil {
		if !p.MemberOf(*act.InstitutionID) {
			needed := PermCrossInstitutionAccess
			if act.Write {
				needed = PermCrossInstitutionModify
			}
			if !p.HasPermission(needed) {
				return deny(DenyScopeViolation)
			}
		}
	}

	if len(act.Roles) > 0 {
		matched := false
		for _, r := range act.Roles {
			if p.Role == r {
				matched = true
				break
			}
		}
		if !matched {
			return deny(DenyInsufficientPermission)
		}
	}

	return allow()
}
