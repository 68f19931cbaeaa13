package auth

import (
	"testing"

	"github.com/google/uuid"
)

func principal(role Role, instID *uuid.UUID, perms ...Permission) *Principal {
	return &Principal{
		ID:            uuid.New(),
		Kind:          KindUser,
		Role:          role,
		InstitutionID: instID,
		Permissions:   perms,
	}
}

func TestEvaluate_DeniesUnauthenticated(t *testing.T) {
	d := Evaluate(nil, Action{Permission: PermManagePatients})
	if d.Allowed {
		t.Fatal("expected deny for nil principal")
	}
	if d.Reason != DenyUnauthenticated {
		t.Errorf("expected %s, got %s", DenyUnauthenticated, d.Reason)
	}
}

func TestEvaluate_AdminPassesEverything(t *testing.T) {
	other := uuid.New()
	p := principal(RoleAdmin, nil)

	actions := []Action{
		{Permission: PermManageInstitutions},
		{Permission: PermManageMedicalRecords, InstitutionID: &other, Write: true},
		{Roles: []Role{RoleDoctor}},
	}
	for i, act := range actions {
		if d := Evaluate(p, act); !d.Allowed {
			t.Errorf("action %d: expected admin allow, got deny (%s)", i, d.Reason)
		}
	}
}

func TestEvaluate_PermissionCheckedBeforeScope(t *testing.T) {
	// A caller missing the permission gets insufficient_permission even when
	// the target is also outside their institution.
	other := uuid.New()
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine)

	d := Evaluate(p, Action{Permission: PermManageInstitutions, InstitutionID: &other})
	if d.Allowed {
		t.Fatal("expected deny")
	}
	if d.Reason != DenyInsufficientPermission {
		t.Errorf("expected %s, got %s", DenyInsufficientPermission, d.Reason)
	}
}

func TestEvaluate_ScopeViolation(t *testing.T) {
	other := uuid.New()
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine)

	d := Evaluate(p, Action{Permission: PermManagePatients, InstitutionID: &other})
	if d.Allowed {
		t.Fatal("expected deny")
	}
	if d.Reason != DenyScopeViolation {
		t.Errorf("expected %s, got %s", DenyScopeViolation, d.Reason)
	}
}

func TestEvaluate_OwnInstitutionAllowed(t *testing.T) {
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine)

	d := Evaluate(p, Action{Permission: PermManagePatients, InstitutionID: &mine, Write: true})
	if !d.Allowed {
		t.Errorf("expected allow within own institution, got deny (%s)", d.Reason)
	}
}

func TestEvaluate_CrossInstitutionGrants(t *testing.T) {
	other := uuid.New()
	mine := uuid.New()

	// Read grant covers reads but not writes.
	reader := principal(RoleAdminInstitutions, &mine, PermCrossInstitutionAccess)
	if d := Evaluate(reader, Action{Permission: PermManagePatients, InstitutionID: &other}); !d.Allowed {
		t.Errorf("expected cross-institution read allow, got deny (%s)", d.Reason)
	}
	if d := Evaluate(reader, Action{Permission: PermManagePatients, InstitutionID: &other, Write: true}); d.Allowed {
		t.Error("expected cross-institution write deny with read-only grant")
	} else if d.Reason != DenyScopeViolation {
		t.Errorf("expected %s, got %s", DenyScopeViolation, d.Reason)
	}

	// Modify grant covers writes.
	writer := principal(RoleAdminInstitutions, &mine, PermCrossInstitutionModify)
	if d := Evaluate(writer, Action{Permission: PermManagePatients, InstitutionID: &other, Write: true}); !d.Allowed {
		t.Errorf("expected cross-institution write allow, got deny (%s)", d.Reason)
	}
}

func TestEvaluate_DoctorMultiInstitution(t *testing.T) {
	instA := uuid.New()
	instB := uuid.New()
	instC := uuid.New()

	p := &Principal{
		ID:             uuid.New(),
		Kind:           KindDoctor,
		Role:           RoleDoctor,
		InstitutionID:  &instA,
		InstitutionIDs: []uuid.UUID{instA, instB},
	}

	if d := Evaluate(p, Action{Permission: PermManageMedicalRecords, InstitutionID: &instB, Write: true}); !d.Allowed {
		t.Errorf("expected allow for affiliated institution, got deny (%s)", d.Reason)
	}
	if d := Evaluate(p, Action{Permission: PermManageMedicalRecords, InstitutionID: &instC}); d.Allowed {
		t.Error("expected deny for unaffiliated institution")
	}
}

func TestEvaluate_RoleRestriction(t *testing.T) {
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine)

	if d := Evaluate(p, Action{Roles: []Role{RoleDoctor}}); d.Allowed {
		t.Fatal("expected deny for role mismatch")
	} else if d.Reason != DenyInsufficientPermission {
		t.Errorf("expected %s, got %s", DenyInsufficientPermission, d.Reason)
	}

	if d := Evaluate(p, Action{Roles: []Role{RoleAdminInstitutions, RoleDoctor}}); !d.Allowed {
		t.Errorf("expected allow for matching role, got deny (%s)", d.Reason)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	other := uuid.New()
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine)
	act := Action{Permission: PermManagePatients, InstitutionID: &other, Write: true}

	first := Evaluate(p, act)
	for i := 0; i < 10; i++ {
		if got := Evaluate(p, act); got != first {
			t.Fatalf("iteration %d: decision changed from %+v to %+v", i, first, got)
		}
	}
}

func TestHasPermission_RoleBundlePlusGrants(t *testing.T) {
	mine := uuid.New()
	p := principal(RoleAdminInstitutions, &mine, PermEmergencyOverride)

	if !p.HasPermission(PermManagePatients) {
		t.Error("expected role-implied permission")
	}
	if !p.HasPermission(PermEmergencyOverride) {
		t.Error("expected explicit grant")
	}
	if p.HasPermission(PermManageInstitutions) {
		t.Error("did not expect admin-only permission")
	}
}

func TestDefaultPermissions_AdminHoldsAll(t *testing.T) {
	got := DefaultPermissions(RoleAdmin)
	if len(got) != len(AllPermissions) {
		t.Errorf("expected %d permissions for admin, got %d", len(AllPermissions), len(got))
	}
}

func TestValidPermission(t *testing.T) {
	if !ValidPermission(PermEmergencyOverride) {
		t.Error("expected emergency_override to be valid")
	}
	if ValidPermission(Permission("superuser")) {
		t.Error("expected unknown permission to be invalid")
	}
}
