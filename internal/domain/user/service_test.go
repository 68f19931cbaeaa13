package user

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/pkg/apperr"
)

type memRepo struct {
	byID    map[uuid.UUID]*User
	byEmail map[string]*User
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*User), byEmail: make(map[string]*User)}
}

func (r *memRepo) Create(ctx context.Context, u *User) error {
	if _, exists := r.byEmail[u.Email]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	u.ID = uuid.New()
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *memRepo) Update(ctx context.Context, u *User) error {
	existing, ok := r.byID[u.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if other, taken := r.byEmail[u.Email]; taken && other.ID != u.ID {
		return &pgconn.PgError{Code: "23505"}
	}
	delete(r.byEmail, existing.Email)
	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[u.Email] = &cp
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	u, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	return nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range r.byID {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*User, int, error) {
	var out []*User
	for _, u := range r.byID {
		if u.InstitutionID != nil && *u.InstitutionID == institutionID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) DeleteByInstitution(ctx context.Context, institutionID uuid.UUID) (int64, error) {
	var n int64
	for id, u := range r.byID {
		if u.InstitutionID != nil && *u.InstitutionID == institutionID {
			delete(r.byEmail, u.Email)
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

func (r *memRepo) CountByRole(ctx context.Context, role auth.Role) (int, error) {
	n := 0
	for _, u := range r.byID {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) Count(ctx context.Context) (int, error) { return len(r.byID), nil }

func validInput() *CreateInput {
	inst := uuid.New()
	return &CreateInput{
		Name:          "Staff Member",
		Email:         "Staff@Example.com",
		Password:      "staff-pass",
		Role:          auth.RoleAdminInstitutions,
		InstitutionID: &inst,
	}
}

func TestCreate_LowercasesEmailAndHashes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if u.Email != "staff@example.com" {
		t.Errorf("expected lowercased email, got %s", u.Email)
	}
	if u.PasswordHash == "staff-pass" || u.PasswordHash == "" {
		t.Error("expected password stored hashed")
	}
}

func TestCreate_RejectsShortPassword(t *testing.T) {
	svc := NewService(newMemRepo())
	in := validInput()
	in.Password = "short"

	_, err := svc.Create(context.Background(), in, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_RejectsNonStaffRole(t *testing.T) {
	svc := NewService(newMemRepo())
	in := validInput()
	in.Role = auth.RoleDoctor

	_, err := svc.Create(context.Background(), in, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_InstitutionRequiredUnlessAdmin(t *testing.T) {
	svc := NewService(newMemRepo())

	in := validInput()
	in.InstitutionID = nil
	if _, err := svc.Create(context.Background(), in, nil); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for missing institution, got %v", err)
	}

	admin := validInput()
	admin.Role = auth.RoleAdmin
	admin.InstitutionID = nil
	if _, err := svc.Create(context.Background(), admin, nil); err != nil {
		t.Errorf("expected admin without institution to pass, got %v", err)
	}
}

func TestCreate_RejectsUnknownPermission(t *testing.T) {
	svc := NewService(newMemRepo())
	in := validInput()
	in.Permissions = []auth.Permission{auth.Permission("superuser")}

	_, err := svc.Create(context.Background(), in, nil)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_DuplicateEmailIsConflict(t *testing.T) {
	svc := NewService(newMemRepo())
	if _, err := svc.Create(context.Background(), validInput(), nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(context.Background(), validInput(), nil)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdate_PasswordClearsMustChange(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stored := repo.byID[u.ID]
	stored.MustChangePassword = true

	pass := "rotated-pass"
	updated, err := svc.Update(context.Background(), u.ID, &UpdateInput{Password: &pass})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.MustChangePassword {
		t.Error("expected must_change_password cleared after rotation")
	}
	if !auth.CheckPassword(updated.PasswordHash, "rotated-pass") {
		t.Error("expected new password to verify")
	}
}

func TestUpdate_EmailConflict(t *testing.T) {
	svc := NewService(newMemRepo())

	first, err := svc.Create(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second := validInput()
	second.Email = "other@example.com"
	u2, err := svc.Create(context.Background(), second, nil)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}

	email := first.Email
	_, err = svc.Update(context.Background(), u2.ID, &UpdateInput{Email: &email})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestGetInInstitution_HidesForeignUser(t *testing.T) {
	svc := NewService(newMemRepo())

	in := validInput()
	u, err := svc.Create(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.GetInInstitution(context.Background(), uuid.New(), u.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for foreign institution, got %v", err)
	}
	if got, err := svc.GetInInstitution(context.Background(), *in.InstitutionID, u.ID); err != nil || got.ID != u.ID {
		t.Errorf("expected own-institution lookup to succeed, got %v %v", got, err)
	}
}

func TestUpdateInInstitution_RefusesForeignUser(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	name := "Tampered"
	if _, err := svc.UpdateInInstitution(context.Background(), uuid.New(), u.ID, &UpdateInput{Name: &name}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for foreign institution, got %v", err)
	}
	if repo.byID[u.ID].Name != u.Name {
		t.Error("expected foreign account to be untouched")
	}
}

func TestDeleteInInstitution_RefusesForeignUser(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	in := validInput()
	u, err := svc.Create(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.DeleteInInstitution(context.Background(), uuid.New(), u.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found for foreign institution, got %v", err)
	}
	if _, ok := repo.byID[u.ID]; !ok {
		t.Error("expected foreign account to remain")
	}

	if err := svc.DeleteInInstitution(context.Background(), *in.InstitutionID, u.ID); err != nil {
		t.Fatalf("own-institution delete: %v", err)
	}
}

func TestDelete_AdminForbidden(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	in := validInput()
	in.Role = auth.RoleAdmin
	in.InstitutionID = nil
	u, err := svc.Create(context.Background(), in, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), u.ID); !apperr.IsKind(err, apperr.KindForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if _, ok := repo.byID[u.ID]; !ok {
		t.Error("expected admin account to remain")
	}
}

func TestDelete_StaffAllowed(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)

	u, err := svc.Create(context.Background(), validInput(), nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
}
