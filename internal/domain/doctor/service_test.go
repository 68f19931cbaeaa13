package doctor

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/medcv/medcv/pkg/apperr"
)

type memRepo struct {
	byID      map[uuid.UUID]*Doctor
	byEmail   map[string]*Doctor
	byLicense map[string]*Doctor
}

func newMemRepo() *memRepo {
	return &memRepo{
		byID:      make(map[uuid.UUID]*Doctor),
		byEmail:   make(map[string]*Doctor),
		byLicense: make(map[string]*Doctor),
	}
}

func (r *memRepo) Create(ctx context.Context, d *Doctor) error {
	if _, exists := r.byEmail[d.Email]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	if _, exists := r.byLicense[d.LicenseNumber]; exists {
		return &pgconn.PgError{Code: "23505"}
	}
	d.ID = uuid.New()
	cp := *d
	r.byID[d.ID] = &cp
	r.byEmail[d.Email] = &cp
	r.byLicense[d.LicenseNumber] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (r *memRepo) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	d, ok := r.byEmail[email]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *d
	return &cp, nil
}

func (r *memRepo) Update(ctx context.Context, d *Doctor) error {
	if _, ok := r.byID[d.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *d
	r.byID[d.ID] = &cp
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	d, ok := r.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	delete(r.byEmail, d.Email)
	delete(r.byLicense, d.LicenseNumber)
	delete(r.byID, id)
	return nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range r.byID {
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range r.byID {
		if d.AffiliatedWith(institutionID) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range r.byID {
		if spec, ok := params["specialization"]; ok && d.Specialization != spec {
			continue
		}
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Count(ctx context.Context) (int, error) { return len(r.byID), nil }

type fakeRecordCounter struct {
	counts map[uuid.UUID]int
}

func (f *fakeRecordCounter) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	return f.counts[doctorID], nil
}

func newTestService() (*Service, *memRepo, *fakeRecordCounter) {
	repo := newMemRepo()
	counter := &fakeRecordCounter{counts: make(map[uuid.UUID]int)}
	return NewService(repo, counter), repo, counter
}

func validInput() *CreateInput {
	return &CreateInput{
		Name:           "Dr. Lima",
		Email:          "Lima@Example.com",
		Password:       "doctor-pass",
		Specialization: "cardiology",
		LicenseNumber:  "CRM-12345",
		InstitutionIDs: []uuid.UUID{uuid.New()},
	}
}

func TestCreate_HashesAndLowercases(t *testing.T) {
	svc, _, _ := newTestService()

	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.Email != "lima@example.com" {
		t.Errorf("expected lowercased email, got %s", d.Email)
	}
	if d.PasswordHash == "doctor-pass" || d.PasswordHash == "" {
		t.Error("expected password stored hashed")
	}
}

func TestCreate_RequiresSpecializationAndLicense(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.Specialization = ""
	if _, err := svc.Create(context.Background(), in); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing specialization: expected validation error, got %v", err)
	}

	in = validInput()
	in.LicenseNumber = ""
	if _, err := svc.Create(context.Background(), in); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("missing license: expected validation error, got %v", err)
	}
}

func TestCreate_RequiresAffiliation(t *testing.T) {
	svc, _, _ := newTestService()

	in := validInput()
	in.InstitutionIDs = nil
	_, err := svc.Create(context.Background(), in)
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_DuplicateLicenseIsConflict(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Create(context.Background(), validInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	dup := validInput()
	dup.Email = "other@example.com"
	_, err := svc.Create(context.Background(), dup)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestUpdate_KeepsStoredPasswordHash(t *testing.T) {
	svc, repo, _ := newTestService()

	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	original := repo.byID[d.ID].PasswordHash

	upd := *d
	upd.PasswordHash = "tampered"
	upd.Specialization = "neurology"
	if err := svc.Update(context.Background(), &upd); err != nil {
		t.Fatalf("update: %v", err)
	}

	stored := repo.byID[d.ID]
	if stored.PasswordHash != original {
		t.Error("expected password hash untouched by profile update")
	}
	if stored.Specialization != "neurology" {
		t.Error("expected specialization updated")
	}
}

func TestDelete_RefusedWhileRecordsExist(t *testing.T) {
	svc, _, counter := newTestService()

	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	counter.counts[d.ID] = 4

	if err := svc.Delete(context.Background(), d.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestDelete_AllowedWithoutRecords(t *testing.T) {
	svc, repo, _ := newTestService()

	d, err := svc.Create(context.Background(), validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.byID) != 0 {
		t.Error("expected doctor removed")
	}
}

func TestMultiInstitutionAffiliation(t *testing.T) {
	svc, _, _ := newTestService()

	instA := uuid.New()
	instB := uuid.New()
	in := validInput()
	in.InstitutionIDs = []uuid.UUID{instA, instB}
	d, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, inst := range []uuid.UUID{instA, instB} {
		docs, _, err := svc.ListByInstitution(context.Background(), inst, 10, 0)
		if err != nil {
			t.Fatalf("list by institution: %v", err)
		}
		if len(docs) != 1 || docs[0].ID != d.ID {
			t.Errorf("expected the doctor listed under institution %s", inst)
		}
	}
}
