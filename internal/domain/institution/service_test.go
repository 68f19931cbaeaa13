package institution

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/medcv/medcv/pkg/apperr"
)

type memRepo struct {
	byID map[uuid.UUID]*Institution
}

func newMemRepo() *memRepo {
	return &memRepo{byID: make(map[uuid.UUID]*Institution)}
}

func (r *memRepo) Create(ctx context.Context, inst *Institution) error {
	inst.ID = uuid.New()
	cp := *inst
	r.byID[inst.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id uuid.UUID) (*Institution, error) {
	inst, ok := r.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *inst
	return &cp, nil
}

func (r *memRepo) Update(ctx context.Context, inst *Institution) error {
	if _, ok := r.byID[inst.ID]; !ok {
		return pgx.ErrNoRows
	}
	cp := *inst
	r.byID[inst.ID] = &cp
	return nil
}

func (r *memRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := r.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.byID, id)
	return nil
}

func (r *memRepo) List(ctx context.Context, limit, offset int) ([]*Institution, int, error) {
	var out []*Institution
	for _, inst := range r.byID {
		cp := *inst
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Institution, int, error) {
	var out []*Institution
	for _, inst := range r.byID {
		if typ, ok := params["type"]; ok && inst.Type != typ {
			continue
		}
		cp := *inst
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Count(ctx context.Context) (int, error) { return len(r.byID), nil }

type fakePurger struct {
	purged []uuid.UUID
}

func (f *fakePurger) DeleteByInstitution(ctx context.Context, institutionID uuid.UUID) (int64, error) {
	f.purged = append(f.purged, institutionID)
	return 2, nil
}

type passthroughRunner struct {
	calls int
}

func (r *passthroughRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	r.calls++
	return fn(ctx)
}

func newTestService() (*Service, *memRepo, *fakePurger, *passthroughRunner) {
	repo := newMemRepo()
	purger := &fakePurger{}
	runner := &passthroughRunner{}
	return NewService(repo, purger, runner, zerolog.Nop()), repo, purger, runner
}

func TestCreate_RejectsUnknownType(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Create(context.Background(), &Institution{Name: "Spa Central", Type: "spa"})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_AcceptsEveryKnownType(t *testing.T) {
	svc, _, _, _ := newTestService()

	for _, typ := range []string{TypeHospital, TypeClinic, TypePharmacy, TypeLaboratory} {
		inst := &Institution{Name: "Unit " + typ, Type: typ}
		if err := svc.Create(context.Background(), inst); err != nil {
			t.Errorf("type %s: %v", typ, err)
		}
	}
}

func TestCreate_RequiresName(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Create(context.Background(), &Institution{Type: TypeClinic})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDelete_PurgesUsersInTransaction(t *testing.T) {
	svc, repo, purger, runner := newTestService()

	inst := &Institution{Name: "Hospital Geral", Type: TypeHospital}
	if err := svc.Create(context.Background(), inst); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Delete(context.Background(), inst.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("expected deletion inside one transaction, got %d", runner.calls)
	}
	if len(purger.purged) != 1 || purger.purged[0] != inst.ID {
		t.Error("expected affiliated users purged for the deleted institution")
	}
	if _, ok := repo.byID[inst.ID]; ok {
		t.Error("expected institution removed")
	}
}

func TestDelete_NotFound(t *testing.T) {
	svc, _, purger, _ := newTestService()

	err := svc.Delete(context.Background(), uuid.New())
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(purger.purged) != 0 {
		t.Error("expected no purge for a missing institution")
	}
}

func TestUpdate_UnknownInstitution(t *testing.T) {
	svc, _, _, _ := newTestService()

	err := svc.Update(context.Background(), &Institution{ID: uuid.New(), Name: "Renamed", Type: TypeClinic})
	if !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestList_FiltersByType(t *testing.T) {
	svc, _, _, _ := newTestService()
	_ = svc.Create(context.Background(), &Institution{Name: "Hospital Geral", Type: TypeHospital})
	_ = svc.Create(context.Background(), &Institution{Name: "Farmacia Boa", Type: TypePharmacy})

	insts, total, err := svc.List(context.Background(), map[string]string{"type": TypePharmacy}, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || len(insts) != 1 || insts[0].Type != TypePharmacy {
		t.Errorf("expected only pharmacies, got %d results", len(insts))
	}
}
