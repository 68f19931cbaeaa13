package institution

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcv/medcv/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

// queryable abstracts pgxpool.Pool and pgx.Tx so repositories join an open
// transaction transparently.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const instColumns = `id, name, type, address, phone, email, services, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, inst *Institution) error {
	inst.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO institution (id, name, type, address, phone, email, services)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		inst.ID, inst.Name, inst.Type, inst.Address, inst.Phone, inst.Email, inst.Services,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Institution, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+instColumns+` FROM institution WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, inst *Institution) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE institution SET
			name = $2, type = $3, address = $4, phone = $5, email = $6,
			services = $7, updated_at = NOW()
		WHERE id = $1`,
		inst.ID, inst.Name, inst.Type, inst.Address, inst.Phone, inst.Email, inst.Services,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM institution WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Institution, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM institution`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+instColumns+` FROM institution ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var insts []*Institution
	for rows.Next() {
		inst, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		insts = append(insts, inst)
	}
	return insts, total, nil
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Institution, int, error) {
	query := `SELECT ` + instColumns + ` FROM institution WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM institution WHERE 1=1`
	var args []interface{}
	idx := 1

	if name, ok := params["name"]; ok {
		clause := fmt.Sprintf(` AND name ILIKE $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+name+"%")
		idx++
	}
	if t, ok := params["type"]; ok {
		clause := fmt.Sprintf(` AND type = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, t)
		idx++
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var insts []*Institution
	for rows.Next() {
		inst, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		insts = append(insts, inst)
	}
	return insts, total, nil
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM institution`).Scan(&total)
	return total, err
}

func (r *repoPG) scan(row pgx.Row) (*Institution, error) {
	var i Institution
	err := row.Scan(
		&i.ID, &i.Name, &i.Type, &i.Address, &i.Phone, &i.Email,
		&i.Services, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Institution, error) {
	var i Institution
	err := rows.Scan(
		&i.ID, &i.Name, &i.Type, &i.Address, &i.Phone, &i.Email,
		&i.Services, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}
