package role

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

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

const roleColumns = `id, name, display_name, description, permissions, is_system, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, role *Role) error {
	role.ID = uuid.New()
	perms := make([]string, len(role.Permissions))
	for i, p := range role.Permissions {
		perms[i] = string(p)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO role (id, name, display_name, description, permissions, is_system)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		role.ID, role.Name, role.DisplayName, role.Description, perms, role.IsSystem,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Role, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+roleColumns+` FROM role WHERE id = $1`, id))
}

func (r *repoPG) GetByName(ctx context.Context, name string) (*Role, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+roleColumns+` FROM role WHERE name = $1`, name))
}

func (r *repoPG) Update(ctx context.Context, role *Role) error {
	perms := make([]string, len(role.Permissions))
	for i, p := range role.Permissions {
		perms[i] = string(p)
	}
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE role SET
			display_name = $2, description = $3, permissions = $4, updated_at = NOW()
		WHERE id = $1`,
		role.ID, role.DisplayName, role.Description, perms,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM role WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Role, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM role`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+roleColumns+` FROM role ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		roles = append(roles, role)
	}
	return roles, total, nil
}

func (r *repoPG) scan(row pgx.Row) (*Role, error) {
	var role Role
	var perms []string
	err := row.Scan(
		&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&perms, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	role.Permissions = make([]auth.Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = auth.Permission(p)
	}
	return &role, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Role, error) {
	var role Role
	var perms []string
	err := rows.Scan(
		&role.ID, &role.Name, &role.DisplayName, &role.Description,
		&perms, &role.IsSystem, &role.CreatedAt, &role.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	role.Permissions = make([]auth.Permission, len(perms))
	for i, p := range perms {
		role.Permissions[i] = auth.Permission(p)
	}
	return &role, nil
}
