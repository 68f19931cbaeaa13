package patient

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

const patColumns = `id, patient_id, name, date_of_birth, gender, is_pregnant, blood_type,
	phone, email, address, emergency_name, emergency_phone, allergies,
	insurance_type, insurance_provider, insurance_policy,
	institution_id, password_hash, last_login, updated_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (
			id, patient_id, name, date_of_birth, gender, is_pregnant, blood_type,
			phone, email, address, emergency_name, emergency_phone, allergies,
			insurance_type, insurance_provider, insurance_policy,
			institution_id, password_hash, updated_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`,
		p.ID, p.PatientID, p.Name, p.DateOfBirth, p.Gender, p.IsPregnant, p.BloodType,
		p.Phone, p.Email, p.Address, p.EmergencyName, p.EmergencyPhone, p.Allergies,
		p.InsuranceType, p.InsuranceProvider, p.InsurancePolicy,
		p.InstitutionID, p.PasswordHash, p.UpdatedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patColumns+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByPatientID(ctx context.Context, patientID string) (*Patient, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+patColumns+` FROM patient WHERE patient_id = $1`, patientID))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			name = $2, date_of_birth = $3, gender = $4, is_pregnant = $5,
			blood_type = $6, phone = $7, email = $8, address = $9,
			emergency_name = $10, emergency_phone = $11, allergies = $12,
			insurance_type = $13, insurance_provider = $14, insurance_policy = $15,
			institution_id = $16, password_hash = $17, updated_by = $18,
			updated_at = NOW()
		WHERE id = $1`,
		p.ID, p.Name, p.DateOfBirth, p.Gender, p.IsPregnant,
		p.BloodType, p.Phone, p.Email, p.Address,
		p.EmergencyName, p.EmergencyPhone, p.Allergies,
		p.InsuranceType, p.InsuranceProvider, p.InsurancePolicy,
		p.InstitutionID, p.PasswordHash, p.UpdatedBy,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patColumns+` FROM patient ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return r.collect(rows, total)
}

func (r *repoPG) ListByInstitution(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Patient, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient WHERE institution_id = $1`, institutionID).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+patColumns+` FROM patient WHERE institution_id = $1 ORDER BY name LIMIT $2 OFFSET $3`,
		institutionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return r.collect(rows, total)
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patColumns + ` FROM patient WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient WHERE 1=1`
	var args []interface{}
	idx := 1

	if name, ok := params["name"]; ok {
		clause := fmt.Sprintf(` AND name ILIKE $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, "%"+name+"%")
		idx++
	}
	if pid, ok := params["patientId"]; ok {
		clause := fmt.Sprintf(` AND patient_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, pid)
		idx++
	}
	if inst, ok := params["institutionId"]; ok {
		clause := fmt.Sprintf(` AND institution_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, inst)
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

	return r.collect(rows, total)
}

func (r *repoPG) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `UPDATE patient SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&total)
	return total, err
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*Patient, int, error) {
	var pats []*Patient
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		pats = append(pats, p)
	}
	return pats, total, nil
}

func (r *repoPG) scan(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.PatientID, &p.Name, &p.DateOfBirth, &p.Gender, &p.IsPregnant, &p.BloodType,
		&p.Phone, &p.Email, &p.Address, &p.EmergencyName, &p.EmergencyPhone, &p.Allergies,
		&p.InsuranceType, &p.InsuranceProvider, &p.InsurancePolicy,
		&p.InstitutionID, &p.PasswordHash, &p.LastLogin, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(
		&p.ID, &p.PatientID, &p.Name, &p.DateOfBirth, &p.Gender, &p.IsPregnant, &p.BloodType,
		&p.Phone, &p.Email, &p.Address, &p.EmergencyName, &p.EmergencyPhone, &p.Allergies,
		&p.InsuranceType, &p.InsuranceProvider, &p.InsurancePolicy,
		&p.InstitutionID, &p.PasswordHash, &p.LastLogin, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
