package medicalrecord

import (
	"context"
	"fmt"
	"strings"

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

const recColumns = `id, patient_id, doctor_id, institution_id, visit_type, visit_date,
	admission_date, discharge_date, is_emergency,
	symptoms, diagnosis, treatment, notes,
	prescriptions, lab_results, attachments,
	created_by, updated_by, created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, rec *MedicalRecord) error {
	rec.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medical_record (
			id, patient_id, doctor_id, institution_id, visit_type, visit_date,
			admission_date, discharge_date, is_emergency,
			symptoms, diagnosis, treatment, notes,
			prescriptions, lab_results, attachments,
			created_by, updated_by
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		rec.ID, rec.PatientID, rec.DoctorID, rec.InstitutionID, rec.VisitType, rec.VisitDate,
		rec.AdmissionDate, rec.DischargeDate, rec.IsEmergency,
		rec.Symptoms, rec.Diagnosis, rec.Treatment, rec.Notes,
		rec.Prescriptions, rec.LabResults, rec.Attachments,
		rec.CreatedBy, rec.UpdatedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx, `SELECT `+recColumns+` FROM medical_record WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rec *MedicalRecord) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medical_record SET
			visit_type = $2, visit_date = $3, admission_date = $4, discharge_date = $5,
			is_emergency = $6, symptoms = $7, diagnosis = $8, treatment = $9, notes = $10,
			prescriptions = $11, lab_results = $12, attachments = $13,
			updated_by = $14, updated_at = NOW()
		WHERE id = $1`,
		rec.ID, rec.VisitType, rec.VisitDate, rec.AdmissionDate, rec.DischargeDate,
		rec.IsEmergency, rec.Symptoms, rec.Diagnosis, rec.Treatment, rec.Notes,
		rec.Prescriptions, rec.LabResults, rec.Attachments,
		rec.UpdatedBy,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medical_record WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*MedicalRecord, int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_record`).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recColumns+` FROM medical_record ORDER BY visit_date DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return r.collect(rows, total)
}

func (r *repoPG) ListByPatientID(ctx context.Context, patientID string) ([]*MedicalRecord, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+recColumns+` FROM medical_record WHERE patient_id = $1 ORDER BY visit_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, _, err := r.collect(rows, 0)
	return recs, err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	query := `SELECT ` + recColumns + ` FROM medical_record WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM medical_record WHERE 1=1`
	var args []interface{}
	idx := 1

	if pid, ok := params["patientId"]; ok {
		clause := fmt.Sprintf(` AND patient_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, pid)
		idx++
	}
	if did, ok := params["doctorId"]; ok {
		clause := fmt.Sprintf(` AND doctor_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, did)
		idx++
	}
	if inst, ok := params["institutionId"]; ok {
		clause := fmt.Sprintf(` AND institution_id = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, inst)
		idx++
	}
	if insts, ok := params["institutionIds"]; ok {
		ids, err := parseUUIDList(insts)
		if err != nil {
			return nil, 0, err
		}
		clause := fmt.Sprintf(` AND institution_id = ANY($%d)`, idx)
		query += clause
		countQuery += clause
		args = append(args, ids)
		idx++
	}
	if vt, ok := params["visitType"]; ok {
		clause := fmt.Sprintf(` AND visit_type = $%d`, idx)
		query += clause
		countQuery += clause
		args = append(args, vt)
		idx++
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY visit_date DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	return r.collect(rows, total)
}

func parseUUIDList(s string) ([]uuid.UUID, error) {
	parts := strings.Split(s, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, part := range parts {
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, fmt.Errorf("parse institution id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *repoPG) CountByPatientID(ctx context.Context, patientID string) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_record WHERE patient_id = $1`, patientID).Scan(&total)
	return total, err
}

func (r *repoPG) CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medical_record WHERE doctor_id = $1`, doctorID).Scan(&total)
	return total, err
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var total int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM medical_record`).Scan(&total)
	return total, err
}

func (r *repoPG) collect(rows pgx.Rows, total int) ([]*MedicalRecord, int, error) {
	var recs []*MedicalRecord
	for rows.Next() {
		rec, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}
	return recs, total, nil
}

func (r *repoPG) scan(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.InstitutionID, &rec.VisitType, &rec.VisitDate,
		&rec.AdmissionDate, &rec.DischargeDate, &rec.IsEmergency,
		&rec.Symptoms, &rec.Diagnosis, &rec.Treatment, &rec.Notes,
		&rec.Prescriptions, &rec.LabResults, &rec.Attachments,
		&rec.CreatedBy, &rec.UpdatedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repoPG) scanRow(rows pgx.Rows) (*MedicalRecord, error) {
	var rec MedicalRecord
	err := rows.Scan(
		&rec.ID, &rec.PatientID, &rec.DoctorID, &rec.InstitutionID, &rec.VisitType, &rec.VisitDate,
		&rec.AdmissionDate, &rec.DischargeDate, &rec.IsEmergency,
		&rec.Symptoms, &rec.Diagnosis, &rec.Treatment, &rec.Notes,
		&rec.Prescriptions, &rec.LabResults, &rec.Attachments,
		&rec.CreatedBy, &rec.UpdatedBy, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
