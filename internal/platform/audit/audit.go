// Package audit provides the append-only audit trail for sensitive access,
// most importantly emergency overrides of patient record scoping.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medcv/medcv/internal/platform/db"
)

// Entry is a single audit trail record. Entries are only ever inserted.
type Entry struct {
	ID            uuid.UUID `json:"id"`
	ActorID       uuid.UUID `json:"actorId"`
	ActorKind     string    `json:"actorKind"`
	Action        string    `json:"action"`
	Resource      string    `json:"resource"`
	Method        string    `json:"method"`
	PatientID     string    `json:"patientId,omitempty"`
	Justification string    `json:"justification,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	RecordedAt    time.Time `json:"recordedAt"`
}

// Known action tags.
const (
	ActionEmergencyAccess = "emergency_access"
	ActionBootstrapAdmin  = "bootstrap_admin"
)

// Recorder appends entries to the audit trail. Callers must treat a Record
// failure as fatal for the guarded operation.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// PGRecorder writes audit entries to the audit_log table.
type PGRecorder struct {
	pool *pgxpool.Pool
}

func NewPGRecorder(pool *pgxpool.Pool) *PGRecorder {
	return &PGRecorder{pool: pool}
}

func (r *PGRecorder) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *PGRecorder) Record(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO audit_log (
			id, actor_id, actor_kind, action, resource, method,
			patient_id, justification, ip_address, recorded_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.ActorID, e.ActorKind, e.Action, e.Resource, e.Method,
		e.PatientID, e.Justification, e.IPAddress, e.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}
