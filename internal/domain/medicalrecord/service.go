package medicalrecord

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcv/medcv/internal/domain/patient"
	"github.com/medcv/medcv/internal/platform/audit"
	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

type Service struct {
	repo     Repository
	patients PatientGetter
	doctors  DoctorGetter
	auditor  audit.Recorder
	logger   zerolog.Logger
}

func NewService(repo Repository, patients PatientGetter, doctors DoctorGetter, auditor audit.Recorder, logger zerolog.Logger) *Service {
	return &Service{repo: repo, patients: patients, doctors: doctors, auditor: auditor, logger: logger}
}

func (s *Service) validate(ctx context.Context, rec *MedicalRecord) error {
	if rec.PatientID == "" {
		return apperr.Validation("patientId is required")
	}
	if rec.DoctorID == uuid.Nil {
		return apperr.Validation("doctorId is required")
	}
	if !ValidVisitType(rec.VisitType) {
		return apperr.Validation("invalid visit type")
	}
	if rec.VisitDate.IsZero() {
		return apperr.Validation("visitDate is required")
	}
	if rec.Diagnosis == "" {
		return apperr.Validation("diagnosis is required")
	}

	if _, err := s.patients.GetByPatientID(ctx, rec.PatientID); err != nil {
		if db.IsNotFound(err) {
			return apperr.NotFound("patient not found")
		}
		return apperr.Internal("resolve patient", err)
	}
	if _, err := s.doctors.GetByID(ctx, rec.DoctorID); err != nil {
		if db.IsNotFound(err) {
			return apperr.NotFound("doctor not found")
		}
		return apperr.Internal("resolve doctor", err)
	}
	return nil
}

// Create writes a new record. The authoring institution defaults to the
// caller's; writing under another institution needs the cross-institution
// modify grant.
func (s *Service) Create(ctx context.Context, p *auth.Principal, rec *MedicalRecord) error {
	if rec.InstitutionID == uuid.Nil && p != nil && p.InstitutionID != nil {
		rec.InstitutionID = *p.InstitutionID
	}
	if rec.InstitutionID == uuid.Nil {
		return apperr.Validation("institutionId is required")
	}

	d := auth.Evaluate(p, auth.Action{
		Permission:    auth.PermManageMedicalRecords,
		InstitutionID: &rec.InstitutionID,
		Write:         true,
	})
	if !d.Allowed {
		return auth.DenyError(d.Reason)
	}

	if err := s.validate(ctx, rec); err != nil {
		return err
	}

	if p != nil {
		actor := p.ID
		rec.CreatedBy = &actor
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return apperr.Internal("create medical record", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, p *auth.Principal, id uuid.UUID) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("medical record not found")
		}
		return nil, apperr.Internal("get medical record", err)
	}

	d := auth.Evaluate(p, auth.Action{
		Permission:    auth.PermManageMedicalRecords,
		InstitutionID: &rec.InstitutionID,
	})
	if !d.Allowed {
		return nil, auth.DenyError(d.Reason)
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, p *auth.Principal, rec *MedicalRecord) error {
	existing, err := s.repo.GetByID(ctx, rec.ID)
	if err != nil {
		if db.IsNotFound(err) {
			return apperr.NotFound("medical record not found")
		}
		return apperr.Internal("get medical record", err)
	}

	d := auth.Evaluate(p, auth.Action{
		Permission:    auth.PermManageMedicalRecords,
		InstitutionID: &existing.InstitutionID,
		Write:         true,
	})
	if !d.Allowed {
		return auth.DenyError(d.Reason)
	}

	// Patient and institution bindings are immutable on update.
	rec.PatientID = existing.PatientID
	rec.DoctorID = existing.DoctorID
	rec.InstitutionID = existing.InstitutionID

	if err := s.validate(ctx, rec); err != nil {
		return err
	}
	if p != nil {
		actor := p.ID
		rec.UpdatedBy = &actor
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return apperr.Internal("update medical record", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, p *auth.Principal, id uuid.UUID) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return apperr.NotFound("medical record not found")
		}
		return apperr.Internal("get medical record", err)
	}

	d := auth.Evaluate(p, auth.Action{
		Permission:    auth.PermManageMedicalRecords,
		InstitutionID: &existing.InstitutionID,
		Write:         true,
	})
	if !d.Allowed {
		return auth.DenyError(d.Reason)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal("delete medical record", err)
	}
	return nil
}

// List returns records visible to the principal. Without a cross-institution
// read grant the listing is confined to the caller's affiliations, which for
// a multi-institution doctor is the union of them.
func (s *Service) List(ctx context.Context, p *auth.Principal, filters map[string]string, limit, offset int) ([]*MedicalRecord, int, error) {
	if p == nil {
		return nil, 0, auth.DenyError(auth.DenyUnauthenticated)
	}
	if p.Role != auth.RoleAdmin && !p.HasPermission(auth.PermCrossInstitutionAccess) {
		scope := scopeInstitutions(p)
		switch len(scope) {
		case 0:
			return nil, 0, auth.DenyError(auth.DenyScopeViolation)
		case 1:
			filters["institutionId"] = scope[0]
		default:
			filters["institutionIds"] = strings.Join(scope, ",")
		}
	}

	recs, total, err := s.repo.Search(ctx, filters, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal("list medical records", err)
	}
	return recs, total, nil
}

// scopeInstitutions collects the distinct institutions the principal belongs
// to.
func scopeInstitutions(p *auth.Principal) []string {
	seen := make(map[uuid.UUID]bool)
	var out []string
	if p.InstitutionID != nil {
		seen[*p.InstitutionID] = true
		out = append(out, p.InstitutionID.String())
	}
	for _, id := range p.InstitutionIDs {
		if !seen[id] {
			seen[id] = true
			out = append(out, id.String())
		}
	}
	return out
}

// PatientHistory is the public view of a patient's records: a summary block
// plus every record across institutions, most recent visit first.
type PatientHistory struct {
	Patient *PatientSummary  `json:"patient"`
	Records []*MedicalRecord `json:"records"`
}

// PatientSummary is the demographic block returned with a record history.
type PatientSummary struct {
	PatientID string   `json:"patientId"`
	Name      string   `json:"name"`
	Gender    string   `json:"gender"`
	Age       int      `json:"age"`
	BloodType *string  `json:"bloodType,omitempty"`
	Allergies []string `json:"allergies,omitempty"`
}

func summarize(p *patient.Patient) *PatientSummary {
	p.ComputeAge(time.Now())
	return &PatientSummary{
		PatientID: p.PatientID,
		Name:      p.Name,
		Gender:    p.Gender,
		Age:       p.Age,
		BloodType: p.BloodType,
		Allergies: p.Allergies,
	}
}

// PatientRecords returns the full history for a patient identifier.
func (s *Service) PatientRecords(ctx context.Context, patientID string) (*PatientHistory, error) {
	pat, err := s.patients.GetByPatientID(ctx, patientID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("patient not found")
		}
		return nil, apperr.Internal("resolve patient", err)
	}

	recs, err := s.repo.ListByPatientID(ctx, patientID)
	if err != nil {
		return nil, apperr.Internal("list patient records", err)
	}
	return &PatientHistory{Patient: summarize(pat), Records: recs}, nil
}

// EmergencyAccess describes an override request for auditing.
type EmergencyAccess struct {
	Justification string
	Resource      string
	Method        string
	IPAddress     string
}

// EmergencyPatientRecords serves a patient history outside the caller's
// institution scope. The caller must hold emergency_override and provide a
// justification; exactly one audit entry is appended before any data leaves,
// and a failed append fails the whole read.
func (s *Service) EmergencyPatientRecords(ctx context.Context, p *auth.Principal, patientID string, access EmergencyAccess) (*PatientHistory, error) {
	if p == nil {
		return nil, auth.DenyError(auth.DenyUnauthenticated)
	}
	if !p.HasPermission(auth.PermEmergencyOverride) {
		return nil, auth.DenyError(auth.DenyInsufficientPermission)
	}
	if strings.TrimSpace(access.Justification) == "" {
		return nil, apperr.Validation("a justification is required for emergency access")
	}

	history, err := s.PatientRecords(ctx, patientID)
	if err != nil {
		return nil, err
	}

	entry := &audit.Entry{
		ActorID:       p.ID,
		ActorKind:     p.Kind,
		Action:        audit.ActionEmergencyAccess,
		Resource:      access.Resource,
		Method:        access.Method,
		PatientID:     patientID,
		Justification: access.Justification,
		IPAddress:     access.IPAddress,
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		return nil, apperr.Internal("emergency access audit failed", err)
	}

	s.logger.Warn().
		Str("actor_id", p.ID.String()).
		Str("actor_kind", p.Kind).
		Str("patient_id", patientID).
		Str("justification", access.Justification).
		Msg("emergency_access_override")

	return history, nil
}
