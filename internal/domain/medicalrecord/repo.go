package medicalrecord

import (
	"context"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/domain/doctor"
	"github.com/medcv/medcv/internal/domain/patient"
)

type Repository interface {
	Create(ctx context.Context, rec *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	Update(ctx context.Context, rec *MedicalRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*MedicalRecord, int, error)
	// ListByPatientID returns the patient's records across every institution,
	// most recent visit first.
	ListByPatientID(ctx context.Context, patientID string) ([]*MedicalRecord, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*MedicalRecord, int, error)
	CountByPatientID(ctx context.Context, patientID string) (int, error)
	CountByDoctor(ctx context.Context, doctorID uuid.UUID) (int, error)
	Count(ctx context.Context) (int, error)
}

// PatientGetter resolves a business identifier to a patient. Satisfied by the
// patient repository.
type PatientGetter interface {
	GetByPatientID(ctx context.Context, patientID string) (*patient.Patient, error)
}

// DoctorGetter resolves a doctor id. Satisfied by the doctor repository.
type DoctorGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error)
}
