package medicalrecord

import (
	"time"

	"github.com/google/uuid"
)

// Visit types.
const (
	VisitConsultation = "consultation"
	VisitEmergency    = "emergency"
	VisitFollowUp     = "follow-up"
	VisitSurgery      = "surgery"
	VisitLabTest      = "lab-test"
	VisitImmunization = "immunization"
)

// ValidVisitType reports whether t is a known visit type.
func ValidVisitType(t string) bool {
	switch t {
	case VisitConsultation, VisitEmergency, VisitFollowUp, VisitSurgery, VisitLabTest, VisitImmunization:
		return true
	}
	return false
}

// Prescription is one prescribed medication on a record.
type Prescription struct {
	Medication   string `json:"medication"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// LabResult is one laboratory finding on a record.
type LabResult struct {
	Test           string `json:"test"`
	Result         string `json:"result"`
	ReferenceRange string `json:"referenceRange,omitempty"`
	Status         string `json:"status"` // normal | abnormal | critical
}

// Attachment is a stored document reference on a record.
type Attachment struct {
	FileName    string `json:"fileName"`
	URL         string `json:"url"`
	Type        string `json:"type"` // pdf | jpg | png
	Description string `json:"description,omitempty"`
}

// MedicalRecord maps to the medical_record table. Records reference patients
// by their business identifier so that a record survives reassignment of a
// patient between institutions.
type MedicalRecord struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     string     `db:"patient_id" json:"patientId"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctorId"`
	InstitutionID uuid.UUID  `db:"institution_id" json:"institutionId"`
	VisitType     string     `db:"visit_type" json:"visitType"`
	VisitDate     time.Time  `db:"visit_date" json:"visitDate"`
	AdmissionDate *time.Time `db:"admission_date" json:"admissionDate,omitempty"`
	DischargeDate *time.Time `db:"discharge_date" json:"dischargeDate,omitempty"`
	IsEmergency   bool       `db:"is_emergency" json:"isEmergency"`

	Symptoms  *string `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis string  `db:"diagnosis" json:"diagnosis"`
	Treatment *string `db:"treatment" json:"treatment,omitempty"`
	Notes     *string `db:"notes" json:"notes,omitempty"`

	Prescriptions []Prescription `db:"prescriptions" json:"prescriptions,omitempty"`
	LabResults    []LabResult    `db:"lab_results" json:"labResults,omitempty"`
	Attachments   []Attachment   `db:"attachments" json:"attachments,omitempty"`

	CreatedBy *uuid.UUID `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy *uuid.UUID `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `db:"updated_at" json:"updatedAt"`
}
