package patient

import (
	"time"

	"github.com/google/uuid"

	"github.com/medcv/medcv/internal/platform/auth"
)

// Genders.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// ValidGender reports whether g is a known gender value.
func ValidGender(g string) bool {
	return g == GenderMale || g == GenderFemale
}

// ValidBloodType reports whether bt is a known blood type.
func ValidBloodType(bt string) bool {
	switch bt {
	case "A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-":
		return true
	}
	return false
}

// ValidInsuranceType reports whether t is a known insurance type.
func ValidInsuranceType(t string) bool {
	switch t {
	case "public", "private", "none":
		return true
	}
	return false
}

// Patient maps to the patient table. The business identifier is PatientID
// ("PAT-" plus six digits); it is unique, server-generated when absent, and
// immutable after creation.
type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	PatientID        string     `db:"patient_id" json:"patientId"`
	Name             string     `db:"name" json:"name"`
	DateOfBirth      time.Time  `db:"date_of_birth" json:"dateOfBirth"`
	Gender           string     `db:"gender" json:"gender"`
	IsPregnant       bool       `db:"is_pregnant" json:"isPregnant"`
	BloodType        *string    `db:"blood_type" json:"bloodType,omitempty"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	Email            *string    `db:"email" json:"email,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	EmergencyName    *string    `db:"emergency_name" json:"emergencyName,omitempty"`
	EmergencyPhone   *string    `db:"emergency_phone" json:"emergencyPhone,omitempty"`
	Allergies        []string   `db:"allergies" json:"allergies,omitempty"`
	InsuranceType    *string    `db:"insurance_type" json:"insuranceType,omitempty"`
	InsuranceProvider *string   `db:"insurance_provider" json:"insuranceProvider,omitempty"`
	InsurancePolicy  *string    `db:"insurance_policy" json:"insurancePolicy,omitempty"`
	InstitutionID    *uuid.UUID `db:"institution_id" json:"institutionId,omitempty"`
	PasswordHash     *string    `db:"password_hash" json:"-"`
	LastLogin        *time.Time `db:"last_login" json:"lastLogin,omitempty"`
	UpdatedBy        *uuid.UUID `db:"updated_by" json:"updatedBy,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`

	// Age is derived from DateOfBirth and not stored.
	Age int `db:"-" json:"age"`
}

// ComputeAge fills the derived Age field as of now.
func (p *Patient) ComputeAge(now time.Time) {
	age := now.Year() - p.DateOfBirth.Year()
	if now.YearDay() < p.DateOfBirth.YearDay() {
		age--
	}
	if age < 0 {
		age = 0
	}
	p.Age = age
}

// HasCredentials reports whether the patient can sign in directly.
func (p *Patient) HasCredentials() bool {
	return p.PasswordHash != nil && *p.PasswordHash != ""
}

// Principal converts the patient into its authorization-engine view.
func (p *Patient) Principal() *auth.Principal {
	return &auth.Principal{
		ID:            p.ID,
		Kind:          auth.KindPatient,
		Role:          auth.RolePatient,
		InstitutionID: p.InstitutionID,
	}
}
