package stats

import (
	"context"

	"github.com/medcv/medcv/pkg/apperr"
)

// Counter reports the total number of rows in one entity store. Each
// repository satisfies it with its Count method.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Overview is the admin dashboard snapshot.
type Overview struct {
	Institutions   int `json:"institutions"`
	Users          int `json:"users"`
	Doctors        int `json:"doctors"`
	Patients       int `json:"patients"`
	MedicalRecords int `json:"medicalRecords"`
}

type Service struct {
	institutions Counter
	users        Counter
	doctors      Counter
	patients     Counter
	records      Counter
}

func NewService(institutions, users, doctors, patients, records Counter) *Service {
	return &Service{
		institutions: institutions,
		users:        users,
		doctors:      doctors,
		patients:     patients,
		records:      records,
	}
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var o Overview
	var err error

	if o.Institutions, err = s.institutions.Count(ctx); err != nil {
		return nil, apperr.Internal("count institutions", err)
	}
	if o.Users, err = s.users.Count(ctx); err != nil {
		return nil, apperr.Internal("count users", err)
	}
	if o.Doctors, err = s.doctors.Count(ctx); err != nil {
		return nil, apperr.Internal("count doctors", err)
	}
	if o.Patients, err = s.patients.Count(ctx); err != nil {
		return nil, apperr.Internal("count patients", err)
	}
	if o.MedicalRecords, err = s.records.Count(ctx); err != nil {
		return nil, apperr.Internal("count medical records", err)
	}
	return &o, nil
}
