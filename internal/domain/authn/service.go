package authn

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medcv/medcv/internal/domain/doctor"
	"github.com/medcv/medcv/internal/domain/institution"
	"github.com/medcv/medcv/internal/domain/patient"
	"github.com/medcv/medcv/internal/domain/user"
	"github.com/medcv/medcv/internal/platform/audit"
	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/internal/platform/db"
	"github.com/medcv/medcv/pkg/apperr"
)

// Service signs principals in and out and owns the default-admin bootstrap.
// It also satisfies auth.PrincipalLoader for the authentication middleware.
type Service struct {
	users        user.Repository
	doctors      doctor.Repository
	patients     patient.Repository
	institutions institution.Repository
	issuer       *auth.Issuer
	runner       db.TxRunner
	auditor      audit.Recorder
	logger       zerolog.Logger
}

func NewService(
	users user.Repository,
	doctors doctor.Repository,
	patients patient.Repository,
	institutions institution.Repository,
	issuer *auth.Issuer,
	runner db.TxRunner,
	auditor audit.Recorder,
	logger zerolog.Logger,
) *Service {
	return &Service{
		users:        users,
		doctors:      doctors,
		patients:     patients,
		institutions: institutions,
		issuer:       issuer,
		runner:       runner,
		auditor:      auditor,
		logger:       logger,
	}
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string      `json:"token"`
	Kind      string      `json:"kind"`
	Principal interface{} `json:"principal"`
	// MustChangePassword is set when the account still carries its
	// bootstrap password.
	MustChangePassword bool `json:"mustChangePassword,omitempty"`
}

// SignIn authenticates a staff user or a doctor by email. An unknown email is
// a not-found; a known email with the wrong password is an authentication
// failure.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	if u, err := s.users.GetByEmail(ctx, email); err == nil {
		if !auth.CheckPassword(u.PasswordHash, password) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		token, err := s.issuer.Issue(u.ID, auth.KindUser)
		if err != nil {
			return nil, apperr.Internal("issue token", err)
		}
		return &Session{Token: token, Kind: auth.KindUser, Principal: u, MustChangePassword: u.MustChangePassword}, nil
	} else if !db.IsNotFound(err) {
		return nil, apperr.Internal("look up user", err)
	}

	if d, err := s.doctors.GetByEmail(ctx, email); err == nil {
		if !auth.CheckPassword(d.PasswordHash, password) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		token, err := s.issuer.Issue(d.ID, auth.KindDoctor)
		if err != nil {
			return nil, apperr.Internal("issue token", err)
		}
		return &Session{Token: token, Kind: auth.KindDoctor, Principal: d}, nil
	} else if !db.IsNotFound(err) {
		return nil, apperr.Internal("look up doctor", err)
	}

	return nil, apperr.NotFound("no account with this email")
}

// PatientSignIn authenticates a patient by their card identifier.
func (s *Service) PatientSignIn(ctx context.Context, patientID, password string) (*Session, error) {
	patientID = strings.TrimSpace(patientID)
	if patientID == "" || password == "" {
		return nil, apperr.Validation("patientId and password are required")
	}

	p, err := s.patients.GetByPatientID(ctx, patientID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperr.NotFound("no patient with this identifier")
		}
		return nil, apperr.Internal("look up patient", err)
	}
	if !p.HasCredentials() || !auth.CheckPassword(*p.PasswordHash, password) {
		return nil, apperr.Unauthenticated("invalid credentials")
	}

	token, err := s.issuer.Issue(p.ID, auth.KindPatient)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	if err := s.patients.UpdateLastLogin(ctx, p.ID); err != nil {
		s.logger.Error().Err(err).Str("patient_id", p.PatientID).Msg("record patient login")
	}
	return &Session{Token: token, Kind: auth.KindPatient, Principal: p}, nil
}

// SignUpInput registers a new institution together with its first
// institution-admin account.
type SignUpInput struct {
	InstitutionName string  `json:"institutionName"`
	InstitutionType string  `json:"institutionType"`
	Address         *string `json:"address"`
	Phone           *string `json:"phone"`

	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *SignUpInput) validate() error {
	if in.InstitutionName == "" {
		return apperr.Validation("institutionName is required")
	}
	if !institution.ValidType(in.InstitutionType) {
		return apperr.Validation("invalid institution type")
	}
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return apperr.Validation("a valid email is required")
	}
	if len(in.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	return nil
}

// SignUp creates the institution, its admin user, and the session token in
// one transaction; a failure at any step rolls back all of it.
func (s *Service) SignUp(ctx context.Context, in *SignUpInput) (*Session, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	var created *user.User
	var token string
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		inst := &institution.Institution{
			Name:    in.InstitutionName,
			Type:    in.InstitutionType,
			Address: in.Address,
			Phone:   in.Phone,
		}
		if err := s.institutions.Create(ctx, inst); err != nil {
			return err
		}

		u := &user.User{
			Name:          in.Name,
			Email:         strings.ToLower(in.Email),
			PasswordHash:  hash,
			Role:          auth.RoleAdminInstitutions,
			InstitutionID: &inst.ID,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}

		t, err := s.issuer.Issue(u.ID, auth.KindUser)
		if err != nil {
			return fmt.Errorf("issue token: %w", err)
		}
		created = u
		token = t
		return nil
	})
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("a user with this email already exists")
		}
		return nil, apperr.Internal("sign up", err)
	}

	return &Session{Token: token, Kind: auth.KindUser, Principal: created}, nil
}

// SignOut is advisory. Tokens are stateless; clients discard them.
func (s *Service) SignOut(ctx context.Context) error {
	return nil
}

// LoadPrincipal resolves a verified token identity against the store matching
// its kind. Implements auth.PrincipalLoader.
func (s *Service) LoadPrincipal(ctx context.Context, id uuid.UUID, kind string) (*auth.Principal, error) {
	switch kind {
	case auth.KindUser:
		u, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return u.Principal(), nil
	case auth.KindDoctor:
		d, err := s.doctors.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return d.Principal(), nil
	case auth.KindPatient:
		p, err := s.patients.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return p.Principal(), nil
	}
	return nil, auth.ErrInvalidToken
}

// EnsureDefaultAdmin creates the bootstrap admin account if no admin exists.
// The account is flagged must_change_password so the generated or configured
// bootstrap password cannot linger. Safe to call on every start.
func (s *Service) EnsureDefaultAdmin(ctx context.Context, email, password string) error {
	count, err := s.users.CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return apperr.Internal("count admins", err)
	}
	if count > 0 {
		return nil
	}

	generated := false
	if password == "" {
		buf := make([]byte, 16)
		if _, err := rand.Read(buf); err != nil {
			return apperr.Internal("generate bootstrap password", err)
		}
		password = hex.EncodeToString(buf)
		generated = true
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return apperr.Internal("hash bootstrap password", err)
	}

	u := &user.User{
		Name:               "Administrator",
		Email:              strings.ToLower(email),
		PasswordHash:       hash,
		Role:               auth.RoleAdmin,
		MustChangePassword: true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		// Lost a race with a concurrent bootstrap; the admin exists.
		if db.IsUniqueViolation(err) {
			return nil
		}
		return apperr.Internal("create bootstrap admin", err)
	}

	if err := s.auditor.Record(ctx, &audit.Entry{
		ActorID:   u.ID,
		ActorKind: auth.KindUser,
		Action:    audit.ActionBootstrapAdmin,
		Resource:  "users",
		Method:    "BOOTSTRAP",
	}); err != nil {
		s.logger.Error().Err(err).Msg("record bootstrap audit entry")
	}

	evt := s.logger.Warn().Str("email", u.Email)
	if generated {
		evt = evt.Str("password", password)
	}
	evt.Msg("bootstrap admin created, password must be rotated on first sign-in")
	return nil
}
