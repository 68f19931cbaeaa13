package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcv/medcv/pkg/apperr"
)

type contextKey string

// PrincipalKey carries the authenticated principal in the request context.
const PrincipalKey contextKey = "principal"

// PrincipalLoader resolves a verified token identity into a full principal,
// looking the subject up in the store that matches the token kind.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, id uuid.UUID, kind string) (*Principal, error)
}

// Authenticate verifies the bearer token and loads the principal into the
// request context. Requests without a valid token are rejected.
func Authenticate(issuer *Issuer, loader PrincipalLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return apperr.Unauthenticated("missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return apperr.Unauthenticated("invalid authorization format")
			}

			identity, err := issuer.Verify(parts[1])
			if err != nil {
				return apperr.Unauthenticated("invalid token")
			}

			principal, err := loader.LoadPrincipal(c.Request().Context(), identity.PrincipalID, identity.Kind)
			if err != nil {
				return apperr.Unauthenticated("unknown principal")
			}

			ctx := context.WithValue(c.Request().Context(), PrincipalKey, principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// PrincipalFromContext retrieves the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(PrincipalKey).(*Principal)
	return p
}

// DenyError maps a deny reason to the matching application error.
func DenyError(reason DenyReason) error {
	switch reason {
	case DenyUnauthenticated:
		return apperr.Unauthenticated("authentication required")
	case DenyScopeViolation:
		return apperr.Forbidden("outside institution scope")
	default:
		return apperr.Forbidden("insufficient permission")
	}
}

// RequireRole restricts a route group to the listed roles. Admin always
// passes.
func RequireRole(roles ...Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			d := Evaluate(p, Action{Roles: roles})
			if !d.Allowed {
				return DenyError(d.Reason)
			}
			return next(c)
		}
	}
}

// RequirePermission restricts a route group to principals holding the given
// permission, either through their role or an explicit grant.
func RequirePermission(perm Permission) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			d := Evaluate(p, Action{Permission: perm})
			if !d.Allowed {
				return DenyError(d.Reason)
			}
			return next(c)
		}
	}
}

// RequireInstitutionScope enforces that the institution named by the path
// parameter matches the principal's own institution. Reads on another
// institution need cross_institution_access, writes cross_institution_modify.
func RequireInstitutionScope(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			instID, err := uuid.Parse(c.Param(param))
			if err != nil {
				return apperr.Validation("invalid institution id")
			}

			p := PrincipalFromContext(c.Request().Context())
			write := c.Request().Method != "GET" && c.Request().Method != "HEAD"
			d := Evaluate(p, Action{InstitutionID: &instID, Write: write})
			if !d.Allowed {
				return DenyError(d.Reason)
			}
			return next(c)
		}
	}
}

// RequirePatientSelf restricts a route to patient tokens whose subject
// matches the addressed patient record id.
func RequirePatientSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return apperr.Unauthenticated("authentication required")
			}
			if p.Kind != KindPatient || p.ID.String() != c.Param(param) {
				return apperr.Forbidden("patients may only access their own records")
			}
			return next(c)
		}
	}
}
