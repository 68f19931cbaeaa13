package user

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/pkg/apperr"
	"github.com/medcv/medcv/pkg/pagination"
	"github.com/medcv/medcv/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires both the admin-wide user surface and the
// institution-scoped one.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	adminGroup := api.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("/users", h.List)
	adminGroup.GET("/users/:id", h.Get)
	adminGroup.POST("/users", h.Create)
	adminGroup.PUT("/users/:id", h.Update)
	adminGroup.DELETE("/users/:id", h.Delete)

	scoped := api.Group("/institutions/:institutionId",
		auth.RequireRole(auth.RoleAdmin, auth.RoleAdminInstitutions),
		auth.RequirePermission(auth.PermManageUsers),
		auth.RequireInstitutionScope("institutionId"),
	)
	scoped.GET("/users", h.ListByInstitution)
	scoped.POST("/users", h.CreateInInstitution)
	scoped.GET("/users/:id", h.GetInInstitution)
	scoped.PUT("/users/:id", h.UpdateInInstitution)
	scoped.DELETE("/users/:id", h.DeleteInInstitution)
}

func scopedIDs(c echo.Context) (instID, id uuid.UUID, err error) {
	instID, err = uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validation("invalid institution id")
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, apperr.Validation("invalid id")
	}
	return instID, id, nil
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(err.Error())
	}
	u, err := h.svc.Create(c.Request().Context(), &in, actorID(c))
	if err != nil {
		return err
	}
	return response.Created(c, u)
}

// CreateInInstitution forces the new account into the path institution.
func (h *Handler) CreateInInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(err.Error())
	}
	in.InstitutionID = &instID
	in.Role = auth.RoleAdminInstitutions
	u, err := h.svc.Create(c.Request().Context(), &in, actorID(c))
	if err != nil {
		return err
	}
	return response.Created(c, u)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	u, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

// GetInInstitution resolves the account within the path institution only.
func (h *Handler) GetInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	u, err := h.svc.GetInInstitution(c.Request().Context(), instID, id)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	users, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, users, p, total)
}

func (h *Handler) ListByInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	p := pagination.FromContext(c)
	users, total, err := h.svc.ListByInstitution(c.Request().Context(), instID, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, users, p, total)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(err.Error())
	}
	u, err := h.svc.Update(c.Request().Context(), id, &in)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

// UpdateInInstitution updates the account only when it belongs to the path
// institution.
func (h *Handler) UpdateInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(err.Error())
	}
	u, err := h.svc.UpdateInInstitution(c.Request().Context(), instID, id, &in)
	if err != nil {
		return err
	}
	return response.OK(c, u)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return response.Message(c, "user deleted")
}

// DeleteInInstitution deletes the account only when it belongs to the path
// institution.
func (h *Handler) DeleteInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInInstitution(c.Request().Context(), instID, id); err != nil {
		return err
	}
	return response.Message(c, "user deleted")
}

func actorID(c echo.Context) *uuid.UUID {
	if p := auth.PrincipalFromContext(c.Request().Context()); p != nil {
		id := p.ID
		return &id
	}
	return nil
}
