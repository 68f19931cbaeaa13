package role

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/admin/roles",
		auth.RequireRole(auth.RoleAdmin),
		auth.RequirePermission(auth.PermManageRoles),
	)
	grp.GET("", h.List)
	grp.GET("/:id", h.Get)
	grp.POST("", h.Create)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var r Role
	if err := c.Bind(&r); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &r); err != nil {
		return err
	}
	return response.Created(c, r)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	r, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, r)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	roles, total, err := h.svc.List(c.Request().Context(), p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, roles, p, total)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var r Role
	if err := c.Bind(&r); err != nil {
		return apperr.Validation(err.Error())
	}
	r.ID = id
	if err := h.svc.Update(c.Request().Context(), &r); err != nil {
		return err
	}
	return response.OK(c, r)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return response.Message(c, "role deleted")
}
