package institution

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
	readGroup := api.Group("", auth.RequireRole(auth.RoleAdmin, auth.RoleAdminInstitutions, auth.RoleDoctor))
	readGroup.GET("/institutions", h.List)
	readGroup.GET("/institutions/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole(auth.RoleAdmin))
	writeGroup.POST("/institutions", h.Create)
	writeGroup.PUT("/institutions/:id", h.Update)
	writeGroup.DELETE("/institutions/:id", h.Delete)

	// Admin console mirror of the institution surface.
	adminGroup := api.Group("/admin/institutions", auth.RequireRole(auth.RoleAdmin))
	adminGroup.GET("", h.List)
	adminGroup.GET("/:id", h.Get)
	adminGroup.POST("", h.Create)
	adminGroup.PUT("/:id", h.Update)
	adminGroup.DELETE("/:id", h.Delete)
}

func (h *Handler) Create(c echo.Context) error {
	var inst Institution
	if err := c.Bind(&inst); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &inst); err != nil {
		return err
	}
	return response.Created(c, inst)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	inst, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, inst)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filters := map[string]string{}
	if name := c.QueryParam("name"); name != "" {
		filters["name"] = name
	}
	if t := c.QueryParam("type"); t != "" {
		filters["type"] = t
	}
	insts, total, err := h.svc.List(c.Request().Context(), filters, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, insts, p, total)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var inst Institution
	if err := c.Bind(&inst); err != nil {
		return apperr.Validation(err.Error())
	}
	inst.ID = id
	if err := h.svc.Update(c.Request().Context(), &inst); err != nil {
		return err
	}
	return response.OK(c, inst)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return response.Message(c, "institution deleted")
}
