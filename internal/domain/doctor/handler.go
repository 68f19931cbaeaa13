package doctor

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
	grp := api.Group("/doctors", auth.RequirePermission(auth.PermManageDoctors))
	grp.GET("", h.List)
	grp.GET("/:id", h.Get)
	grp.POST("", h.Create)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)

	scoped := api.Group("/institutions/:institutionId/doctors",
		auth.RequireRole(auth.RoleAdmin, auth.RoleAdminInstitutions, auth.RoleDoctor),
		auth.RequireInstitutionScope("institutionId"),
	)
	scoped.GET("", h.ListByInstitution)
}

func (h *Handler) Create(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return apperr.Validation(err.Error())
	}
	d, err := h.svc.Create(c.Request().Context(), &in)
	if err != nil {
		return err
	}
	return response.Created(c, d)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	d, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, d)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filters := map[string]string{}
	if name := c.QueryParam("name"); name != "" {
		filters["name"] = name
	}
	if spec := c.QueryParam("specialization"); spec != "" {
		filters["specialization"] = spec
	}
	docs, total, err := h.svc.List(c.Request().Context(), filters, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, docs, p, total)
}

func (h *Handler) ListByInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	p := pagination.FromContext(c)
	docs, total, err := h.svc.ListByInstitution(c.Request().Context(), instID, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, docs, p, total)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var d Doctor
	if err := c.Bind(&d); err != nil {
		return apperr.Validation(err.Error())
	}
	d.ID = id
	if err := h.svc.Update(c.Request().Context(), &d); err != nil {
		return err
	}
	return response.OK(c, d)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return response.Message(c, "doctor deleted")
}
