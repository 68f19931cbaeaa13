package patient

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

// createRequest wraps the patient payload with the optional plaintext
// password for credentialed patients.
type createRequest struct {
	Patient
	Password string `json:"password"`
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/patients", auth.RequirePermission(auth.PermManagePatients))
	grp.GET("", h.List)
	grp.GET("/:id", h.Get)
	grp.POST("", h.Create)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	grp.GET("/card/:patientId", h.GetByCard)

	// Portal self view; only the patient's own token passes.
	api.GET("/patients/:id/profile", h.Get, auth.RequirePatientSelf("id"))

	scoped := api.Group("/institutions/:institutionId/patients",
		auth.RequireRole(auth.RoleAdmin, auth.RoleAdminInstitutions, auth.RoleDoctor),
		auth.RequirePermission(auth.PermManagePatients),
		auth.RequireInstitutionScope("institutionId"),
	)
	scoped.GET("", h.ListByInstitution)
	scoped.POST("", h.CreateInInstitution)
	scoped.GET("/:id", h.GetInInstitution)
	scoped.PUT("/:id", h.UpdateInInstitution)
	scoped.DELETE("/:id", h.DeleteInInstitution)
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
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &req.Patient, req.Password); err != nil {
		return err
	}
	return response.Created(c, req.Patient)
}

// CreateInInstitution forces the new patient into the path institution.
func (h *Handler) CreateInInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	req.InstitutionID = &instID
	if err := h.svc.Create(c.Request().Context(), &req.Patient, req.Password); err != nil {
		return err
	}
	return response.Created(c, req.Patient)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, p)
}

// GetByCard looks a patient up by their card identifier.
func (h *Handler) GetByCard(c echo.Context) error {
	p, err := h.svc.GetByPatientID(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return err
	}
	return response.OK(c, p)
}

// GetInInstitution resolves the patient within the path institution only.
func (h *Handler) GetInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	p, err := h.svc.GetInInstitution(c.Request().Context(), instID, id)
	if err != nil {
		return err
	}
	return response.OK(c, p)
}

func (h *Handler) List(c echo.Context) error {
	p := pagination.FromContext(c)
	filters := map[string]string{}
	if name := c.QueryParam("name"); name != "" {
		filters["name"] = name
	}
	if pid := c.QueryParam("patientId"); pid != "" {
		filters["patientId"] = pid
	}
	pats, total, err := h.svc.List(c.Request().Context(), filters, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, pats, p, total)
}

func (h *Handler) ListByInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	p := pagination.FromContext(c)
	pats, total, err := h.svc.ListByInstitution(c.Request().Context(), instID, p.Limit, p.Offset())
	if err != nil {
		return err
	}
	return response.List(c, pats, p, total)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	req.ID = id
	if err := h.svc.Update(c.Request().Context(), &req.Patient, req.Password, actorID(c)); err != nil {
		return err
	}
	return response.OK(c, req.Patient)
}

// UpdateInInstitution updates the patient only when they belong to the path
// institution.
func (h *Handler) UpdateInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	req.ID = id
	if err := h.svc.UpdateInInstitution(c.Request().Context(), instID, &req.Patient, req.Password, actorID(c)); err != nil {
		return err
	}
	return response.OK(c, req.Patient)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return response.Message(c, "patient deleted")
}

// DeleteInInstitution deletes the patient only when they belong to the path
// institution.
func (h *Handler) DeleteInInstitution(c echo.Context) error {
	instID, id, err := scopedIDs(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInInstitution(c.Request().Context(), instID, id); err != nil {
		return err
	}
	return response.Message(c, "patient deleted")
}

func actorID(c echo.Context) *uuid.UUID {
	if p := auth.PrincipalFromContext(c.Request().Context()); p != nil {
		id := p.ID
		return &id
	}
	return nil
}
