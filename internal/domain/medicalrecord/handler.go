package medicalrecord

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medcv/medcv/internal/platform/auth"
	"github.com/medcv/medcv/pkg/apperr"
	"github.com/medcv/medcv/pkg/pagination"
	"github.com/medcv/medcv/pkg/response"
)

// emergencyHeader carries the override justification.
const emergencyHeader = "X-Emergency-Override"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the authenticated record surface. RegisterPublicRoutes
// must be called separately for the unauthenticated patient lookup.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/medical-records")
	grp.GET("", h.List)
	grp.GET("/:id", h.Get)
	grp.POST("", h.Create)
	grp.PUT("/:id", h.Update)
	grp.DELETE("/:id", h.Delete)
	grp.GET("/patient/:patientId/emergency", h.EmergencyPatientRecords)

	scoped := api.Group("/institutions/:institutionId/medical-records",
		auth.RequirePermission(auth.PermManageMedicalRecords),
		auth.RequireInstitutionScope("institutionId"),
	)
	scoped.GET("", h.ListByInstitution)
}

// RegisterPublicRoutes exposes the record history lookup without a token so a
// patient can be looked up by their card identifier.
func (h *Handler) RegisterPublicRoutes(api *echo.Group) {
	api.GET("/medical-records/patient/:patientId", h.PatientRecords)
}

func (h *Handler) Create(c echo.Context) error {
	var rec MedicalRecord
	if err := c.Bind(&rec); err != nil {
		return apperr.Validation(err.Error())
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.Create(c.Request().Context(), p, &rec); err != nil {
		return err
	}
	return response.Created(c, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	rec, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return response.OK(c, rec)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	var rec MedicalRecord
	if err := c.Bind(&rec); err != nil {
		return apperr.Validation(err.Error())
	}
	rec.ID = id
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.Update(c.Request().Context(), p, &rec); err != nil {
		return err
	}
	return response.OK(c, rec)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return apperr.Validation("invalid id")
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return err
	}
	return response.Message(c, "medical record deleted")
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	filters := map[string]string{}
	for _, key := range []string{"patientId", "doctorId", "institutionId", "visitType"} {
		if v := c.QueryParam(key); v != "" {
			filters[key] = v
		}
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	recs, total, err := h.svc.List(c.Request().Context(), p, filters, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return response.List(c, recs, pg, total)
}

func (h *Handler) ListByInstitution(c echo.Context) error {
	instID, err := uuid.Parse(c.Param("institutionId"))
	if err != nil {
		return apperr.Validation("invalid institution id")
	}
	pg := pagination.FromContext(c)
	filters := map[string]string{"institutionId": instID.String()}
	if vt := c.QueryParam("visitType"); vt != "" {
		filters["visitType"] = vt
	}
	p := auth.PrincipalFromContext(c.Request().Context())
	recs, total, err := h.svc.List(c.Request().Context(), p, filters, pg.Limit, pg.Offset())
	if err != nil {
		return err
	}
	return response.List(c, recs, pg, total)
}

func (h *Handler) PatientRecords(c echo.Context) error {
	history, err := h.svc.PatientRecords(c.Request().Context(), c.Param("patientId"))
	if err != nil {
		return err
	}
	return response.OK(c, history)
}

func (h *Handler) EmergencyPatientRecords(c echo.Context) error {
	p := auth.PrincipalFromContext(c.Request().Context())
	history, err := h.svc.EmergencyPatientRecords(c.Request().Context(), p, c.Param("patientId"), EmergencyAccess{
		Justification: c.Request().Header.Get(emergencyHeader),
		Resource:      c.Request().URL.Path,
		Method:        c.Request().Method,
		IPAddress:     c.RealIP(),
	})
	if err != nil {
		return err
	}
	return response.OK(c, history)
}
