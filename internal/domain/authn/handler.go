package authn

import (
	"github.com/labstack/echo/v4"

	"github.com/medcv/medcv/pkg/apperr"
	"github.com/medcv/medcv/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the public authentication surface. Sign-out is wired
// separately behind the authentication middleware.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	grp := api.Group("/auth")
	grp.POST("/sign-in", h.SignIn)
	grp.POST("/patient/sign-in", h.PatientSignIn)
	grp.POST("/sign-up", h.SignUp)
}

// RegisterAuthedRoutes wires the routes that need a valid token.
func (h *Handler) RegisterAuthedRoutes(api *echo.Group) {
	api.POST("/auth/sign-out", h.SignOut)
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	sess, err := h.svc.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return response.OK(c, sess)
}

type patientSignInRequest struct {
	PatientID string `json:"patientId"`
	Password  string `json:"password"`
}

func (h *Handler) PatientSignIn(c echo.Context) error {
	var req patientSignInRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	sess, err := h.svc.PatientSignIn(c.Request().Context(), req.PatientID, req.Password)
	if err != nil {
		return err
	}
	return response.OK(c, sess)
}

func (h *Handler) SignUp(c echo.Context) error {
	var req SignUpInput
	if err := c.Bind(&req); err != nil {
		return apperr.Validation(err.Error())
	}
	sess, err := h.svc.SignUp(c.Request().Context(), &req)
	if err != nil {
		return err
	}
	return response.Created(c, sess)
}

func (h *Handler) SignOut(c echo.Context) error {
	if err := h.svc.SignOut(c.Request().Context()); err != nil {
		return err
	}
	return response.Message(c, "signed out")
}
