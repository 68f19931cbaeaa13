package institution

import (
	"testing"

	"github.com/labstack/echo/v4"
)

func TestRegisterRoutes_ExposesAdminMirror(t *testing.T) {
	svc, _, _, _ := newTestService()
	h := NewHandler(svc)

	e := echo.New()
	h.RegisterRoutes(e.Group("/api"))

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+":"+r.Path] = true
	}

	expected := []string{
		"GET:/api/institutions",
		"GET:/api/institutions/:id",
		"POST:/api/institutions",
		"PUT:/api/institutions/:id",
		"DELETE:/api/institutions/:id",
		"GET:/api/admin/institutions",
		"GET:/api/admin/institutions/:id",
		"POST:/api/admin/institutions",
		"PUT:/api/admin/institutions/:id",
		"DELETE:/api/admin/institutions/:id",
	}
	for _, route := range expected {
		if !registered[route] {
			t.Errorf("expected route %s to be registered", route)
		}
	}
}
