package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

// newContextWithRoles creates an echo context with the given roles set on the
// request context.
func newContextWithRoles(method, path string, roles []string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), UserRolesKey, roles)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// Read routes accept both back-office roles; routes that trigger work on the
// database accept only faturamento.
var (
	readRoles  = []string{RoleFaturamento, RoleLeitura}
	writeRoles = []string{RoleFaturamento}
)

func TestRequireRole_RouteMatrix(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		path    string
		require []string
		granted []string
		allowed bool
	}{
		{"leitura reads reconciliation", http.MethodGet, "/periods/2026-01/reconciliation", readRoles, []string{RoleLeitura}, true},
		{"leitura reads statements", http.MethodGet, "/periods/2026-01/statements", readRoles, []string{RoleLeitura}, true},
		{"leitura cannot generate", http.MethodPost, "/periods/2026-01/statements/generate", writeRoles, []string{RoleLeitura}, false},
		{"leitura cannot refresh", http.MethodPost, "/periods/2026-01/reconciliation/refresh", writeRoles, []string{RoleLeitura}, false},
		{"faturamento generates", http.MethodPost, "/periods/2026-01/statements/generate", writeRoles, []string{RoleFaturamento}, true},
		{"admin generates", http.MethodPost, "/periods/2026-01/statements/generate", writeRoles, []string{RoleAdmin}, true},
		{"unknown role denied", http.MethodGet, "/clients", readRoles, []string{"physician"}, false},
		{"no roles denied", http.MethodGet, "/clients", readRoles, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContextWithRoles(tt.method, tt.path, tt.granted)
			err := RequireRole(tt.require...)(okHandler)(c)
			if tt.allowed && err != nil {
				t.Errorf("expected access, got %v", err)
			}
			if !tt.allowed {
				expectStatus(t, err, http.StatusForbidden)
			}
		})
	}
}

func TestRequireRole_ForbiddenMessageNamesRoles(t *testing.T) {
	c, _ := newContextWithRoles(http.MethodGet, "/", []string{RoleLeitura})
	err := RequireRole(RoleFaturamento, RoleAdmin)(okHandler)(c)
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if msg, _ := he.Message.(string); msg != "required role: faturamento or admin" {
		t.Errorf("unexpected message %q", msg)
	}
}
