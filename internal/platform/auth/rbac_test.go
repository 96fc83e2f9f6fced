package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHasRole(t *testing.T) {
	tests := []struct {
		granted  []string
		required []string
		want     bool
	}{
		{[]string{RoleFaturamento}, []string{RoleFaturamento}, true},
		{[]string{RoleLeitura}, []string{RoleFaturamento}, false},
		{[]string{RoleAdmin}, []string{RoleFaturamento}, true},
		{nil, []string{RoleFaturamento}, false},
		{[]string{RoleLeitura}, []string{RoleFaturamento, RoleLeitura}, true},
	}
	for _, tt := range tests {
		if got := HasRole(tt.granted, tt.required...); got != tt.want {
			t.Errorf("HasRole(%v, %v) = %v, want %v", tt.granted, tt.required, got, tt.want)
		}
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, []string{RoleFaturamento}))
	rec := httptest.NewRecorder()
	if err := RequireRole(RoleFaturamento)(okHandler)(e.NewContext(req, rec)); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserRolesKey, []string{RoleLeitura}))
	err := RequireRole(RoleFaturamento)(okHandler)(e.NewContext(req, httptest.NewRecorder()))
	expectStatus(t, err, http.StatusForbidden)
}
