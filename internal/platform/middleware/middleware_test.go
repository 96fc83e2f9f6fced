package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/platform/auth"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	handler := RequestID()(func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rid := rec.Header().Get(RequestIDHeader)
	if rid == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if seen != rid {
		t.Errorf("context request_id %q does not match header %q", seen, rid)
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "existing-id-123")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := RequestID()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rec.Header().Get(RequestIDHeader); got != "existing-id-123" {
		t.Errorf("expected existing-id-123, got %s", got)
	}
}

func TestLogger_IncludesUserAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/periods/2026-01/reconciliation", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "ana", []string{auth.RoleFaturamento}))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "rid-1")

	handler := Logger(logger)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "nope")
	})
	_ = handler(c)

	out := buf.String()
	for _, want := range []string{`"request_id":"rid-1"`, `"status":404`, `"user":"ana"`, `"level":"warn"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line, got %s", want, out)
		}
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery(logger)(func(c echo.Context) error {
		panic("pricing exploded")
	})

	err := handler(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 HTTPError, got %v", err)
	}
	if !strings.Contains(buf.String(), "pricing exploded") {
		t.Error("expected panic value to be logged")
	}
}

func serveWithHeaders(t *testing.T, cfg SecurityHeadersConfig, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), rec)

	handler := SecurityHeaders(cfg)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	rec := serveWithHeaders(t, SecurityHeadersConfig{PublicPrefixes: []string{"/health"}}, "/api/v1/statements/2026-01")

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Vary":                   "Authorization",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: expected %q, got %q", k, v, got)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("expected no HSTS without a max age, got %q", got)
	}
}

func TestSecurityHeaders_PublicPathRevalidates(t *testing.T) {
	rec := serveWithHeaders(t, SecurityHeadersConfig{PublicPrefixes: []string{"/health"}}, "/health")

	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control: expected no-cache, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "" {
		t.Errorf("Vary: expected none on a public path, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options: expected nosniff, got %q", got)
	}
}

func TestSecurityHeaders_HSTS(t *testing.T) {
	rec := serveWithHeaders(t, SecurityHeadersConfig{HSTSMaxAge: 365 * 24 * time.Hour}, "/api/v1/reconciliation/2026-01")

	if got, want := rec.Header().Get("Strict-Transport-Security"), "max-age=31536000; includeSubDomains"; got != want {
		t.Errorf("Strict-Transport-Security: expected %q, got %q", want, got)
	}
}
