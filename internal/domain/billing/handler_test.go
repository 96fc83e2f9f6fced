package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type mockRepo struct {
	items     []*LineItem
	lastNames []string
}

func (m *mockRepo) ListByPeriod(_ context.Context, period string, clientNames []string) ([]*LineItem, error) {
	m.lastNames = clientNames
	var out []*LineItem
	for _, li := range m.items {
		if li.Period != period {
			continue
		}
		if len(clientNames) > 0 && !contains(clientNames, li.Client) {
			continue
		}
		out = append(out, li)
	}
	return out, nil
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func TestHandler_ListLineItems(t *testing.T) {
	repo := &mockRepo{items: []*LineItem{
		item("ACME", "MR", "NE", "SC", "Rotina", qty(1), "10"),
		item("BETA", "MR", "NE", "SC", "Rotina", qty(1), "10"),
		item("GAMA", "MR", "NE", "SC", "Rotina", qty(1), "10"),
	}}
	h := NewHandler(repo)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/periods/2026-01/billing-items?client=ACME,BETA", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("period")
	c.SetParamValues("2026-01")

	if err := h.ListLineItems(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []LineItem `json:"data"`
		Total int        `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.Total != 2 {
		t.Errorf("expected 2 items, got %d", body.Total)
	}
	if len(repo.lastNames) != 2 {
		t.Errorf("expected comma-separated clients to be split, got %v", repo.lastNames)
	}
}

func TestHandler_ListLineItems_InvalidPeriod(t *testing.T) {
	h := NewHandler(&mockRepo{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/periods/2026-13/billing-items", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("period")
	c.SetParamValues("2026-13")

	err := h.ListLineItems(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", err)
	}
}
