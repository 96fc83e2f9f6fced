package volume

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type mockRepo struct {
	items      []*ExamRecord
	err        error
	lastClient string
}

func (m *mockRepo) ListByPeriod(_ context.Context, period, client string) ([]*ExamRecord, error) {
	m.lastClient = client
	if m.err != nil {
		return nil, m.err
	}
	var out []*ExamRecord
	for _, r := range m.items {
		if r.Period == period && (client == "" || r.Client == client) {
			out = append(out, r)
		}
	}
	return out, nil
}

func newExamContext(e *echo.Echo, target, p string) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
	c.SetParamNames("period")
	c.SetParamValues(p)
	return c, rec
}

func TestHandler_ListExams(t *testing.T) {
	repo := &mockRepo{}
	for _, client := range []string{"ACME", "ACME", "BETA"} {
		repo.items = append(repo.items, exam(client, "MR", "NE", "SC", "Rotina", qty(1), ""))
	}
	h := NewHandler(repo)
	e := echo.New()

	c, rec := newExamContext(e, "/periods/2026-01/exams?client=ACME&limit=1", "2026-01")
	if err := h.ListExams(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data    []ExamRecord `json:"data"`
		Total   int          `json:"total"`
		HasMore bool         `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if repo.lastClient != "ACME" {
		t.Errorf("expected client filter ACME, got %q", repo.lastClient)
	}
	if body.Total != 2 || len(body.Data) != 1 || !body.HasMore {
		t.Errorf("expected first of 2 ACME exams, got %+v", body)
	}
}

func TestHandler_ListExams_Errors(t *testing.T) {
	e := echo.New()

	c, _ := newExamContext(e, "/periods/01-2026/exams", "01-2026")
	err := NewHandler(&mockRepo{}).ListExams(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad period, got %v", err)
	}

	c, _ = newExamContext(e, "/periods/2026-01/exams", "2026-01")
	err = NewHandler(&mockRepo{err: errors.New("db down")}).ListExams(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on repository failure, got %v", err)
	}
}
