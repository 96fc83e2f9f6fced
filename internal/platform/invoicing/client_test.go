package invoicing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func testInvoice() *Invoice {
	return &Invoice{StatementID: uuid.New(), ClientName: "ACME", Period: "2026-01",
		GrossValue: decimal.NewFromInt(1000), NetValue: decimal.NewFromInt(950)}
}

// sequenceServer answers with codes in order, repeating the last one.
func sequenceServer(t *testing.T, codes ...int) (*httptest.Server, *int32, *[]time.Time) {
	t.Helper()
	var calls int32
	var times []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		times = append(times, time.Now())
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		code := codes[len(codes)-1]
		if n < len(codes) {
			code = codes[n]
		}
		w.WriteHeader(code)
		if code == http.StatusCreated {
			_ = json.NewEncoder(w).Encode(map[string]string{"id": "inv-42"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &times
}

func TestClient_RetriesTransientStatuses(t *testing.T) {
	srv, calls, times := sequenceServer(t, http.StatusTooManyRequests, http.StatusTooEarly, http.StatusInternalServerError, http.StatusCreated)
	c := NewClient(srv.URL, "secret", WithRetry(5, 5*time.Millisecond))

	res, err := c.Send(context.Background(), testInvoice())
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Attempts != 4 || atomic.LoadInt32(calls) != 4 {
		t.Errorf("expected 4 attempts, got %d", res.Attempts)
	}
	if res.ExternalID != "inv-42" {
		t.Errorf("expected external id, got %q", res.ExternalID)
	}
	// Delays double: 5ms, 10ms, 20ms.
	ts := *times
	if gap := ts[3].Sub(ts[2]); gap < 20*time.Millisecond {
		t.Errorf("expected third delay >= 20ms, got %s", gap)
	}
}

func TestClient_GivesUpAfterCap(t *testing.T) {
	srv, calls, _ := sequenceServer(t, http.StatusInternalServerError)
	c := NewClient(srv.URL, "secret", WithRetry(3, time.Millisecond))

	res, err := c.Send(context.Background(), testInvoice())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
	if res.Attempts != 3 || atomic.LoadInt32(calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestClient_NonRetryableFailsImmediately(t *testing.T) {
	srv, calls, _ := sequenceServer(t, http.StatusBadRequest)
	c := NewClient(srv.URL, "secret", WithRetry(5, time.Millisecond))

	if _, err := c.Send(context.Background(), testInvoice()); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Errorf("expected a single call, got %d", *calls)
	}
}

func TestClient_ContextCancelStopsBackoff(t *testing.T) {
	srv, _, _ := sequenceServer(t, http.StatusTooManyRequests)
	c := NewClient(srv.URL, "secret", WithRetry(5, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Send(ctx, testInvoice()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestRetryable(t *testing.T) {
	for code, want := range map[int]bool{425: true, 429: true, 500: true, 502: false, 400: false, 503: false} {
		if Retryable(code) != want {
			t.Errorf("Retryable(%d) = %v, want %v", code, !want, want)
		}
	}
}
