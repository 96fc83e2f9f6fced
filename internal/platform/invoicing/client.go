package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// StatusError is a non-2xx response from the invoicing API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("invoicing api returned %d: %s", e.Code, e.Body)
}

// Retryable reports whether the status is worth another attempt.
func Retryable(code int) bool {
	return code == http.StatusTooEarly || code == http.StatusTooManyRequests || code == http.StatusInternalServerError
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption { return func(c *Client) { c.http = h } }

// WithRetry sets the attempt cap and the first retry delay; later delays
// double.
func WithRetry(maxAttempts int, baseDelay time.Duration) ClientOption {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.baseDelay = baseDelay
	}
}

// WithRateLimit paces requests to rps per second.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// Client talks to the external invoicing API.
type Client struct {
	baseURL     string
	apiKey      string
	http        *http.Client
	maxAttempts int
	baseDelay   time.Duration
	limiter     *rate.Limiter
}

func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		http:        &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 5,
		baseDelay:   time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = 1
	}
	return c
}

// Result is the outcome of Send.
type Result struct {
	ExternalID string
	Attempts   int
	StatusCode int
}

type createResponse struct {
	ID string `json:"id"`
}

// Send posts inv to /invoices. Responses 425, 429 and 500 are retried with
// exponential backoff up to the attempt cap; any other failure returns at
// once.
func (c *Client) Send(ctx context.Context, inv *Invoice) (*Result, error) {
	payload, err := json.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("encode invoice: %w", err)
	}

	res := &Result{}
	delay := c.baseDelay
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		id, code, err := c.post(ctx, payload, inv.StatementID.String())
		res.StatusCode = code
		if err == nil {
			res.ExternalID = id
			return res, nil
		}

		var se *StatusError
		if !errors.As(err, &se) || !Retryable(se.Code) || attempt >= c.maxAttempts {
			return res, err
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return res, ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
}

func (c *Client) post(ctx context.Context, payload []byte, idempotencyKey string) (string, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoices", bytes.NewReader(payload))
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", resp.StatusCode, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	var cr createResponse
	if len(body) > 0 {
		_ = json.Unmarshal(body, &cr)
	}
	return cr.ID, resp.StatusCode, nil
}
