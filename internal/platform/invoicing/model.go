// Package invoicing pushes approved statements to the external invoicing
// system. It is a polling worker with retry on transient HTTP failures.
package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the payload sent for one approved statement.
type Invoice struct {
	StatementID uuid.UUID       `json:"statement_id"`
	ClientID    *uuid.UUID      `json:"client_id,omitempty"`
	ClientName  string          `json:"client_name"`
	Period      string          `json:"period"`
	TotalExams  float64         `json:"total_exams"`
	GrossValue  decimal.Decimal `json:"gross_value"`
	NetValue    decimal.Decimal `json:"net_value"`
}

// Attempt statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Attempt records the outcome of syncing one statement, after retries.
type Attempt struct {
	ID          uuid.UUID `json:"id"`
	StatementID uuid.UUID `json:"statement_id"`
	Period      string    `json:"period"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	StatusCode  int       `json:"status_code"`
	Error       string    `json:"error,omitempty"`
	ExternalID  string    `json:"external_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
