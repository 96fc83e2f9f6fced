package invoicing

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/medimagem/faturamento/internal/platform/db"
	"github.com/medimagem/faturamento/pkg/money"
)

// Store lists statements waiting to be invoiced and records sync outcomes.
type Store interface {
	Pending(ctx context.Context, limit int) ([]*Invoice, error)
	RecordAttempt(ctx context.Context, a *Attempt) error
	MarkInvoiced(ctx context.Context, statementID uuid.UUID) error
}

type pgStore struct{ q db.Querier }

func NewPGStore(q db.Querier) Store { return &pgStore{q: q} }

func (s *pgStore) Pending(ctx context.Context, limit int) ([]*Invoice, error) {
	rows, err := s.q.Query(ctx, `SELECT d.id, d.cliente_id, COALESCE(d.cliente_nome, ''), d.periodo_referencia,
			COALESCE(d.total_exames, 0)::float8, d.valor_bruto::text, d.valor_liquido::text
		FROM demonstrativos_faturamento d
		WHERE d.status = 'aprovado'
		  AND NOT EXISTS (
			SELECT 1 FROM invoicing_sync_log l
			WHERE l.statement_id = d.id AND l.status = 'success')
		ORDER BY d.created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending invoices: %w", err)
	}
	defer rows.Close()

	var out []*Invoice
	for rows.Next() {
		var inv Invoice
		var gross, net *string
		if err := rows.Scan(&inv.StatementID, &inv.ClientID, &inv.ClientName, &inv.Period,
			&inv.TotalExams, &gross, &net); err != nil {
			return nil, fmt.Errorf("scan pending invoice: %w", err)
		}
		inv.GrossValue = money.FromNullable(gross)
		inv.NetValue = money.FromNullable(net)
		out = append(out, &inv)
	}
	return out, rows.Err()
}

func (s *pgStore) RecordAttempt(ctx context.Context, a *Attempt) error {
	_, err := s.q.Exec(ctx, `INSERT INTO invoicing_sync_log
		(id, statement_id, periodo, status, attempts, status_code, error, external_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0), NULLIF($7, ''), NULLIF($8, ''), $9)`,
		a.ID, a.StatementID, a.Period, a.Status, a.Attempts, a.StatusCode, a.Error, a.ExternalID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("record invoicing attempt: %w", err)
	}
	return nil
}

func (s *pgStore) MarkInvoiced(ctx context.Context, statementID uuid.UUID) error {
	_, err := s.q.Exec(ctx, `UPDATE demonstrativos_faturamento SET status = 'faturado' WHERE id = $1`, statementID)
	if err != nil {
		return fmt.Errorf("mark statement %s invoiced: %w", statementID, err)
	}
	return nil
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.Mutex
	pending  []*Invoice
	attempts []*Attempt
	invoiced map[uuid.UUID]bool
}

func NewMemoryStore(pending ...*Invoice) *MemoryStore {
	return &MemoryStore{pending: pending, invoiced: make(map[uuid.UUID]bool)}
}

func (m *MemoryStore) Pending(_ context.Context, limit int) ([]*Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Invoice
	for _, inv := range m.pending {
		if m.invoiced[inv.StatementID] {
			continue
		}
		out = append(out, inv)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) RecordAttempt(_ context.Context, a *Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

func (m *MemoryStore) MarkInvoiced(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiced[id] = true
	return nil
}

// Attempts returns every recorded attempt.
func (m *MemoryStore) Attempts() []*Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Attempt(nil), m.attempts...)
}
