package pricing

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/platform/db"
)

// Query is one unit-price question for the remote pricing function.
type Query struct {
	ClientID uuid.UUID
	Key      combination.Key
	Volume   float64
	OnCall   bool
}

// Lookup resolves unit prices. ok is false when no price is configured.
type Lookup interface {
	UnitPrice(ctx context.Context, q Query) (price decimal.Decimal, ok bool, err error)
}

type pgLookup struct{ q db.Querier }

// NewPGLookup calls calcular_preco_exame in the database.
func NewPGLookup(q db.Querier) Lookup { return &pgLookup{q: q} }

func (l *pgLookup) UnitPrice(ctx context.Context, q Query) (decimal.Decimal, bool, error) {
	var raw *string
	err := l.q.QueryRow(ctx,
		`SELECT calcular_preco_exame($1, $2, $3, $4, $5, $6::integer, $7)::text`,
		q.ClientID, q.Key.Modality, q.Key.Specialty, q.Key.Category, q.Key.Priority,
		int64(math.Round(q.Volume)), q.OnCall,
	).Scan(&raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("calcular_preco_exame %s: %w", q.Key, err)
	}
	if raw == nil {
		return decimal.Zero, false, nil
	}
	price, err := decimal.NewFromString(*raw)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("parse price %q for %s: %w", *raw, q.Key, err)
	}
	return price, true, nil
}

type rateLimited struct {
	next    Lookup
	limiter *rate.Limiter
}

// RateLimited paces calls to next at rps per second. rps <= 0 disables
// pacing.
func RateLimited(next Lookup, rps float64) Lookup {
	if rps <= 0 {
		return next
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *rateLimited) UnitPrice(ctx context.Context, q Query) (decimal.Decimal, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return decimal.Zero, false, err
	}
	return r.next.UnitPrice(ctx, q)
}
