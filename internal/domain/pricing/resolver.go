// Package pricing resolves unit prices per client and combination, using the
// volume denominator the client's contract asks for.
package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/platform/batch"
)

var (
	// ErrNoPricing means none of the client's combinations has a price; the
	// client is left out of the statement.
	ErrNoPricing = errors.New("no combination priced")
	// ErrClientNotRegistered means the name matches no directory entry, so
	// there is no client id to price against.
	ErrClientNotRegistered = errors.New("client not registered")
)

// Line is one priced combination.
type Line struct {
	combination.Key
	Quantity  float64         `json:"quantidade"`
	Volume    float64         `json:"volume_referencia"`
	OnCall    bool            `json:"plantao"`
	UnitPrice decimal.Decimal `json:"valor_unitario"`
	Value     decimal.Decimal `json:"valor_total"`
}

// ClientPricing is the pricing outcome for one client.
type ClientPricing struct {
	Client   string            `json:"cliente"`
	ClientID uuid.UUID         `json:"cliente_id"`
	Rule     VolumeRule        `json:"regra_volume"`
	Lines    []Line            `json:"linhas"`
	Unpriced []combination.Key `json:"sem_preco,omitempty"`
	Quantity float64           `json:"total_exames"`
	Gross    decimal.Decimal   `json:"valor_bruto"`
}

type Resolver struct {
	lookup      Lookup
	concurrency int
	strictRule  bool
	logger      zerolog.Logger
}

// NewResolver prices up to concurrency clients at a time. With strictRule,
// clients whose contract carries an unknown volume rule fail instead of
// falling back to the grand total.
func NewResolver(lookup Lookup, concurrency int, strictRule bool, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup:      lookup,
		concurrency: concurrency,
		strictRule:  strictRule,
		logger:      logger.With().Str("component", "pricing").Logger(),
	}
}

// PriceClient prices every combination of one client. Combinations without a
// configured price are listed in Unpriced; ErrNoPricing is returned when
// none priced. A failing remote call aborts this client only.
func (r *Resolver) PriceClient(ctx context.Context, id *clients.ClientIdentity, combos map[combination.Key]float64) (*ClientPricing, error) {
	if id == nil || id.ID == uuid.Nil {
		return nil, ErrClientNotRegistered
	}
	name := id.CanonicalName()

	rule, err := ParseVolumeRule(id.VolumeRule)
	if err != nil {
		if r.strictRule {
			return nil, err
		}
		r.logger.Warn().Str("client", name).Str("volume_rule", id.VolumeRule).Msg("unknown volume rule, using grand total")
	}

	denoms := ComputeDenominators(combos)
	keys := make([]combination.Key, 0, len(combos))
	for k := range combos {
		keys = append(keys, k)
	}
	combination.SortKeys(keys)

	cp := &ClientPricing{Client: name, ClientID: id.ID, Rule: rule, Lines: []Line{}, Gross: decimal.Zero}
	for _, k := range keys {
		q := Query{ClientID: id.ID, Key: k, Volume: denoms.For(rule, k), OnCall: IsOnCall(k.Priority)}
		price, ok, err := r.lookup.UnitPrice(ctx, q)
		if err != nil {
			return nil, err
		}
		if !ok {
			cp.Unpriced = append(cp.Unpriced, k)
			continue
		}
		qty := combos[k]
		value := price.Mul(decimal.NewFromFloat(qty))
		cp.Lines = append(cp.Lines, Line{
			Key: k, Quantity: qty, Volume: q.Volume, OnCall: q.OnCall,
			UnitPrice: price, Value: value,
		})
		cp.Quantity += qty
		cp.Gross = cp.Gross.Add(value)
	}

	if len(cp.Lines) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrNoPricing)
	}
	if len(cp.Unpriced) > 0 {
		r.logger.Warn().Str("client", name).Int("unpriced", len(cp.Unpriced)).Msg("combinations without configured price")
	}
	return cp, nil
}

// PriceAll prices every client in totals. Failures are collected per client
// and never stop the others.
func (r *Resolver) PriceAll(ctx context.Context, dir *clients.Directory, totals *combination.Totals) *batch.Report[*ClientPricing] {
	rep := batch.Run(ctx, totals.Clients(), r.concurrency,
		func(name string) string { return name },
		func(ctx context.Context, name string) (*ClientPricing, error) {
			id, _ := dir.Lookup(name)
			return r.PriceClient(ctx, id, totals.ByClientByCombination[name])
		})
	for _, f := range rep.Failed {
		ev := r.logger.Error()
		if errors.Is(f.Err, ErrNoPricing) || errors.Is(f.Err, ErrClientNotRegistered) {
			ev = r.logger.Warn()
		}
		ev.Str("client", f.Key).Str("reason", f.Reason).Msg("client left out of pricing")
	}
	return rep
}
