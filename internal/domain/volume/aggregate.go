package volume

import (
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
)

// Summary is the output of Aggregate.
type Summary struct {
	*combination.Totals

	// ExcludedTotal is the quantity of non-chargeable exams, kept for
	// audit display only.
	ExcludedTotal    float64            `json:"excluded_total"`
	ExcludedByClient map[string]float64 `json:"excluded_by_client"`
	LateByClient     map[string]float64 `json:"late_by_client"`
	Records          int                `json:"records"`
}

// IsNonChargeable compares billing-type tags ignoring case, accents and
// surrounding whitespace.
func IsNonChargeable(tag, marker string) bool {
	return marker != "" && clients.NormalizeName(tag) == clients.NormalizeName(marker)
}

// Aggregate sums exam quantities per canonical client and per combination.
// Records tagged with nonChargeableTag are dropped before anything else is
// accumulated; their quantity only feeds ExcludedTotal.
func Aggregate(records []*ExamRecord, resolver clients.Resolver, nonChargeableTag string) *Summary {
	s := &Summary{
		Totals:           combination.NewTotals(),
		ExcludedByClient: make(map[string]float64),
		LateByClient:     make(map[string]float64),
	}
	excluded := decimal.Zero
	excludedBy := make(map[string]decimal.Decimal)
	late := make(map[string]decimal.Decimal)
	for _, r := range records {
		if r == nil {
			continue
		}
		qty := combination.Quantity(r.Quantity)
		client := resolver.Resolve(r.Client)

		if IsNonChargeable(r.BillingType, nonChargeableTag) {
			d := decimal.NewFromFloat(qty)
			excluded = excluded.Add(d)
			excludedBy[client] = excludedBy[client].Add(d)
			continue
		}

		s.Add(client, r.Key(), qty)
		s.Records++
		if r.Late() {
			late[client] = late[client].Add(decimal.NewFromFloat(qty))
		}
	}
	s.ExcludedTotal = excluded.InexactFloat64()
	for c, v := range excludedBy {
		s.ExcludedByClient[c] = v.InexactFloat64()
	}
	for c, v := range late {
		s.LateByClient[c] = v.InexactFloat64()
	}
	return s
}
