package combination

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Totals accumulates quantities per client and per client/combination.
// Sums are kept as decimals so fractional quantities ("2,5") add up exactly;
// the float maps are views refreshed from the exact sums on every Add.
type Totals struct {
	ByClient              map[string]float64         `json:"by_client"`
	ByClientByCombination map[string]map[Key]float64 `json:"-"`

	exactClient map[string]decimal.Decimal
	exactCombo  map[string]map[Key]decimal.Decimal
}

func NewTotals() *Totals {
	return &Totals{
		ByClient:              make(map[string]float64),
		ByClientByCombination: make(map[string]map[Key]float64),
		exactClient:           make(map[string]decimal.Decimal),
		exactCombo:            make(map[string]map[Key]decimal.Decimal),
	}
}

// Add accumulates qty for client under key.
func (t *Totals) Add(client string, key Key, qty float64) {
	d := decimal.NewFromFloat(qty)

	total := t.exactClient[client].Add(d)
	t.exactClient[client] = total
	t.ByClient[client] = total.InexactFloat64()

	exact, ok := t.exactCombo[client]
	if !ok {
		exact = make(map[Key]decimal.Decimal)
		t.exactCombo[client] = exact
		t.ByClientByCombination[client] = make(map[Key]float64)
	}
	sum := exact[key].Add(d)
	exact[key] = sum
	t.ByClientByCombination[client][key] = sum.InexactFloat64()
}

// Client returns the total for one client (zero when absent).
func (t *Totals) Client(client string) float64 {
	return t.ByClient[client]
}

// ClientExact is Client without the float conversion.
func (t *Totals) ClientExact(client string) decimal.Decimal {
	return t.exactClient[client]
}

// Combination returns the quantity for one client/combination (zero when absent).
func (t *Totals) Combination(client string, key Key) float64 {
	return t.ByClientByCombination[client][key]
}

// CombinationExact is Combination without the float conversion.
func (t *Totals) CombinationExact(client string, key Key) decimal.Decimal {
	return t.exactCombo[client][key]
}

// Clients returns the client names in sorted order.
func (t *Totals) Clients() []string {
	out := make([]string, 0, len(t.ByClient))
	for c := range t.ByClient {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Combinations returns the sorted combination keys recorded for a client.
func (t *Totals) Combinations(client string) []Key {
	combos := t.ByClientByCombination[client]
	out := make([]Key, 0, len(combos))
	for k := range combos {
		out = append(out, k)
	}
	SortKeys(out)
	return out
}

// SumExact returns the grand total across every client.
func (t *Totals) SumExact() decimal.Decimal {
	sum := decimal.Zero
	for _, v := range t.exactClient {
		sum = sum.Add(v)
	}
	return sum
}

// Sum is SumExact as a float.
func (t *Totals) Sum() float64 {
	return t.SumExact().InexactFloat64()
}
