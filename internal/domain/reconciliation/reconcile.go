// Package reconciliation compares what was performed (exam volume) against
// what was invoiced (billing line items) per client and per combination.
package reconciliation

import (
	"math"
	"sort"

	"github.com/medimagem/faturamento/internal/domain/combination"
)

const (
	// MaxDiscrepancies caps how many client rows a report shows.
	MaxDiscrepancies = 20
	// MaxMissingCombinations caps the missing combinations listed per client.
	MaxMissingCombinations = 5
)

// MissingCombination is a combination the client performed more of than was
// billed.
type MissingCombination struct {
	combination.Key
	Quantity float64 `json:"quantidade"`
}

// Discrepancy is one client whose volume and billing totals differ.
// Diff > 0 means under-billed; Diff < 0 means over-billed or billed without
// volume.
type Discrepancy struct {
	Client              string               `json:"cliente"`
	VolumeTotal         float64              `json:"volume_total"`
	BillingTotal        float64              `json:"billing_total"`
	Diff                float64              `json:"diff"`
	MissingCombinations []MissingCombination `json:"missing_combinations,omitempty"`
	Suggestion          string               `json:"suggestion,omitempty"`
}

// Report is the result of Reconcile.
type Report struct {
	Discrepancies      []Discrepancy `json:"discrepancies"`
	TotalDiscrepancies int           `json:"total_discrepancies"`
	VolumeTotal        float64       `json:"volume_total"`
	BillingTotal       float64       `json:"billing_total"`
}

// Reconcile diffs volume against billing for every client present on either
// side. Clients whose totals match are left out. The result is ordered by
// absolute difference (largest first, ties by client name) and capped at
// MaxDiscrepancies; TotalDiscrepancies keeps the uncapped count.
func Reconcile(volume, billing *combination.Totals) *Report {
	if volume == nil {
		volume = combination.NewTotals()
	}
	if billing == nil {
		billing = combination.NewTotals()
	}

	seen := make(map[string]struct{}, len(volume.ByClient)+len(billing.ByClient))
	var rows []Discrepancy
	consider := func(client string) {
		if _, ok := seen[client]; ok {
			return
		}
		seen[client] = struct{}{}
		v, b := volume.ClientExact(client), billing.ClientExact(client)
		diff := v.Sub(b)
		if diff.IsZero() {
			return
		}
		d := Discrepancy{
			Client:       client,
			VolumeTotal:  v.InexactFloat64(),
			BillingTotal: b.InexactFloat64(),
			Diff:         diff.InexactFloat64(),
		}
		if diff.IsPositive() {
			d.MissingCombinations = MissingCombinations(client, volume, billing)
		}
		rows = append(rows, d)
	}
	for _, c := range volume.Clients() {
		consider(c)
	}
	for _, c := range billing.Clients() {
		consider(c)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		ai, aj := math.Abs(rows[i].Diff), math.Abs(rows[j].Diff)
		if ai != aj {
			return ai > aj
		}
		return rows[i].Client < rows[j].Client
	})

	rep := &Report{
		TotalDiscrepancies: len(rows),
		VolumeTotal:        volume.Sum(),
		BillingTotal:       billing.Sum(),
	}
	if len(rows) > MaxDiscrepancies {
		rows = rows[:MaxDiscrepancies]
	}
	if rows == nil {
		rows = []Discrepancy{}
	}
	rep.Discrepancies = rows
	return rep
}

// MissingCombinations lists, for the client's volume combinations, those
// where volume exceeds billing, largest shortfall first, at most
// MaxMissingCombinations.
func MissingCombinations(client string, volume, billing *combination.Totals) []MissingCombination {
	var out []MissingCombination
	for _, key := range volume.Combinations(client) {
		missing := volume.CombinationExact(client, key).Sub(billing.CombinationExact(client, key))
		if missing.IsPositive() {
			out = append(out, MissingCombination{Key: key, Quantity: missing.InexactFloat64()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Key.Less(out[j].Key)
	})
	if len(out) > MaxMissingCombinations {
		out = out[:MaxMissingCombinations]
	}
	return out
}
