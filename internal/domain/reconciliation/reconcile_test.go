package reconciliation

import (
	"fmt"
	"testing"

	"github.com/medimagem/faturamento/internal/domain/combination"
)

var rotina = combination.NewKey("MR", "NE", "SC", "Rotina")

type row struct {
	client string
	key    combination.Key
	qty    float64
}

func entry(client string, key combination.Key, qty float64) row { return row{client, key, qty} }

func totals(rows ...row) *combination.Totals {
	t := combination.NewTotals()
	for _, r := range rows {
		t.Add(r.client, r.key, r.qty)
	}
	return t
}

func TestReconcile_SignConvention(t *testing.T) {
	vol := totals(entry("X", rotina, 100), entry("Y", rotina, 80))
	bil := totals(entry("X", rotina, 80), entry("Y", rotina, 100))

	rep := Reconcile(vol, bil)
	got := map[string]float64{}
	for _, d := range rep.Discrepancies {
		got[d.Client] = d.Diff
	}
	if got["X"] != 20 {
		t.Errorf("expected X diff +20, got %v", got["X"])
	}
	if got["Y"] != -20 {
		t.Errorf("expected Y diff -20, got %v", got["Y"])
	}
}

func TestReconcile_MatchingClientsAreOmitted(t *testing.T) {
	vol := totals(entry("ACME", rotina, 10))
	bil := totals(entry("ACME", rotina, 10))
	rep := Reconcile(vol, bil)
	if rep.TotalDiscrepancies != 0 || len(rep.Discrepancies) != 0 {
		t.Errorf("expected no discrepancies, got %+v", rep.Discrepancies)
	}
	if rep.Discrepancies == nil {
		t.Error("expected empty, non-nil slice")
	}
}

func TestReconcile_UnderBilledScenario(t *testing.T) {
	vol := totals(entry("ACME", rotina, 10))
	bil := totals(entry("ACME", rotina, 7))

	rep := Reconcile(vol, bil)
	if len(rep.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(rep.Discrepancies))
	}
	d := rep.Discrepancies[0]
	if d.VolumeTotal != 10 || d.BillingTotal != 7 || d.Diff != 3 {
		t.Errorf("unexpected totals %+v", d)
	}
	if len(d.MissingCombinations) != 1 {
		t.Fatalf("expected 1 missing combination, got %+v", d.MissingCombinations)
	}
	mc := d.MissingCombinations[0]
	if mc.Key != rotina || mc.Quantity != 3 {
		t.Errorf("expected {MR,NE,SC,ROTINA,3}, got %+v", mc)
	}
}

func TestReconcile_BillingOnlyClient(t *testing.T) {
	bil := totals(entry("GHOST", rotina, 12))
	rep := Reconcile(combination.NewTotals(), bil)

	if len(rep.Discrepancies) != 1 {
		t.Fatalf("expected 1 discrepancy, got %d", len(rep.Discrepancies))
	}
	d := rep.Discrepancies[0]
	if d.Diff != -12 || d.VolumeTotal != 0 {
		t.Errorf("expected diff -12 with zero volume, got %+v", d)
	}
	if d.MissingCombinations != nil {
		t.Errorf("over-billed clients must not list missing combinations, got %+v", d.MissingCombinations)
	}
}

func TestReconcile_VolumeOnlyClient(t *testing.T) {
	vol := totals(entry("NEW", rotina, 4))
	rep := Reconcile(vol, nil)
	if rep.Discrepancies[0].Diff != 4 {
		t.Errorf("expected diff equal to full volume, got %+v", rep.Discrepancies[0])
	}
}

func TestReconcile_SortedAndCapped(t *testing.T) {
	vol := combination.NewTotals()
	for i := 1; i <= 30; i++ {
		vol.Add(fmt.Sprintf("C%02d", i), rotina, float64(i))
	}
	bil := totals(entry("OVER", rotina, 25))

	rep := Reconcile(vol, bil)
	if rep.TotalDiscrepancies != 31 {
		t.Errorf("expected 31 discrepancies before capping, got %d", rep.TotalDiscrepancies)
	}
	if len(rep.Discrepancies) != MaxDiscrepancies {
		t.Fatalf("expected %d rows, got %d", MaxDiscrepancies, len(rep.Discrepancies))
	}
	if rep.Discrepancies[0].Client != "C30" {
		t.Errorf("expected largest gap first, got %s", rep.Discrepancies[0].Client)
	}
	// |-25| ties with C25; names break the tie.
	for i := 1; i < len(rep.Discrepancies); i++ {
		prev, cur := rep.Discrepancies[i-1], rep.Discrepancies[i]
		if abs(prev.Diff) < abs(cur.Diff) {
			t.Fatalf("not sorted by |diff| at %d: %v then %v", i, prev.Diff, cur.Diff)
		}
		if abs(prev.Diff) == abs(cur.Diff) && prev.Client > cur.Client {
			t.Fatalf("ties must be ordered by name: %s then %s", prev.Client, cur.Client)
		}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func TestMissingCombinations_CapAndOrder(t *testing.T) {
	vol := combination.NewTotals()
	bil := combination.NewTotals()
	for i := 1; i <= 8; i++ {
		k := combination.NewKey("MR", fmt.Sprintf("S%d", i), "SC", "Rotina")
		vol.Add("ACME", k, float64(i*10))
		bil.Add("ACME", k, 5)
	}
	// Over-billed combination never appears.
	over := combination.NewKey("CT", "MU", "SC", "Urgente")
	vol.Add("ACME", over, 1)
	bil.Add("ACME", over, 9)

	got := MissingCombinations("ACME", vol, bil)
	if len(got) != MaxMissingCombinations {
		t.Fatalf("expected %d, got %d", MaxMissingCombinations, len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Quantity < got[i].Quantity {
			t.Fatalf("not sorted descending: %+v", got)
		}
	}
	if got[0].Quantity != 75 {
		t.Errorf("expected top shortfall 75, got %v", got[0].Quantity)
	}
	for _, mc := range got {
		if mc.Quantity <= 0 || mc.Key == over {
			t.Errorf("unexpected entry %+v", mc)
		}
	}
}

func TestReconcile_FractionalQuantitiesBalanceExactly(t *testing.T) {
	vol := totals(entry("ACME", rotina, 0.1), entry("ACME", rotina, 0.2))
	bil := totals(entry("ACME", rotina, 0.3))

	rep := Reconcile(vol, bil)
	if rep.TotalDiscrepancies != 0 {
		t.Fatalf("expected 0.1+0.2 to match 0.3, got %+v", rep.Discrepancies)
	}
	if got := MissingCombinations("ACME", vol, bil); len(got) != 0 {
		t.Errorf("expected no missing combinations, got %+v", got)
	}

	vol.Add("ACME", rotina, 2.5)
	rep = Reconcile(vol, bil)
	if rep.TotalDiscrepancies != 1 || rep.Discrepancies[0].Diff != 2.5 {
		t.Fatalf("expected a single +2.5 diff, got %+v", rep.Discrepancies)
	}
	if mc := rep.Discrepancies[0].MissingCombinations; len(mc) != 1 || mc[0].Quantity != 2.5 {
		t.Errorf("expected 2.5 missing on %s, got %+v", rotina, mc)
	}
}
