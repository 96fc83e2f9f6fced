package volume

import (
	"math/rand"
	"testing"
	"time"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
)

const nonChargeable = "NAO_FATURAR"

func qty(v float64) *float64 { return &v }

func exam(client, mod, spec, cat, prio string, q *float64, billingType string) *ExamRecord {
	return &ExamRecord{Client: client, Modality: mod, Specialty: spec, Category: cat, Priority: prio,
		Quantity: q, BillingType: billingType, Period: "2026-01"}
}

func TestAggregate_ExcludesNonChargeableBeforeAggregation(t *testing.T) {
	records := []*ExamRecord{
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(10), "normal"),
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(5), nonChargeable),
		exam("BETA", "CT", "MU", "SC", "Urgente", qty(3), "não_faturar"),
	}
	s := Aggregate(records, clients.NewDirectory(), nonChargeable)

	if got := s.Client("ACME"); got != 10 {
		t.Errorf("expected ACME total 10, got %v", got)
	}
	if got := s.Combination("ACME", combination.NewKey("MR", "NE", "SC", "Rotina")); got != 10 {
		t.Errorf("expected ACME combination 10, got %v", got)
	}
	if _, ok := s.ByClient["BETA"]; ok {
		t.Error("client with only non-chargeable exams must not appear in totals")
	}
	if s.ExcludedTotal != 8 {
		t.Errorf("expected excluded total 8, got %v", s.ExcludedTotal)
	}
	if s.ExcludedByClient["BETA"] != 3 {
		t.Errorf("expected BETA excluded 3, got %v", s.ExcludedByClient["BETA"])
	}
	if s.Records != 1 {
		t.Errorf("expected 1 included record, got %d", s.Records)
	}
}

func TestAggregate_NullQuantityIsZero(t *testing.T) {
	records := []*ExamRecord{
		exam("ACME", "MR", "NE", "SC", "Rotina", nil, ""),
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(2), ""),
		nil,
	}
	s := Aggregate(records, clients.NewDirectory(), nonChargeable)
	if got := s.Client("ACME"); got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
	if s.Records != 2 {
		t.Errorf("expected 2 records counted, got %d", s.Records)
	}
}

func TestAggregate_ResolvesAliases(t *testing.T) {
	dir := clients.NewDirectory(&clients.ClientIdentity{LegalName: "Acme Diagnosticos Ltda", FantasyName: "ACME", SourceName: "ACME_RX"})
	records := []*ExamRecord{
		exam("ACME_RX", "MR", "NE", "SC", "Rotina", qty(4), ""),
		exam("acme diagnosticos ltda", "mr", "ne", "sc", "ROTINA", qty(6), ""),
	}
	s := Aggregate(records, dir, nonChargeable)
	if got := s.Client("ACME"); got != 10 {
		t.Errorf("expected aliases merged into ACME=10, got %v (%v)", got, s.ByClient)
	}
	if n := len(s.Combinations("ACME")); n != 1 {
		t.Errorf("expected combinations merged case-insensitively, got %d", n)
	}
}

func TestAggregate_LateReports(t *testing.T) {
	deadline := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	late := deadline.Add(time.Hour)
	early := deadline.Add(-time.Hour)
	r1 := exam("ACME", "MR", "NE", "SC", "Rotina", qty(2), "")
	r1.Deadline, r1.ReportDate = &deadline, &late
	r2 := exam("ACME", "MR", "NE", "SC", "Rotina", qty(3), "")
	r2.Deadline, r2.ReportDate = &deadline, &early
	s := Aggregate([]*ExamRecord{r1, r2}, clients.NewDirectory(), nonChargeable)
	if s.LateByClient["ACME"] != 2 {
		t.Errorf("expected 2 late, got %v", s.LateByClient["ACME"])
	}
}

// The sum over clients equals the sum of included quantities, whatever the
// input order; excluded quantities match ExcludedTotal.
func TestAggregate_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"ACME", "BETA", "GAMA", "DELTA"}
	mods := []string{"MR", "CT", "US", "RX"}

	for round := 0; round < 20; round++ {
		var records []*ExamRecord
		var included, excluded float64
		for i := 0; i < 200; i++ {
			q := float64(rng.Intn(20))
			tag := "normal"
			if rng.Intn(5) == 0 {
				tag = nonChargeable
				excluded += q
			} else {
				included += q
			}
			records = append(records, exam(names[rng.Intn(len(names))], mods[rng.Intn(len(mods))], "NE", "SC", "Rotina", qty(q), tag))
		}
		rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })

		s := Aggregate(records, clients.NewDirectory(), nonChargeable)
		if s.Sum() != included {
			t.Fatalf("round %d: sum %v != included %v", round, s.Sum(), included)
		}
		if s.ExcludedTotal != excluded {
			t.Fatalf("round %d: excluded %v != %v", round, s.ExcludedTotal, excluded)
		}
		for _, c := range s.Clients() {
			var combos float64
			for _, k := range s.Combinations(c) {
				combos += s.Combination(c, k)
			}
			if combos != s.Client(c) {
				t.Fatalf("round %d: client %s combos %v != total %v", round, c, combos, s.Client(c))
			}
		}
	}
}

func TestIsNonChargeable(t *testing.T) {
	if !IsNonChargeable(" nao_faturar ", nonChargeable) {
		t.Error("expected case/space-insensitive match")
	}
	if !IsNonChargeable("NÃO_FATURAR", nonChargeable) {
		t.Error("expected accent-insensitive match")
	}
	if IsNonChargeable("", "") {
		t.Error("empty marker never matches")
	}
	if IsNonChargeable("FATURAR", nonChargeable) {
		t.Error("unexpected match")
	}
}

func TestAggregate_FractionalExcludedTotalIsExact(t *testing.T) {
	records := []*ExamRecord{
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(0.1), nonChargeable),
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(0.2), nonChargeable),
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(0.1), ""),
		exam("ACME", "MR", "NE", "SC", "Rotina", qty(0.2), ""),
	}
	s := Aggregate(records, clients.NewDirectory(), nonChargeable)
	if s.ExcludedTotal != 0.3 || s.ExcludedByClient["ACME"] != 0.3 {
		t.Errorf("expected excluded 0.3, got %v / %v", s.ExcludedTotal, s.ExcludedByClient)
	}
	if s.Client("ACME") != 0.3 {
		t.Errorf("expected included 0.3, got %v", s.Client("ACME"))
	}
}
