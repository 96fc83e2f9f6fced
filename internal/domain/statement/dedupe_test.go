package statement

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/medimagem/faturamento/internal/domain/clients"
)

func TestDedupe_KeepsLargestNetValue(t *testing.T) {
	dir := clients.NewDirectory(&clients.ClientIdentity{LegalName: "Acme Diagnósticos Ltda", FantasyName: "ACME"})
	small := &Record{ID: uuid.New(), ClientName: "ACME", NetValue: dec("500")}
	large := &Record{ID: uuid.New(), ClientName: "Acme Diagnosticos Ltda", NetValue: dec("800")}

	got := Dedupe([]*Record{small, large, nil}, dir)
	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if got["ACME"] != large {
		t.Errorf("expected the 800 record to win, got %+v", got["ACME"])
	}

	// Order of arrival does not matter.
	got = Dedupe([]*Record{large, small}, dir)
	if got["ACME"] != large {
		t.Errorf("expected the 800 record to win regardless of order")
	}
}

func TestDedupe_TieKeepsNewest(t *testing.T) {
	now := time.Now()
	older := &Record{ClientName: "BETA", NetValue: dec("100"), CreatedAt: now.Add(-time.Hour)}
	newer := &Record{ClientName: "beta", NetValue: dec("100"), CreatedAt: now}
	dir := clients.NewDirectory(&clients.ClientIdentity{FantasyName: "BETA"})

	if got := Dedupe([]*Record{newer, older}, dir); got["BETA"] != newer {
		t.Errorf("expected newest record on tie")
	}
}

func TestDedupe_UnmappedNamesStaySeparate(t *testing.T) {
	got := Dedupe([]*Record{
		{ClientName: "Clinica X", NetValue: dec("1")},
		{ClientName: "Clinica Y", NetValue: dec("2")},
	}, clients.NewDirectory())
	if len(got) != 2 {
		t.Errorf("expected 2 records, got %d", len(got))
	}
}
