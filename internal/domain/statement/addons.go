package statement

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/pkg/money"
)

// AddOnSource tells where the add-on amounts of a statement came from.
type AddOnSource string

const (
	SourceStructured  AddOnSource = "structured"
	SourceLegacyNotes AddOnSource = "legacy_notes"
	SourceNone        AddOnSource = "none"
)

// AddOns are the amounts the remote generation function computes on top of
// the exam value. They are never recomputed here.
type AddOns struct {
	Franchise   decimal.Decimal `json:"franquia"`
	Portal      decimal.Decimal `json:"portal_laudos"`
	Integration decimal.Decimal `json:"integracao"`
	Taxes       decimal.Decimal `json:"impostos"`
	Source      AddOnSource     `json:"source"`
}

// Charges is franchise + portal + integration; taxes are not a charge.
func (a AddOns) Charges() decimal.Decimal {
	return money.Sum(a.Franchise, a.Portal, a.Integration)
}

// ParseAddOns prefers the structured columns. Rows that predate them fall
// back to the notes text.
func ParseAddOns(r *Record) AddOns {
	if r == nil {
		return AddOns{Source: SourceNone}
	}
	if r.Franchise != nil || r.Portal != nil || r.Integration != nil || r.Taxes != nil {
		return AddOns{
			Franchise:   deref(r.Franchise),
			Portal:      deref(r.Portal),
			Integration: deref(r.Integration),
			Taxes:       deref(r.Taxes),
			Source:      SourceStructured,
		}
	}
	if a, ok := ParseLegacyNotes(r.Notes); ok {
		return a
	}
	return AddOns{Source: SourceNone}
}

func deref(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

const amount = `(?:R\$)?\s*(-?[0-9][0-9.,]*[0-9]|[0-9])`

var (
	franchiseRe   = regexp.MustCompile(`(?:VALOR\s+(?:DA\s+)?)?FRANQUIA\s*[:=\-]?\s*` + amount)
	portalRe      = regexp.MustCompile(`PORTAL(?:\s+DE\s+LAUDOS)?\s*[:=\-]?\s*` + amount)
	integrationRe = regexp.MustCompile(`INTEGRACAO\s*[:=\-]?\s*` + amount)
	taxesRe       = regexp.MustCompile(`(?:IMPOSTOS?|TRIBUTOS)\s*[:=\-]?\s*` + amount)
)

// ParseLegacyNotes extracts add-on amounts from the free-text notes written
// by older generation runs, e.g.
//
//	"Franquia: R$ 1.500,00 | Portal de Laudos: R$ 200,00 | Integração: R$ 150,00 | Impostos: R$ 95,32"
//
// Matching ignores case and accents. ok is false when no amount is found.
func ParseLegacyNotes(notes string) (AddOns, bool) {
	text := clients.NormalizeName(notes)
	if text == "" {
		return AddOns{Source: SourceNone}, false
	}
	a := AddOns{Source: SourceLegacyNotes}
	found := false
	for _, f := range []struct {
		re  *regexp.Regexp
		dst *decimal.Decimal
	}{
		{franchiseRe, &a.Franchise},
		{portalRe, &a.Portal},
		{integrationRe, &a.Integration},
		{taxesRe, &a.Taxes},
	} {
		m := f.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, ok := money.Parse(strings.TrimRight(m[1], ".,"))
		if !ok {
			continue
		}
		*f.dst = v
		found = true
	}
	if !found {
		return AddOns{Source: SourceNone}, false
	}
	return a, true
}
