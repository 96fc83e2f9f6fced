// Package money parses the monetary values found in the upstream tables and
// in free-text notes. Values are shopspring decimals; nothing here rounds.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Parse reads amounts as people type them: "1234.56", "1234,56",
// "1.234,56", "R$ 1.234,56", "R$ 1.500" or "1,234.56". The right-most
// separator is taken as the decimal point when both appear. A lone dot
// followed by exactly three digits ("1.500") groups thousands, as in pt-BR.
// Empty or malformed input yields (zero, false).
func Parse(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return decimal.Zero, false
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, false
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1 || thousandsGrouped(s):
		// "1.234.567" and "1.500" are thousands-grouped integers.
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// thousandsGrouped reports whether s is a single group separator between a
// 1-3 digit head (no leading zero) and a 3 digit tail, e.g. "1.500".
func thousandsGrouped(s string) bool {
	head, tail, ok := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	if !ok || len(tail) != 3 || len(head) < 1 || len(head) > 3 || head[0] == '0' {
		return false
	}
	return allDigits(head) && allDigits(tail)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ParseNumeric reads a numeric column cast to text. Postgres renders those
// with a dot decimal point ("1.500" is one and a half), so the canonical form
// wins and Parse is only the fallback for hand-entered text columns.
func ParseNumeric(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	return Parse(s)
}

// FromNullable parses an optional numeric column, treating nil as zero.
func FromNullable(raw *string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	d, _ := ParseNumeric(*raw)
	return d
}

// Sum adds values.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
