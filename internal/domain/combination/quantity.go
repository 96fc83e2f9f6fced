package combination

import (
	"math"
	"strconv"
	"strings"
)

// ParseQuantity coerces a raw numeric column into a float. Empty, null-like
// or unparseable input yields (0, false). A lone comma is read as the
// decimal separator ("2,5" -> 2.5).
func ParseQuantity(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.EqualFold(s, "null") {
		return 0, false
	}
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Quantity dereferences an optional quantity, treating nil and
// non-finite values as zero.
func Quantity(q *float64) float64 {
	if q == nil || math.IsNaN(*q) || math.IsInf(*q, 0) {
		return 0
	}
	return *q
}
