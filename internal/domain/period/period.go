// Package period handles the YYYY-MM reference periods every billing query
// and cache key is scoped to.
package period

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalid = errors.New("period must be in YYYY-MM form")

// Period is a billing reference month.
type Period struct {
	Year  int
	Month time.Month
}

// Parse accepts exactly "YYYY-MM".
func Parse(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil || len(s) != 7 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Start is the first instant of the month (UTC).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Previous returns the month before p.
func (p Period) Previous() Period {
	t := p.Start().AddDate(0, -1, 0)
	return Period{Year: t.Year(), Month: t.Month()}
}
