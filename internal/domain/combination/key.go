// Package combination holds the (modality, specialty, category, priority)
// tuple that pricing and reconciliation operate on, plus the per-client
// quantity totals shared by the volume and billing aggregators.
package combination

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies an exam combination. Fields are stored trimmed and
// upper-cased so that == and map lookups are case-insensitive.
type Key struct {
	Modality  string `json:"modalidade"`
	Specialty string `json:"especialidade"`
	Category  string `json:"categoria"`
	Priority  string `json:"prioridade"`
}

// NewKey canonicalises the four fields.
func NewKey(modality, specialty, category, priority string) Key {
	return Key{
		Modality:  canon(modality),
		Specialty: canon(specialty),
		Category:  canon(category),
		Priority:  canon(priority),
	}
}

func canon(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Modality, k.Specialty, k.Category, k.Priority)
}

// Less orders keys field by field.
func (k Key) Less(o Key) bool {
	if k.Modality != o.Modality {
		return k.Modality < o.Modality
	}
	if k.Specialty != o.Specialty {
		return k.Specialty < o.Specialty
	}
	if k.Category != o.Category {
		return k.Category < o.Category
	}
	return k.Priority < o.Priority
}

// SortKeys sorts keys in place using Less.
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}
