package pricing

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
)

var ErrUnknownVolumeRule = errors.New("unknown volume rule")

// VolumeRule selects which quantity a contract's price tiers are measured
// against.
type VolumeRule string

const (
	RulePerModality                  VolumeRule = "modalidade"
	RulePerModalitySpecialty         VolumeRule = "modalidade_especialidade"
	RulePerModalitySpecialtyCategory VolumeRule = "modalidade_especialidade_categoria"
	RuleTotal                        VolumeRule = "total"
)

// ParseVolumeRule reads the contract's volume-rule field. Blank means
// RuleTotal. Unrecognized values return RuleTotal together with
// ErrUnknownVolumeRule so callers can choose between falling back and
// failing.
func ParseVolumeRule(raw string) (VolumeRule, error) {
	key := clients.NormalizeName(raw)
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), "_")
	switch key {
	case "":
		return RuleTotal, nil
	case "MODALIDADE", "POR_MODALIDADE":
		return RulePerModality, nil
	case "MODALIDADE_ESPECIALIDADE", "POR_MODALIDADE_ESPECIALIDADE":
		return RulePerModalitySpecialty, nil
	case "MODALIDADE_ESPECIALIDADE_CATEGORIA", "POR_MODALIDADE_ESPECIALIDADE_CATEGORIA":
		return RulePerModalitySpecialtyCategory, nil
	case "TOTAL", "GERAL", "TOTAL_GERAL":
		return RuleTotal, nil
	}
	return RuleTotal, fmt.Errorf("%w: %q", ErrUnknownVolumeRule, raw)
}

type modSpec struct{ modality, specialty string }

type modSpecCat struct{ modality, specialty, category string }

// Denominators holds every candidate volume for one client, computed in a
// single pass so each combination can pick its own without rescanning.
type Denominators struct {
	byModality          map[string]float64
	byModalitySpecialty map[modSpec]float64
	byModSpecCategory   map[modSpecCat]float64
	total               float64
}

// ComputeDenominators sums the client's combination quantities at every
// grouping level.
func ComputeDenominators(combos map[combination.Key]float64) *Denominators {
	d := &Denominators{
		byModality:          make(map[string]float64),
		byModalitySpecialty: make(map[modSpec]float64),
		byModSpecCategory:   make(map[modSpecCat]float64),
	}
	for k, q := range combos {
		d.byModality[k.Modality] += q
		d.byModalitySpecialty[modSpec{k.Modality, k.Specialty}] += q
		d.byModSpecCategory[modSpecCat{k.Modality, k.Specialty, k.Category}] += q
		d.total += q
	}
	return d
}

// For returns the volume the price of key is measured against under rule.
func (d *Denominators) For(rule VolumeRule, key combination.Key) float64 {
	switch rule {
	case RulePerModality:
		return d.byModality[key.Modality]
	case RulePerModalitySpecialty:
		return d.byModalitySpecialty[modSpec{key.Modality, key.Specialty}]
	case RulePerModalitySpecialtyCategory:
		return d.byModSpecCategory[modSpecCat{key.Modality, key.Specialty, key.Category}]
	default:
		return d.total
	}
}

// Total is the client's grand total.
func (d *Denominators) Total() float64 { return d.total }

// IsOnCall reports whether a priority denotes plantão (on-call) work.
func IsOnCall(priority string) bool {
	return strings.Contains(clients.NormalizeName(priority), "PLANTAO")
}
