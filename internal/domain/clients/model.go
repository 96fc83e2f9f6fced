package clients

import (
	"strings"

	"github.com/google/uuid"
)

// ClientIdentity is the canonical record of one real-world client. The three
// name variants come from the legal registration, the commercial (fantasy)
// name, and the name used by the upstream exam feed.
type ClientIdentity struct {
	ID          uuid.UUID  `json:"id"`
	LegalName   string     `json:"nome"`
	FantasyName string     `json:"nome_fantasia"`
	SourceName  string     `json:"nome_origem"`
	Active      bool       `json:"ativo"`
	ContractID  *uuid.UUID `json:"contrato_id,omitempty"`
	VolumeRule  string     `json:"tipo_volume,omitempty"`
	BillingType string     `json:"tipo_faturamento,omitempty"`
}

// CanonicalName is the fantasy name, falling back to the legal name and then
// the source-system name when the fantasy name is blank.
func (c *ClientIdentity) CanonicalName() string {
	for _, n := range []string{c.FantasyName, c.LegalName, c.SourceName} {
		if s := strings.TrimSpace(n); s != "" {
			return s
		}
	}
	return ""
}

// Variants returns the non-blank name variants.
func (c *ClientIdentity) Variants() []string {
	var out []string
	for _, n := range []string{c.LegalName, c.FantasyName, c.SourceName} {
		if strings.TrimSpace(n) != "" {
			out = append(out, n)
		}
	}
	return out
}
