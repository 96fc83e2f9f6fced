package statement

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/domain/pricing"
)

// Record statuses as written by the remote generation function.
const (
	StatusPending  = "pendente"
	StatusApproved = "aprovado"
	StatusInvoiced = "faturado"
)

// Record is one persisted demonstrativo row. The add-on columns are nil on
// rows written before they existed; those rows carry the amounts in Notes.
type Record struct {
	ID          uuid.UUID        `json:"id"`
	ClientID    *uuid.UUID       `json:"cliente_id,omitempty"`
	ClientName  string           `json:"cliente_nome"`
	Period      string           `json:"periodo_referencia"`
	TotalExams  float64          `json:"total_exames"`
	GrossValue  decimal.Decimal  `json:"valor_bruto"`
	NetValue    decimal.Decimal  `json:"valor_liquido"`
	Franchise   *decimal.Decimal `json:"valor_franquia,omitempty"`
	Portal      *decimal.Decimal `json:"valor_portal_laudos,omitempty"`
	Integration *decimal.Decimal `json:"valor_integracao,omitempty"`
	Taxes       *decimal.Decimal `json:"valor_impostos,omitempty"`
	Notes       string           `json:"observacoes,omitempty"`
	Status      string           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Alert codes attached to statements.
const (
	AlertInactiveClient = "cliente_inativo"
	AlertUnpriced       = "combinacoes_sem_preco"
	AlertRecordMissing  = "demonstrativo_ausente"
	AlertNetBelowAddOns = "liquido_menor_que_adicionais"
)

type Alert struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ClientStatement is the per-client view of a period.
type ClientStatement struct {
	ClientID    *uuid.UUID         `json:"cliente_id,omitempty"`
	Client      string             `json:"cliente"`
	Period      string             `json:"periodo"`
	Active      bool               `json:"ativo"`
	BillingType string             `json:"tipo_faturamento,omitempty"`
	VolumeRule  pricing.VolumeRule `json:"regra_volume"`
	TotalExams  float64            `json:"total_exames"`
	GrossValue  decimal.Decimal    `json:"valor_bruto"`
	NetValue    decimal.Decimal    `json:"valor_liquido"`
	AddOns      AddOns             `json:"adicionais"`
	Breakdown   []pricing.Line     `json:"detalhamento"`
	Unpriced    []combination.Key  `json:"sem_preco,omitempty"`
	RecordID    *uuid.UUID         `json:"demonstrativo_id,omitempty"`
	Alerts      []Alert            `json:"alertas"`
}

// Summary aggregates a bundle.
type Summary struct {
	Clients       int             `json:"clientes"`
	TotalExams    float64         `json:"total_exames"`
	GrossValue    decimal.Decimal `json:"valor_bruto"`
	NetValue      decimal.Decimal `json:"valor_liquido"`
	AddOnsTotal   decimal.Decimal `json:"adicionais"`
	ExcludedTotal float64         `json:"excluidos"`
	Alerts        int             `json:"alertas"`
}

// Bundle is everything generated for one period; it is what gets cached.
type Bundle struct {
	Period      string             `json:"periodo"`
	GeneratedAt time.Time          `json:"gerado_em"`
	Statements  []*ClientStatement `json:"demonstrativos"`
	Summary     Summary            `json:"resumo"`
}

// Find returns the statement whose client name matches name ignoring case
// and accents.
func (b *Bundle) Find(name string) (*ClientStatement, bool) {
	key := clients.NormalizeName(name)
	for _, s := range b.Statements {
		if clients.NormalizeName(s.Client) == key {
			return s, true
		}
	}
	return nil, false
}
