package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/combination"
)

// LineItem is one persisted invoice line produced by the remote
// billing-generation function. Client is the name as persisted, which may
// differ from the exam feed's spelling.
type LineItem struct {
	ID          uuid.UUID       `json:"id"`
	Client      string          `json:"cliente_nome"`
	Modality    string          `json:"modalidade"`
	Specialty   string          `json:"especialidade"`
	Category    string          `json:"categoria"`
	Priority    string          `json:"prioridade"`
	Quantity    *float64        `json:"quantidade"`
	GrossValue  decimal.Decimal `json:"valor_bruto"`
	NetValue    decimal.Decimal `json:"valor_liquido"`
	DueDate     *time.Time      `json:"data_vencimento,omitempty"`
	BillingType string          `json:"tipo_faturamento,omitempty"`
	Period      string          `json:"periodo_referencia"`
}

func (li *LineItem) Key() combination.Key {
	return combination.NewKey(li.Modality, li.Specialty, li.Category, li.Priority)
}
