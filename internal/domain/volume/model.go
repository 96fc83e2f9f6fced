package volume

import (
	"time"

	"github.com/google/uuid"

	"github.com/medimagem/faturamento/internal/domain/combination"
)

// ExamRecord is one billable imaging study as delivered by the upstream
// exam feed. The client name is whatever the feed sent.
type ExamRecord struct {
	ID          uuid.UUID  `json:"id"`
	Client      string     `json:"empresa"`
	Modality    string     `json:"modalidade"`
	Specialty   string     `json:"especialidade"`
	Category    string     `json:"categoria"`
	Priority    string     `json:"prioridade"`
	Quantity    *float64   `json:"valores"`
	StudyDate   *time.Time `json:"data_realizacao,omitempty"`
	ReportDate  *time.Time `json:"data_laudo,omitempty"`
	Deadline    *time.Time `json:"data_prazo,omitempty"`
	BillingType string     `json:"tipo_faturamento,omitempty"`
	Period      string     `json:"periodo_referencia"`
}

func (r *ExamRecord) Key() combination.Key {
	return combination.NewKey(r.Modality, r.Specialty, r.Category, r.Priority)
}

// Late reports whether the exam was reported after its deadline.
func (r *ExamRecord) Late() bool {
	return r.ReportDate != nil && r.Deadline != nil && r.ReportDate.After(*r.Deadline)
}
