package volume

import (
	"context"
	"fmt"

	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/platform/db"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

// valores is read as text so malformed upstream values degrade to nil
// instead of failing the whole scan.
const examCols = `id, COALESCE(empresa, ''), COALESCE(modalidade, ''), COALESCE(especialidade, ''),
	COALESCE(categoria, ''), COALESCE(prioridade, ''), valores::text,
	data_realizacao, data_laudo, data_prazo, COALESCE(tipo_faturamento, ''), periodo_referencia`

func (r *repoPG) ListByPeriod(ctx context.Context, period, client string) ([]*ExamRecord, error) {
	rows, err := r.q.Query(ctx, `SELECT `+examCols+` FROM volumetria_exames
		WHERE periodo_referencia = $1 AND ($2 = '' OR empresa = $2)
		ORDER BY empresa, modalidade, especialidade`, period, client)
	if err != nil {
		return nil, fmt.Errorf("query exams for %s: %w", period, err)
	}
	defer rows.Close()

	var items []*ExamRecord
	for rows.Next() {
		var e ExamRecord
		var rawQty *string
		if err := rows.Scan(&e.ID, &e.Client, &e.Modality, &e.Specialty, &e.Category, &e.Priority,
			&rawQty, &e.StudyDate, &e.ReportDate, &e.Deadline, &e.BillingType, &e.Period); err != nil {
			return nil, fmt.Errorf("scan exam: %w", err)
		}
		if rawQty != nil {
			if q, ok := combination.ParseQuantity(*rawQty); ok {
				e.Quantity = &q
			}
		}
		items = append(items, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exams: %w", err)
	}
	return items, nil
}
