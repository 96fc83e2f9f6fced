package billing

import (
	"context"
	"fmt"

	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/platform/db"
	"github.com/medimagem/faturamento/pkg/money"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const lineItemCols = `id, COALESCE(cliente_nome, ''), COALESCE(modalidade, ''), COALESCE(especialidade, ''),
	COALESCE(categoria, ''), COALESCE(prioridade, ''), quantidade::text,
	valor_bruto::text, valor_liquido::text, data_vencimento,
	COALESCE(tipo_faturamento, ''), periodo_referencia`

func (r *repoPG) ListByPeriod(ctx context.Context, period string, clientNames []string) ([]*LineItem, error) {
	var names []string
	if len(clientNames) > 0 {
		names = clientNames
	}
	rows, err := r.q.Query(ctx, `SELECT `+lineItemCols+` FROM faturamento
		WHERE periodo_referencia = $1 AND ($2::text[] IS NULL OR cliente_nome = ANY($2))
		ORDER BY cliente_nome, modalidade, especialidade`, period, names)
	if err != nil {
		return nil, fmt.Errorf("query billing items for %s: %w", period, err)
	}
	defer rows.Close()

	var items []*LineItem
	for rows.Next() {
		var li LineItem
		var rawQty, rawGross, rawNet *string
		if err := rows.Scan(&li.ID, &li.Client, &li.Modality, &li.Specialty, &li.Category, &li.Priority,
			&rawQty, &rawGross, &rawNet, &li.DueDate, &li.BillingType, &li.Period); err != nil {
			return nil, fmt.Errorf("scan billing item: %w", err)
		}
		if rawQty != nil {
			if q, ok := combination.ParseQuantity(*rawQty); ok {
				li.Quantity = &q
			}
		}
		li.GrossValue = money.FromNullable(rawGross)
		li.NetValue = money.FromNullable(rawNet)
		items = append(items, &li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing items: %w", err)
	}
	return items, nil
}
