package statement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/combination"
	"github.com/medimagem/faturamento/internal/platform/db"
	"github.com/medimagem/faturamento/pkg/money"
)

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

const recordCols = `id, cliente_id, COALESCE(cliente_nome, ''), periodo_referencia, total_exames::text,
	valor_bruto::text, valor_liquido::text, valor_franquia::text, valor_portal_laudos::text,
	valor_integracao::text, valor_impostos::text, COALESCE(observacoes, ''), COALESCE(status, ''), created_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var exams, gross, net, franchise, portal, integration, taxes *string
	if err := row.Scan(&r.ID, &r.ClientID, &r.ClientName, &r.Period, &exams,
		&gross, &net, &franchise, &portal, &integration, &taxes,
		&r.Notes, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	if exams != nil {
		r.TotalExams, _ = combination.ParseQuantity(*exams)
	}
	r.GrossValue = money.FromNullable(gross)
	r.NetValue = money.FromNullable(net)
	r.Franchise = optional(franchise)
	r.Portal = optional(portal)
	r.Integration = optional(integration)
	r.Taxes = optional(taxes)
	return &r, nil
}

func optional(raw *string) *decimal.Decimal {
	if raw == nil {
		return nil
	}
	d, ok := money.ParseNumeric(*raw)
	if !ok {
		return nil
	}
	return &d
}

func (r *repoPG) ListByPeriod(ctx context.Context, period string) ([]*Record, error) {
	rows, err := r.q.Query(ctx, `SELECT `+recordCols+` FROM demonstrativos_faturamento
		WHERE periodo_referencia = $1 ORDER BY cliente_nome, created_at`, period)
	if err != nil {
		return nil, fmt.Errorf("query statements for %s: %w", period, err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan statement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repoPG) Generate(ctx context.Context, period string) error {
	if _, err := r.q.Exec(ctx, `SELECT gerar_demonstrativos($1)`, period); err != nil {
		return fmt.Errorf("gerar_demonstrativos %s: %w", period, err)
	}
	return nil
}

func (r *repoPG) Status(ctx context.Context, period string) (GenerationStatus, error) {
	var st GenerationStatus
	err := r.q.QueryRow(ctx, `SELECT COALESCE(concluido, false), atualizado_em
		FROM demonstrativos_status WHERE periodo = $1`, period).Scan(&st.Done, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return GenerationStatus{}, nil
	}
	if err != nil {
		return GenerationStatus{}, fmt.Errorf("read generation status %s: %w", period, err)
	}
	return st, nil
}

func (r *repoPG) CorrectCategories(ctx context.Context, period string) error {
	if _, err := r.q.Exec(ctx, `SELECT corrigir_categoria_exames($1)`, period); err != nil {
		return fmt.Errorf("corrigir_categoria_exames %s: %w", period, err)
	}
	return nil
}
