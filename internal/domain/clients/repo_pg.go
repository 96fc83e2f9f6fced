package clients

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/medimagem/faturamento/internal/platform/db"
)

// ErrNotFound is returned when a client id does not exist.
var ErrNotFound = errors.New("client not found")

type repoPG struct{ q db.Querier }

func NewRepoPG(q db.Querier) Repository { return &repoPG{q: q} }

// Most recent active contract wins when a client has several.
const clientCols = `c.id, COALESCE(c.nome, ''), COALESCE(c.nome_fantasia, ''), COALESCE(c.nome_origem, ''),
	COALESCE(c.ativo, true), ct.id, COALESCE(ct.tipo_volume, ''), COALESCE(ct.tipo_faturamento, '')`

const clientFrom = `FROM clientes c
	LEFT JOIN LATERAL (
		SELECT id, tipo_volume, tipo_faturamento
		FROM contratos_clientes
		WHERE cliente_id = c.id
		ORDER BY (status = 'ativo') DESC, created_at DESC
		LIMIT 1
	) ct ON true`

func scanClient(row pgx.Row) (*ClientIdentity, error) {
	var c ClientIdentity
	err := row.Scan(&c.ID, &c.LegalName, &c.FantasyName, &c.SourceName,
		&c.Active, &c.ContractID, &c.VolumeRule, &c.BillingType)
	return &c, err
}

func (r *repoPG) List(ctx context.Context) ([]*ClientIdentity, error) {
	rows, err := r.q.Query(ctx, `SELECT `+clientCols+` `+clientFrom+` ORDER BY c.nome_fantasia, c.nome`)
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer rows.Close()

	var items []*ClientIdentity
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*ClientIdentity, error) {
	c, err := scanClient(r.q.QueryRow(ctx, `SELECT `+clientCols+` `+clientFrom+` WHERE c.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get client %s: %w", id, err)
	}
	return c, nil
}
