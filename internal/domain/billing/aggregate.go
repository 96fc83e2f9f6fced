package billing

import (
	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/combination"
)

// Summary is the output of Aggregate.
type Summary struct {
	*combination.Totals

	GrossByClient map[string]decimal.Decimal `json:"gross_by_client"`
	NetByClient   map[string]decimal.Decimal `json:"net_by_client"`
	Items         int                        `json:"items"`
}

// Aggregate sums line-item quantities per canonical client and combination.
// Line items are already filtered upstream, so nothing is excluded here.
func Aggregate(items []*LineItem, resolver clients.Resolver) *Summary {
	s := &Summary{
		Totals:        combination.NewTotals(),
		GrossByClient: make(map[string]decimal.Decimal),
		NetByClient:   make(map[string]decimal.Decimal),
	}
	for _, li := range items {
		if li == nil {
			continue
		}
		client := resolver.Resolve(li.Client)
		s.Add(client, li.Key(), combination.Quantity(li.Quantity))
		s.GrossByClient[client] = s.GrossByClient[client].Add(li.GrossValue)
		s.NetByClient[client] = s.NetByClient[client].Add(li.NetValue)
		s.Items++
	}
	return s
}
