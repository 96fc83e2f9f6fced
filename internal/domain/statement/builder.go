package statement

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/pricing"
	"github.com/medimagem/faturamento/internal/domain/volume"
)

// Builder assembles the per-client statements of a period.
type Builder struct {
	now func() time.Time
}

func NewBuilder() *Builder {
	return &Builder{now: time.Now}
}

// Build merges exam volume, priced combinations and the persisted records
// (for their add-ons and net value) into one statement per priced client.
// Clients that could not be priced have no statement.
func (b *Builder) Build(period string, vol *volume.Summary, dir *clients.Directory, priced []*pricing.ClientPricing, records []*Record) *Bundle {
	byClient := Dedupe(records, dir)

	bundle := &Bundle{
		Period:      period,
		GeneratedAt: b.now().UTC(),
		Statements:  make([]*ClientStatement, 0, len(priced)),
		Summary: Summary{
			GrossValue:  decimal.Zero,
			NetValue:    decimal.Zero,
			AddOnsTotal: decimal.Zero,
		},
	}
	if vol != nil {
		bundle.Summary.ExcludedTotal = vol.ExcludedTotal
	}

	for _, p := range priced {
		if p == nil {
			continue
		}
		st := b.statement(period, vol, dir, p, byClient[p.Client])
		bundle.Statements = append(bundle.Statements, st)

		bundle.Summary.Clients++
		bundle.Summary.TotalExams += st.TotalExams
		bundle.Summary.GrossValue = bundle.Summary.GrossValue.Add(st.GrossValue)
		bundle.Summary.NetValue = bundle.Summary.NetValue.Add(st.NetValue)
		bundle.Summary.AddOnsTotal = bundle.Summary.AddOnsTotal.Add(st.AddOns.Charges())
		bundle.Summary.Alerts += len(st.Alerts)
	}
	sort.Slice(bundle.Statements, func(i, j int) bool {
		return bundle.Statements[i].Client < bundle.Statements[j].Client
	})
	return bundle
}

func (b *Builder) statement(period string, vol *volume.Summary, dir *clients.Directory, p *pricing.ClientPricing, rec *Record) *ClientStatement {
	id := p.ClientID
	st := &ClientStatement{
		ClientID:   &id,
		Client:     p.Client,
		Period:     period,
		VolumeRule: p.Rule,
		TotalExams: p.Quantity,
		GrossValue: p.Gross,
		Breakdown:  p.Lines,
		Unpriced:   p.Unpriced,
		Alerts:     []Alert{},
	}
	if vol != nil {
		st.TotalExams = vol.Client(p.Client)
	}
	if ident, ok := dir.Lookup(p.Client); ok {
		st.Active = ident.Active
		st.BillingType = ident.BillingType
	}

	st.AddOns = ParseAddOns(rec)
	if rec != nil {
		rid := rec.ID
		st.RecordID = &rid
		st.NetValue = rec.NetValue
	} else {
		st.NetValue = p.Gross.Add(st.AddOns.Charges())
	}

	if !st.Active && st.TotalExams > 0 {
		st.Alerts = append(st.Alerts, Alert{
			Code:    AlertInactiveClient,
			Message: fmt.Sprintf("cliente inativo com %.0f exames no período", st.TotalExams),
		})
	}
	if len(st.Unpriced) > 0 {
		st.Alerts = append(st.Alerts, Alert{
			Code:    AlertUnpriced,
			Message: fmt.Sprintf("%d combinações sem preço configurado", len(st.Unpriced)),
		})
	}
	if rec == nil {
		st.Alerts = append(st.Alerts, Alert{
			Code:    AlertRecordMissing,
			Message: "demonstrativo não encontrado após a geração",
		})
	} else if st.NetValue.LessThan(st.AddOns.Charges()) {
		st.Alerts = append(st.Alerts, Alert{
			Code:    AlertNetBelowAddOns,
			Message: "valor líquido menor que a soma dos adicionais",
		})
	}
	return st
}
