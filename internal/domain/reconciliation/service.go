package reconciliation

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/domain/billing"
	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/volume"
)

// UnmappedName is a client name seen in the data that matches no directory
// entry. Suggestion is the closest known client, if any.
type UnmappedName struct {
	Name       string `json:"name"`
	Suggestion string `json:"suggestion,omitempty"`
}

// View is everything the reconciliation screen shows for one period.
type View struct {
	Period           string             `json:"period"`
	Generation       uint64             `json:"generation"`
	GeneratedAt      time.Time          `json:"generated_at"`
	Report           *Report            `json:"report"`
	ExcludedTotal    float64            `json:"excluded_total"`
	ExcludedByClient map[string]float64 `json:"excluded_by_client"`
	LateByClient     map[string]float64 `json:"late_by_client"`
	Unmapped         []UnmappedName     `json:"unmapped"`
}

// Computer builds a View for a period.
type Computer interface {
	Compute(ctx context.Context, period string) (*View, error)
}

type Service struct {
	volume           volume.Repository
	billing          billing.Repository
	clients          clients.Repository
	nonChargeableTag string
	logger           zerolog.Logger
}

func NewService(v volume.Repository, b billing.Repository, c clients.Repository, nonChargeableTag string, logger zerolog.Logger) *Service {
	return &Service{
		volume:           v,
		billing:          b,
		clients:          c,
		nonChargeableTag: nonChargeableTag,
		logger:           logger.With().Str("component", "reconciliation").Logger(),
	}
}

// Compute loads the directory, exam records and billing items of period and
// reconciles them. Any load failure aborts the whole computation.
func (s *Service) Compute(ctx context.Context, period string) (*View, error) {
	dir, err := clients.LoadDirectory(ctx, s.clients)
	if err != nil {
		return nil, err
	}
	exams, err := s.volume.ListByPeriod(ctx, period, "")
	if err != nil {
		return nil, err
	}
	items, err := s.billing.ListByPeriod(ctx, period, nil)
	if err != nil {
		return nil, err
	}

	vol := volume.Aggregate(exams, dir, s.nonChargeableTag)
	bil := billing.Aggregate(items, dir)
	rep := Reconcile(vol.Totals, bil.Totals)

	unmapped := unmappedNames(dir, vol.Clients(), bil.Clients())
	hints := make(map[string]string, len(unmapped))
	for _, u := range unmapped {
		hints[u.Name] = u.Suggestion
	}
	for i := range rep.Discrepancies {
		rep.Discrepancies[i].Suggestion = hints[rep.Discrepancies[i].Client]
	}

	s.logger.Info().
		Str("period", period).
		Int("exams", len(exams)).
		Int("billing_items", len(items)).
		Int("discrepancies", rep.TotalDiscrepancies).
		Float64("excluded_total", vol.ExcludedTotal).
		Int("unmapped", len(unmapped)).
		Msg("reconciliation computed")

	return &View{
		Period:           period,
		GeneratedAt:      time.Now().UTC(),
		Report:           rep,
		ExcludedTotal:    vol.ExcludedTotal,
		ExcludedByClient: vol.ExcludedByClient,
		LateByClient:     vol.LateByClient,
		Unmapped:         unmapped,
	}, nil
}

func unmappedNames(dir *clients.Directory, groups ...[]string) []UnmappedName {
	seen := make(map[string]struct{})
	var out []UnmappedName
	for _, names := range groups {
		for _, n := range names {
			if _, ok := seen[n]; ok || dir.Known(n) {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, UnmappedName{Name: n, Suggestion: dir.Suggest(n)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if out == nil {
		out = []UnmappedName{}
	}
	return out
}
