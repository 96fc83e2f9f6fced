// Package statement generates and serves the per-client billing statements
// (demonstrativos) of a period.
package statement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/domain/clients"
	"github.com/medimagem/faturamento/internal/domain/pricing"
	"github.com/medimagem/faturamento/internal/domain/volume"
	"github.com/medimagem/faturamento/internal/platform/batch"
	"github.com/medimagem/faturamento/internal/platform/websocket"
)

var (
	ErrGenerationTimeout    = errors.New("statement generation did not finish in time")
	ErrGenerationInProgress = errors.New("statement generation already running for period")
	ErrNotFound             = errors.New("statement not found")
)

// EventGenerated is published on the statements topic after a bundle is
// cached.
const EventGenerated = "statements.generated"

// Result is what a generation run returns: the bundle plus which clients
// were priced and which were left out, with reasons.
type Result struct {
	Bundle    *Bundle         `json:"bundle"`
	Succeeded []string        `json:"succeeded"`
	Failed    []batch.Failure `json:"failed"`
}

type Options struct {
	NonChargeableTag string
	PollAttempts     int
	PollInterval     time.Duration
}

type Service struct {
	volume    volume.Repository
	clients   clients.Repository
	records   Repository
	pricer    *pricing.Resolver
	builder   *Builder
	cache     Cache
	publisher websocket.Publisher
	opts      Options
	logger    zerolog.Logger

	mu        sync.Mutex
	corrected map[string]bool
	running   map[string]bool
}

func NewService(v volume.Repository, c clients.Repository, records Repository, pricer *pricing.Resolver,
	cache Cache, publisher websocket.Publisher, opts Options, logger zerolog.Logger) *Service {
	if opts.PollAttempts < 1 {
		opts.PollAttempts = 30
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	return &Service{
		volume:    v,
		clients:   c,
		records:   records,
		pricer:    pricer,
		builder:   NewBuilder(),
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With().Str("component", "statement").Logger(),
		corrected: make(map[string]bool),
		running:   make(map[string]bool),
	}
}

// Generate runs the full workflow for period: category correction, volume
// aggregation, per-client pricing, remote generation, waiting for the ready
// flag, then building and caching the bundle. Load failures and the
// generation timeout abort the run; per-client pricing failures are only
// reported in the result.
func (s *Service) Generate(ctx context.Context, period string) (*Result, error) {
	if !s.begin(period) {
		return nil, ErrGenerationInProgress
	}
	defer s.end(period)

	start := time.Now()
	log := s.logger.With().Str("period", period).Logger()

	s.correctCategoriesOnce(ctx, period)

	dir, err := clients.LoadDirectory(ctx, s.clients)
	if err != nil {
		return nil, err
	}
	exams, err := s.volume.ListByPeriod(ctx, period, "")
	if err != nil {
		return nil, err
	}
	vol := volume.Aggregate(exams, dir, s.opts.NonChargeableTag)

	priced := s.pricer.PriceAll(ctx, dir, vol.Totals)

	before, err := s.records.Status(ctx, period)
	if err != nil {
		return nil, err
	}
	if err := s.records.Generate(ctx, period); err != nil {
		return nil, err
	}
	if err := s.waitReady(ctx, period, before); err != nil {
		return nil, err
	}

	records, err := s.records.ListByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}

	bundle := s.builder.Build(period, vol, dir, priced.Succeeded, records)
	if err := s.cache.Put(ctx, period, bundle); err != nil {
		log.Error().Err(err).Msg("cache statement bundle")
	}
	s.publish(ctx, bundle)

	res := &Result{Bundle: bundle, Succeeded: make([]string, 0, len(priced.Succeeded)), Failed: priced.Failed}
	for _, p := range priced.Succeeded {
		res.Succeeded = append(res.Succeeded, p.Client)
	}

	log.Info().
		Int("statements", len(bundle.Statements)).
		Int("failed", len(res.Failed)).
		Str("gross", bundle.Summary.GrossValue.StringFixed(2)).
		Dur("took", time.Since(start)).
		Msg("statements generated")
	return res, nil
}

func (s *Service) begin(period string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[period] {
		return false
	}
	s.running[period] = true
	return true
}

func (s *Service) end(period string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, period)
}

// correctCategoriesOnce calls the correction at most once per period for the
// life of the process, even when it fails, so a broken correction cannot
// loop.
func (s *Service) correctCategoriesOnce(ctx context.Context, period string) {
	s.mu.Lock()
	if s.corrected[period] {
		s.mu.Unlock()
		return
	}
	s.corrected[period] = true
	s.mu.Unlock()

	if err := s.records.CorrectCategories(ctx, period); err != nil {
		s.logger.Warn().Err(err).Str("period", period).Msg("category correction failed, not retrying")
	}
}

// waitReady polls the generation status a fixed number of times at a fixed
// interval until it shows a completion newer than before.
func (s *Service) waitReady(ctx context.Context, period string, before GenerationStatus) error {
	for attempt := 1; attempt <= s.opts.PollAttempts; attempt++ {
		st, err := s.records.Status(ctx, period)
		if err != nil {
			return err
		}
		if st.CompletedSince(before) {
			return nil
		}
		if attempt == s.opts.PollAttempts {
			break
		}
		t := time.NewTimer(s.opts.PollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Errorf("%w: %s after %d checks", ErrGenerationTimeout, period, s.opts.PollAttempts)
}

func (s *Service) publish(ctx context.Context, b *Bundle) {
	if s.publisher == nil {
		return
	}
	ev, err := websocket.NewEvent(EventGenerated, websocket.StatementsTopic(b.Period), b.Period, b.Summary)
	if err != nil {
		s.logger.Error().Err(err).Msg("encode statements event")
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Msg("publish statements event")
	}
}

// Bundle returns the cached bundle of period.
func (s *Service) Bundle(ctx context.Context, period string) (*Bundle, error) {
	return s.cache.Get(ctx, period)
}

// Statement returns one client's statement from the cached bundle.
func (s *Service) Statement(ctx context.Context, period, client string) (*ClientStatement, error) {
	b, err := s.cache.Get(ctx, period)
	if err != nil {
		return nil, err
	}
	st, ok := b.Find(client)
	if !ok {
		return nil, ErrNotFound
	}
	return st, nil
}
