package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/domain/period"
	"github.com/medimagem/faturamento/internal/platform/generation"
	"github.com/medimagem/faturamento/internal/platform/websocket"
)

// EventUpdated is the websocket event type carrying a fresh View.
const EventUpdated = "reconciliation.updated"

// Refresher keeps the latest View per period. Overlapping refreshes of the
// same period may finish in any order; only the most recently started one is
// stored and published.
type Refresher struct {
	computer  Computer
	tracker   *generation.Tracker
	publisher websocket.Publisher
	debounce  time.Duration
	logger    zerolog.Logger

	mu      sync.RWMutex
	views   map[string]*View
	pending map[string]*time.Timer
}

func NewRefresher(computer Computer, publisher websocket.Publisher, logger zerolog.Logger) *Refresher {
	return &Refresher{
		computer:  computer,
		tracker:   generation.NewTracker(),
		publisher: publisher,
		debounce:  500 * time.Millisecond,
		logger:    logger.With().Str("component", "reconciliation-refresher").Logger(),
		views:     make(map[string]*View),
		pending:   make(map[string]*time.Timer),
	}
}

// Latest returns the stored View for period, if any.
func (r *Refresher) Latest(p string) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[p]
	return v, ok
}

// Get returns the stored View, computing it on a miss.
func (r *Refresher) Get(ctx context.Context, p string) (*View, error) {
	if v, ok := r.Latest(p); ok {
		return v, nil
	}
	return r.Refresh(ctx, p)
}

// Refresh recomputes period. When a newer refresh for the same period
// commits first, the result of this one is discarded and the newer View is
// returned instead.
func (r *Refresher) Refresh(ctx context.Context, p string) (*View, error) {
	id := r.tracker.Begin(p)
	view, err := r.computer.Compute(ctx, p)
	if err != nil {
		return nil, err
	}
	view.Generation = id

	committed := r.tracker.Commit(p, id, func() {
		r.mu.Lock()
		r.views[p] = view
		r.mu.Unlock()
	})
	if !committed {
		r.logger.Debug().Str("period", p).Uint64("generation", id).Msg("stale reconciliation discarded")
		if latest, ok := r.Latest(p); ok {
			return latest, nil
		}
		return view, nil
	}

	r.publish(ctx, view)
	return view, nil
}

func (r *Refresher) publish(ctx context.Context, view *View) {
	if r.publisher == nil {
		return
	}
	topic := websocket.ReconciliationTopic(view.Period)
	ev, err := websocket.NewEvent(EventUpdated, topic, view.Period, view)
	if err != nil {
		r.logger.Error().Err(err).Str("period", view.Period).Msg("encode reconciliation event")
		return
	}
	if err := r.publisher.Publish(ctx, ev); err != nil {
		r.logger.Warn().Err(err).Str("period", view.Period).Msg("publish reconciliation event")
	}
}

// HandleNotification is the callback for change notifications on the
// billing line-item table. The payload only selects the period; bursts of
// notifications for the same period collapse into one refresh.
func (r *Refresher) HandleNotification(ctx context.Context) func(payload string) {
	return func(payload string) {
		p, err := period.Parse(payload)
		if err != nil {
			r.logger.Warn().Str("payload", payload).Msg("ignoring change notification without a valid period")
			return
		}
		key := p.String()

		r.mu.Lock()
		defer r.mu.Unlock()
		if t, ok := r.pending[key]; ok {
			t.Stop()
		}
		var t *time.Timer
		t = time.AfterFunc(r.debounce, func() { r.fire(ctx, key, t) })
		r.pending[key] = t
	}
}

// fire runs the debounced refresh for key. A timer that already fired but
// was replaced before it got the lock does nothing; the replacement owns the
// refresh and its pending entry.
func (r *Refresher) fire(ctx context.Context, key string, t *time.Timer) {
	r.mu.Lock()
	if r.pending[key] != t {
		r.mu.Unlock()
		return
	}
	delete(r.pending, key)
	r.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if _, err := r.Refresh(ctx, key); err != nil {
		r.logger.Error().Err(err).Str("period", key).Msg("reconciliation refresh after change failed")
	}
}
