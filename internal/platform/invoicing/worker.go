package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medimagem/faturamento/internal/platform/batch"
)

// Sender is satisfied by *Client.
type Sender interface {
	Send(ctx context.Context, inv *Invoice) (*Result, error)
}

// Worker polls the store and sends pending invoices one at a time.
type Worker struct {
	store     Store
	sender    Sender
	interval  time.Duration
	batchSize int
	logger    zerolog.Logger
}

func NewWorker(store Store, sender Sender, interval time.Duration, logger zerolog.Logger) *Worker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Worker{
		store:     store,
		sender:    sender,
		interval:  interval,
		batchSize: 50,
		logger:    logger.With().Str("component", "invoicing").Logger(),
	}
}

// Run syncs once immediately and then on every tick until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		if _, err := w.SyncOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Error().Err(err).Msg("invoicing sync failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SyncOnce sends every pending invoice. One invoice failing does not stop
// the others; each outcome is written to the store.
func (w *Worker) SyncOnce(ctx context.Context) (*batch.Report[*Attempt], error) {
	pending, err := w.store.Pending(ctx, w.batchSize)
	if err != nil {
		return nil, err
	}
	rep := batch.Run(ctx, pending, 1,
		func(inv *Invoice) string { return inv.StatementID.String() },
		w.sync)
	if len(pending) > 0 {
		w.logger.Info().Int("sent", len(rep.Succeeded)).Int("failed", len(rep.Failed)).Msg("invoicing sync finished")
	}
	return rep, nil
}

func (w *Worker) sync(ctx context.Context, inv *Invoice) (*Attempt, error) {
	a := &Attempt{
		ID:          uuid.New(),
		StatementID: inv.StatementID,
		Period:      inv.Period,
		CreatedAt:   time.Now().UTC(),
	}
	res, sendErr := w.sender.Send(ctx, inv)
	if res != nil {
		a.Attempts = res.Attempts
		a.StatusCode = res.StatusCode
		a.ExternalID = res.ExternalID
	}
	if sendErr != nil {
		a.Status = StatusFailed
		a.Error = sendErr.Error()
	} else {
		a.Status = StatusSuccess
	}

	if err := w.store.RecordAttempt(ctx, a); err != nil {
		w.logger.Error().Err(err).Str("statement", inv.StatementID.String()).Msg("record invoicing attempt")
	}
	if sendErr != nil {
		w.logger.Warn().Err(sendErr).Str("statement", inv.StatementID.String()).Str("client", inv.ClientName).
			Int("attempts", a.Attempts).Msg("invoice not sent")
		return a, sendErr
	}
	if err := w.store.MarkInvoiced(ctx, inv.StatementID); err != nil {
		return a, err
	}
	return a, nil
}
