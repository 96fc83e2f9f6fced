package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ChangeChannel is the NOTIFY channel fed by the trigger on the billing
// line-item table.
const ChangeChannel = "faturamento_changes"

// Listener holds a dedicated connection on a LISTEN channel and hands every
// notification payload to a callback. It reconnects after errors.
type Listener struct {
	pool    *pgxpool.Pool
	channel string
	retry   time.Duration
	logger  zerolog.Logger
}

func NewListener(pool *pgxpool.Pool, channel string, logger zerolog.Logger) *Listener {
	return &Listener{pool: pool, channel: channel, retry: 5 * time.Second, logger: logger}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context, onNotify func(payload string)) {
	for {
		err := l.listen(ctx, onNotify)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn().Err(err).Str("channel", l.channel).Dur("retry_in", l.retry).Msg("listener disconnected")
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.retry):
		}
	}
}

func (l *Listener) listen(ctx context.Context, onNotify func(payload string)) error {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info().Str("channel", l.channel).Msg("listening for changes")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		onNotify(n.Payload)
	}
}
