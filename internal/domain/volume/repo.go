package volume

import "context"

type Repository interface {
	// ListByPeriod returns every exam of the period; client narrows the
	// result to one feed name when non-empty.
	ListByPeriod(ctx context.Context, period, client string) ([]*ExamRecord, error)
}
