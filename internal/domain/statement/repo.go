package statement

import (
	"context"
	"time"
)

// GenerationStatus is the period's row in demonstrativos_status. UpdatedAt
// moves forward on every write to the row, so a run can tell its own
// completion from a flag left behind by an earlier one. The zero value means
// the period has no row yet.
type GenerationStatus struct {
	Done      bool
	UpdatedAt time.Time
}

// CompletedSince reports whether s marks a completion written after before.
func (s GenerationStatus) CompletedSince(before GenerationStatus) bool {
	return s.Done && s.UpdatedAt.After(before.UpdatedAt)
}

// Repository covers the persisted statements and the remote functions that
// produce them.
type Repository interface {
	ListByPeriod(ctx context.Context, period string) ([]*Record, error)
	// Generate asks the database to compute and persist the period's
	// statements. Completion is signalled through Status.
	Generate(ctx context.Context, period string) error
	Status(ctx context.Context, period string) (GenerationStatus, error)
	// CorrectCategories fixes a known bad category tag on the period's
	// exams. It is idempotent.
	CorrectCategories(ctx context.Context, period string) error
}
