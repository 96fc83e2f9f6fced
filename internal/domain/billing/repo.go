package billing

import "context"

type Repository interface {
	// ListByPeriod returns the line items of a period, optionally narrowed
	// to a set of persisted client names.
	ListByPeriod(ctx context.Context, period string, clientNames []string) ([]*LineItem, error)
}
