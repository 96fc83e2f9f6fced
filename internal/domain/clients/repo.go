package clients

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	List(ctx context.Context) ([]*ClientIdentity, error)
	GetByID(ctx context.Context, id uuid.UUID) (*ClientIdentity, error)
}

// LoadDirectory builds a Directory from every client in the repository.
func LoadDirectory(ctx context.Context, repo Repository) (*Directory, error) {
	all, err := repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return NewDirectory(all...), nil
}
