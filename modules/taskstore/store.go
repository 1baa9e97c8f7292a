package taskstore

import (
	"context"

	domain "github.com/example/task-tracker/domain/task"
)

// Store is the task persistence backend. Every data operation goes through
// an owner-scoped view obtained from Scope.
type Store interface {
	Scope(ownerID string) ScopedStore
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
	Driver() string
}

// ScopedStore performs task operations restricted to a single owner.
// Update and Delete report how many rows matched; an id owned by someone
// else matches zero rows and is not an error.
type ScopedStore interface {
	List(ctx context.Context) ([]domain.Task, error)
	Create(ctx context.Context, draft domain.Draft) (*domain.Task, error)
	Update(ctx context.Context, id string, patch domain.Patch) (int64, error)
	Delete(ctx context.Context, id string) (int64, error)
}
