package ports

import (
	"context"

	"github.com/duewell/syncgate/internal/domain"
)

// MutationStore is the durable queue of write operations awaiting replay.
// Records survive process restarts; deletion happens per record, only
// after the upstream acknowledged the replay.
type MutationStore interface {
	// Put appends a mutation and returns its assigned ID. IDs increase
	// in insertion order.
	Put(ctx context.Context, m domain.Mutation) (int64, error)

	// GetAllByKind returns all mutations of a kind in insertion order.
	GetAllByKind(ctx context.Context, kind string) ([]domain.Mutation, error)

	// Delete removes a mutation by ID. Deleting a missing ID is not an
	// error.
	Delete(ctx context.Context, id int64) error

	// Kinds lists the distinct kinds currently queued.
	Kinds(ctx context.Context) ([]string, error)

	// Len reports the total number of queued mutations.
	Len(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}
