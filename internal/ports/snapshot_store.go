package ports

import (
	"context"
	"time"

	"github.com/duewell/syncgate/internal/domain"
)

// SnapshotStore persists response snapshots grouped into named namespaces.
// Namespaces are cheap to create and to drop wholesale; generational cache
// cleanup works by dropping entire namespaces.
type SnapshotStore interface {
	// Put stores a snapshot under (namespace, key), replacing any
	// previous snapshot for the same key.
	Put(ctx context.Context, namespace, key string, snap domain.Snapshot) error

	// Get returns the snapshot stored under (namespace, key).
	// Returns domain.ErrSnapshotNotFound on a miss.
	Get(ctx context.Context, namespace, key string) (domain.Snapshot, error)

	// Delete removes the snapshot under (namespace, key). Deleting a
	// missing key is not an error.
	Delete(ctx context.Context, namespace, key string) error

	// Len reports the number of snapshots in a namespace.
	Len(ctx context.Context, namespace string) (int, error)

	// Namespaces lists all namespace names present in the store,
	// including those owned by other prefixes.
	Namespaces(ctx context.Context) ([]string, error)

	// DropNamespace removes a namespace and every snapshot in it.
	DropNamespace(ctx context.Context, namespace string) error

	// Sweep evicts snapshots stored before cutoff, then evicts the
	// oldest entries until at most maxEntries remain. A zero cutoff or
	// non-positive maxEntries disables the respective bound. Returns
	// the number of evicted snapshots.
	Sweep(ctx context.Context, namespace string, cutoff time.Time, maxEntries int) (int, error)

	// Close releases resources held by the store.
	Close() error
}
