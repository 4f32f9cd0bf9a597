// Package memcache provides an in-memory snapshot store.
//
// It is the default store: namespaces are plain maps, dropped wholesale on
// generational cleanup. Eviction is driven externally through Sweep, so the
// store itself runs no background goroutines.
package memcache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
)

// Store is an in-memory ports.SnapshotStore implementation.
// All operations are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	spaces map[string]map[string]domain.Snapshot
	closed bool
}

var _ ports.SnapshotStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{spaces: make(map[string]map[string]domain.Snapshot)}
}

// Put stores a snapshot under (namespace, key). The snapshot is cloned so
// later caller-side modifications cannot reach the store.
func (s *Store) Put(ctx context.Context, namespace, key string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	ns, ok := s.spaces[namespace]
	if !ok {
		ns = make(map[string]domain.Snapshot)
		s.spaces[namespace] = ns
	}
	ns[key] = snap.Clone()
	return nil
}

// Get returns a clone of the stored snapshot.
func (s *Store) Get(ctx context.Context, namespace, key string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.Snapshot{}, domain.ErrStoreClosed
	}
	snap, ok := s.spaces[namespace][key]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

// Delete removes the snapshot under (namespace, key).
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	if ns, ok := s.spaces[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(s.spaces, namespace)
		}
	}
	return nil
}

// Len reports the number of snapshots in a namespace.
func (s *Store) Len(ctx context.Context, namespace string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	return len(s.spaces[namespace]), nil
}

// Namespaces lists all namespace names in lexical order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreClosed
	}
	names := make([]string, 0, len(s.spaces))
	for name := range s.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// DropNamespace removes a namespace and all snapshots in it.
func (s *Store) DropNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreClosed
	}
	delete(s.spaces, namespace)
	return nil
}

// Sweep evicts snapshots older than cutoff, then the oldest entries beyond
// maxEntries. Ties on the storage time break by key so eviction is stable.
func (s *Store) Sweep(ctx context.Context, namespace string, cutoff time.Time, maxEntries int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, domain.ErrStoreClosed
	}
	ns, ok := s.spaces[namespace]
	if !ok {
		return 0, nil
	}

	removed := 0
	if !cutoff.IsZero() {
		for key, snap := range ns {
			if snap.StoredAt.Before(cutoff) {
				delete(ns, key)
				removed++
			}
		}
	}

	if maxEntries > 0 && len(ns) > maxEntries {
		type aged struct {
			key string
			at  time.Time
		}
		entries := make([]aged, 0, len(ns))
		for key, snap := range ns {
			entries = append(entries, aged{key: key, at: snap.StoredAt})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].at.Equal(entries[j].at) {
				return entries[i].key < entries[j].key
			}
			return entries[i].at.Before(entries[j].at)
		})
		over := len(entries) - maxEntries
		for _, e := range entries[:over] {
			delete(ns, e.key)
			removed++
		}
	}

	if len(ns) == 0 {
		delete(s.spaces, namespace)
	}
	return removed, nil
}

// Close releases the store. Further operations return domain.ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.spaces = nil
	return nil
}
