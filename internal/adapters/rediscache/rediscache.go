// Package rediscache provides a Redis-backed snapshot store.
//
// It is an optional alternative to the in-memory store for deployments that
// want snapshots shared between gateway instances or preserved across
// restarts. Redis outages never break the data path: the client is
// temporarily disabled on errors and reads degrade to cache misses while a
// background ping loop probes for recovery.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

const (
	// keyPrefix namespaces all gateway keys inside the Redis keyspace.
	keyPrefix = "snap:"

	// nsSep separates the namespace from the snapshot key. Namespace
	// names must not contain it.
	nsSep = "|"

	scanBatch = 256
	delBatch  = 128

	defaultClientTimeout = time.Second
)

// Opts configures a Store.
type Opts struct {
	// Client is the Redis client. Required.
	Client redis.Cmdable

	// ClientCloser closes the client on Store.Close. Optional.
	ClientCloser io.Closer

	// ClientTimeout bounds each Redis command. Default: 1s.
	ClientTimeout time.Duration

	// Logger for degradation warnings. Default: no-op.
	Logger log.Logger
}

// Init validates and fills default values.
func (opts *Opts) Init() error {
	if opts.Client == nil {
		return errors.New("nil redis client")
	}
	if opts.ClientTimeout <= 0 {
		opts.ClientTimeout = defaultClientTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNop()
	}
	return nil
}

// Store is a Redis-backed ports.SnapshotStore implementation.
type Store struct {
	opts Opts

	closeOnce   sync.Once
	closeNotify chan struct{}

	// clientDisabled marks the client unusable after an error until a
	// background ping succeeds.
	clientDisabled uint32
}

var _ ports.SnapshotStore = (*Store)(nil)

// New creates a Store. Call Close when done.
func New(opts Opts) (*Store, error) {
	if err := opts.Init(); err != nil {
		return nil, err
	}
	return &Store{
		opts:        opts,
		closeNotify: make(chan struct{}),
	}, nil
}

func (s *Store) disabled() bool {
	return atomic.LoadUint32(&s.clientDisabled) != 0
}

// disableClient pauses the client and starts a ping loop that re-enables
// it once Redis answers again.
func (s *Store) disableClient() {
	if !atomic.CompareAndSwapUint32(&s.clientDisabled, 0, 1) {
		return
	}
	s.opts.Logger.Warn("redis temporarily disabled")
	go func() {
		const maxBackoff = time.Second * 30
		backoff := time.Millisecond * 100
		for {
			select {
			case <-s.closeNotify:
				return
			case <-time.After(backoff):
				ctx, cancel := context.WithTimeout(context.Background(), s.opts.ClientTimeout)
				err := s.opts.Client.Ping(ctx).Err()
				cancel()
				if err != nil {
					backoff += time.Duration(rand.Intn(1000))*time.Millisecond + time.Second
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
					continue
				}
				atomic.StoreUint32(&s.clientDisabled, 0)
				s.opts.Logger.Info("redis re-enabled")
				return
			}
		}
	}()
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.ClientTimeout)
}

// fullKey builds the Redis key for (namespace, key).
func fullKey(namespace, key string) string {
	return keyPrefix + namespace + nsSep + key
}

// splitKey recovers (namespace, key) from a Redis key. Reports false for
// keys outside the gateway keyspace.
func splitKey(redisKey string) (namespace, key string, ok bool) {
	rest, found := strings.CutPrefix(redisKey, keyPrefix)
	if !found {
		return "", "", false
	}
	return strings.Cut(rest, nsSep)
}

// Put stores a snapshot. Writes are best effort: when the client is
// disabled the write is dropped and the data path continues.
func (s *Store) Put(ctx context.Context, namespace, key string, snap domain.Snapshot) error {
	if s.disabled() {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.opts.Client.Set(opCtx, fullKey(namespace, key), data, 0).Err(); err != nil {
		s.opts.Logger.Warn("redis set failed", log.String("namespace", namespace), log.Err(err))
		s.disableClient()
	}
	return nil
}

// Get returns the stored snapshot. Errors degrade to cache misses.
func (s *Store) Get(ctx context.Context, namespace, key string) (domain.Snapshot, error) {
	if s.disabled() {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	data, err := s.opts.Client.Get(opCtx, fullKey(namespace, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.opts.Logger.Warn("redis get failed", log.String("namespace", namespace), log.Err(err))
			s.disableClient()
		}
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.opts.Logger.Warn("corrupt snapshot entry dropped", log.String("namespace", namespace), log.Err(err))
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

// Delete removes one snapshot.
func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	if s.disabled() {
		return nil
	}
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()
	if err := s.opts.Client.Del(opCtx, fullKey(namespace, key)).Err(); err != nil {
		s.opts.Logger.Warn("redis del failed", log.Err(err))
		s.disableClient()
	}
	return nil
}

// Len reports the number of snapshots in a namespace.
func (s *Store) Len(ctx context.Context, namespace string) (int, error) {
	keys, err := s.namespaceKeys(ctx, namespace)
	if err != nil {
		return 0, nil
	}
	return len(keys), nil
}

// Namespaces lists all namespace names in lexical order.
func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	keys, err := s.scanKeys(ctx, keyPrefix+"*")
	if err != nil {
		return nil, nil
	}
	seen := make(map[string]struct{})
	for _, k := range keys {
		if ns, _, ok := splitKey(k); ok {
			seen[ns] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for ns := range seen {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names, nil
}

// DropNamespace removes a namespace and every snapshot in it.
func (s *Store) DropNamespace(ctx context.Context, namespace string) error {
	keys, err := s.namespaceKeys(ctx, namespace)
	if err != nil {
		return nil
	}
	for len(keys) > 0 {
		batch := keys
		if len(batch) > delBatch {
			batch = batch[:delBatch]
		}
		keys = keys[len(batch):]
		opCtx, cancel := s.opCtx(ctx)
		err := s.opts.Client.Del(opCtx, batch...).Err()
		cancel()
		if err != nil {
			s.opts.Logger.Warn("redis del failed", log.String("namespace", namespace), log.Err(err))
			s.disableClient()
			return nil
		}
	}
	return nil
}

// Sweep evicts snapshots older than cutoff, then the oldest entries beyond
// maxEntries.
func (s *Store) Sweep(ctx context.Context, namespace string, cutoff time.Time, maxEntries int) (int, error) {
	keys, err := s.namespaceKeys(ctx, namespace)
	if err != nil {
		return 0, nil
	}

	type aged struct {
		key string
		at  time.Time
	}
	var entries []aged
	var evict []string
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		_, key, ok := splitKey(k)
		if !ok {
			continue
		}
		snap, err := s.Get(ctx, namespace, key)
		if err != nil {
			continue
		}
		if !cutoff.IsZero() && snap.StoredAt.Before(cutoff) {
			evict = append(evict, k)
			continue
		}
		entries = append(entries, aged{key: k, at: snap.StoredAt})
	}

	if maxEntries > 0 && len(entries) > maxEntries {
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].at.Equal(entries[j].at) {
				return entries[i].key < entries[j].key
			}
			return entries[i].at.Before(entries[j].at)
		})
		for _, e := range entries[:len(entries)-maxEntries] {
			evict = append(evict, e.key)
		}
	}

	removed := 0
	for _, k := range evict {
		if s.disabled() {
			break
		}
		opCtx, cancel := s.opCtx(ctx)
		err := s.opts.Client.Del(opCtx, k).Err()
		cancel()
		if err != nil {
			s.opts.Logger.Warn("redis del failed", log.String("namespace", namespace), log.Err(err))
			s.disableClient()
			break
		}
		removed++
	}
	return removed, nil
}

// Close stops the recovery loop and closes the client if a closer was given.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeNotify)
		if s.opts.ClientCloser != nil {
			err = s.opts.ClientCloser.Close()
		}
	})
	return err
}

func (s *Store) namespaceKeys(ctx context.Context, namespace string) ([]string, error) {
	if s.disabled() {
		return nil, errors.New("redis disabled")
	}
	return s.scanKeys(ctx, keyPrefix+namespace+nsSep+"*")
}

func (s *Store) scanKeys(ctx context.Context, match string) ([]string, error) {
	if s.disabled() {
		return nil, errors.New("redis disabled")
	}
	var keys []string
	var cursor uint64
	for {
		opCtx, cancel := s.opCtx(ctx)
		batch, next, err := s.opts.Client.Scan(opCtx, cursor, match, scanBatch).Result()
		cancel()
		if err != nil {
			s.opts.Logger.Warn("redis scan failed", log.Err(err))
			s.disableClient()
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
