package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

// defaultShellPath is the application shell served to offline navigations.
const defaultShellPath = "/index.html"

// DrainEmitter is notified after each completed drain run.
type DrainEmitter interface {
	OnDrain(tag string, replayed, failed int)
}

// GatewayConfig carries the configuration and collaborators of a Gateway.
type GatewayConfig struct {
	// Prefix namespaces everything the gateway owns: snapshot
	// namespaces, sync tags and control message types.
	Prefix string

	// BuildVersion pins the initial snapshot generation.
	BuildVersion string

	// ShellPath is the application shell path. Default: /index.html.
	ShellPath string

	// StaticAssets are precached into the static namespace on install.
	StaticAssets []string

	// Rules route requests to strategies. Nil selects the built-ins.
	Rules []domain.Rule

	// QueueRoutes map failed write requests to mutation kinds. Nil
	// selects the built-ins.
	QueueRoutes []domain.QueueRoute

	// Snapshots, Queue and Fetcher are required.
	Snapshots ports.SnapshotStore
	Queue     ports.MutationStore
	Fetcher   ports.Fetcher

	// States persists gateway state across restarts. Optional.
	States ports.StateRepository

	// Notifier receives relayed push notifications. Optional.
	Notifier ports.Notifier

	Logger  log.Logger
	Metrics *Metrics

	// Emitter observes lifecycle transitions. Optional.
	Emitter EventEmitter

	// DrainEmitter observes drain runs. Optional.
	DrainEmitter DrainEmitter
}

// Gateway is the offline gateway core: it serves the data plane, owns the
// snapshot namespaces and the mutation queue, and walks the install /
// waiting / active lifecycle.
type Gateway struct {
	prefix      string
	shellPath   string
	assets      []string
	classifier  *Classifier
	queueRoutes []domain.QueueRoute

	snaps    ports.SnapshotStore
	queue    ports.MutationStore
	fetcher  ports.Fetcher
	states   ports.StateRepository
	notifier ports.Notifier
	logger   log.Logger
	metrics  *Metrics

	lifecycle    *Lifecycle
	drainEmitter DrainEmitter

	// drains collapses concurrent drains of the same tag into one run so
	// a record is never replayed twice concurrently.
	drains singleflight.Group

	mu      sync.RWMutex
	version string
	state   domain.GatewayState
}

// NewGateway validates the configuration and creates a Gateway in the New
// state. Call Install and Activate to bring it into service.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	if cfg.Prefix == "" {
		return nil, fmt.Errorf("%w: prefix is required", domain.ErrInvalidConfig)
	}
	if cfg.BuildVersion == "" {
		return nil, fmt.Errorf("%w: build version is required", domain.ErrInvalidConfig)
	}
	if cfg.Snapshots == nil {
		return nil, fmt.Errorf("%w: snapshot store is required", domain.ErrInvalidConfig)
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("%w: mutation store is required", domain.ErrInvalidConfig)
	}
	if cfg.Fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", domain.ErrInvalidConfig)
	}

	if cfg.ShellPath == "" {
		cfg.ShellPath = defaultShellPath
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics(nil)
	}
	if cfg.QueueRoutes == nil {
		cfg.QueueRoutes = domain.DefaultQueueRoutes()
	}

	g := &Gateway{
		prefix:       cfg.Prefix,
		shellPath:    cfg.ShellPath,
		assets:       cfg.StaticAssets,
		classifier:   NewClassifier(cfg.Rules),
		queueRoutes:  cfg.QueueRoutes,
		snaps:        cfg.Snapshots,
		queue:        cfg.Queue,
		fetcher:      cfg.Fetcher,
		states:       cfg.States,
		notifier:     cfg.Notifier,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		drainEmitter: cfg.DrainEmitter,
		version:      cfg.BuildVersion,
	}
	g.lifecycle = NewLifecycle(cfg.Logger, cfg.Emitter)
	return g, nil
}

// Lifecycle exposes the gateway's state machine.
func (g *Gateway) Lifecycle() *Lifecycle {
	return g.lifecycle
}

// Prefix returns the configured cache prefix.
func (g *Gateway) Prefix() string {
	return g.prefix
}

// Version returns the build version of the current generation.
func (g *Gateway) Version() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.version
}

// namespace names the snapshot namespace of the current generation for a
// purpose.
func (g *Gateway) namespace(purpose domain.Purpose) string {
	return domain.Namespace{Prefix: g.prefix, Purpose: purpose, BuildVersion: g.Version()}.Name()
}

// Install precaches the shell and static assets into the static namespace
// of the current generation. Assets are fetched independently; a failed
// asset is logged and skipped, so install completes with the partial set.
func (g *Gateway) Install(ctx context.Context) error {
	if err := g.lifecycle.TransitionTo(StateInstalling, "install"); err != nil {
		return err
	}
	if g.states != nil {
		if prior, err := g.states.Load(ctx); err != nil {
			g.logger.Warn("state load failed", log.Err(err))
		} else {
			g.mu.Lock()
			g.state = prior
			g.mu.Unlock()
		}
	}
	g.precacheAll(ctx)
	return g.lifecycle.TransitionTo(StateWaiting, "installed")
}

func (g *Gateway) precacheAll(ctx context.Context) {
	staticNS := g.namespace(domain.PurposeStatic)
	cached := 0
	for _, path := range append([]string{g.shellPath}, g.assets...) {
		if err := g.precache(ctx, staticNS, path); err != nil {
			g.logger.Warn("precache failed",
				log.String("path", path),
				log.Err(err),
			)
			continue
		}
		cached++
	}
	g.logger.Info("install precache complete",
		log.String("version", g.Version()),
		log.Int("cached", cached),
		log.Int("requested", len(g.assets)+1),
	)
}

func (g *Gateway) precache(ctx context.Context, ns, path string) error {
	resp, err := g.fetcher.Get(ctx, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	g.storeSnapshot(ctx, ns, domain.PurposeStatic, domain.SnapshotKey(http.MethodGet, path), resp, body)
	return nil
}

// Activate promotes the current generation: stale namespaces under the
// prefix are dropped and the active version is persisted.
func (g *Gateway) Activate(ctx context.Context) error {
	if err := g.lifecycle.TransitionTo(StateActive, "activate"); err != nil {
		return err
	}

	version := g.Version()
	purged, err := g.purgeStale(ctx, version)
	if err != nil {
		g.logger.Warn("stale namespace purge failed", log.Err(err))
	} else if purged > 0 {
		g.logger.Info("stale namespaces purged",
			log.Int("count", purged),
			log.String("active_version", version),
		)
	}

	g.mu.Lock()
	g.state.ActiveVersion = version
	g.state.ActivatedAt = time.Now()
	st := g.state
	g.mu.Unlock()
	g.saveState(ctx, st)
	return nil
}

// purgeStale drops namespaces owned by the prefix whose version differs
// from the active one. Unparseable and foreign names are left alone.
func (g *Gateway) purgeStale(ctx context.Context, version string) (int, error) {
	names, err := g.snaps.Namespaces(ctx)
	if err != nil {
		return 0, err
	}
	purged := 0
	for _, name := range names {
		if !domain.BelongsTo(name, g.prefix) {
			continue
		}
		ns, ok := domain.ParseNamespace(name)
		if !ok || ns.Prefix != g.prefix || ns.BuildVersion == version {
			continue
		}
		if err := g.snaps.DropNamespace(ctx, name); err != nil {
			g.logger.Warn("drop namespace failed", log.String("namespace", name), log.Err(err))
			continue
		}
		purged++
	}
	return purged, nil
}

// Update rolls the gateway over to a new build version: the new
// generation installs its namespaces and activates, which purges the
// previous generation. Updating to the current version is a no-op.
func (g *Gateway) Update(ctx context.Context, version string) error {
	if version == "" {
		return fmt.Errorf("%w: empty build version", domain.ErrInvalidConfig)
	}
	if version == g.Version() {
		g.logger.Debug("update skipped, version unchanged", log.String("version", version))
		return nil
	}
	if err := g.lifecycle.TransitionTo(StateInstalling, "update to "+version); err != nil {
		return err
	}

	g.mu.Lock()
	g.version = version
	g.mu.Unlock()

	g.precacheAll(ctx)
	if err := g.lifecycle.TransitionTo(StateWaiting, "installed"); err != nil {
		return err
	}
	return g.Activate(ctx)
}

// InvalidateAll drops every snapshot namespace that begins with the
// prefix, across all generations. Foreign namespaces are untouched.
func (g *Gateway) InvalidateAll(ctx context.Context) error {
	names, err := g.snaps.Namespaces(ctx)
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	dropped := 0
	for _, name := range names {
		if !domain.BelongsTo(name, g.prefix) {
			continue
		}
		if err := g.snaps.DropNamespace(ctx, name); err != nil {
			g.logger.Warn("drop namespace failed", log.String("namespace", name), log.Err(err))
			continue
		}
		dropped++
	}
	g.logger.Info("caches cleared", log.Int("namespaces", dropped))
	return nil
}

// SweepSnapshots evicts aged and over-capacity snapshots from the dynamic
// and api namespaces of the current generation. The static namespace is
// exempt: the shell must survive for offline navigations.
func (g *Gateway) SweepSnapshots(ctx context.Context, olderThan time.Duration, maxEntries int) (int, error) {
	var cutoff time.Time
	if olderThan > 0 {
		cutoff = time.Now().Add(-olderThan)
	}
	removed := 0
	for _, purpose := range []domain.Purpose{domain.PurposeDynamic, domain.PurposeAPI} {
		n, err := g.snaps.Sweep(ctx, g.namespace(purpose), cutoff, maxEntries)
		if err != nil {
			return removed, fmt.Errorf("sweep %s: %w", purpose, err)
		}
		removed += n
	}
	if removed > 0 {
		g.logger.Info("snapshots swept", log.Int("removed", removed))
	}
	return removed, nil
}

// Notify relays a push notification. Empty payloads degrade to the
// generic notification.
func (g *Gateway) Notify(ctx context.Context, n domain.Notification) error {
	if g.notifier == nil {
		return nil
	}
	if n.Title == "" && n.Body == "" {
		n = domain.GenericNotification(g.prefix)
	}
	return g.notifier.Notify(ctx, n)
}

// GatewayStatus is a point-in-time snapshot of the gateway for status
// reporting.
type GatewayStatus struct {
	State       string               `json:"state"`
	Version     string               `json:"version"`
	ActivatedAt time.Time            `json:"activated_at"`
	QueueDepth  int                  `json:"queue_depth"`
	QueueKinds  []string             `json:"queue_kinds,omitempty"`
	Namespaces  []string             `json:"namespaces,omitempty"`
	LastDrain   map[string]time.Time `json:"last_drain,omitempty"`
}

// Status reports the current gateway status. Store errors degrade to
// missing fields rather than failing the report.
func (g *Gateway) Status(ctx context.Context) GatewayStatus {
	g.mu.RLock()
	st := g.state
	g.mu.RUnlock()

	status := GatewayStatus{
		State:       g.lifecycle.State().String(),
		Version:     g.Version(),
		ActivatedAt: st.ActivatedAt,
		LastDrain:   st.LastDrain,
	}

	if depth, err := g.queue.Len(ctx); err == nil {
		status.QueueDepth = depth
	}
	if kinds, err := g.queue.Kinds(ctx); err == nil {
		status.QueueKinds = kinds
	}
	if names, err := g.snaps.Namespaces(ctx); err == nil {
		owned := names[:0]
		for _, name := range names {
			if domain.BelongsTo(name, g.prefix) {
				owned = append(owned, name)
			}
		}
		sort.Strings(owned)
		status.Namespaces = owned
	}
	return status
}

// recordDrain stores the drain time for a tag and persists the state.
func (g *Gateway) recordDrain(ctx context.Context, tag string) {
	g.mu.Lock()
	g.state = g.state.RecordDrain(tag, time.Now())
	st := g.state
	g.mu.Unlock()
	g.saveState(ctx, st)
}

func (g *Gateway) saveState(ctx context.Context, st domain.GatewayState) {
	if g.states == nil {
		return
	}
	if err := g.states.Save(ctx, st); err != nil {
		g.logger.Warn("state save failed", log.Err(err))
	}
}

// storeSnapshot captures an upstream response into a namespace. Store
// failures are logged; the response is still served.
func (g *Gateway) storeSnapshot(ctx context.Context, ns string, purpose domain.Purpose, key string, resp *http.Response, body []byte) {
	snap := domain.Snapshot{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		StoredAt: time.Now(),
	}
	if err := g.snaps.Put(ctx, ns, key, snap); err != nil {
		if !errors.Is(err, domain.ErrStoreClosed) {
			g.logger.Warn("snapshot store failed", log.String("key", key), log.Err(err))
		}
		return
	}
	g.metrics.SnapshotStores.WithLabelValues(string(purpose)).Inc()
}
