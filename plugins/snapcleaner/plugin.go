// Package snapcleaner evicts aged and over-capacity snapshots so cache
// storage stays bounded. It sweeps once at startup and then on every
// check interval.
package snapcleaner

import (
	"context"
	"sync"
	"time"

	"github.com/duewell/syncgate"
)

// Config holds configuration options for the snapshot cleaner plugin.
type Config struct {
	// CheckInterval is how often to sweep.
	// Default: 1 hour
	CheckInterval time.Duration

	// TTL is the snapshot age beyond which entries are evicted.
	// Default: 24 hours
	TTL time.Duration

	// MaxEntries caps snapshots per namespace after the age sweep.
	// Zero disables the cap.
	// Default: 200
	MaxEntries int
}

// DefaultConfig is the configuration the plugin runs with when no
// override is given.
func DefaultConfig() Config {
	return Config{
		CheckInterval: time.Hour,
		TTL:           24 * time.Hour,
		MaxEntries:    200,
	}
}

// Plugin runs the sweep loop against the gateway controller.
type Plugin struct {
	checkInterval time.Duration
	ttl           time.Duration
	maxEntries    int

	controller syncgate.Controller
	logger     syncgate.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a snapshot cleaner plugin. Out-of-range intervals fall
// back to the defaults; a zero MaxEntries stays zero and means no
// per-namespace cap.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.MaxEntries < 0 {
		cfg.MaxEntries = 0
	}

	return &Plugin{
		checkInterval: cfg.CheckInterval,
		ttl:           cfg.TTL,
		maxEntries:    cfg.MaxEntries,
	}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "snapcleaner"
}

// Initialize starts the sweep loop. Without a controller the plugin
// stays inert.
func (p *Plugin) Initialize(ctx context.Context, cfg syncgate.PluginConfig) error {
	p.controller = cfg.Controller
	p.logger = cfg.Logger

	if p.controller == nil {
		p.logger.Warn("snapshot cleaner disabled: no controller available")
		return nil
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("snapshot cleaner plugin initialized")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(sweepCtx)
	}()

	return nil
}

// Shutdown stops the sweep loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// run sweeps immediately, then on every tick.
func (p *Plugin) run(ctx context.Context) {
	p.sweep(ctx)

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweep(ctx)
		}
	}
}

func (p *Plugin) sweep(ctx context.Context) {
	removed, err := p.controller.SweepSnapshots(ctx, p.ttl, p.maxEntries)
	if err != nil {
		p.logger.Error("snapshot sweep failed")
		return
	}
	if removed > 0 {
		p.logger.Info("snapshot sweep completed")
	}
}

var _ syncgate.Plugin = (*Plugin)(nil)
