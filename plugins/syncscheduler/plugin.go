// Package syncscheduler replays queued mutations in the background. It
// drains on a fixed cadence while the upstream answers, probes with
// exponential backoff while it does not, and drains immediately on
// reconnect.
package syncscheduler

import (
	"context"
	"sync"
	"time"

	"github.com/duewell/syncgate"
)

// Config holds configuration options for the sync scheduler plugin.
type Config struct {
	// Interval is the drain cadence while the upstream is reachable.
	// Default: 30 seconds
	Interval time.Duration

	// BackoffInitial is the first reprobe delay after the upstream
	// stops answering.
	// Default: 2 seconds
	BackoffInitial time.Duration

	// BackoffMax caps the reprobe delay.
	// Default: 5 minutes
	BackoffMax time.Duration
}

// DefaultConfig is the configuration the plugin runs with when no
// override is given.
func DefaultConfig() Config {
	return Config{
		Interval:       30 * time.Second,
		BackoffInitial: 2 * time.Second,
		BackoffMax:     5 * time.Minute,
	}
}

// Plugin drives scheduled queue drains with reconnect detection.
type Plugin struct {
	interval       time.Duration
	backoffInitial time.Duration
	backoffMax     time.Duration

	controller syncgate.Controller
	probe      syncgate.ConnectivityProbe
	logger     syncgate.Logger
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

// New creates a sync scheduler plugin. Out-of-range values fall back to
// the defaults.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = def.BackoffMax
	}

	return &Plugin{
		interval:       cfg.Interval,
		backoffInitial: cfg.BackoffInitial,
		backoffMax:     cfg.BackoffMax,
	}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "syncscheduler"
}

// Initialize starts the drain loop. Without a controller the plugin
// stays inert.
func (p *Plugin) Initialize(ctx context.Context, cfg syncgate.PluginConfig) error {
	p.controller = cfg.Controller
	p.probe = cfg.Probe
	p.logger = cfg.Logger

	if p.controller == nil {
		p.logger.Warn("sync scheduler disabled: no controller available")
		return nil
	}

	drainCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("sync scheduler plugin initialized")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(drainCtx)
	}()

	return nil
}

// Shutdown stops the drain loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// run alternates between the drain cadence and the offline backoff. The
// first pass fires right away so leftovers from a prior run do not wait
// a full interval.
func (p *Plugin) run(ctx context.Context) {
	bo := newBackoff(p.backoffInitial, p.backoffMax)
	online := true

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		nowOnline := p.isOnline(ctx)
		switch {
		case nowOnline && !online:
			p.logger.Info("upstream reachable again, draining queue")
			bo.Reset()
			p.drain(ctx)
			timer.Reset(p.interval)
		case nowOnline:
			p.drain(ctx)
			timer.Reset(p.interval)
		default:
			if online {
				p.logger.Warn("upstream unreachable, backing off")
			}
			timer.Reset(bo.Next())
		}
		online = nowOnline
	}
}

// isOnline reports upstream reachability. Without a probe the upstream
// is assumed reachable and the drain itself decides.
func (p *Plugin) isOnline(ctx context.Context) bool {
	if p.probe == nil {
		return true
	}
	return p.probe.Online(ctx)
}

// drain replays everything currently queued.
func (p *Plugin) drain(ctx context.Context) {
	results, err := p.controller.DrainAll(ctx)
	if err != nil {
		p.logger.Error("scheduled drain failed")
		return
	}
	replayed := 0
	for _, res := range results {
		replayed += res.Replayed
	}
	if replayed > 0 {
		p.logger.Info("queue drained")
	}
}

var _ syncgate.Plugin = (*Plugin)(nil)
