// Package releasewatcher rolls the gateway to a new release when the
// build_version in its config file changes. Deploys that rewrite the
// config are picked up without a restart.
package releasewatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/duewell/syncgate"
)

// Config holds configuration options for the release watcher plugin.
type Config struct {
	// RetryInterval is the delay between retries when applying an
	// update fails.
	// Default: 5 seconds
	RetryInterval time.Duration

	// DebounceDelay is how long to sit on a file event before reading
	// the file. Editors and deploy tools often write in bursts.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig is the configuration the plugin runs with when no
// override is given.
func DefaultConfig() Config {
	return Config{
		RetryInterval: 5 * time.Second,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// Plugin watches the config file that configured the running gateway
// and applies build_version changes through the controller.
type Plugin struct {
	mu            sync.Mutex
	retryInterval time.Duration
	debounceDelay time.Duration
	configPath    string
	controller    syncgate.Controller
	logger        syncgate.Logger
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	pending       *time.Timer
}

// New creates a release watcher plugin. Out-of-range values fall back
// to the defaults.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}

	return &Plugin{
		retryInterval: cfg.RetryInterval,
		debounceDelay: cfg.DebounceDelay,
	}
}

// Name identifies the plugin in logs.
func (p *Plugin) Name() string {
	return "releasewatcher"
}

// Initialize starts the watcher. Without a config file or controller
// the plugin stays inert.
func (p *Plugin) Initialize(ctx context.Context, cfg syncgate.PluginConfig) error {
	p.configPath = cfg.ConfigPath
	p.controller = cfg.Controller
	p.logger = cfg.Logger

	if p.configPath == "" || p.controller == nil {
		p.logger.Warn("release watcher disabled: no config file in use")
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("release watcher plugin initialized")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(watchCtx)
	}()

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

// run applies the version on disk, then reapplies it whenever the file
// changes. The parent directory is watched rather than the file itself
// so atomic replaces keep working.
func (p *Plugin) run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Error("release watcher setup failed")
		return
	}
	defer watcher.Close()

	watching := true
	if err := watcher.Add(filepath.Dir(p.configPath)); err != nil {
		p.logger.Error("cannot watch config directory")
		watching = false
	}

	// Unchanged versions are a no-op in the gateway, so applying
	// unconditionally on startup is safe.
	p.applyWithRetry(ctx)
	if !watching {
		return
	}

	name := filepath.Base(p.configPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleApply(ctx)

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watch error")
		}
	}
}

// scheduleApply coalesces bursts of file events into one read.
func (p *Plugin) scheduleApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending != nil {
		p.pending.Stop()
	}
	p.pending = time.AfterFunc(p.debounceDelay, func() {
		p.applyWithRetry(ctx)
	})
}

// configVersion is the one key this plugin reads from the config file.
type configVersion struct {
	BuildVersion string `toml:"build_version"`
}

func (p *Plugin) readVersion() (string, error) {
	data, err := os.ReadFile(p.configPath)
	if err != nil {
		return "", err
	}
	var cv configVersion
	if err := toml.Unmarshal(data, &cv); err != nil {
		return "", err
	}
	return cv.BuildVersion, nil
}

// applyWithRetry pushes the on-disk version to the controller, retrying
// until it sticks or the context ends. A file without a build_version
// is left alone.
func (p *Plugin) applyWithRetry(ctx context.Context) {
	version, err := p.readVersion()
	if err != nil {
		p.logger.Error("config read failed")
		return
	}
	if version == "" {
		return
	}

	for attempt := 0; ; attempt++ {
		if err := p.controller.Update(ctx, version); err == nil {
			if attempt > 0 {
				p.logger.Info("release applied after retries")
			} else {
				p.logger.Info("release applied")
			}
			return
		}

		p.logger.Error("release update failed")

		select {
		case <-ctx.Done():
			p.logger.Info("release retry abandoned, shutting down")
			return
		case <-time.After(p.retryInterval):
		}
	}
}

var _ syncgate.Plugin = (*Plugin)(nil)
