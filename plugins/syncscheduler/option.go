package syncscheduler

import "github.com/duewell/syncgate"

// WithSyncScheduler returns a syncgate Option that enables background
// queue draining. While the upstream answers, queued mutations are
// replayed on the configured interval; while it does not, the plugin
// probes with exponential backoff and drains the moment connectivity
// returns.
//
// Usage:
//
//	gw, err := syncgate.New(cfg,
//	    syncscheduler.WithSyncScheduler(syncscheduler.Config{
//	        Interval:       30 * time.Second,
//	        BackoffInitial: 2 * time.Second,
//	        BackoffMax:     5 * time.Minute,
//	    }),
//	)
func WithSyncScheduler(cfg Config) syncgate.Option {
	plugin := New(cfg)
	return syncgate.WithPlugin(plugin)
}

// WithDefaultSyncScheduler returns a syncgate Option that enables
// background draining with default settings (drain every 30s, reprobe
// from 2s up to 5m while offline).
//
// Usage:
//
//	gw, err := syncgate.New(cfg, syncscheduler.WithDefaultSyncScheduler())
func WithDefaultSyncScheduler() syncgate.Option {
	return WithSyncScheduler(DefaultConfig())
}
