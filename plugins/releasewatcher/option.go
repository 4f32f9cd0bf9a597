package releasewatcher

import "github.com/duewell/syncgate"

// WithReleaseWatcher returns a syncgate Option that enables release
// watching. The plugin monitors the config file for build_version
// changes and rolls the gateway to the new release in place.
//
// Usage:
//
//	gw, err := syncgate.New(cfg,
//	    releasewatcher.WithReleaseWatcher(releasewatcher.Config{
//	        RetryInterval: 5 * time.Second,
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithReleaseWatcher(cfg Config) syncgate.Option {
	plugin := New(cfg)
	return syncgate.WithPlugin(plugin)
}

// WithDefaultReleaseWatcher returns a syncgate Option that enables
// release watching with default settings (100ms debounce, 5s retry).
//
// Usage:
//
//	gw, err := syncgate.New(cfg, releasewatcher.WithDefaultReleaseWatcher())
func WithDefaultReleaseWatcher() syncgate.Option {
	return WithReleaseWatcher(DefaultConfig())
}
