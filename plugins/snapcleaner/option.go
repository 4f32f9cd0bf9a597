package snapcleaner

import "github.com/duewell/syncgate"

// WithSnapCleaner returns a syncgate Option that enables periodic
// snapshot eviction. The plugin sweeps aged entries past the TTL and
// trims namespaces down to the entry cap on every check interval.
//
// Usage:
//
//	gw, err := syncgate.New(cfg,
//	    snapcleaner.WithSnapCleaner(snapcleaner.Config{
//	        CheckInterval: time.Hour,
//	        TTL:           24 * time.Hour,
//	        MaxEntries:    200,
//	    }),
//	)
func WithSnapCleaner(cfg Config) syncgate.Option {
	plugin := New(cfg)
	return syncgate.WithPlugin(plugin)
}

// WithDefaultSnapCleaner returns a syncgate Option that enables snapshot
// eviction with default settings (sweep hourly, 24h TTL, 200 entries per
// namespace).
//
// Usage:
//
//	gw, err := syncgate.New(cfg, snapcleaner.WithDefaultSnapCleaner())
func WithDefaultSnapCleaner() syncgate.Option {
	return WithSnapCleaner(DefaultConfig())
}
