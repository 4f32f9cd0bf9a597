// Package syncgate provides an embeddable offline gateway for web
// applications.
//
// Syncgate sits between an application and its upstream origin. It
// serves same-origin traffic through per-route caching strategies,
// captures snapshots of successful responses into versioned cache
// namespaces, queues write requests that fail while offline, and
// replays them once connectivity returns. It can be used as a
// standalone daemon via the syncgate CLI or embedded as a library in
// other Go programs.
//
// # Basic Usage
//
// To embed syncgate in your application:
//
//	cfg := syncgate.Config{
//	    UpstreamURL: "https://app.example.com",
//	    DataDir:     "/var/lib/syncgate",
//	    Listen:      "127.0.0.1:8787",
//	}
//
//	gw, err := syncgate.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... point the application at gw.Addr() ...
//
//	if err := gw.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//	_ = gw.Close()
//
// # Configuration
//
// Create a [Config] with at minimum UpstreamURL and DataDir. All other
// fields have sensible defaults set via [Config.SetDefaults].
//
// # Event Handling
//
// To receive notifications about gateway operations, implement
// [EventHandler] and pass it via [WithEventHandler]:
//
//	handler := &myEventHandler{}
//	gw, err := syncgate.New(cfg, syncgate.WithEventHandler(handler))
//
// Events are called synchronously from gateway goroutines.
// Implementations should return quickly to avoid blocking request
// serving.
//
// # Dependency Injection
//
// For testing, you can inject custom implementations of external
// dependencies:
//
//	gw, err := syncgate.New(cfg,
//	    syncgate.WithHTTPClient(mockClient),
//	    syncgate.WithLogger(customLogger),
//	    syncgate.WithSnapshotStore(store),
//	)
//
// # Lifecycle States
//
// A Syncgate instance walks [StateNew], [StateInstalling],
// [StateWaiting], [StateActive], [StateStopping], [StateStopped], with
// [StateFailed] reachable from errors. Use [Syncgate.Status] to query
// the current state.
//
// # Plugins
//
// Syncgate supports optional plugins for extended functionality:
//
//	import "github.com/duewell/syncgate/plugins/syncscheduler"
//	import "github.com/duewell/syncgate/plugins/releasewatcher"
//	import "github.com/duewell/syncgate/plugins/snapcleaner"
//
//	gw, err := syncgate.New(cfg,
//	    syncscheduler.WithDefaultSyncScheduler(),
//	    releasewatcher.WithDefaultReleaseWatcher(),
//	    snapcleaner.WithDefaultSnapCleaner(),
//	)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
//
// Use [ModuleVersions] to get versions of all sub-modules. See
// version.go for details.
package syncgate
