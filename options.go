package syncgate

import (
	"net/http"

	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

// HTTPClient is the transport used for upstream requests.
// *http.Client satisfies it.
type HTTPClient = ports.HTTPClient

// Logger is the structured logging interface from pkg/log.
type Logger = log.Logger

// LogField is one key/value pair on a log line.
type LogField = log.Field

// SnapshotStore stores response snapshots in versioned namespaces.
type SnapshotStore = ports.SnapshotStore

// MutationStore is the durable queue of captured write requests.
type MutationStore = ports.MutationStore

// Notifier delivers relayed push notifications.
type Notifier = ports.Notifier

// Option configures optional behavior of Syncgate.
type Option func(*options)

// options holds the optional configuration for a Syncgate instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	snapshots    ports.SnapshotStore
	queue        ports.MutationStore
	notifier     ports.Notifier
}

// defaultOptions is the baseline every New call starts from.
func defaultOptions(client *http.Client) options {
	return options{
		httpClient: client,
		logger:     log.NewNop(),
	}
}

// WithHTTPClient substitutes the upstream transport. The default is an
// *http.Client honoring Config.FetchTimeout.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger routes the gateway's structured logging somewhere.
// Without it nothing is logged.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler subscribes a handler to state changes and drain
// results.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when Syncgate starts.
// Plugins are initialized in registration order and shut down in
// reverse order. Use this for custom plugins; the built-in plugins ship
// their own options, like syncscheduler.WithSyncScheduler().
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithSnapshotStore overrides the snapshot store. The default is an
// in-memory store, or Redis when Config.RedisURL is set. The store is
// closed by Close.
func WithSnapshotStore(store SnapshotStore) Option {
	return func(o *options) {
		o.snapshots = store
	}
}

// WithMutationStore overrides the mutation queue. The default is a
// SQLite store at Config.QueuePath. The store is closed by Close.
func WithMutationStore(store MutationStore) Option {
	return func(o *options) {
		o.queue = store
	}
}

// WithNotifier overrides the notification sink relayed pushes land in.
// The default logs them.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}
