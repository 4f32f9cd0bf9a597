package syncgate

import (
	"context"
	"time"

	"github.com/duewell/syncgate/internal/app"
	"github.com/duewell/syncgate/internal/ports"
)

// DrainResult summarizes one drain run of a sync tag.
type DrainResult = app.DrainResult

// ConnectivityProbe reports whether the upstream origin is reachable.
type ConnectivityProbe = ports.ConnectivityProbe

// Controller is the gateway surface plugins operate through.
type Controller interface {
	// Update rolls the gateway over to a new build version.
	Update(ctx context.Context, version string) error

	// Drain replays every queued mutation behind a sync tag.
	Drain(ctx context.Context, tag string) (DrainResult, error)

	// DrainAll drains every kind currently queued.
	DrainAll(ctx context.Context) ([]DrainResult, error)

	// SweepSnapshots evicts aged and over-capacity snapshots.
	SweepSnapshots(ctx context.Context, olderThan time.Duration, maxEntries int) (int, error)

	// InvalidateAll drops every snapshot namespace under the prefix.
	InvalidateAll(ctx context.Context) error

	// QueueDepth reports the number of queued mutations.
	QueueDepth(ctx context.Context) (int, error)
}

// PluginConfig is passed to plugins during initialization.
type PluginConfig struct {
	// Prefix is the configured cache prefix.
	Prefix string

	// UpstreamURL is the origin the gateway fronts.
	UpstreamURL string

	// BuildVersion is the build version active at start.
	BuildVersion string

	// DataDir and StateDir are the gateway's working directories.
	DataDir  string
	StateDir string

	// ConfigPath is the TOML file this instance was configured from.
	// Empty when the instance was configured programmatically.
	ConfigPath string

	// Controller drives gateway operations.
	Controller Controller

	// Probe reports upstream reachability.
	Probe ConnectivityProbe

	// Logger for plugin output.
	Logger Logger
}

// Plugin extends Syncgate with optional functionality. Plugins are
// initialized in registration order when Start is called and shut down
// in reverse order on Stop.
type Plugin interface {
	// Name returns a unique identifier for the plugin.
	Name() string

	// Initialize is called during Start. The context is cancelled on
	// shutdown; long-running work belongs in goroutines that watch it.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown is called during Stop, after workers have drained.
	Shutdown(ctx context.Context) error
}

// BasePlugin provides no-op implementations of the Plugin interface.
// Embed it to implement only the methods you need.
type BasePlugin struct {
	name string
}

// NewBasePlugin creates a BasePlugin with the given name.
func NewBasePlugin(name string) BasePlugin {
	return BasePlugin{name: name}
}

// Name returns the plugin identifier.
func (p BasePlugin) Name() string {
	if p.name == "" {
		return "plugin"
	}
	return p.name
}

// Initialize is a no-op.
func (BasePlugin) Initialize(ctx context.Context, cfg PluginConfig) error { return nil }

// Shutdown is a no-op.
func (BasePlugin) Shutdown(ctx context.Context) error { return nil }

var _ Plugin = BasePlugin{}
var _ Controller = (*app.Gateway)(nil)
