package syncgate

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/duewell/syncgate/internal/domain"
)

// Config holds the configuration for a Syncgate instance.
// UpstreamURL and DataDir are required; everything else defaults via
// SetDefaults.
type Config struct {
	// Prefix namespaces everything the gateway owns: snapshot
	// namespaces, sync tags and control message types.
	// Default: "duewell".
	Prefix string

	// BuildVersion pins the snapshot generation. When empty it is
	// resolved from a "v" or "build" query parameter on UpstreamURL,
	// then from the generation persisted by the previous run, falling
	// back to a timestamp.
	BuildVersion string

	// UpstreamURL is the origin the gateway fronts. Required.
	UpstreamURL string

	// Listen is the data-plane address application traffic is served
	// on. Default: ":8787". Use "127.0.0.1:0" in tests and read the
	// bound address from Addr.
	Listen string

	// ControlListen is the management address (control messages,
	// status, metrics, pprof). Empty disables the control listener.
	ControlListen string

	// DataDir holds the mutation queue and persisted state. Required.
	DataDir string

	// QueuePath is the mutation queue database.
	// Default: DataDir/queue.db.
	QueuePath string

	// StateDir holds the persisted gateway state. Default: DataDir.
	StateDir string

	// RedisURL selects a Redis-backed snapshot store when set. The
	// default store is in-memory.
	RedisURL string

	// InstanceID identifies this gateway to the upstream. Optional.
	InstanceID string

	// ShellPath is the application shell precached on install and
	// served to offline navigations. Default: "/index.html".
	ShellPath string

	// StaticAssets are precached into the static namespace on install.
	StaticAssets []string

	// ConfigPath is the TOML file this instance was configured from.
	// Optional; the release watcher plugin is inert without it.
	ConfigPath string

	// FetchTimeout bounds each upstream request. Default: 15s.
	FetchTimeout time.Duration

	// HoldActivation keeps the gateway in Waiting after install until a
	// SKIP_WAITING control message arrives. The default is to activate
	// immediately on start.
	HoldActivation bool
}

// SetDefaults fills in default values for unset fields.
func (c *Config) SetDefaults() {
	if c.Prefix == "" {
		c.Prefix = domain.DefaultPrefix
	}
	if c.Listen == "" {
		c.Listen = ":8787"
	}
	if c.QueuePath == "" && c.DataDir != "" {
		c.QueuePath = filepath.Join(c.DataDir, "queue.db")
	}
	if c.StateDir == "" {
		c.StateDir = c.DataDir
	}
	if c.ShellPath == "" {
		c.ShellPath = "/index.html"
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	c.UpstreamURL = strings.TrimRight(c.UpstreamURL, "/")
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.Prefix == "" || strings.ContainsAny(c.Prefix, " \t") {
		return fmt.Errorf("%w: prefix must be a non-empty token", domain.ErrInvalidConfig)
	}
	if c.UpstreamURL == "" {
		return fmt.Errorf("%w: upstream URL is required", domain.ErrInvalidConfig)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data dir is required", domain.ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.ShellPath, "/") {
		return fmt.Errorf("%w: shell path must be absolute", domain.ErrInvalidConfig)
	}
	return nil
}
