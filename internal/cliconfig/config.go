package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/duewell/syncgate/internal/domain"
)

const (
	// DefaultListen is the default data-plane listen address.
	DefaultListen = ":8787"

	// DefaultControlListen is the default control-plane listen address.
	// Loopback only: the control mux exposes pprof and cache clears.
	DefaultControlListen = "127.0.0.1:8788"

	// DefaultPrefix namespaces caches, sync tags and control messages.
	DefaultPrefix = domain.DefaultPrefix

	// DefaultQueueFileName is the mutation queue database under the data dir.
	DefaultQueueFileName = "queue.db"
)

// Config is everything the syncgate CLI can configure, merged from
// flags, config file, and environment in that order of precedence.
type Config struct {
	Prefix       string
	BuildVersion string
	UpstreamURL  string

	Listen        string
	ControlListen string

	DataDir    string
	QueuePath  string
	StateDir   string
	RedisURL   string
	InstanceID string

	ShellPath    string
	StaticAssets []string

	FetchTimeout       time.Duration
	SyncInterval       time.Duration
	SnapshotTTL        time.Duration
	SnapshotMaxEntries int
	CleanInterval      time.Duration

	ImmediateActivate bool
	Verbose           bool

	// ConfigPath records which file configured this run, for the
	// release watcher.
	ConfigPath string
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:             DefaultPrefix,
		Listen:             DefaultListen,
		ControlListen:      DefaultControlListen,
		ShellPath:          "/index.html",
		FetchTimeout:       15 * time.Second,
		SyncInterval:       30 * time.Second,
		SnapshotTTL:        24 * time.Hour,
		SnapshotMaxEntries: 200,
		CleanInterval:      time.Hour,
		ImmediateActivate:  true,
		RedisURL:           os.Getenv("SYNCGATE_REDIS_URL"),
	}
}

// Validate rejects broken configuration and fills in derived paths
// (queue under the data dir, state dir defaulting to the data dir).
func (c *Config) Validate() error {
	if c.Prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if strings.ContainsAny(c.Prefix, " \t") {
		return fmt.Errorf("prefix must not contain whitespace")
	}

	if c.UpstreamURL == "" {
		return fmt.Errorf("upstream-url is required")
	}
	// Ensure no trailing slash
	if c.UpstreamURL[len(c.UpstreamURL)-1] == '/' {
		c.UpstreamURL = c.UpstreamURL[:len(c.UpstreamURL)-1]
	}

	if c.DataDir == "" {
		return fmt.Errorf("data-dir is required")
	}
	if c.QueuePath == "" {
		c.QueuePath = filepath.Join(c.DataDir, DefaultQueueFileName)
	}
	if c.StateDir == "" {
		c.StateDir = c.DataDir
	}

	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ControlListen == "" {
		c.ControlListen = DefaultControlListen
	}
	if c.ShellPath == "" {
		c.ShellPath = "/index.html"
	}
	if !strings.HasPrefix(c.ShellPath, "/") {
		return fmt.Errorf("shell-path must be absolute")
	}

	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.SnapshotMaxEntries < 0 {
		return fmt.Errorf("snapshot max entries must not be negative")
	}

	return nil
}

// configSetter writes values into Config slots, except where the
// matching flag was given on the command line.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool takes a pointer so the file can distinguish "false" from
// "absent".
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString covers environment variables, which arrive as text.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString accepts "true" and "1"; anything else reads false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}

// setStringsFromCSV splits a comma separated environment value.
func (s *configSetter) setStringsFromCSV(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}
