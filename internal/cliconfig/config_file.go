package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig is the TOML shape of Config. Durations are strings here
// so files can write "90s" or "5m".
type FileConfig struct {
	Prefix             string   `toml:"prefix"`
	BuildVersion       string   `toml:"build_version"`
	UpstreamURL        string   `toml:"upstream_url"`
	Listen             string   `toml:"listen"`
	ControlListen      string   `toml:"control_listen"`
	DataDir            string   `toml:"data_dir"`
	QueuePath          string   `toml:"queue_path"`
	StateDir           string   `toml:"state_dir"`
	RedisURL           string   `toml:"redis_url"`
	ShellPath          string   `toml:"shell_path"`
	StaticAssets       []string `toml:"static_assets"`
	FetchTimeout       string   `toml:"fetch_timeout"`
	SyncInterval       string   `toml:"sync_interval"`
	SnapshotTTL        string   `toml:"snapshot_ttl"`
	SnapshotMaxEntries int      `toml:"snapshot_max_entries"`
	CleanInterval      string   `toml:"clean_interval"`
	ImmediateActivate  *bool    `toml:"immediate_activate"`
	Verbose            *bool    `toml:"verbose"`
}

// LoadFileConfig parses the TOML file at path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath is ~/.syncgate/config.toml, or empty when the home
// directory cannot be resolved.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".syncgate", "config.toml")
	}
	return ""
}

// ApplyFileConfig copies file values into cfg, skipping any key the
// user already set on the command line.
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("prefix", fc.Prefix, &cfg.Prefix)
	s.setString("build-version", fc.BuildVersion, &cfg.BuildVersion)
	s.setString("upstream-url", fc.UpstreamURL, &cfg.UpstreamURL)
	s.setString("listen", fc.Listen, &cfg.Listen)
	s.setString("control-listen", fc.ControlListen, &cfg.ControlListen)
	s.setString("data-dir", fc.DataDir, &cfg.DataDir)
	s.setString("queue-path", fc.QueuePath, &cfg.QueuePath)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("redis-url", fc.RedisURL, &cfg.RedisURL)
	s.setString("shell-path", fc.ShellPath, &cfg.ShellPath)
	s.setStrings("static-assets", fc.StaticAssets, &cfg.StaticAssets)

	if err := s.setDuration("fetch-timeout", fc.FetchTimeout, &cfg.FetchTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sync-interval", fc.SyncInterval, &cfg.SyncInterval); err != nil {
		return err
	}
	if err := s.setDuration("snapshot-ttl", fc.SnapshotTTL, &cfg.SnapshotTTL); err != nil {
		return err
	}
	if err := s.setDuration("clean-interval", fc.CleanInterval, &cfg.CleanInterval); err != nil {
		return err
	}

	s.setInt("snapshot-max-entries", fc.SnapshotMaxEntries, &cfg.SnapshotMaxEntries)

	s.setBool("immediate-activate", fc.ImmediateActivate, &cfg.ImmediateActivate)
	s.setBool("verbose", fc.Verbose, &cfg.Verbose)

	return nil
}

// FileExists reports whether a file is present at p.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
