package cliconfig

import "os"

// ApplyEnvConfig applies SYNCGATE_* environment variables to the Config.
// It respects flags that have been explicitly set (changed map), so the
// precedence is defaults < file < environment < flags.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("prefix", os.Getenv("SYNCGATE_PREFIX"), &cfg.Prefix)
	s.setString("build-version", os.Getenv("SYNCGATE_BUILD_VERSION"), &cfg.BuildVersion)
	s.setString("upstream-url", os.Getenv("SYNCGATE_UPSTREAM_URL"), &cfg.UpstreamURL)
	s.setString("listen", os.Getenv("SYNCGATE_LISTEN"), &cfg.Listen)
	s.setString("control-listen", os.Getenv("SYNCGATE_CONTROL_LISTEN"), &cfg.ControlListen)
	s.setString("data-dir", os.Getenv("SYNCGATE_DATA_DIR"), &cfg.DataDir)
	s.setString("queue-path", os.Getenv("SYNCGATE_QUEUE_PATH"), &cfg.QueuePath)
	s.setString("state-dir", os.Getenv("SYNCGATE_STATE_DIR"), &cfg.StateDir)
	s.setString("redis-url", os.Getenv("SYNCGATE_REDIS_URL"), &cfg.RedisURL)
	s.setString("shell-path", os.Getenv("SYNCGATE_SHELL_PATH"), &cfg.ShellPath)
	s.setStringsFromCSV("static-assets", os.Getenv("SYNCGATE_STATIC_ASSETS"), &cfg.StaticAssets)

	if err := s.setDuration("fetch-timeout", os.Getenv("SYNCGATE_FETCH_TIMEOUT"), &cfg.FetchTimeout); err != nil {
		return err
	}
	if err := s.setDuration("sync-interval", os.Getenv("SYNCGATE_SYNC_INTERVAL"), &cfg.SyncInterval); err != nil {
		return err
	}
	if err := s.setDuration("snapshot-ttl", os.Getenv("SYNCGATE_SNAPSHOT_TTL"), &cfg.SnapshotTTL); err != nil {
		return err
	}
	if err := s.setDuration("clean-interval", os.Getenv("SYNCGATE_CLEAN_INTERVAL"), &cfg.CleanInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("snapshot-max-entries", os.Getenv("SYNCGATE_SNAPSHOT_MAX_ENTRIES"), &cfg.SnapshotMaxEntries); err != nil {
		return err
	}

	s.setBoolFromString("immediate-activate", os.Getenv("SYNCGATE_IMMEDIATE_ACTIVATE"), &cfg.ImmediateActivate)
	s.setBoolFromString("verbose", os.Getenv("SYNCGATE_VERBOSE"), &cfg.Verbose)

	return nil
}
