package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/duewell/syncgate"
	"github.com/duewell/syncgate/internal/cliconfig"
	"github.com/duewell/syncgate/pkg/log"
	"github.com/duewell/syncgate/plugins/releasewatcher"
	"github.com/duewell/syncgate/plugins/snapcleaner"
	"github.com/duewell/syncgate/plugins/syncscheduler"
)

const helpBanner = `
███████╗██╗   ██╗███╗   ██╗ ██████╗ ██████╗  █████╗ ████████╗███████╗
██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝██╔════╝ ██╔══██╗╚══██╔══╝██╔════╝
███████╗ ╚████╔╝ ██╔██╗ ██║██║     ██║  ███╗███████║   ██║   █████╗
╚════██║  ╚██╔╝  ██║╚██╗██║██║     ██║   ██║██╔══██║   ██║   ██╔══╝
███████║   ██║   ██║ ╚████║╚██████╗╚██████╔╝██║  ██║   ██║   ███████╗
╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝ ╚═════╝ ╚═╝  ╚═╝   ╚═╝   ╚══════╝
`

const helpDescription = `
Offline-first gateway for the duewell invoicing app. Keeps the shell,
reads and writes available while the upstream is unreachable.

The gateway serves cached snapshots when the network drops and falls
back to the app shell on page loads. Failed writes land in a durable
queue and replay once connectivity returns. Releases install into
versioned cache namespaces; stale generations are purged on activation.

Configuration merges flags over SYNCGATE_* environment variables over
the config file. Manual: https://docs.duewell.app/syncgate
`

var longHelp = strings.TrimSpace(helpBanner) + "\n\n" + strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  syncgate --upstream-url https://app.duewell.app --data-dir /var/lib/syncgate
  syncgate --config /etc/syncgate/config.toml --verbose
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var asService bool

	zlog := cliconfig.Logger(false)

	root := &cobra.Command{
		Use:     "syncgate",
		Short:   "Offline-first gateway for the duewell invoicing app",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asService {
				svc, err := service.New(&gatewayService{
					run: func() error { return runGateway(cmd, cfg, cfgPath) },
				}, serviceConfig())
				if err != nil {
					return fmt.Errorf("init service: %w", err)
				}
				return svc.Run()
			}
			return runGateway(cmd, cfg, cfgPath)
		},
	}

	// Flags
	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.syncgate/config.toml)")
	root.Flags().StringVar(&cfg.UpstreamURL, "upstream-url", cfg.UpstreamURL, "base URL of the upstream app server")
	root.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "directory for the mutation queue and instance state")

	root.Flags().StringVar(&cfg.Prefix, "prefix", cfg.Prefix, "namespace prefix for caches, sync tags and control messages")
	root.Flags().StringVar(&cfg.BuildVersion, "build-version", cfg.BuildVersion, "app release version to install (defaults to a derived build id)")

	root.Flags().StringVar(&cfg.Listen, "listen", cfg.Listen, "data-plane listen address")
	root.Flags().StringVar(&cfg.ControlListen, "control-listen", cfg.ControlListen, "control-plane listen address (keep on loopback)")

	root.Flags().StringVar(&cfg.QueuePath, "queue-path", cfg.QueuePath, "mutation queue database path (defaults to data-dir/queue.db)")
	if err := root.Flags().MarkHidden("queue-path"); err != nil {
		zlog.Info().Err(err).Msg("failed to hide queue-path flag")
	}
	root.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "state directory for gateway.json (defaults to data-dir)")
	if err := root.Flags().MarkHidden("state-dir"); err != nil {
		zlog.Info().Err(err).Msg("failed to hide state-dir flag")
	}
	root.Flags().StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the snapshot store (empty selects in-memory)")

	root.Flags().StringVar(&cfg.ShellPath, "shell-path", cfg.ShellPath, "app shell path served as the navigation fallback")
	root.Flags().StringSliceVar(&cfg.StaticAssets, "static-assets", cfg.StaticAssets, "asset paths precached at install")

	root.Flags().DurationVar(&cfg.FetchTimeout, "fetch-timeout", cfg.FetchTimeout, "upstream fetch timeout")
	root.Flags().DurationVar(&cfg.SyncInterval, "sync-interval", cfg.SyncInterval, "background queue drain interval")
	root.Flags().DurationVar(&cfg.SnapshotTTL, "snapshot-ttl", cfg.SnapshotTTL, "snapshot age before eviction")
	root.Flags().IntVar(&cfg.SnapshotMaxEntries, "snapshot-max-entries", cfg.SnapshotMaxEntries, "maximum snapshots per namespace (0 disables the cap)")
	root.Flags().DurationVar(&cfg.CleanInterval, "clean-interval", cfg.CleanInterval, "snapshot sweep interval")

	root.Flags().BoolVar(&cfg.ImmediateActivate, "immediate-activate", cfg.ImmediateActivate, "activate right after install instead of waiting for SKIP_WAITING")
	root.Flags().BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "debug logging")

	root.Flags().BoolVar(&asService, "as-service", false, "run under a service manager")
	if err := root.Flags().MarkHidden("as-service"); err != nil {
		zlog.Info().Err(err).Msg("failed to hide as-service flag")
	}

	addServiceCommands(root)

	if err := root.Execute(); err != nil {
		zlog.Error().Err(err).Msg("syncgate")
		os.Exit(1)
	}
}

func runGateway(cmd *cobra.Command, cfg cliconfig.Config, cfgPath string) error {
	// Load config file first (default $HOME/.syncgate/config.toml), then
	// apply env and flag overrides.
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	// Build set of changed flags
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
			return err
		}
		cfg.ConfigPath = cfgFile
	}

	// Apply environment variables (SYNCGATE_*)
	// These override file config but are overridden by flags (checked via changed map)
	if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
		return err
	}

	// Load or mint the per-install instance identity
	if err := cliconfig.LoadInstanceInfo(&cfg); err != nil {
		return err
	}

	// Validate and set derived defaults
	if err := cfg.Validate(); err != nil {
		return err
	}

	zlog := cliconfig.Logger(cfg.Verbose)

	// Log configuration (masking Redis credentials)
	logCfg := cfg
	if logCfg.RedisURL != "" {
		logCfg.RedisURL = "*****"
	}
	zlog.Info().Interface("config", logCfg).Msg("configuration")

	// Convert cliconfig.Config to syncgate.Config
	libCfg := syncgate.Config{
		Prefix:         cfg.Prefix,
		BuildVersion:   cfg.BuildVersion,
		UpstreamURL:    cfg.UpstreamURL,
		Listen:         cfg.Listen,
		ControlListen:  cfg.ControlListen,
		DataDir:        cfg.DataDir,
		QueuePath:      cfg.QueuePath,
		StateDir:       cfg.StateDir,
		RedisURL:       cfg.RedisURL,
		InstanceID:     cfg.InstanceID,
		ShellPath:      cfg.ShellPath,
		StaticAssets:   cfg.StaticAssets,
		ConfigPath:     cfg.ConfigPath,
		FetchTimeout:   cfg.FetchTimeout,
		HoldActivation: !cfg.ImmediateActivate,
	}

	// Create the gateway with the standard plugin set
	gw, err := syncgate.New(libCfg,
		syncgate.WithLogger(log.NewZerolog(zlog)),
		// Background queue drains on a schedule and on reconnect
		syncscheduler.WithSyncScheduler(syncscheduler.Config{
			Interval: cfg.SyncInterval,
		}),
		// Watch the config file for build_version changes
		releasewatcher.WithReleaseWatcher(releasewatcher.DefaultConfig()),
		// Periodic snapshot eviction
		snapcleaner.WithSnapCleaner(snapcleaner.Config{
			TTL:           cfg.SnapshotTTL,
			MaxEntries:    cfg.SnapshotMaxEntries,
			CheckInterval: cfg.CleanInterval,
		}),
	)
	if err != nil {
		return fmt.Errorf("create syncgate: %w", err)
	}
	defer gw.Close()

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Start syncgate
	if err := gw.Start(ctx); err != nil {
		return fmt.Errorf("start syncgate: %w", err)
	}

	zlog.Info().
		Str("listen", gw.Addr()).
		Str("control", gw.ControlAddr()).
		Str("version", gw.Version()).
		Msg("syncgate serving")

	// Create done channel to detect completion
	doneCh := make(chan struct{})
	go func() {
		// Poll for a terminal state (external stop or failure)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				status := gw.Status()
				if status == syncgate.StateStopped || status == syncgate.StateFailed {
					close(doneCh)
					return
				}
			}
		}
	}()

	// Wait for signal or completion
	select {
	case <-sigCh:
		zlog.Info().Msg("received signal, stopping...")
	case <-doneCh:
		if gw.Status() == syncgate.StateFailed {
			zlog.Error().Msg("syncgate failed")
		}
	}

	// Graceful shutdown
	if gw.Status().CanStop() {
		if err := gw.Stop(); err != nil {
			return fmt.Errorf("stop syncgate: %w", err)
		}
	}
	return nil
}
