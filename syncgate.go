package syncgate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/duewell/syncgate/internal/adapters/fs"
	"github.com/duewell/syncgate/internal/adapters/httpfetch"
	"github.com/duewell/syncgate/internal/adapters/memcache"
	"github.com/duewell/syncgate/internal/adapters/notify"
	"github.com/duewell/syncgate/internal/adapters/rediscache"
	"github.com/duewell/syncgate/internal/adapters/sqlite"
	"github.com/duewell/syncgate/internal/app"
	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

// Syncgate is an offline gateway that can be embedded in other
// applications. Use New() to create an instance, Start() to bring it
// into service and Close() to release its stores.
type Syncgate struct {
	config Config
	opts   options
	logger log.Logger

	gateway  *app.Gateway
	probe    ports.ConnectivityProbe
	registry *prometheus.Registry

	// Plugin support
	plugins []Plugin

	// closers releases the stores, in order, on Close.
	closers []io.Closer

	mu       sync.Mutex
	cancel   context.CancelFunc
	dataSrv  *http.Server
	ctrlSrv  *http.Server
	dataAddr string
	ctrlAddr string

	closeOnce sync.Once
	closeErr  error
}

// New creates a new Syncgate instance with the given configuration.
// The instance is created in StateNew; call Start() to bring it into
// service. Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Syncgate, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Validate module version compatibility
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	// Apply options
	httpClient := &http.Client{Timeout: cfg.FetchTimeout}
	o := defaultOptions(httpClient)
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = log.NewNop()
	}

	// Create event emitter wrapper
	emitter := &eventEmitterWrapper{handler: o.eventHandler}

	// The prior run's generation is the fallback version, so a restart
	// resumes it instead of purging every persisted snapshot.
	states := fs.NewStateFile(cfg.StateDir)
	prior, err := states.Load(context.Background())
	if err != nil {
		logger.Warn("persisted state unreadable", log.Err(err))
	}
	version := domain.ResolveBuildVersion(cfg.BuildVersion, cfg.UpstreamURL, prior.ActiveVersion, time.Now())

	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}

	// Snapshot store: injected, Redis when configured, in-memory otherwise.
	snaps := o.snapshots
	if snaps == nil {
		if cfg.RedisURL != "" {
			redisOpts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return nil, fmt.Errorf("parse redis url: %w", err)
			}
			client := redis.NewClient(redisOpts)
			store, err := rediscache.New(rediscache.Opts{
				Client:       client,
				ClientCloser: client,
				Logger:       logger,
			})
			if err != nil {
				_ = client.Close()
				return nil, fmt.Errorf("redis snapshot store: %w", err)
			}
			snaps = store
		} else {
			snaps = memcache.New()
		}
	}
	closers = append(closers, snaps)

	// Mutation queue.
	queue := o.queue
	if queue == nil {
		store, err := sqlite.Open(cfg.QueuePath)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open mutation queue: %w", err)
		}
		queue = store
	}
	closers = append(closers, queue)

	fetcher, err := httpfetch.New(o.httpClient, cfg.UpstreamURL, cfg.InstanceID)
	if err != nil {
		closeAll()
		return nil, err
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}

	registry := prometheus.NewRegistry()
	metrics := app.NewMetrics(prometheus.WrapRegistererWithPrefix("syncgate_", registry))
	metrics.ObserveQueueDepth(func() float64 {
		n, err := queue.Len(context.Background())
		if err != nil {
			return 0
		}
		return float64(n)
	})

	gateway, err := app.NewGateway(app.GatewayConfig{
		Prefix:       cfg.Prefix,
		BuildVersion: version,
		ShellPath:    cfg.ShellPath,
		StaticAssets: cfg.StaticAssets,
		Snapshots:    snaps,
		Queue:        queue,
		Fetcher:      fetcher,
		States:       states,
		Notifier:     notifier,
		Logger:       logger,
		Metrics:      metrics,
		Emitter:      emitter,
		DrainEmitter: emitter,
	})
	if err != nil {
		closeAll()
		return nil, err
	}

	return &Syncgate{
		config:   cfg,
		opts:     o,
		logger:   logger,
		gateway:  gateway,
		probe:    fetcher,
		registry: registry,
		plugins:  o.plugins,
		closers:  closers,
	}, nil
}

// Start brings the gateway into service: it binds the data and control
// listeners, initializes plugins, installs the current generation and,
// unless HoldActivation is set, activates it. Returns an error if
// already running or if startup fails. The provided context is used for
// the lifetime of the gateway.
func (s *Syncgate) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lc := s.gateway.Lifecycle()
	if !lc.CanStart() {
		return domain.ErrAlreadyRunning
	}

	// Create cancellable context
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	lc.SetCancel(cancel)

	dataLn, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		cancel()
		return fmt.Errorf("listen %s: %w", s.config.Listen, err)
	}
	var ctrlLn net.Listener
	if s.config.ControlListen != "" {
		ctrlLn, err = net.Listen("tcp", s.config.ControlListen)
		if err != nil {
			_ = dataLn.Close()
			cancel()
			return fmt.Errorf("listen %s: %w", s.config.ControlListen, err)
		}
	}
	s.dataAddr = dataLn.Addr().String()
	if ctrlLn != nil {
		s.ctrlAddr = ctrlLn.Addr().String()
	}

	// Initialize plugins
	pluginCfg := PluginConfig{
		Prefix:       s.config.Prefix,
		UpstreamURL:  s.config.UpstreamURL,
		BuildVersion: s.gateway.Version(),
		DataDir:      s.config.DataDir,
		StateDir:     s.config.StateDir,
		ConfigPath:   s.config.ConfigPath,
		Controller:   s.gateway,
		Probe:        s.probe,
		Logger:       s.logger,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			_ = dataLn.Close()
			if ctrlLn != nil {
				_ = ctrlLn.Close()
			}
			s.dataAddr, s.ctrlAddr = "", ""
			return err
		}
		s.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	// Serve the data plane
	s.dataSrv = &http.Server{Handler: s.gateway, ReadHeaderTimeout: 10 * time.Second}
	s.serve(s.dataSrv, dataLn, "data")

	// Serve the control plane
	if ctrlLn != nil {
		mux := app.NewControlMux(s.gateway, s.registry, s.logger)
		s.ctrlSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		s.serve(s.ctrlSrv, ctrlLn, "control")
	}

	// Install the current generation; activation follows immediately
	// unless the instance is configured to wait for SKIP_WAITING.
	if err := s.gateway.Install(runCtx); err != nil {
		s.failStartup("install failed", err)
		return err
	}
	if !s.config.HoldActivation {
		if err := s.gateway.Activate(runCtx); err != nil {
			s.failStartup("activate failed", err)
			return err
		}
	}

	s.logger.Info("syncgate started",
		log.String("addr", s.dataAddr),
		log.String("control_addr", s.ctrlAddr),
		log.String("version", s.gateway.Version()),
		log.String("state", lc.State().String()),
	)
	return nil
}

// serve runs an HTTP server on a listener under lifecycle accounting.
func (s *Syncgate) serve(srv *http.Server, ln net.Listener, name string) {
	lc := s.gateway.Lifecycle()
	lc.AddWorker()
	go func() {
		defer lc.WorkerDone()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("listener failed",
				log.String("listener", name),
				log.Err(err))
		}
	}()
}

// failStartup tears down a partially started instance. Callers hold mu.
func (s *Syncgate) failStartup(reason string, cause error) {
	s.logger.Error(reason, log.Err(cause))
	if s.cancel != nil {
		s.cancel()
	}
	if s.dataSrv != nil {
		_ = s.dataSrv.Close()
		s.dataSrv = nil
	}
	if s.ctrlSrv != nil {
		_ = s.ctrlSrv.Close()
		s.ctrlSrv = nil
	}
	_ = s.gateway.Lifecycle().TransitionTo(app.StateFailed, reason)
}

// Stop gracefully shuts down the gateway. In-flight requests are given
// time to finish and plugins are shut down in reverse order. Waits up
// to 30 seconds before forcing shutdown. Returns nil on graceful
// shutdown, ErrShutdownTimeout if forced. The stores stay open so the
// instance can be restarted; call Close to release them.
func (s *Syncgate) Stop() error {
	s.mu.Lock()

	lc := s.gateway.Lifecycle()
	if !lc.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}

	// Transition to stopping
	if err := lc.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}

	// Cancel the context
	if s.cancel != nil {
		s.cancel()
	}

	dataSrv, ctrlSrv := s.dataSrv, s.ctrlSrv
	s.dataSrv, s.ctrlSrv = nil, nil
	s.mu.Unlock()

	shutdownCtx, release := context.WithTimeout(context.Background(), app.ShutdownTimeout)
	defer release()
	if dataSrv != nil {
		if err := dataSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("data listener shutdown", log.Err(err))
		}
	}
	if ctrlSrv != nil {
		if err := ctrlSrv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("control listener shutdown", log.Err(err))
		}
	}

	// Wait for workers with timeout
	err := lc.WaitWithTimeout(app.ShutdownTimeout)

	// Shutdown plugins (in reverse order)
	pluginCtx := context.Background()
	for i := len(s.plugins) - 1; i >= 0; i-- {
		p := s.plugins[i]
		if shutdownErr := p.Shutdown(pluginCtx); shutdownErr != nil {
			s.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(shutdownErr))
		} else {
			s.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = lc.TransitionTo(app.StateFailed, "shutdown timeout")
	} else {
		_ = lc.TransitionTo(app.StateStopped, "graceful shutdown")
	}

	return err
}

// Close releases the snapshot store and mutation queue. Call it after
// Stop; a closed instance cannot be restarted. Close is idempotent.
func (s *Syncgate) Close() error {
	s.closeOnce.Do(func() {
		for _, c := range s.closers {
			if err := c.Close(); err != nil && s.closeErr == nil {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (s *Syncgate) Status() State {
	return convertState(s.gateway.Lifecycle().State())
}

// Version returns the build version of the current generation.
func (s *Syncgate) Version() string {
	return s.gateway.Version()
}

// Addr returns the bound data-plane address, or "" before Start.
func (s *Syncgate) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dataAddr
}

// ControlAddr returns the bound control-plane address, or "" when the
// control listener is disabled or the instance has not started.
func (s *Syncgate) ControlAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctrlAddr
}

// Sync drains every queued sync tag against the upstream.
func (s *Syncgate) Sync(ctx context.Context) ([]DrainResult, error) {
	return s.gateway.DrainAll(ctx)
}

// Update rolls the gateway over to a new build version: the new
// generation installs and activates, purging the previous one.
func (s *Syncgate) Update(ctx context.Context, version string) error {
	return s.gateway.Update(ctx, version)
}

// eventEmitterWrapper adapts EventHandler to the internal emitter
// interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnDrain(tag string, replayed, failed int) {
	if e.handler == nil {
		return
	}
	e.handler.OnDrain(DrainEvent{
		Tag:      tag,
		Replayed: replayed,
		Failed:   failed,
	})
}
