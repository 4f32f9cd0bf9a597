package snapcleaner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/duewell/syncgate"
)

// fakeController implements syncgate.Controller for testing.
type fakeController struct {
	mu       sync.Mutex
	sweeps   int
	lastTTL  time.Duration
	lastMax  int
	removed  int
	sweepErr error
}

func (c *fakeController) Update(ctx context.Context, version string) error { return nil }

func (c *fakeController) Drain(ctx context.Context, tag string) (syncgate.DrainResult, error) {
	return syncgate.DrainResult{Tag: tag}, nil
}

func (c *fakeController) DrainAll(ctx context.Context) ([]syncgate.DrainResult, error) {
	return nil, nil
}

func (c *fakeController) SweepSnapshots(ctx context.Context, olderThan time.Duration, maxEntries int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sweeps++
	c.lastTTL = olderThan
	c.lastMax = maxEntries
	return c.removed, c.sweepErr
}

func (c *fakeController) InvalidateAll(ctx context.Context) error { return nil }

func (c *fakeController) QueueDepth(ctx context.Context) (int, error) { return 0, nil }

func (c *fakeController) sweepCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweeps
}

func TestPlugin_Name(t *testing.T) {
	p := New(DefaultConfig())
	if p.Name() != "snapcleaner" {
		t.Errorf("Name() = %q, want snapcleaner", p.Name())
	}
}

func TestPlugin_SweepsOnStartup(t *testing.T) {
	controller := &fakeController{}
	plugin := New(Config{
		CheckInterval: time.Hour,
		TTL:           6 * time.Hour,
		MaxEntries:    42,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, syncgate.PluginConfig{
		Controller: controller,
		Logger:     &noopLogger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Wait for the startup sweep
	time.Sleep(100 * time.Millisecond)

	if got := controller.sweepCount(); got < 1 {
		t.Errorf("sweeps = %d, want at least the startup sweep", got)
	}
	controller.mu.Lock()
	ttl, max := controller.lastTTL, controller.lastMax
	controller.mu.Unlock()
	if ttl != 6*time.Hour {
		t.Errorf("sweep TTL = %v, want 6h", ttl)
	}
	if max != 42 {
		t.Errorf("sweep max entries = %d, want 42", max)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestPlugin_SweepsPeriodically(t *testing.T) {
	controller := &fakeController{}
	plugin := New(Config{
		CheckInterval: 30 * time.Millisecond,
		TTL:           time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, syncgate.PluginConfig{
		Controller: controller,
		Logger:     &noopLogger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	// Startup sweep plus several ticks
	if got := controller.sweepCount(); got < 3 {
		t.Errorf("sweeps = %d, want at least 3", got)
	}
}

func TestPlugin_KeepsRunningAfterSweepError(t *testing.T) {
	controller := &fakeController{sweepErr: errors.New("store unavailable")}
	plugin := New(Config{
		CheckInterval: 30 * time.Millisecond,
		TTL:           time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := plugin.Initialize(ctx, syncgate.PluginConfig{
		Controller: controller,
		Logger:     &noopLogger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}

	if got := controller.sweepCount(); got < 2 {
		t.Errorf("sweeps = %d, want the loop to survive errors", got)
	}
}

func TestPlugin_DisabledWithoutController(t *testing.T) {
	plugin := New(DefaultConfig())

	ctx := context.Background()
	err := plugin.Initialize(ctx, syncgate.PluginConfig{
		Logger: &noopLogger{},
	})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := plugin.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestNew_ClampsConfig(t *testing.T) {
	p := New(Config{})
	if p.checkInterval != time.Hour {
		t.Errorf("checkInterval = %v, want 1h default", p.checkInterval)
	}
	if p.ttl != 24*time.Hour {
		t.Errorf("ttl = %v, want 24h default", p.ttl)
	}
	// Zero max entries means no cap and is preserved
	if p.maxEntries != 0 {
		t.Errorf("maxEntries = %d, want 0", p.maxEntries)
	}

	p = New(Config{MaxEntries: -5})
	if p.maxEntries != 0 {
		t.Errorf("negative maxEntries = %d, want clamped to 0", p.maxEntries)
	}
}

// noopLogger implements syncgate.Logger for testing
type noopLogger struct{}

func (noopLogger) Debug(msg string, fields ...syncgate.LogField) {}
func (noopLogger) Info(msg string, fields ...syncgate.LogField)  {}
func (noopLogger) Warn(msg string, fields ...syncgate.LogField)  {}
func (noopLogger) Error(msg string, fields ...syncgate.LogField) {}
