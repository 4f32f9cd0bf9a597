package app

import (
	"context"
	"sync"
	"time"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// ShutdownTimeout bounds how long Stop waits for workers to drain.
const ShutdownTimeout = 30 * time.Second

// State is the gateway lifecycle state. A generation moves New ->
// Installing -> Waiting -> Active; Update rolls Active back to
// Installing for the next generation.
type State int

const (
	StateNew State = iota
	StateInstalling
	StateWaiting
	StateActive
	StateStopping
	StateStopped
	StateFailed
)

var stateNames = [...]string{
	StateNew:        "New",
	StateInstalling: "Installing",
	StateWaiting:    "Waiting",
	StateActive:     "Active",
	StateStopping:   "Stopping",
	StateStopped:    "Stopped",
	StateFailed:     "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

// validNext lists the permitted transitions out of each state. Anything
// absent is rejected.
var validNext = map[State][]State{
	StateNew:        {StateInstalling},
	StateInstalling: {StateWaiting, StateStopping, StateFailed},
	StateWaiting:    {StateActive, StateStopping, StateFailed},
	StateActive:     {StateInstalling, StateStopping, StateFailed},
	StateStopping:   {StateStopped, StateFailed},
	StateStopped:    {StateInstalling},
	StateFailed:     {StateInstalling},
}

// Lifecycle is the gateway state machine. It serializes transitions,
// fans state changes out to an optional EventEmitter, and tracks worker
// goroutines for shutdown.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  log.Logger
	emitter EventEmitter
}

// EventEmitter receives lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle returns a Lifecycle in StateNew.
func NewLifecycle(logger log.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{state: StateNew, logger: logger, emitter: emitter}
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves the machine to next if the transition is permitted.
// Idle states (New, Stopped, Failed) reject with ErrNotRunning, running
// states with ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(next State, reason string) error {
	l.mu.Lock()
	prev := l.state
	if !transitionAllowed(prev, next) {
		l.mu.Unlock()
		switch prev {
		case StateNew, StateStopped, StateFailed:
			return domain.ErrNotRunning
		default:
			return domain.ErrAlreadyRunning
		}
	}
	l.state = next
	l.mu.Unlock()

	// The emitter may call back into the gateway; never hold the lock here.
	if l.emitter != nil {
		l.emitter.OnStateChange(prev, next, reason)
	}

	l.logger.Info("state transition",
		log.String("from", prev.String()),
		log.String("to", next.String()),
		log.String("reason", reason),
	)

	return nil
}

func transitionAllowed(from, to State) bool {
	for _, s := range validNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart reports whether the gateway may start from the current state.
func (l *Lifecycle) CanStart() bool {
	switch l.State() {
	case StateNew, StateStopped, StateFailed:
		return true
	}
	return false
}

// CanStop reports whether the gateway has anything running to stop.
func (l *Lifecycle) CanStop() bool {
	switch l.State() {
	case StateInstalling, StateWaiting, StateActive:
		return true
	}
	return false
}

// SetCancel stores the cancel function Stop uses to wind down workers.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel signals all workers to stop. Safe to call before SetCancel.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// AddWorker registers a worker goroutine with the shutdown barrier.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone marks a worker goroutine as finished.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout blocks until every worker has finished or the timeout
// fires, returning ErrShutdownTimeout in the latter case.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit", log.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
