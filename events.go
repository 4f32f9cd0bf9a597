package syncgate

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// DrainEvent is emitted after each completed drain run of a sync tag.
type DrainEvent struct {
	// Tag is the sync tag that was drained.
	Tag string

	// Replayed counts mutations the upstream acknowledged.
	Replayed int

	// Failed counts mutations that stay queued for the next drain.
	Failed int
}

// EventHandler receives notifications about gateway operations.
// Methods are called synchronously; implementations should return
// quickly. Embed BaseEventHandler for no-op defaults.
type EventHandler interface {
	// OnStateChange is called on every lifecycle transition.
	OnStateChange(event StateChangeEvent)

	// OnDrain is called after each completed drain run.
	OnDrain(event DrainEvent)
}

// BaseEventHandler provides no-op implementations of EventHandler.
// Embed it to implement only the events you care about.
type BaseEventHandler struct{}

// OnStateChange is a no-op.
func (BaseEventHandler) OnStateChange(event StateChangeEvent) {}

// OnDrain is a no-op.
func (BaseEventHandler) OnDrain(event DrainEvent) {}

var _ EventHandler = BaseEventHandler{}
