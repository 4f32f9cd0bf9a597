package syncgate

import "github.com/duewell/syncgate/internal/app"

// State represents the lifecycle state of a Syncgate instance.
type State int

const (
	// StateNew is the state of a freshly created instance.
	StateNew State = iota

	// StateInstalling means the shell and static assets are being
	// precached into a fresh namespace generation.
	StateInstalling

	// StateWaiting means the generation is installed but not yet
	// serving from its caches.
	StateWaiting

	// StateActive means the gateway is fully in service.
	StateActive

	// StateStopping means a graceful shutdown is in progress.
	StateStopping

	// StateStopped means the instance shut down cleanly.
	StateStopped

	// StateFailed means the instance hit an unrecoverable error.
	StateFailed
)

// String names the state for logs and status payloads.
func (s State) String() string {
	switch s {
	case StateNew:
		return "New"
	case StateInstalling:
		return "Installing"
	case StateWaiting:
		return "Waiting"
	case StateActive:
		return "Active"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// CanStart reports whether Start can be called from this state.
func (s State) CanStart() bool {
	return s == StateNew || s == StateStopped || s == StateFailed
}

// CanStop reports whether Stop can be called from this state.
func (s State) CanStop() bool {
	return s == StateInstalling || s == StateWaiting || s == StateActive
}

// IsServing reports whether the gateway is serving from its caches.
func (s State) IsServing() bool {
	return s == StateActive
}

// convertState maps the internal lifecycle state to the public one.
func convertState(s app.State) State {
	switch s {
	case app.StateNew:
		return StateNew
	case app.StateInstalling:
		return StateInstalling
	case app.StateWaiting:
		return StateWaiting
	case app.StateActive:
		return StateActive
	case app.StateStopping:
		return StateStopping
	case app.StateStopped:
		return StateStopped
	case app.StateFailed:
		return StateFailed
	default:
		return StateNew
	}
}
