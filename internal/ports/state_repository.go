package ports

import (
	"context"

	"github.com/duewell/syncgate/internal/domain"
)

// StateRepository persists gateway state across restarts.
type StateRepository interface {
	// Load returns the last saved state. A missing state is not an
	// error; it loads as the zero value.
	Load(ctx context.Context) (domain.GatewayState, error)

	// Save writes the state atomically so a crash mid-write cannot
	// corrupt it.
	Save(ctx context.Context, state domain.GatewayState) error
}
