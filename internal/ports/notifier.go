package ports

import (
	"context"

	"github.com/duewell/syncgate/internal/domain"
)

// Notifier delivers push notifications to the host shell.
type Notifier interface {
	// Notify delivers one notification. Implementations decide how to
	// surface it (log, desktop notification, callback).
	Notify(ctx context.Context, n domain.Notification) error
}
