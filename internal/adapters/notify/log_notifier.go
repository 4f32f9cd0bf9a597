// Package notify provides the default notification sink.
package notify

import (
	"context"
	"sync"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

// recentCap bounds the in-memory notification history.
const recentCap = 16

// LogNotifier implements ports.Notifier by logging each notification and
// keeping a short history for status reporting.
type LogNotifier struct {
	logger log.Logger

	mu     sync.Mutex
	recent []domain.Notification
}

var _ ports.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the notification and records it in the history.
func (n *LogNotifier) Notify(ctx context.Context, notif domain.Notification) error {
	n.logger.Info("notification",
		log.String("title", notif.Title),
		log.String("tag", notif.Tag),
		log.Bool("urgent", notif.Urgent),
		log.String("target", notif.TargetURL()),
	)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.recent = append(n.recent, notif)
	if len(n.recent) > recentCap {
		n.recent = n.recent[len(n.recent)-recentCap:]
	}
	return nil
}

// Recent returns a copy of the notification history, newest last.
func (n *LogNotifier) Recent() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.Notification, len(n.recent))
	copy(out, n.recent)
	return out
}
