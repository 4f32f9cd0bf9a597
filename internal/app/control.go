package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// HandleMessage applies a control message. Skip-waiting activates a
// waiting generation and is otherwise ignored; the clear message drops
// every owned namespace; queue messages capture an action for replay.
// Anything else is ErrUnknownMessage.
func (g *Gateway) HandleMessage(ctx context.Context, msg domain.ControlMessage) error {
	switch {
	case msg.Type == domain.MsgSkipWaiting:
		if g.lifecycle.State() != StateWaiting {
			g.logger.Debug("skip waiting ignored",
				log.String("state", g.lifecycle.State().String()),
			)
			return nil
		}
		return g.Activate(ctx)

	case msg.Type == domain.ClearCachesMessage(g.prefix):
		return g.InvalidateAll(ctx)

	default:
		if kind, ok := domain.QueueKind(msg.Type); ok {
			_, err := g.EnqueueAction(ctx, kind, msg.Payload)
			return err
		}
		return fmt.Errorf("%w: %q", domain.ErrUnknownMessage, msg.Type)
	}
}

// EnqueueAction captures a named action for later replay. Actions are
// not failed HTTP requests, so they replay as POSTs to the conventional
// actions endpoint of their kind with the payload as body.
func (g *Gateway) EnqueueAction(ctx context.Context, kind string, payload json.RawMessage) (domain.Mutation, error) {
	if kind == "" {
		return domain.Mutation{}, fmt.Errorf("%w: empty action kind", domain.ErrInvalidConfig)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	m := domain.Mutation{
		Kind:       kind,
		URL:        apiPrefix + "actions/" + kind,
		Method:     http.MethodPost,
		Header:     header,
		Body:       []byte(payload),
		EnqueuedAt: time.Now(),
	}
	id, err := g.queue.Put(ctx, m)
	if err != nil {
		return domain.Mutation{}, fmt.Errorf("enqueue action: %w", err)
	}
	m.ID = id
	g.metrics.QueueEnqueued.Inc()
	g.logger.Info("action queued",
		log.Int64("id", id),
		log.String("kind", kind),
		log.String("tag", domain.SyncTag(g.prefix, kind)),
	)
	return m, nil
}
