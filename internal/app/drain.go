package app

import (
	"context"
	"fmt"
	"io"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// DrainResult summarizes one drain run.
type DrainResult struct {
	Tag      string `json:"tag"`
	Replayed int    `json:"replayed"`
	Failed   int    `json:"failed"`
}

// Drain replays every queued mutation behind a sync tag, in enqueue
// order. Records are independent: a replay acknowledged with a 2xx is
// deleted, anything else stays queued for the next drain, and one bad
// record never blocks the rest. Concurrent drains of the same tag share
// a single run.
func (g *Gateway) Drain(ctx context.Context, tag string) (DrainResult, error) {
	kind, ok := domain.KindFromTag(g.prefix, tag)
	if !ok {
		return DrainResult{}, fmt.Errorf("%w: %q", domain.ErrUnknownTag, tag)
	}

	// The run is shared by every joined caller, so it must not inherit
	// the first caller's cancellation.
	v, err, shared := g.drains.Do(tag, func() (interface{}, error) {
		return g.drainKind(context.WithoutCancel(ctx), kind, tag)
	})
	if err != nil {
		return DrainResult{}, err
	}
	if shared {
		g.logger.Debug("drain joined in-flight run", log.String("tag", tag))
	}
	return v.(DrainResult), nil
}

// DrainAll drains every kind currently queued.
func (g *Gateway) DrainAll(ctx context.Context) ([]DrainResult, error) {
	kinds, err := g.queue.Kinds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list kinds: %w", err)
	}
	var results []DrainResult
	for _, kind := range kinds {
		res, err := g.Drain(ctx, domain.SyncTag(g.prefix, kind))
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (g *Gateway) drainKind(ctx context.Context, kind, tag string) (DrainResult, error) {
	g.metrics.DrainsTotal.Inc()

	muts, err := g.queue.GetAllByKind(ctx, kind)
	if err != nil {
		return DrainResult{}, fmt.Errorf("load queue: %w", err)
	}

	res := DrainResult{Tag: tag}
	for _, m := range muts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if g.replayOne(ctx, m) {
			res.Replayed++
		} else {
			res.Failed++
		}
	}

	g.recordDrain(ctx, tag)
	g.logger.Info("drain complete",
		log.String("tag", tag),
		log.Int("replayed", res.Replayed),
		log.Int("failed", res.Failed),
	)
	if g.drainEmitter != nil {
		g.drainEmitter.OnDrain(tag, res.Replayed, res.Failed)
	}
	return res, nil
}

// replayOne reports whether the upstream acknowledged the mutation. A
// failed delete after a 2xx leaves the record queued, so a later drain
// may replay it again; delivery is at-least-once.
func (g *Gateway) replayOne(ctx context.Context, m domain.Mutation) bool {
	resp, err := g.fetcher.Replay(ctx, m)
	if err != nil {
		g.metrics.QueueFailed.Inc()
		g.logger.Warn("replay failed",
			log.Int64("id", m.ID),
			log.String("kind", m.Kind),
			log.Err(err),
		)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		g.metrics.QueueFailed.Inc()
		g.logger.Warn("replay rejected",
			log.Int64("id", m.ID),
			log.String("kind", m.Kind),
			log.Int("status", resp.StatusCode),
			log.String("detail", string(detail)),
		)
		return false
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if err := g.queue.Delete(ctx, m.ID); err != nil {
		g.logger.Error("queued mutation delete failed", log.Int64("id", m.ID), log.Err(err))
	}
	g.metrics.QueueReplayed.Inc()
	g.logger.Debug("mutation replayed",
		log.Int64("id", m.ID),
		log.String("target", m.Method+" "+m.URL),
	)
	return true
}

// QueueDepth reports the number of queued mutations across all kinds.
func (g *Gateway) QueueDepth(ctx context.Context) (int, error) {
	return g.queue.Len(ctx)
}
