package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// offlineMessage is the body of the synthesized offline API response.
const offlineMessage = "The request could not reach the server and no cached copy is available."

// snapshotHeader marks responses served from the snapshot store.
const snapshotHeader = "X-Syncgate-Snapshot"

// ServeHTTP dispatches a request to its strategy. Until the gateway is
// active every request passes straight through to the upstream.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.lifecycle.State() != StateActive {
		g.passThrough(w, r)
		return
	}

	strategy := g.classifier.Classify(r)
	g.metrics.RequestsTotal.WithLabelValues(strategy.String()).Inc()

	switch strategy {
	case domain.StrategyNavigation:
		g.serveNavigation(w, r)
	case domain.StrategyNetworkFirst, domain.StrategyCachePreferred:
		g.serveWithFallback(w, r, strategy)
	default:
		g.serveBypass(w, r)
	}
}

// serveWithFallback forwards to the upstream and snapshots cacheable
// responses; on transport failure it serves the last snapshot instead.
// Network-first and cache-preferred requests differ only in how eagerly a
// client may accept staleness, so both run the same network-then-snapshot
// flow and are told apart by their metric labels.
func (g *Gateway) serveWithFallback(w http.ResponseWriter, r *http.Request, strategy domain.Strategy) {
	ctx := r.Context()
	purpose := purposeFor(r.URL.Path)
	ns := g.namespace(purpose)
	key := domain.SnapshotKey(r.Method, requestTarget(r))

	resp, err := g.fetcher.Forward(ctx, r)
	if err == nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			if r.Method == http.MethodGet && resp.StatusCode == http.StatusOK {
				g.storeSnapshot(ctx, ns, purpose, key, resp, body)
			}
			writeUpstream(w, resp, body)
			return
		}
		err = readErr
	}

	snap, serr := g.snaps.Get(ctx, ns, key)
	if serr == nil {
		g.metrics.SnapshotHits.WithLabelValues(strategy.String()).Inc()
		g.logger.Debug("serving snapshot",
			log.String("key", key),
			log.String("strategy", strategy.String()),
			log.Err(err),
		)
		writeSnapshot(w, snap)
		return
	}

	g.metrics.OfflineTotal.Inc()
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		writeOffline(w)
		return
	}
	writeBadGateway(w, err)
}

// serveBypass forwards without caching. On transport failure a write
// matching a queue route is captured for replay and acknowledged with a
// receipt; anything else gets the synthesized offline response.
func (g *Gateway) serveBypass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	mutating := r.Method != http.MethodGet && r.Method != http.MethodHead
	var bodyCopy []byte
	if mutating && r.Body != nil {
		var err error
		bodyCopy, err = io.ReadAll(r.Body)
		r.Body.Close()
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(bodyCopy))
		r.ContentLength = int64(len(bodyCopy))
	}

	resp, err := g.fetcher.Forward(ctx, r)
	if err == nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil {
			writeUpstream(w, resp, body)
			return
		}
		err = readErr
	}

	if mutating {
		if kind, ok := g.kindFor(r.URL.Path); ok {
			m, qerr := g.enqueueRequest(ctx, kind, r, bodyCopy)
			if qerr == nil {
				g.writeQueuedReceipt(w, m)
				return
			}
			g.logger.Error("mutation capture failed",
				log.String("kind", kind),
				log.String("target", r.Method+" "+requestTarget(r)),
				log.Err(qerr),
			)
		}
	}

	g.metrics.OfflineTotal.Inc()
	if strings.HasPrefix(r.URL.Path, apiPrefix) {
		writeOffline(w)
		return
	}
	writeBadGateway(w, err)
}

// passThrough proxies without strategies, snapshots or capture. Used
// before activation and after shutdown begins.
func (g *Gateway) passThrough(w http.ResponseWriter, r *http.Request) {
	resp, err := g.fetcher.Forward(r.Context(), r)
	if err != nil {
		writeBadGateway(w, err)
		return
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		writeBadGateway(w, err)
		return
	}
	writeUpstream(w, resp, body)
}

// kindFor resolves the mutation kind for a request path, first match
// wins.
func (g *Gateway) kindFor(path string) (string, bool) {
	for _, route := range g.queueRoutes {
		if route.Pattern.MatchString(path) {
			return route.Kind, true
		}
	}
	return "", false
}

// enqueueRequest captures a failed write for later replay. The stored
// header is a full clone; hop-by-hop headers are stripped on replay, not
// here.
func (g *Gateway) enqueueRequest(ctx context.Context, kind string, r *http.Request, body []byte) (domain.Mutation, error) {
	m := domain.Mutation{
		Kind:       kind,
		URL:        requestTarget(r),
		Method:     r.Method,
		Header:     r.Header.Clone(),
		Body:       body,
		EnqueuedAt: time.Now(),
	}
	id, err := g.queue.Put(ctx, m)
	if err != nil {
		return domain.Mutation{}, err
	}
	m.ID = id
	g.metrics.QueueEnqueued.Inc()
	g.logger.Info("mutation queued",
		log.Int64("id", id),
		log.String("kind", kind),
		log.String("target", m.Method+" "+m.URL),
	)
	return m, nil
}

func (g *Gateway) writeQueuedReceipt(w http.ResponseWriter, m domain.Mutation) {
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued": true,
		"id":     m.ID,
		"kind":   m.Kind,
		"tag":    domain.SyncTag(g.prefix, m.Kind),
	})
}

func writeUpstream(w http.ResponseWriter, resp *http.Response, body []byte) {
	copyHeader(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

func writeSnapshot(w http.ResponseWriter, snap domain.Snapshot) {
	copyHeader(w.Header(), snap.Header)
	w.Header().Set(snapshotHeader, snap.StoredAt.UTC().Format(time.RFC3339))
	w.WriteHeader(snap.Status)
	_, _ = w.Write(snap.Body)
}

func writeOffline(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error":   "Offline",
		"message": offlineMessage,
	})
}

func writeBadGateway(w http.ResponseWriter, err error) {
	msg := "upstream unreachable"
	if err != nil {
		msg = err.Error()
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusBadGateway, map[string]string{
		"error":   "Bad Gateway",
		"message": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func copyHeader(dst, src http.Header) {
	for key, values := range src {
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
