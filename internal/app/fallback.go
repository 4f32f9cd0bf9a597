package app

import (
	"fmt"
	"io"
	"net/http"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// serveNavigation handles page loads. An upstream answering 2xx is
// served directly. Anything else, transport failure or error status,
// falls back through three tiers: the precached shell, a live shell
// fetch, and finally the generated offline page. A navigation never
// surfaces a raw error.
func (g *Gateway) serveNavigation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp, err := g.fetcher.Forward(ctx, r)
	if err == nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil && resp.StatusCode/100 == 2 {
			writeUpstream(w, resp, body)
			return
		}
		err = readErr
		if err == nil {
			err = fmt.Errorf("upstream status %d", resp.StatusCode)
		}
	}
	g.logger.Debug("navigation fetch failed",
		log.String("path", r.URL.Path),
		log.Err(err),
	)

	staticNS := g.namespace(domain.PurposeStatic)
	shellKey := domain.SnapshotKey(http.MethodGet, g.shellPath)

	if snap, serr := g.snaps.Get(ctx, staticNS, shellKey); serr == nil {
		g.metrics.FallbacksTotal.WithLabelValues("shell-cache").Inc()
		writeSnapshot(w, snap)
		return
	}

	// The shell cache can be empty when install ran offline. One live
	// attempt repopulates it for the next navigation.
	if resp, ferr := g.fetcher.Get(ctx, g.shellPath); ferr == nil {
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr == nil && resp.StatusCode == http.StatusOK {
			g.storeSnapshot(ctx, staticNS, domain.PurposeStatic, shellKey, resp, body)
			g.metrics.FallbacksTotal.WithLabelValues("shell-live").Inc()
			writeUpstream(w, resp, body)
			return
		}
	}

	g.metrics.FallbacksTotal.WithLabelValues("offline-page").Inc()
	g.metrics.OfflineTotal.Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, offlinePage)
}

// offlinePage is the last-resort navigation response. It is generated,
// not fetched, so it works with empty caches.
const offlinePage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Offline</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
         background: #f4f5f7; color: #1f2933; margin: 0;
         display: flex; min-height: 100vh; align-items: center;
         justify-content: center; }
  .card { background: #fff; border-radius: 8px; padding: 2.5rem 3rem;
          box-shadow: 0 1px 4px rgba(0,0,0,.12); text-align: center;
          max-width: 26rem; }
  h1 { font-size: 1.4rem; margin: 0 0 .75rem; }
  p { margin: 0 0 1.5rem; line-height: 1.5; color: #52606d; }
  button { background: #2563eb; color: #fff; border: 0;
           border-radius: 6px; padding: .65rem 1.4rem; font-size: 1rem;
           cursor: pointer; }
  button:hover { background: #1d4ed8; }
  nav { margin-top: 1.5rem; }
  nav a { color: #2563eb; text-decoration: none; margin: 0 .6rem;
          font-size: .95rem; }
  nav a:hover { text-decoration: underline; }
</style>
</head>
<body>
<div class="card">
  <h1>You&#39;re offline</h1>
  <p>This page isn&#39;t available right now. Your cached invoices and
  clients are still readable, and anything you save will sync once the
  connection returns.</p>
  <button onclick="location.reload()">Try again</button>
  <nav>
    <a href="/">Dashboard</a>
    <a href="/invoices">Invoices</a>
    <a href="/clients">Clients</a>
  </nav>
</div>
</body>
</html>
`
