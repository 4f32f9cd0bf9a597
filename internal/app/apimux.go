package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/pkg/log"
)

// maxControlBody bounds control request bodies.
const maxControlBody = 1 << 20

// messageTimeout bounds background control message handling.
const messageTimeout = 30 * time.Second

// NewControlMux builds the management mux: control messages, status,
// manual sync, push ingest, Prometheus metrics and pprof. It is meant
// for a loopback or otherwise trusted listener.
func NewControlMux(g *Gateway, reg *prometheus.Registry, logger log.Logger) *http.ServeMux {
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/api/v1/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		writeJSON(w, http.StatusOK, g.Status(r.Context()))
	})

	// Control messages are fire-and-forget: the sender gets an accept,
	// the effect lands in the background.
	mux.HandleFunc("/api/v1/message", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var msg domain.ControlMessage
		if err := decodeBody(r, &msg); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid message"})
			return
		}
		if msg.Type == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing message type"})
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), messageTimeout)
			defer cancel()
			if err := g.HandleMessage(ctx, msg); err != nil {
				logger.Warn("control message failed",
					log.String("type", msg.Type),
					log.Err(err),
				)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"accepted": true, "type": msg.Type})
	})

	mux.HandleFunc("/api/v1/sync", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		tag := r.URL.Query().Get("tag")
		if tag == "" {
			results, err := g.DrainAll(r.Context())
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				return
			}
			if results == nil {
				results = []DrainResult{}
			}
			writeJSON(w, http.StatusOK, map[string]any{"results": results})
			return
		}
		res, err := g.Drain(r.Context(), tag)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, domain.ErrUnknownTag) {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, res)
	})

	// Push ingest. A payload that cannot be decoded still notifies: the
	// user gets the generic notification instead of silence.
	mux.HandleFunc("/api/v1/notify", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		var n domain.Notification
		if err := decodeBody(r, &n); err != nil {
			logger.Debug("push payload decode failed", log.Err(err))
			n = domain.GenericNotification(g.Prefix())
		}
		if err := g.Notify(r.Context(), n); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"delivered": true, "target": n.TargetURL()})
	})

	return mux
}

func decodeBody(r *http.Request, v any) error {
	defer io.Copy(io.Discard, r.Body)
	return json.NewDecoder(io.LimitReader(r.Body, maxControlBody)).Decode(v)
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
