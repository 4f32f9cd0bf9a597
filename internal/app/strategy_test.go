package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/duewell/syncgate/internal/domain"
)

func serve(g *Gateway, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, r)
	return rec
}

func TestServeHTTP_PassThroughBeforeActive(t *testing.T) {
	h := newTestHarness(t, nil)

	rec := serve(h.gateway, httptest.NewRequest("GET", "/api/invoices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "upstream" {
		t.Errorf("body = %q, want upstream", rec.Body.String())
	}
	if h.snaps.has(apiNS(), domain.SnapshotKey("GET", "/api/invoices")) {
		t.Error("pass-through must not snapshot")
	}
}

func TestServeHTTP_NetworkFirstSnapshotsAndServes(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.bodies = map[string]string{"/api/payments/history": `[{"id":1}]`}

	rec := serve(h.gateway, httptest.NewRequest("GET", "/api/payments/history", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `[{"id":1}]` {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get(snapshotHeader) != "" {
		t.Error("live response carries the snapshot header")
	}
	if !h.snaps.has(apiNS(), domain.SnapshotKey("GET", "/api/payments/history")) {
		t.Error("response was not snapshotted")
	}
}

func TestServeHTTP_SnapshotFallbackWhenOffline(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.bodies = map[string]string{"/api/invoices": `[{"id":7}]`}

	// Warm the snapshot, then lose the upstream.
	if rec := serve(h.gateway, httptest.NewRequest("GET", "/api/invoices", nil)); rec.Code != http.StatusOK {
		t.Fatalf("warmup status = %d, want 200", rec.Code)
	}
	h.fetcher.setOffline(true)

	rec := serve(h.gateway, httptest.NewRequest("GET", "/api/invoices", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != `[{"id":7}]` {
		t.Errorf("body = %q, want cached payload", rec.Body.String())
	}
	if rec.Header().Get(snapshotHeader) == "" {
		t.Error("snapshot response missing the snapshot header")
	}
}

func TestServeHTTP_OfflineWithoutSnapshot(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.setOffline(true)

	rec := serve(h.gateway, httptest.NewRequest("GET", "/api/invoices", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["error"] != "Offline" {
		t.Errorf(`error = %q, want "Offline"`, body["error"])
	}
	if body["message"] == "" {
		t.Error("offline response has no message")
	}
}

func TestServeHTTP_Non200NotSnapshotted(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.status = http.StatusNotFound

	rec := serve(h.gateway, httptest.NewRequest("GET", "/api/invoices", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if h.snaps.has(apiNS(), domain.SnapshotKey("GET", "/api/invoices")) {
		t.Error("non-200 response was snapshotted")
	}
}

func TestServeHTTP_QueryStringKeysSnapshots(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	serve(h.gateway, httptest.NewRequest("GET", "/api/invoices?page=2", nil))

	if !h.snaps.has(apiNS(), domain.SnapshotKey("GET", "/api/invoices?page=2")) {
		t.Error("snapshot key does not include the query string")
	}
	if h.snaps.has(apiNS(), domain.SnapshotKey("GET", "/api/invoices")) {
		t.Error("query string was dropped from the snapshot key")
	}
}

func TestServeHTTP_BypassForwardsWrites(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	req := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(`{"amount":100}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h.gateway, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d after successful write, want 0", n)
	}
	if h.snaps.has(apiNS(), domain.SnapshotKey("POST", "/api/invoices")) {
		t.Error("bypass stored a snapshot")
	}
}

func TestServeHTTP_OfflineWriteGetsQueued(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.setOffline(true)

	req := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(`{"amount":100}`))
	req.Header.Set("Content-Type", "application/json")
	rec := serve(h.gateway, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var receipt struct {
		Queued bool   `json:"queued"`
		ID     int64  `json:"id"`
		Kind   string `json:"kind"`
		Tag    string `json:"tag"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("receipt is not JSON: %v", err)
	}
	if !receipt.Queued || receipt.ID == 0 {
		t.Errorf("receipt = %+v, want queued with id", receipt)
	}
	if receipt.Kind != "invoice" {
		t.Errorf("kind = %q, want invoice", receipt.Kind)
	}
	if receipt.Tag != "duewell-invoice" {
		t.Errorf("tag = %q, want duewell-invoice", receipt.Tag)
	}

	muts := h.queue.all()
	if len(muts) != 1 {
		t.Fatalf("queue depth = %d, want 1", len(muts))
	}
	m := muts[0]
	if m.Method != "POST" || m.URL != "/api/invoices" {
		t.Errorf("stored target = %s %s", m.Method, m.URL)
	}
	if string(m.Body) != `{"amount":100}` {
		t.Errorf("stored body = %q", m.Body)
	}
	if m.Header.Get("Content-Type") != "application/json" {
		t.Errorf("stored content type = %q", m.Header.Get("Content-Type"))
	}
}

func TestServeHTTP_OfflineWriteWithoutRouteNotQueued(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.setOffline(true)

	req := httptest.NewRequest("POST", "/api/auth/login", strings.NewReader(`{"user":"x"}`))
	rec := serve(h.gateway, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0: auth requests must not be captured", n)
	}
}

func TestServeHTTP_OfflineOutsideAPIGetsBadGateway(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.setOffline(true)

	// Non-navigation, non-API GET: an image fetched by script.
	req := httptest.NewRequest("GET", "/img/logo.png", nil)
	rec := serve(h.gateway, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
}

func TestServeHTTP_QueueFailureFallsBackToOffline(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.setOffline(true)
	h.queue.putErr = errConnRefused

	req := httptest.NewRequest("POST", "/api/invoices", strings.NewReader(`{}`))
	rec := serve(h.gateway, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 when capture fails", rec.Code)
	}
}
