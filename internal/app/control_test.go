package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/duewell/syncgate/internal/domain"
)

func TestHandleMessage_SkipWaiting(t *testing.T) {
	h := newTestHarness(t, nil)
	if err := h.gateway.Install(context.Background()); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	if got := h.gateway.Lifecycle().State(); got != StateWaiting {
		t.Fatalf("state = %v, want StateWaiting", got)
	}

	err := h.gateway.HandleMessage(context.Background(), domain.ControlMessage{Type: domain.MsgSkipWaiting})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := h.gateway.Lifecycle().State(); got != StateActive {
		t.Errorf("state = %v, want StateActive", got)
	}
}

func TestHandleMessage_SkipWaitingIgnoredWhenActive(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	err := h.gateway.HandleMessage(context.Background(), domain.ControlMessage{Type: domain.MsgSkipWaiting})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if got := h.gateway.Lifecycle().State(); got != StateActive {
		t.Errorf("state = %v, want StateActive", got)
	}
}

func TestHandleMessage_ClearCaches(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	if !h.snaps.has(staticNS(), domain.SnapshotKey("GET", "/index.html")) {
		t.Fatal("shell not cached before clear")
	}

	msg := domain.ControlMessage{Type: domain.ClearCachesMessage(testPrefix)}
	if err := h.gateway.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if h.snaps.has(staticNS(), domain.SnapshotKey("GET", "/index.html")) {
		t.Error("caches survived the clear message")
	}
}

func TestHandleMessage_QueueAction(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	msg := domain.ControlMessage{
		Type:    "QUEUE_REMINDER",
		Payload: json.RawMessage(`{"invoiceId":7}`),
	}
	if err := h.gateway.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	muts := h.queue.all()
	if len(muts) != 1 {
		t.Fatalf("queue depth = %d, want 1", len(muts))
	}
	m := muts[0]
	if m.Kind != "reminder" {
		t.Errorf("kind = %q, want reminder", m.Kind)
	}
	if m.Method != "POST" || m.URL != "/api/actions/reminder" {
		t.Errorf("target = %s %s, want POST /api/actions/reminder", m.Method, m.URL)
	}
	if string(m.Body) != `{"invoiceId":7}` {
		t.Errorf("body = %q", m.Body)
	}
	if m.Header.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", m.Header.Get("Content-Type"))
	}
}

func TestHandleMessage_QueuedActionDrains(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	msg := domain.ControlMessage{Type: "QUEUE_REMINDER", Payload: json.RawMessage(`{"invoiceId":7}`)}
	if err := h.gateway.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	res, err := h.gateway.Drain(context.Background(), domain.SyncTag(testPrefix, "reminder"))
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 1 {
		t.Errorf("replayed = %d, want 1", res.Replayed)
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}

func TestHandleMessage_Unknown(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	tests := []string{"REFRESH", "clear", "QUEUE_", ""}
	for _, msgType := range tests {
		err := h.gateway.HandleMessage(context.Background(), domain.ControlMessage{Type: msgType})
		if !errors.Is(err, domain.ErrUnknownMessage) {
			t.Errorf("HandleMessage(%q) error = %v, want ErrUnknownMessage", msgType, err)
		}
	}
}

func TestHandleMessage_ForeignClearIsUnknown(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	err := h.gateway.HandleMessage(context.Background(), domain.ControlMessage{Type: "CLEAR_OTHERAPP_CACHES"})
	if !errors.Is(err, domain.ErrUnknownMessage) {
		t.Errorf("error = %v, want ErrUnknownMessage for a foreign clear", err)
	}
	if !h.snaps.has(staticNS(), domain.SnapshotKey("GET", "/index.html")) {
		t.Error("foreign clear dropped our caches")
	}
}

func TestEnqueueAction_EmptyKind(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	_, err := h.gateway.EnqueueAction(context.Background(), "", nil)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("EnqueueAction(\"\") error = %v, want ErrInvalidConfig", err)
	}
}
