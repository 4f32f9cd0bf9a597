package app

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/duewell/syncgate/internal/domain"
)

func enqueue(t *testing.T, q *fakeQueue, kind, url string) int64 {
	t.Helper()
	id, err := q.Put(context.Background(), domain.Mutation{
		Kind:       kind,
		URL:        url,
		Method:     "POST",
		Body:       []byte(`{}`),
		EnqueuedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	return id
}

func TestDrain_ReplaysAndDeletes(t *testing.T) {
	emitter := &recordingDrainEmitter{}
	h := newTestHarness(t, func(cfg *GatewayConfig) {
		cfg.DrainEmitter = emitter
	})
	h.bringUp(t)

	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "payment", "/api/payments")

	res, err := h.gateway.Drain(context.Background(), "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 2 || res.Failed != 0 {
		t.Errorf("result = %+v, want 2 replayed, 0 failed", res)
	}

	ids := h.fetcher.replayedIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("replayed IDs = %v, want [1 2] in enqueue order", ids)
	}

	remaining := h.queue.all()
	if len(remaining) != 1 || remaining[0].Kind != "payment" {
		t.Errorf("remaining queue = %+v, want only the payment", remaining)
	}

	st := h.states.current()
	if _, ok := st.LastDrain["duewell-invoice"]; !ok {
		t.Error("drain time not recorded in state")
	}
	if len(emitter.tags) != 1 || emitter.tags[0] != "duewell-invoice" {
		t.Errorf("emitter tags = %v", emitter.tags)
	}
}

func TestDrain_RejectedReplayStaysQueued(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.replayStatus = http.StatusInternalServerError

	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "invoice", "/api/invoices")

	res, err := h.gateway.Drain(context.Background(), "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 0 || res.Failed != 2 {
		t.Errorf("result = %+v, want 0 replayed, 2 failed", res)
	}
	if n, _ := h.queue.Len(context.Background()); n != 2 {
		t.Errorf("queue depth = %d, want 2: rejected records must stay", n)
	}
}

func TestDrain_RecordIsolation(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "invoice", "/api/invoices")
	h.fetcher.statusByID = map[int64]int{2: http.StatusBadRequest}

	res, err := h.gateway.Drain(context.Background(), "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 2 || res.Failed != 1 {
		t.Errorf("result = %+v, want 2 replayed, 1 failed", res)
	}

	remaining := h.queue.all()
	if len(remaining) != 1 || remaining[0].ID != 2 {
		t.Errorf("remaining = %+v, want only record 2", remaining)
	}
}

func TestDrain_TransportFailureKeepsAll(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.replayErr = errConnRefused

	enqueue(t, h.queue, "invoice", "/api/invoices")

	res, err := h.gateway.Drain(context.Background(), "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Failed != 1 {
		t.Errorf("result = %+v, want 1 failed", res)
	}
	if n, _ := h.queue.Len(context.Background()); n != 1 {
		t.Errorf("queue depth = %d, want 1", n)
	}
}

func TestDrain_UnknownTag(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	_, err := h.gateway.Drain(context.Background(), "otherapp-invoice")
	if !errors.Is(err, domain.ErrUnknownTag) {
		t.Errorf("Drain() error = %v, want ErrUnknownTag", err)
	}
}

func TestDrain_EmptyQueue(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	res, err := h.gateway.Drain(context.Background(), "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 0 || res.Failed != 0 {
		t.Errorf("result = %+v, want empty", res)
	}
}

func TestDrain_ConcurrentRunsShareOneReplay(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)
	h.fetcher.replayDelay = 20 * time.Millisecond

	const records = 5
	for i := 0; i < records; i++ {
		enqueue(t, h.queue, "invoice", "/api/invoices")
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([]DrainResult, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.gateway.Drain(context.Background(), "duewell-invoice")
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d error = %v", i, errs[i])
		}
	}

	// All callers competed for one run, so no record may be replayed
	// more than once and every caller sees a completed result.
	ids := h.fetcher.replayedIDs()
	seen := map[int64]int{}
	for _, id := range ids {
		seen[id]++
	}
	for id, n := range seen {
		if n > 1 {
			t.Errorf("record %d replayed %d times", id, n)
		}
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d after concurrent drains, want 0", n)
	}
}

func TestDrain_DetachedFromCallerCancellation(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	enqueue(t, h.queue, "invoice", "/api/invoices")

	// A caller abandoning its request must not abort the run other
	// callers may have joined.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.gateway.Drain(ctx, "duewell-invoice")
	if err != nil {
		t.Fatalf("Drain() error = %v", err)
	}
	if res.Replayed != 1 || res.Failed != 0 {
		t.Errorf("result = %+v, want 1 replayed", res)
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}

func TestDrainAll(t *testing.T) {
	h := newTestHarness(t, nil)
	h.bringUp(t)

	enqueue(t, h.queue, "invoice", "/api/invoices")
	enqueue(t, h.queue, "payment", "/api/payments")
	enqueue(t, h.queue, "payment", "/api/payments")

	results, err := h.gateway.DrainAll(context.Background())
	if err != nil {
		t.Fatalf("DrainAll() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v, want 2 kinds", results)
	}

	total := 0
	for _, res := range results {
		total += res.Replayed
	}
	if total != 3 {
		t.Errorf("total replayed = %d, want 3", total)
	}
	if n, _ := h.queue.Len(context.Background()); n != 0 {
		t.Errorf("queue depth = %d, want 0", n)
	}
}
