package memcache

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/duewell/syncgate/internal/domain"
)

func TestPutGetDelete(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	snap := domain.Snapshot{
		Status:   http.StatusOK,
		Header:   http.Header{"Content-Type": []string{"application/json"}},
		Body:     []byte(`{"total":3}`),
		StoredAt: time.Now(),
	}

	if err := s.Put(ctx, "duewell-api-v1", "GET /api/invoices", snap); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, err := s.Get(ctx, "duewell-api-v1", "GET /api/invoices")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Status != http.StatusOK || string(got.Body) != `{"total":3}` {
		t.Errorf("Get() = %+v, want stored snapshot", got)
	}

	if _, err := s.Get(ctx, "duewell-api-v1", "GET /missing"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("Get() missing key error = %v, want ErrSnapshotNotFound", err)
	}

	if err := s.Delete(ctx, "duewell-api-v1", "GET /api/invoices"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get(ctx, "duewell-api-v1", "GET /api/invoices"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestGetReturnsClone(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	snap := domain.Snapshot{Status: 200, Body: []byte("original")}
	if err := s.Put(ctx, "ns", "k", snap); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	// Mutating the value passed to Put must not affect the store.
	snap.Body[0] = 'X'

	got, err := s.Get(ctx, "ns", "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(got.Body) != "original" {
		t.Errorf("stored body = %q, want %q", got.Body, "original")
	}

	// Mutating a returned snapshot must not affect later reads.
	got.Body[0] = 'Y'
	again, err := s.Get(ctx, "ns", "k")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if string(again.Body) != "original" {
		t.Errorf("body after caller mutation = %q, want %q", again.Body, "original")
	}
}

func TestNamespacesAndDrop(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()

	for _, ns := range []string{"duewell-static-v1", "duewell-api-v1", "other-api-v9"} {
		if err := s.Put(ctx, ns, "k", domain.Snapshot{Status: 200}); err != nil {
			t.Fatalf("Put(%q) error: %v", ns, err)
		}
	}

	names, err := s.Namespaces(ctx)
	if err != nil {
		t.Fatalf("Namespaces() error: %v", err)
	}
	want := []string{"duewell-api-v1", "duewell-static-v1", "other-api-v9"}
	if len(names) != len(want) {
		t.Fatalf("Namespaces() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Namespaces()[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	if err := s.DropNamespace(ctx, "duewell-api-v1"); err != nil {
		t.Fatalf("DropNamespace() error: %v", err)
	}
	if _, err := s.Get(ctx, "duewell-api-v1", "k"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("Get() after drop error = %v, want ErrSnapshotNotFound", err)
	}
	if n, _ := s.Len(ctx, "duewell-static-v1"); n != 1 {
		t.Errorf("Len() of untouched namespace = %d, want 1", n)
	}
}

func TestSweepByAge(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()
	now := time.Now()

	old := domain.Snapshot{Status: 200, StoredAt: now.Add(-2 * time.Hour)}
	fresh := domain.Snapshot{Status: 200, StoredAt: now}
	if err := s.Put(ctx, "ns", "old", old); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "ns", "fresh", fresh); err != nil {
		t.Fatal(err)
	}

	removed, err := s.Sweep(ctx, "ns", now.Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("Sweep() removed = %d, want 1", removed)
	}
	if _, err := s.Get(ctx, "ns", "old"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Error("old snapshot should have been evicted")
	}
	if _, err := s.Get(ctx, "ns", "fresh"); err != nil {
		t.Errorf("fresh snapshot should survive: %v", err)
	}
}

func TestSweepByCapacity(t *testing.T) {
	s := New()
	defer s.Close()
	ctx := context.Background()
	base := time.Now()

	// Five entries with strictly increasing storage times.
	for i, key := range []string{"a", "b", "c", "d", "e"} {
		snap := domain.Snapshot{Status: 200, StoredAt: base.Add(time.Duration(i) * time.Minute)}
		if err := s.Put(ctx, "ns", key, snap); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.Sweep(ctx, "ns", time.Time{}, 3)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("Sweep() removed = %d, want 2", removed)
	}
	for _, key := range []string{"a", "b"} {
		if _, err := s.Get(ctx, "ns", key); !errors.Is(err, domain.ErrSnapshotNotFound) {
			t.Errorf("oldest entry %q should have been evicted", key)
		}
	}
	for _, key := range []string{"c", "d", "e"} {
		if _, err := s.Get(ctx, "ns", key); err != nil {
			t.Errorf("entry %q should survive: %v", key, err)
		}
	}
}

func TestSweepMissingNamespace(t *testing.T) {
	s := New()
	defer s.Close()

	removed, err := s.Sweep(context.Background(), "absent", time.Now(), 10)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if removed != 0 {
		t.Errorf("Sweep() removed = %d, want 0", removed)
	}
}

func TestClosedStore(t *testing.T) {
	s := New()
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close() error: %v", err)
	}

	ctx := context.Background()
	if err := s.Put(ctx, "ns", "k", domain.Snapshot{}); !errors.Is(err, domain.ErrStoreClosed) {
		t.Errorf("Put() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Get(ctx, "ns", "k"); !errors.Is(err, domain.ErrStoreClosed) {
		t.Errorf("Get() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Namespaces(ctx); !errors.Is(err, domain.ErrStoreClosed) {
		t.Errorf("Namespaces() after close error = %v, want ErrStoreClosed", err)
	}
}
