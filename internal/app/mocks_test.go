package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/duewell/syncgate/internal/domain"
	"github.com/duewell/syncgate/internal/ports"
	"github.com/duewell/syncgate/pkg/log"
)

var errConnRefused = errors.New("connect: connection refused")

// fakeFetcher is a scriptable upstream. Failures are injected per call
// type or per path; every call is recorded.
type fakeFetcher struct {
	mu sync.Mutex

	forwardErr error
	getErr     error
	replayErr  error
	failPaths  map[string]bool

	status       int
	replayStatus int
	statusByID   map[int64]int
	replayDelay  time.Duration

	defaultBody string
	bodies      map[string]string
	header      http.Header

	forwards []string
	gets     []string
	replays  []int64
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		status:       http.StatusOK,
		replayStatus: http.StatusOK,
		defaultBody:  "upstream",
	}
}

// setOffline toggles transport failure for forwards and gets.
func (f *fakeFetcher) setOffline(offline bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if offline {
		f.forwardErr = errConnRefused
		f.getErr = errConnRefused
	} else {
		f.forwardErr = nil
		f.getErr = nil
	}
}

func (f *fakeFetcher) Forward(_ context.Context, r *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards = append(f.forwards, r.Method+" "+r.URL.RequestURI())
	if f.forwardErr != nil {
		return nil, f.forwardErr
	}
	if f.failPaths[r.URL.Path] {
		return nil, errConnRefused
	}
	return f.response(r.URL.Path), nil
}

func (f *fakeFetcher) Get(_ context.Context, path string) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, path)
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.failPaths[path] {
		return nil, errConnRefused
	}
	return f.response(path), nil
}

func (f *fakeFetcher) Replay(_ context.Context, m domain.Mutation) (*http.Response, error) {
	f.mu.Lock()
	delay := f.replayDelay
	f.replays = append(f.replays, m.ID)
	if f.replayErr != nil {
		f.mu.Unlock()
		return nil, f.replayErr
	}
	status := f.replayStatus
	if s, ok := f.statusByID[m.ID]; ok {
		status = s
	}
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}, nil
}

func (f *fakeFetcher) response(path string) *http.Response {
	body := f.defaultBody
	if b, ok := f.bodies[path]; ok {
		body = b
	}
	header := http.Header{}
	for key, values := range f.header {
		header[key] = values
	}
	if header.Get("Content-Type") == "" {
		header.Set("Content-Type", "text/plain")
	}
	return &http.Response{
		StatusCode: f.status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func (f *fakeFetcher) forwardCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.forwards)
}

func (f *fakeFetcher) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.gets)
}

func (f *fakeFetcher) replayedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]int64, len(f.replays))
	copy(out, f.replays)
	return out
}

// fakeSnapshots is an in-memory snapshot store with injectable errors.
// Sweep only records its arguments.
type fakeSnapshots struct {
	mu      sync.Mutex
	spaces  map[string]map[string]domain.Snapshot
	putErr  error
	getErr  error
	dropped []string

	sweeps      []string
	sweepReturn int
	sweepErr    error
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{spaces: map[string]map[string]domain.Snapshot{}}
}

func (s *fakeSnapshots) Put(_ context.Context, namespace, key string, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	space, ok := s.spaces[namespace]
	if !ok {
		space = map[string]domain.Snapshot{}
		s.spaces[namespace] = space
	}
	space[key] = snap
	return nil
}

func (s *fakeSnapshots) Get(_ context.Context, namespace, key string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return domain.Snapshot{}, s.getErr
	}
	snap, ok := s.spaces[namespace][key]
	if !ok {
		return domain.Snapshot{}, domain.ErrSnapshotNotFound
	}
	return snap, nil
}

func (s *fakeSnapshots) Delete(_ context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces[namespace], key)
	return nil
}

func (s *fakeSnapshots) Len(_ context.Context, namespace string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.spaces[namespace]), nil
}

func (s *fakeSnapshots) Namespaces(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.spaces))
	for name := range s.spaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *fakeSnapshots) DropNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.spaces, namespace)
	s.dropped = append(s.dropped, namespace)
	return nil
}

func (s *fakeSnapshots) Sweep(_ context.Context, namespace string, _ time.Time, _ int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sweepErr != nil {
		return 0, s.sweepErr
	}
	s.sweeps = append(s.sweeps, namespace)
	return s.sweepReturn, nil
}

func (s *fakeSnapshots) Close() error { return nil }

func (s *fakeSnapshots) has(namespace, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.spaces[namespace][key]
	return ok
}

func (s *fakeSnapshots) seed(namespace, key string, snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	space, ok := s.spaces[namespace]
	if !ok {
		space = map[string]domain.Snapshot{}
		s.spaces[namespace] = space
	}
	space[key] = snap
}

// fakeQueue is a slice-backed mutation store.
type fakeQueue struct {
	mu     sync.Mutex
	muts   []domain.Mutation
	nextID int64
	putErr error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{} }

func (q *fakeQueue) Put(_ context.Context, m domain.Mutation) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.putErr != nil {
		return 0, q.putErr
	}
	q.nextID++
	m.ID = q.nextID
	q.muts = append(q.muts, m)
	return m.ID, nil
}

func (q *fakeQueue) GetAllByKind(_ context.Context, kind string) ([]domain.Mutation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []domain.Mutation
	for _, m := range q.muts {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out, nil
}

func (q *fakeQueue) Delete(_ context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.muts {
		if m.ID == id {
			q.muts = append(q.muts[:i], q.muts[i+1:]...)
			return nil
		}
	}
	return nil
}

func (q *fakeQueue) Kinds(_ context.Context) ([]string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	seen := map[string]bool{}
	var kinds []string
	for _, m := range q.muts {
		if !seen[m.Kind] {
			seen[m.Kind] = true
			kinds = append(kinds, m.Kind)
		}
	}
	sort.Strings(kinds)
	return kinds, nil
}

func (q *fakeQueue) Len(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.muts), nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) all() []domain.Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.Mutation, len(q.muts))
	copy(out, q.muts)
	return out
}

// fakeStates records saves and serves a canned load.
type fakeStates struct {
	mu     sync.Mutex
	state  domain.GatewayState
	saves  int
	loaded bool
}

func (s *fakeStates) Load(_ context.Context) (domain.GatewayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	return s.state, nil
}

func (s *fakeStates) Save(_ context.Context, st domain.GatewayState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.saves++
	return nil
}

func (s *fakeStates) current() domain.GatewayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// recordingDrainEmitter collects drain notifications.
type recordingDrainEmitter struct {
	mu   sync.Mutex
	tags []string
}

func (e *recordingDrainEmitter) OnDrain(tag string, replayed, failed int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tags = append(e.tags, tag)
}

// quietLogger drops all output.
type quietLogger struct{}

func (quietLogger) Debug(string, ...log.Field) {}
func (quietLogger) Info(string, ...log.Field)  {}
func (quietLogger) Warn(string, ...log.Field)  {}
func (quietLogger) Error(string, ...log.Field) {}

// recordingStateEmitter collects lifecycle transitions.
type recordingStateEmitter struct {
	mu          sync.Mutex
	transitions []transition
}

type transition struct {
	from, to State
	reason   string
}

func (e *recordingStateEmitter) OnStateChange(previous, current State, reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitions = append(e.transitions, transition{previous, current, reason})
}

func (e *recordingStateEmitter) all() []transition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]transition(nil), e.transitions...)
}

var (
	_ ports.Fetcher         = (*fakeFetcher)(nil)
	_ ports.SnapshotStore   = (*fakeSnapshots)(nil)
	_ ports.MutationStore   = (*fakeQueue)(nil)
	_ ports.StateRepository = (*fakeStates)(nil)
)
