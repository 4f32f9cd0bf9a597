package domain

import (
	"net/http"
	"strings"
	"time"
)

// Mutation represents a queued write operation captured while the upstream
// was unreachable. Mutations are replayed in insertion order and deleted
// only after the upstream acknowledges them with a 2xx status.
type Mutation struct {
	// ID is the store-assigned identifier, monotonically increasing
	// in insertion order.
	ID int64

	// Kind groups mutations for replay under one sync tag (e.g. "invoice").
	Kind string

	// URL is the request target relative to the upstream origin.
	URL string

	// Method is the HTTP method to replay with.
	Method string

	// Header holds the captured request headers.
	Header http.Header

	// Body is the captured request body.
	Body []byte

	// EnqueuedAt is the capture time.
	EnqueuedAt time.Time
}

// SyncTag builds the sync tag for a mutation kind, e.g. "duewell-invoice".
func SyncTag(prefix, kind string) string {
	return prefix + "-" + kind
}

// KindFromTag extracts the mutation kind from a sync tag. It reports false
// when the tag does not carry the given prefix.
func KindFromTag(prefix, tag string) (string, bool) {
	kind, ok := strings.CutPrefix(tag, prefix+"-")
	if !ok || kind == "" {
		return "", false
	}
	return kind, true
}
