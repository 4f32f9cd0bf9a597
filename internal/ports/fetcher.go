package ports

import (
	"context"
	"net/http"

	"github.com/duewell/syncgate/internal/domain"
)

// Fetcher performs HTTP operations against the upstream origin.
// Implementations handle URL rewriting, header hygiene and timeouts.
type Fetcher interface {
	// Forward re-issues an inbound request against the upstream origin
	// and returns the upstream response. The caller owns the response
	// body. A transport-level failure returns an error; HTTP error
	// statuses do not.
	Forward(ctx context.Context, req *http.Request) (*http.Response, error)

	// Get fetches a path from the upstream origin.
	Get(ctx context.Context, path string) (*http.Response, error)

	// Replay re-issues a queued mutation against the upstream origin.
	Replay(ctx context.Context, m domain.Mutation) (*http.Response, error)
}
