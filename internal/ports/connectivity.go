package ports

import "context"

// ConnectivityProbe checks upstream reachability before scheduling replays.
// When the upstream is unreachable, callers should hold off draining and
// retry on the next probe.
type ConnectivityProbe interface {
	// Online returns true if the upstream origin currently answers.
	// Any HTTP status counts as online; only transport failures do not.
	Online(ctx context.Context) bool
}
