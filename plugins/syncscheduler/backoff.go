package syncscheduler

import (
	"math/rand"
	"time"
)

// backoff yields the wait before the next connectivity probe while the
// upstream is unreachable. Delays double from base up to max, with
// roughly 20% jitter.
type backoff struct {
	base, max time.Duration
	next      time.Duration
}

func newBackoff(base, max time.Duration) *backoff {
	return &backoff{base: base, max: max}
}

// Next advances the progression and returns the delay to wait.
func (b *backoff) Next() time.Duration {
	switch {
	case b.next <= 0:
		b.next = b.base
	case b.next < b.max:
		b.next = min(2*b.next, b.max)
	}
	jitter := 0.8 + 0.4*rand.Float64()
	return time.Duration(jitter * float64(b.next))
}

// Reset clears the progression once the upstream answers again.
func (b *backoff) Reset() { b.next = 0 }
