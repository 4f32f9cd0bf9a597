package domain

import (
	"net/http"
	"time"
)

// Snapshot represents a stored copy of an upstream response.
// Snapshots are immutable once stored; readers always receive a copy.
type Snapshot struct {
	// Status is the HTTP status code of the captured response.
	Status int `json:"status"`

	// Header holds the captured response headers.
	Header http.Header `json:"header"`

	// Body is the full response body.
	Body []byte `json:"body"`

	// StoredAt is the capture time, used for age-based eviction.
	StoredAt time.Time `json:"stored_at"`
}

// SnapshotKey derives the store key for a request. Two requests with the
// same method and URL share one snapshot slot.
func SnapshotKey(method, url string) string {
	return method + " " + url
}

// Clone returns a deep copy of the snapshot. Stores hand out clones so
// callers can never corrupt the stored bytes.
func (s Snapshot) Clone() Snapshot {
	c := Snapshot{
		Status:   s.Status,
		StoredAt: s.StoredAt,
	}
	if s.Header != nil {
		c.Header = s.Header.Clone()
	}
	if s.Body != nil {
		c.Body = make([]byte, len(s.Body))
		copy(c.Body, s.Body)
	}
	return c
}

// Age reports how long ago the snapshot was captured.
func (s Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.StoredAt)
}
