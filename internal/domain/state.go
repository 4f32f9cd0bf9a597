package domain

import "time"

// GatewayState is the persistent gateway state written on activation and
// after drains. It survives restarts so status reporting and drain
// bookkeeping carry over.
type GatewayState struct {
	// ActiveVersion is the build version of the active generation.
	ActiveVersion string `json:"active_version"`

	// ActivatedAt records when the active generation took over.
	ActivatedAt time.Time `json:"activated_at"`

	// LastDrain maps sync tags to the time of their last replay attempt.
	LastDrain map[string]time.Time `json:"last_drain,omitempty"`
}

// RecordDrain returns a copy of the state with the drain time recorded
// for the given tag.
func (s GatewayState) RecordDrain(tag string, at time.Time) GatewayState {
	c := s
	c.LastDrain = make(map[string]time.Time, len(s.LastDrain)+1)
	for k, v := range s.LastDrain {
		c.LastDrain[k] = v
	}
	c.LastDrain[tag] = at
	return c
}
