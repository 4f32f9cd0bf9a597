package domain

import (
	"encoding/json"
	"strings"
)

// MsgSkipWaiting asks a waiting gateway generation to activate immediately.
const MsgSkipWaiting = "SKIP_WAITING"

// QueueMessagePrefix marks control messages that enqueue a named action.
// The remainder of the type is the action kind, e.g. "QUEUE_INVOICE".
const QueueMessagePrefix = "QUEUE_"

// ControlMessage is a host-to-gateway control envelope.
type ControlMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ClearCachesMessage builds the cache-clear message type for a prefix,
// e.g. "CLEAR_DUEWELL_CACHES" for prefix "duewell".
func ClearCachesMessage(prefix string) string {
	return "CLEAR_" + strings.ToUpper(strings.ReplaceAll(prefix, "-", "_")) + "_CACHES"
}

// QueueKind extracts the action kind from a QUEUE_* message type. Kinds
// are lowercased so the resulting sync tag matches the drain side.
func QueueKind(msgType string) (string, bool) {
	rest, ok := strings.CutPrefix(msgType, QueueMessagePrefix)
	if !ok || rest == "" {
		return "", false
	}
	return strings.ToLower(rest), true
}
