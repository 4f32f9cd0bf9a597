package domain

import "errors"

// Sentinel errors surfaced through the public API. Callers match them
// with errors.Is.
var (
	// ErrAlreadyRunning rejects Start on an instance that is up.
	ErrAlreadyRunning = errors.New("syncgate: already running")

	// ErrNotRunning rejects Stop on an instance with nothing running.
	ErrNotRunning = errors.New("syncgate: not running")

	// ErrShutdownTimeout means workers outlived the graceful window.
	ErrShutdownTimeout = errors.New("syncgate: shutdown timeout")

	// ErrInvalidConfig marks a failed configuration or argument check.
	ErrInvalidConfig = errors.New("syncgate: invalid configuration")

	// ErrSnapshotNotFound is a snapshot store lookup miss.
	ErrSnapshotNotFound = errors.New("syncgate: snapshot not found")

	// ErrStoreClosed is returned by store operations after Close.
	ErrStoreClosed = errors.New("syncgate: store closed")

	// ErrUnknownMessage is a control message with an unrecognized type.
	ErrUnknownMessage = errors.New("syncgate: unknown control message")

	// ErrUnknownTag is a sync tag without the configured prefix.
	ErrUnknownTag = errors.New("syncgate: unknown sync tag")
)
