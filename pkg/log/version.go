package log

// Version is the release version of this package. The gateway checks it
// against MinCompatibleVersion at construction time.
const Version = "1.0.0"

// MinCompatibleVersion is the oldest package version the gateway accepts.
const MinCompatibleVersion = "1.0.0"
