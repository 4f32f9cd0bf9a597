package log

import "time"

// Logger is the logging contract shared by the gateway and its plugins.
// Any structured logging backend can satisfy it.
type Logger interface {
	// Debug records fine-grained diagnostic output.
	Debug(msg string, fields ...Field)

	// Info records normal operational events.
	Info(msg string, fields ...Field)

	// Warn records recoverable problems.
	Warn(msg string, fields ...Field)

	// Error records failures that need attention.
	Error(msg string, fields ...Field)
}

// Field is a single key-value attribute attached to a log message.
type Field struct {
	Key   string
	Value interface{}
}

// String builds a string-valued field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int builds an int-valued field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Int64 builds an int64-valued field.
func Int64(key string, value int64) Field {
	return Field{Key: key, Value: value}
}

// Bool builds a bool-valued field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration builds a duration-valued field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err builds a field holding err under the conventional "error" key.
func Err(err error) Field {
	return Field{Key: "error", Value: err}
}

// Any builds a field from an arbitrary value.
func Any(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}
