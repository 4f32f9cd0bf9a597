package log

import (
	"time"

	"github.com/rs/zerolog"
)

// Zerolog adapts a zerolog.Logger to the Logger interface.
type Zerolog struct {
	l zerolog.Logger
}

// NewZerolog wraps an existing zerolog.Logger. The caller keeps control
// over output, level, and global context fields.
func NewZerolog(l zerolog.Logger) *Zerolog {
	return &Zerolog{l: l}
}

func (z *Zerolog) Debug(msg string, fields ...Field) { emit(z.l.Debug(), msg, fields) }

func (z *Zerolog) Info(msg string, fields ...Field) { emit(z.l.Info(), msg, fields) }

func (z *Zerolog) Warn(msg string, fields ...Field) { emit(z.l.Warn(), msg, fields) }

func (z *Zerolog) Error(msg string, fields ...Field) { emit(z.l.Error(), msg, fields) }

// emit attaches fields to the event with their native zerolog encoders
// where one exists, then writes the message.
func emit(ev *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			ev = ev.Str(f.Key, v)
		case int:
			ev = ev.Int(f.Key, v)
		case int64:
			ev = ev.Int64(f.Key, v)
		case bool:
			ev = ev.Bool(f.Key, v)
		case time.Duration:
			ev = ev.Dur(f.Key, v)
		case error:
			ev = ev.Err(v)
		default:
			ev = ev.Interface(f.Key, v)
		}
	}
	ev.Msg(msg)
}
