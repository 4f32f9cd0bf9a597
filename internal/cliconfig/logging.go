package cliconfig

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger builds the CLI logger: console output on stderr, info level by
// default, debug when verbose.
func Logger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}
