// Package log defines the structured logging contract used across
// syncgate. The gateway, its adapters, and plugins all log through the
// Logger interface so callers can plug in whatever backend they run.
//
// Two implementations ship with the package: a zerolog adapter for
// production use and a no-op logger that serves as the default.
//
// Wrap a configured zerolog.Logger:
//
//	zl := zerolog.New(os.Stderr).With().Timestamp().Logger()
//	logger := log.NewZerolog(zl)
//
// Fields are built with typed helpers:
//
//	logger.Info("snapshot stored",
//		log.String("namespace", ns),
//		log.Int("entries", n))
//
// To bridge another backend, implement the four Logger methods and pass
// the result to syncgate.WithLogger.
package log
