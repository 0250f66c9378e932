// Package log provides the structured logging abstraction used by logtap.
//
// Components log through the [Logger] interface so that embedding
// applications can route capture diagnostics into their own logging
// infrastructure. A zerolog adapter and a no-op logger are provided.
//
// # Usage
//
// Use the zerolog adapter with console output on stderr:
//
//	logger := log.NewZerologAdapter(zerolog.InfoLevel)
//
// Wrap an existing zerolog.Logger:
//
//	logger := log.NewZerologAdapterWithLogger(zl)
//
// Attach fields to every message emitted through a logger:
//
//	sessionLog := log.With(logger, log.String("session", id))
//
// Or use the no-op logger for tests and silent embedding:
//
//	logger := log.NewNoopLogger()
package log
