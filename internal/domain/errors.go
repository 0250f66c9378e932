package domain

import "errors"

// Domain errors represent error conditions in the logtap domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running session.
	ErrAlreadyRunning = errors.New("logtap: already running")

	// ErrNotRunning is returned when an operation needs a live capture process.
	ErrNotRunning = errors.New("logtap: not running")

	// ErrShutdownTimeout is returned when workers do not finish within the join timeout.
	ErrShutdownTimeout = errors.New("logtap: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("logtap: invalid configuration")

	// ErrSpawnFailed is returned when the capture process could not be created.
	ErrSpawnFailed = errors.New("logtap: spawn failed")

	// ErrClosed is returned when a closed instance is started again.
	ErrClosed = errors.New("logtap: closed")

	// ErrMalformedHeader is returned by the parser for a header line it cannot decode.
	ErrMalformedHeader = errors.New("logtap: malformed record header")
)
