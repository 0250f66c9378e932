package logtap

import "github.com/bft-labs/logtap/internal/domain"

// Errors returned by a Tap. Check them with errors.Is.
var (
	ErrAlreadyRunning  = domain.ErrAlreadyRunning
	ErrNotRunning      = domain.ErrNotRunning
	ErrShutdownTimeout = domain.ErrShutdownTimeout
	ErrInvalidConfig   = domain.ErrInvalidConfig
	ErrSpawnFailed     = domain.ErrSpawnFailed
	ErrClosed          = domain.ErrClosed
	ErrMalformedHeader = domain.ErrMalformedHeader
)
