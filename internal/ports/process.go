package ports

import (
	"context"
	"io"
)

// Process is a running capture subprocess.
type Process interface {
	// Stdout is the primary output stream carrying framed records.
	Stdout() io.Reader

	// Stderr is the diagnostic stream; it is drained and discarded.
	Stderr() io.Reader

	// Wait blocks until the process exits.
	// Returns nil for a zero exit status, an error otherwise.
	Wait() error

	// Terminate asks the process to exit. Closing the process unblocks
	// pending reads on Stdout and Stderr.
	Terminate() error

	// Pid returns the operating system process id, or 0 if unknown.
	Pid() int
}

// Spawner starts capture subprocesses.
type Spawner interface {
	// Spawn starts name with args. The returned process is already running.
	Spawn(ctx context.Context, name string, args []string) (Process, error)
}
