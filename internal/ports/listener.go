package ports

import "github.com/bft-labs/logtap/internal/domain"

// Listener receives capture events. Calls are made through a Poster, so
// an implementation observes them on whatever goroutine the Poster uses.
type Listener interface {
	// OnStart is called once the capture process is running.
	OnStart()

	// OnStartFailed is called when the capture process could not be spawned.
	OnStartFailed()

	// OnStop is called when the capture process exits. wasError is false
	// only when the exit was requested through Stop.
	OnStop(wasError bool)

	// OnRecord delivers a single newly committed record.
	OnRecord(rec domain.Record)

	// OnRecordBatch delivers the visible subset of several newly committed records.
	OnRecordBatch(recs []domain.Record)
}

// Poster schedules callbacks onto the host's delivery goroutine.
// Implementations must run callbacks in the order they were posted.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(fn func())

// Post calls p(fn).
func (p PosterFunc) Post(fn func()) { p(fn) }

// Inline is a Poster that runs callbacks on the posting goroutine.
var Inline Poster = PosterFunc(func(fn func()) { fn() })
