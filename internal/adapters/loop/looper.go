// Package loop provides a single-goroutine callback queue that serves as
// the host delivery mechanism for listener events.
package loop

import (
	"sync"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/pkg/log"
)

// Looper runs posted callbacks one at a time, in posting order, on its own
// goroutine. Post never blocks: the queue is unbounded.
// A panicking callback is logged and the loop continues.
type Looper struct {
	logger log.Logger

	mu      sync.Mutex
	queue   []func()
	closed  bool
	started bool
	wake    chan struct{}
	done    chan struct{}
}

var _ ports.Poster = (*Looper)(nil)

// New creates a stopped looper.
func New(logger log.Logger) *Looper {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Looper{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. Callbacks posted earlier run first.
func (l *Looper) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started || l.closed {
		return
	}
	l.started = true
	go l.run()
}

// Post enqueues fn. Callbacks posted after Close are dropped.
func (l *Looper) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Debug("dropping callback posted after close")
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued callbacks.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Close stops accepting callbacks, runs those already queued and waits for
// the loop to exit. Close on a looper that was never started discards the
// queue.
func (l *Looper) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	started := l.started
	if !started {
		l.queue = nil
	}
	l.mu.Unlock()

	if !started {
		close(l.done)
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
	<-l.done
}

func (l *Looper) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, fn := range batch {
			l.call(fn)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-l.wake
	}
}

func (l *Looper) call(fn func()) {
	var pc panics.Catcher
	pc.Try(fn)
	if r := pc.Recovered(); r != nil {
		l.logger.Error("callback panicked", log.Err(r.AsError()))
	}
}
