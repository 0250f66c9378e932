package app

import "time"

// Signal is a wake-up primitive with idempotent release: a Release that
// happens before Wait is remembered, and several Releases before one Wait
// collapse into a single wake-up. Waiters must re-check their condition.
type Signal struct {
	ch chan struct{}
}

// NewSignal creates a signal in the closed (not released) state.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Release wakes one current or future waiter. It never blocks.
func (s *Signal) Release() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// Wait blocks until the signal is released and consumes the release.
func (s *Signal) Wait() {
	<-s.ch
}

// WaitTimeout blocks until the signal is released or d elapses.
// It reports whether the signal was released.
func (s *Signal) WaitTimeout(d time.Duration) bool {
	if d <= 0 {
		select {
		case <-s.ch:
			return true
		default:
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ch:
		return true
	case <-t.C:
		return false
	}
}
