package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/logtap/internal/filter"
	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/internal/store"
	"github.com/bft-labs/logtap/pkg/log"
)

// DispatchState is the delivery state of the dispatcher.
type DispatchState int

const (
	DispatchIdle DispatchState = iota
	DispatchActive
	DispatchPaused
	DispatchBackgrounded
)

// String returns a human-readable representation of the dispatch state.
func (s DispatchState) String() string {
	switch s {
	case DispatchIdle:
		return "Idle"
	case DispatchActive:
		return "Active"
	case DispatchPaused:
		return "Paused"
	case DispatchBackgrounded:
		return "Backgrounded"
	default:
		return "Unknown"
	}
}

// Dispatcher periodically commits pending records and delivers the
// visible part of each committed delta to the listener.
//
// Pause and background gates are changed under mu, the same lock that
// covers a commit and its posted events, so once Pause returns no further
// record events are emitted until Resume.
type Dispatcher struct {
	store    *store.Store
	filters  *filter.Registry
	delivery *delivery
	logger   log.Logger

	mu         sync.Mutex
	paused     atomic.Bool
	background atomic.Bool
	running    atomic.Int32 // loops in flight; an abandoned run's loop may overlap a new one
	interval   atomic.Int64

	pauseSignal      *Signal
	foregroundSignal *Signal
	pollSignal       *Signal
}

func newDispatcher(st *store.Store, filters *filter.Registry, d *delivery, interval time.Duration, logger log.Logger) *Dispatcher {
	disp := &Dispatcher{
		store:            st,
		filters:          filters,
		delivery:         d,
		logger:           logger,
		pauseSignal:      NewSignal(),
		foregroundSignal: NewSignal(),
		pollSignal:       NewSignal(),
	}
	disp.interval.Store(int64(interval))
	return disp
}

// Run executes dispatch cycles until alive reports false.
func (d *Dispatcher) Run(alive func() bool) {
	d.running.Add(1)
	defer d.running.Add(-1)

	for alive() {
		if d.paused.Load() {
			d.pauseSignal.Wait()
			continue
		}
		if d.background.Load() {
			d.foregroundSignal.Wait()
			continue
		}

		start := time.Now()
		d.DispatchPending()
		if sleep := d.Interval() - time.Since(start); sleep > 0 {
			d.pollSignal.WaitTimeout(sleep)
		}
	}
}

// DispatchPending runs one commit-and-deliver step unless delivery is
// paused or backgrounded. It returns the number of records committed.
func (d *Dispatcher) DispatchPending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused.Load() || d.background.Load() {
		return 0
	}
	return d.commitLocked()
}

// commitLocked commits pending records and posts their visible subset.
// d.mu must be held.
func (d *Dispatcher) commitLocked() int {
	committed := d.store.CommitPending()
	switch len(committed) {
	case 0:
	case 1:
		rec := committed[0]
		if d.filters.Evaluate(rec) {
			d.delivery.post(func(l ports.Listener) { l.OnRecord(rec) })
		}
	default:
		visible := d.filters.Filter(committed)
		if len(visible) > 0 {
			d.delivery.post(func(l ports.Listener) { l.OnRecordBatch(visible) })
		}
	}
	return len(committed)
}

// Pause stops record delivery. Records keep accumulating as pending.
func (d *Dispatcher) Pause() {
	d.mu.Lock()
	d.paused.Store(true)
	d.mu.Unlock()
}

// Resume re-enables delivery and wakes the dispatch loop. When no loop is
// running, records left pending are delivered on the caller's goroutine.
func (d *Dispatcher) Resume() {
	d.mu.Lock()
	d.paused.Store(false)
	d.mu.Unlock()

	d.pauseSignal.Release()
	d.pollSignal.Release()

	if d.running.Load() == 0 {
		d.DispatchPending()
	}
}

// Paused reports whether delivery is paused.
func (d *Dispatcher) Paused() bool {
	return d.paused.Load()
}

// setBackground flips the background gate. Leaving the background wakes
// the dispatch loop.
func (d *Dispatcher) setBackground(bg bool) {
	d.mu.Lock()
	d.background.Store(bg)
	d.mu.Unlock()
	if !bg {
		d.foregroundSignal.Release()
	}
}

// flush commits and delivers pending records regardless of the background
// gate. A paused dispatcher keeps its records pending.
func (d *Dispatcher) flush() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.paused.Load() {
		return 0
	}
	return d.commitLocked()
}

// Backgrounded reports whether the host is in the background.
func (d *Dispatcher) Backgrounded() bool {
	return d.background.Load()
}

// Interval returns the poll interval.
func (d *Dispatcher) Interval() time.Duration {
	return time.Duration(d.interval.Load())
}

// SetInterval changes the poll interval and wakes the loop so the new
// value applies to the next cycle.
func (d *Dispatcher) SetInterval(interval time.Duration) {
	d.interval.Store(int64(interval))
	d.pollSignal.Release()
}

// releaseAll wakes every wait so the loop can observe a liveness change.
func (d *Dispatcher) releaseAll() {
	d.pauseSignal.Release()
	d.foregroundSignal.Release()
	d.pollSignal.Release()
}

// State reports the current dispatch state.
func (d *Dispatcher) State() DispatchState {
	switch {
	case d.running.Load() == 0:
		return DispatchIdle
	case d.paused.Load():
		return DispatchPaused
	case d.background.Load():
		return DispatchBackgrounded
	default:
		return DispatchActive
	}
}
