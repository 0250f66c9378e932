package app

import (
	"sync"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/pkg/log"
)

// State represents the lifecycle state of a capture session.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Lifecycle manages the state machine for a capture session.
type Lifecycle struct {
	mu       sync.RWMutex
	state    State
	logger   log.Logger
	observer StateObserver
}

// StateObserver is called when lifecycle state changes.
type StateObserver interface {
	OnStateChange(previous, current State, reason string)
}

// NewLifecycle creates a new lifecycle manager in StateIdle.
func NewLifecycle(logger log.Logger, observer StateObserver) *Lifecycle {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Lifecycle{
		state:    StateIdle,
		logger:   logger,
		observer: observer,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo attempts to transition to a new state.
// Returns an error if the transition is not valid.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	// Validate transition
	switch oldState {
	case StateIdle:
		if newState != StateStarting {
			l.mu.Unlock()
			return domain.ErrNotRunning
		}
	case StateStarting:
		// Idle again when the spawn failed.
		if newState != StateRunning && newState != StateIdle {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateRunning:
		if newState != StateStopping && newState != StateFailed {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateStopping:
		if newState != StateIdle {
			l.mu.Unlock()
			return domain.ErrAlreadyRunning
		}
	case StateFailed:
		if newState != StateStarting && newState != StateIdle {
			l.mu.Unlock()
			return domain.ErrNotRunning
		}
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.observer != nil {
		l.observer.OnStateChange(oldState, newState, reason)
	}

	l.logger.Debug("state transition",
		log.String("from", oldState.String()),
		log.String("to", newState.String()),
		log.String("reason", reason),
	)

	return nil
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateIdle || l.state == StateFailed
}

// CanStop returns true if a live capture process may need terminating.
func (l *Lifecycle) CanStop() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateRunning || l.state == StateStarting
}
