package logtap

import "github.com/bft-labs/logtap/internal/app"

// State is the lifecycle state of a Tap.
type State int

const (
	// StateIdle means no capture process is running.
	StateIdle State = iota
	// StateStarting means the capture process is being spawned.
	StateStarting
	// StateRunning means records are being captured.
	StateRunning
	// StateStopping means Stop is winding the capture down.
	StateStopping
	// StateFailed means the capture process exited without Stop.
	StateFailed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	return app.State(s).String()
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateFailed:
		return StateFailed
	default:
		return StateIdle
	}
}

// StateChangeEvent describes a lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// EventHandler receives lifecycle notifications. Calls are synchronous on
// the goroutine making the transition, so implementations should return
// quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
}

// eventEmitterWrapper adapts EventHandler to the internal observer interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}
