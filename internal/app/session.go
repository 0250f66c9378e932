package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/filter"
	"github.com/bft-labs/logtap/internal/parser"
	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/internal/store"
	"github.com/bft-labs/logtap/pkg/log"
)

// Default session timing values.
const (
	DefaultPollInterval = 250 * time.Millisecond
	DefaultStopTimeout  = 300 * time.Millisecond
	DefaultJoinTimeout  = 2 * time.Second
)

// SessionConfig contains configuration for a capture session.
type SessionConfig struct {
	// Command is the capture executable (e.g., "logcat").
	Command string

	// Args are fixed arguments placed right after the command (e.g., "-v", "long").
	Args []string

	// BufferFlag precedes each buffer name on the command line (e.g., "-b").
	BufferFlag string

	// Buffers are the log sources to capture; each adds BufferFlag and the name.
	Buffers []string

	PollInterval time.Duration
	StopTimeout  time.Duration
	JoinTimeout  time.Duration
}

// CommandArgs returns the arguments passed to Command.
func (c SessionConfig) CommandArgs() []string {
	args := make([]string, 0, len(c.Args)+2*len(c.Buffers))
	args = append(args, c.Args...)
	for _, b := range c.Buffers {
		args = append(args, c.BufferFlag, b)
	}
	return args
}

// run is one spawned capture process and its workers.
type run struct {
	id          string
	proc        ports.Process
	alive       atomic.Bool
	intentional atomic.Bool
	workers     *Workers
	logger      log.Logger
	done        chan struct{}
}

// Session owns the capture process, its stream drains and the dispatcher,
// and exposes the control API. A Session can be started again after Stop.
type Session struct {
	cfg        SessionConfig
	spawner    ports.Spawner
	resolver   ports.ProcessNameResolver
	logger     log.Logger
	lifecycle  *Lifecycle
	store      *store.Store
	filters    *filter.Registry
	delivery   *delivery
	dispatcher *Dispatcher

	mu      sync.Mutex // guards current and start/stop sequencing
	current *run

	// eventMu orders lifecycle events against background/foreground
	// transitions.
	eventMu        sync.Mutex
	pendingStart   bool
	pendingStop    bool
	pendingStopErr bool
}

// NewSession creates an idle session.
func NewSession(
	cfg SessionConfig,
	spawner ports.Spawner,
	poster ports.Poster,
	resolver ports.ProcessNameResolver,
	logger log.Logger,
	observer StateObserver,
) *Session {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.JoinTimeout <= 0 {
		cfg.JoinTimeout = DefaultJoinTimeout
	}

	st := store.New()
	filters := filter.NewRegistry()
	d := newDelivery(poster)

	return &Session{
		cfg:        cfg,
		spawner:    spawner,
		resolver:   resolver,
		logger:     logger,
		lifecycle:  NewLifecycle(logger, observer),
		store:      st,
		filters:    filters,
		delivery:   d,
		dispatcher: newDispatcher(st, filters, d, cfg.PollInterval, logger),
	}
}

// Start spawns the capture process and its workers.
// Returns ErrAlreadyRunning without side effects when a capture is live.
// When the spawn fails, OnStartFailed is posted, the session stays idle
// and an error wrapping ErrSpawnFailed is returned.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		s.logger.Info("capture is already running")
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(StateStarting, "Start() called"); err != nil {
		return err
	}

	s.dispatcher.paused.Store(false)
	if c, ok := s.resolver.(ports.ResolverCache); ok {
		c.Forget()
	}

	args := s.cfg.CommandArgs()
	proc, err := s.spawner.Spawn(context.Background(), s.cfg.Command, args)
	if err != nil {
		s.logger.Error("failed to spawn capture process",
			log.String("command", s.cfg.Command),
			log.Strings("args", args),
			log.Err(err),
		)
		s.delivery.post(func(l ports.Listener) { l.OnStartFailed() })
		_ = s.lifecycle.TransitionTo(StateIdle, "spawn failed")
		return fmt.Errorf("%w: %s: %v", domain.ErrSpawnFailed, s.cfg.Command, err)
	}

	id := uuid.NewString()
	runLog := log.With(s.logger, log.String("session", id))
	r := &run{
		id:      id,
		proc:    proc,
		workers: NewWorkers(runLog),
		logger:  runLog,
		done:    make(chan struct{}),
	}
	r.alive.Store(true)
	s.current = r

	_ = s.lifecycle.TransitionTo(StateRunning, "capture process spawned")
	runLog.Info("capture started",
		log.String("command", s.cfg.Command),
		log.Strings("args", args),
		log.Int("pid", proc.Pid()),
	)

	s.emitStart()
	go s.supervise(r)
	return nil
}

// supervise runs the workers of r and waits for the process to exit.
func (s *Session) supervise(r *run) {
	defer close(r.done)

	primaryDone := r.workers.Go("primary-drain", func() {
		n, err := drainPrimary(r.proc.Stdout(), r.alive.Load, s.store.AppendPending,
			parser.WithLogger(r.logger),
			parser.WithResolver(s.resolver),
		)
		if err != nil && r.alive.Load() {
			r.logger.Debug("primary stream failed", log.Err(err))
		}
		r.logger.Debug("primary drain finished", log.Int("records", n))
	})
	r.workers.Go("secondary-drain", func() {
		drainSecondary(r.proc.Stderr(), r.alive.Load)
	})
	r.workers.Go("dispatcher", func() {
		s.dispatcher.Run(r.alive.Load)
	})

	waitErr := r.proc.Wait()

	// Let the primary drain consume what the process wrote before it exited.
	select {
	case <-primaryDone:
	case <-time.After(s.cfg.JoinTimeout):
	}

	r.alive.Store(false)
	s.dispatcher.releaseAll()

	wasError := !r.intentional.Load()
	if wasError {
		r.logger.Warn("capture process exited unexpectedly", log.Err(waitErr))
		s.dispatcher.DispatchPending()
	} else {
		r.logger.Info("capture stopped")
	}

	s.finishRun(r, wasError)
	s.emitStop(wasError)

	if err := r.workers.WaitWithTimeout(s.cfg.JoinTimeout); err != nil {
		r.logger.Debug("abandoning capture workers", log.Err(err))
	}
	// Releases the stream handles once the workers are done with them.
	_ = r.proc.Terminate()
}

// finishRun moves the lifecycle out of the running states if r is still
// the current run.
func (s *Session) finishRun(r *run, wasError bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != r {
		return
	}
	s.current = nil

	switch s.lifecycle.State() {
	case StateStopping:
		_ = s.lifecycle.TransitionTo(StateIdle, "capture process exited")
	case StateRunning:
		if wasError {
			_ = s.lifecycle.TransitionTo(StateFailed, "capture process exited unexpectedly")
		} else {
			_ = s.lifecycle.TransitionTo(StateStopping, "capture process exited")
			_ = s.lifecycle.TransitionTo(StateIdle, "capture process exited")
		}
	}
}

// Stop terminates the capture process, waits up to StopTimeout for its
// workers, and clears all records and filters. A run that does not finish
// in time is abandoned.
func (s *Session) Stop() error {
	s.mu.Lock()
	r := s.current
	if r != nil {
		if s.lifecycle.CanStop() {
			_ = s.lifecycle.TransitionTo(StateStopping, "Stop() called")
		}
		r.intentional.Store(true)
		r.alive.Store(false)
		s.dispatcher.releaseAll()
		if err := r.proc.Terminate(); err != nil {
			r.logger.Debug("terminate capture process", log.Err(err))
		}
	}
	s.mu.Unlock()

	if r != nil {
		t := time.NewTimer(s.cfg.StopTimeout)
		select {
		case <-r.done:
		case <-t.C:
			r.logger.Debug("capture did not stop in time; abandoning it",
				log.Duration("timeout", s.cfg.StopTimeout),
			)
		}
		t.Stop()
	}

	s.mu.Lock()
	if r != nil && s.current == r {
		s.current = nil
	}
	switch s.lifecycle.State() {
	case StateStopping, StateFailed:
		_ = s.lifecycle.TransitionTo(StateIdle, "stopped")
	}
	s.mu.Unlock()

	s.store.Clear()
	s.filters.Clear()
	return nil
}

// Close stops the capture and drops the listener.
func (s *Session) Close() error {
	err := s.Stop()
	s.delivery.set(nil)
	return err
}

// Pause stops record delivery until Resume.
func (s *Session) Pause() {
	s.dispatcher.Pause()
}

// Resume re-enables record delivery.
func (s *Session) Resume() {
	s.dispatcher.Resume()
}

// Paused reports whether record delivery is paused.
func (s *Session) Paused() bool {
	return s.dispatcher.Paused()
}

// SetListener installs l. Delivery is paused around the swap and resumed
// only if it was not paused before.
func (s *Session) SetListener(l ports.Listener) {
	wasPaused := s.dispatcher.Paused()
	s.dispatcher.Pause()

	s.delivery.set(l)

	if !wasPaused {
		s.dispatcher.Resume()
	}
}

// SetPollInterval changes the dispatch interval; the next cycle uses it.
func (s *Session) SetPollInterval(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	s.dispatcher.SetInterval(interval)
	return nil
}

// PollInterval returns the dispatch interval.
func (s *Session) PollInterval() time.Duration {
	return s.dispatcher.Interval()
}

// AddFilter registers pred under name, replacing a filter with the same name.
func (s *Session) AddFilter(name string, pred filter.Predicate) {
	s.filters.Add(name, pred)
}

// RemoveFilter removes the filter registered under name.
func (s *Session) RemoveFilter(name string) {
	s.filters.Remove(name)
}

// ClearFilters removes every filter.
func (s *Session) ClearFilters() {
	s.filters.Clear()
}

// FilterNames returns the names of the registered filters.
func (s *Session) FilterNames() []string {
	return s.filters.Names()
}

// All returns a copy of the committed records.
func (s *Session) All() []domain.Record {
	return s.store.All()
}

// Filtered returns the committed records that pass every filter.
func (s *Session) Filtered() []domain.Record {
	return s.store.Filtered(s.filters)
}

// OnBackground queues subsequent start/stop events and suspends record delivery.
func (s *Session) OnBackground() {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	s.logger.Debug("host moved to background")
	s.dispatcher.setBackground(true)
}

// OnForeground delivers a queued start event, the records that piled up
// while in the background, then a queued stop event, and resumes delivery.
func (s *Session) OnForeground() {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	s.logger.Debug("host moved to foreground")

	if s.pendingStart {
		s.pendingStart = false
		s.delivery.post(func(l ports.Listener) { l.OnStart() })
	}

	s.dispatcher.flush()

	if s.pendingStop {
		s.pendingStop = false
		wasError := s.pendingStopErr
		s.delivery.post(func(l ports.Listener) { l.OnStop(wasError) })
	}

	s.dispatcher.setBackground(false)
}

func (s *Session) emitStart() {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if s.dispatcher.Backgrounded() {
		s.pendingStart = true
		s.pendingStop = false
		return
	}
	s.delivery.post(func(l ports.Listener) { l.OnStart() })
}

func (s *Session) emitStop(wasError bool) {
	s.eventMu.Lock()
	defer s.eventMu.Unlock()
	if s.dispatcher.Backgrounded() {
		s.pendingStop = true
		s.pendingStopErr = wasError
		return
	}
	s.delivery.post(func(l ports.Listener) { l.OnStop(wasError) })
}

// Status returns the lifecycle state.
func (s *Session) Status() State {
	return s.lifecycle.State()
}

// DispatchState returns the delivery state.
func (s *Session) DispatchState() DispatchState {
	return s.dispatcher.State()
}

// SessionID returns the id of the live capture run, or "" when idle.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.id
}

// String concatenates the canonical form of every committed record.
func (s *Session) String() string {
	var b strings.Builder
	for _, rec := range s.store.All() {
		b.WriteString(rec.String())
	}
	return b.String()
}
