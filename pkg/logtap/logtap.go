package logtap

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/bft-labs/logtap/internal/adapters/fs"
	"github.com/bft-labs/logtap/internal/adapters/loop"
	"github.com/bft-labs/logtap/internal/adapters/process"
	"github.com/bft-labs/logtap/internal/app"
	"github.com/bft-labs/logtap/pkg/log"
)

// Tap is a capture session that can be embedded in other applications.
// Use New() to create an instance, then Start() to begin capturing.
// A Tap can be started again after Stop.
type Tap struct {
	config  Config
	session *app.Session
	logger  log.Logger
	plugins []Plugin

	// looper is the Tap's own callback loop; nil when WithPoster is used.
	looper *loop.Looper

	mu            sync.Mutex
	pluginsActive int
	closed        bool
}

// New creates a new Tap with the given configuration.
// The instance is created idle; call Start() to spawn the capture process.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Tap, error) {
	// Set defaults
	cfg.SetDefaults()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Apply options
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewNoopLogger()
	}

	var looper *loop.Looper
	poster := o.poster
	if poster == nil {
		looper = loop.New(o.logger)
		looper.Start()
		poster = looper
	}

	spawner := o.spawner
	if spawner == nil {
		spawner = process.NewSpawner(o.logger)
	}

	var observer app.StateObserver
	if o.eventHandler != nil {
		observer = &eventEmitterWrapper{handler: o.eventHandler}
	}

	session := app.NewSession(cfg.sessionConfig(), spawner, poster, o.resolver, o.logger, observer)
	if o.listener != nil {
		session.SetListener(o.listener)
	}

	return &Tap{
		config:  cfg,
		session: session,
		logger:  o.logger,
		plugins: o.plugins,
		looper:  looper,
	}, nil
}

// Config returns the configuration the Tap was created with, defaults applied.
func (t *Tap) Config() Config {
	return t.config
}

// Start initializes plugins and spawns the capture process.
// Returns ErrAlreadyRunning if a capture is live and ErrClosed after Close.
// If the process could not be started the error wraps ErrSpawnFailed and
// the listener receives OnStartFailed.
// The provided context is handed to plugins for their lifetime.
func (t *Tap) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if s := t.session.Status(); s != app.StateIdle && s != app.StateFailed {
		return t.session.Start() // logs the notice and returns ErrAlreadyRunning
	}

	if err := t.initPlugins(ctx); err != nil {
		return err
	}

	if err := t.session.Start(); err != nil {
		t.shutdownPlugins()
		return err
	}
	return nil
}

// initPlugins initializes plugins that are not already running.
// t.mu must be held.
func (t *Tap) initPlugins(ctx context.Context) error {
	if t.pluginsActive > 0 {
		return nil
	}
	pluginCfg := PluginConfig{
		Logger:  t.logger,
		Control: t,
	}
	for _, p := range t.plugins {
		if err := p.Initialize(ctx, pluginCfg); err != nil {
			t.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			t.shutdownPlugins()
			return err
		}
		t.pluginsActive++
		t.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}
	return nil
}

// shutdownPlugins shuts down initialized plugins in reverse order.
// t.mu must be held.
func (t *Tap) shutdownPlugins() {
	shutdownCtx := context.Background()
	for i := t.pluginsActive - 1; i >= 0; i-- {
		p := t.plugins[i]
		if err := p.Shutdown(shutdownCtx); err != nil {
			t.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			t.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
	t.pluginsActive = 0
}

// Stop terminates the capture process, clears all records and filters,
// and shuts plugins down. Stopping an idle Tap is a no-op.
func (t *Tap) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := t.session.Stop()
	t.shutdownPlugins()
	return err
}

// Close stops the Tap, drops the listener and ends its callback loop.
// Callbacks already queued are delivered before Close returns.
func (t *Tap) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	err := t.session.Close()
	t.shutdownPlugins()
	t.mu.Unlock()

	if t.looper != nil {
		t.looper.Close()
	}
	return err
}

// Pause stops record delivery until Resume. Records keep accumulating.
func (t *Tap) Pause() { t.session.Pause() }

// Resume re-enables record delivery; records held back are delivered promptly.
func (t *Tap) Resume() { t.session.Resume() }

// Paused reports whether delivery is paused.
func (t *Tap) Paused() bool { return t.session.Paused() }

// SetListener replaces the listener. An explicit pause survives the swap.
func (t *Tap) SetListener(l Listener) { t.session.SetListener(l) }

// SetPollInterval changes the delivery cycle period.
// Returns ErrInvalidConfig if d is not positive.
func (t *Tap) SetPollInterval(d time.Duration) error { return t.session.SetPollInterval(d) }

// PollInterval returns the delivery cycle period.
func (t *Tap) PollInterval() time.Duration { return t.session.PollInterval() }

// AddFilter registers pred under name, replacing any filter with that name.
func (t *Tap) AddFilter(name string, pred Predicate) { t.session.AddFilter(name, pred) }

// RemoveFilter removes the filter registered under name.
func (t *Tap) RemoveFilter(name string) { t.session.RemoveFilter(name) }

// ClearFilters removes every filter.
func (t *Tap) ClearFilters() { t.session.ClearFilters() }

// FilterNames returns the registered filter names in sorted order.
func (t *Tap) FilterNames() []string { return t.session.FilterNames() }

// All returns a copy of every committed record.
func (t *Tap) All() []Record { return t.session.All() }

// Filtered returns a copy of the committed records that pass every filter.
func (t *Tap) Filtered() []Record { return t.session.Filtered() }

// OnForeground delivers queued start/stop events and the record backlog,
// then resumes delivery.
func (t *Tap) OnForeground() { t.session.OnForeground() }

// OnBackground suspends delivery and queues start/stop events.
func (t *Tap) OnBackground() { t.session.OnBackground() }

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (t *Tap) Status() State { return convertState(t.session.Status()) }

// DeliveryState describes record delivery: "Idle", "Active", "Paused" or
// "Backgrounded".
func (t *Tap) DeliveryState() string { return t.session.DispatchState().String() }

// SessionID identifies the live capture run, or is empty when idle.
func (t *Tap) SessionID() string { return t.session.SessionID() }

// String returns the committed records in their canonical text form.
func (t *Tap) String() string { return t.session.String() }

// WriteTo writes the committed records in canonical text form to w.
func (t *Tap) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	err := fs.WriteRecords(cw, t.All())
	return cw.n, err
}

// Export writes the committed records (only the visible ones when filtered
// is true) to path, gzip-compressed when path ends in ".gz".
func (t *Tap) Export(path string, filtered bool) error {
	recs := t.All()
	if filtered {
		recs = t.Filtered()
	}
	return WriteToFile(recs, path)
}

// WriteToFile writes recs to path in canonical text form. The destination
// is replaced atomically; ".gz" paths are gzip-compressed.
func WriteToFile(recs []Record, path string) error {
	return fs.ExportFile(path, recs)
}

// WriteRecords writes recs to w in canonical text form.
func WriteRecords(w io.Writer, recs []Record) error {
	return fs.WriteRecords(w, recs)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
