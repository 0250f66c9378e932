package logtap

import "github.com/bft-labs/logtap/pkg/log"

// Option configures optional behavior of a Tap.
type Option func(*options)

// options holds the optional configuration for a Tap instance.
type options struct {
	logger       log.Logger
	listener     Listener
	poster       Poster
	spawner      Spawner
	resolver     ProcessNameResolver
	eventHandler EventHandler
	plugins      []Plugin
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithListener installs the initial listener.
func WithListener(l Listener) Option {
	return func(o *options) {
		o.listener = l
	}
}

// WithPoster routes listener callbacks through p instead of the Tap's own
// callback loop.
func WithPoster(p Poster) Option {
	return func(o *options) {
		o.poster = p
	}
}

// WithSpawner replaces the os/exec based spawner, mainly for tests.
func WithSpawner(s Spawner) Option {
	return func(o *options) {
		o.spawner = s
	}
}

// WithResolver fills Record.ProcessName using r.
func WithResolver(r ProcessNameResolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithEventHandler sets a handler for lifecycle events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the Tap starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
