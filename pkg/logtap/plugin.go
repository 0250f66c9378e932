package logtap

import (
	"context"
	"time"
)

// Plugin extends a Tap. Plugins are initialized in registration order when
// the Tap starts and shut down in reverse order when it stops.
type Plugin interface {
	// Name identifies the plugin in logs.
	Name() string

	// Initialize is called before the capture process is spawned.
	// Returning an error aborts Start.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases the plugin's resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to Plugin.Initialize.
type PluginConfig struct {
	Logger  Logger
	Control Control
}

// Control is the part of a Tap a plugin may adjust at runtime.
type Control interface {
	SetPollInterval(d time.Duration) error
	PollInterval() time.Duration
	AddFilter(name string, pred Predicate)
	RemoveFilter(name string)
	FilterNames() []string
}

var _ Control = (*Tap)(nil)
