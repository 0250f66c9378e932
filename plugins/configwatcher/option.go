package configwatcher

import "github.com/bft-labs/logtap/pkg/logtap"

// WithConfigWatcher returns a logtap Option that enables config file watching.
// When enabled, the plugin reloads the file whenever it changes.
//
// Usage:
//
//	tap, err := logtap.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        Path:          "/etc/logtap/config.toml",
//	        DebounceDelay: 100 * time.Millisecond,
//	    }),
//	)
func WithConfigWatcher(cfg Config) logtap.Option {
	return logtap.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a logtap Option that watches
// ~/.logtap/config.toml with default settings.
//
// Usage:
//
//	tap, err := logtap.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() logtap.Option {
	return WithConfigWatcher(DefaultConfig())
}
