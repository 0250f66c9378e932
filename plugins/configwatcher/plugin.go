// Package configwatcher reloads logtap's configuration file while a Tap runs.
// When the file changes, the poll interval and the configuration-derived
// filters are applied to the Tap; filters added by other code are left alone.
package configwatcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/logtap/internal/cliconfig"
	"github.com/bft-labs/logtap/pkg/log"
	"github.com/bft-labs/logtap/pkg/logtap"
)

// ResolveFunc produces the effective configuration from the file at path.
type ResolveFunc func(path string) (cliconfig.Config, error)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration
	resolve       ResolveFunc

	// Runtime state
	logger   log.Logger
	control  logtap.Control
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch.
	// Default: ~/.logtap/config.toml
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Resolve layers the file over the other configuration sources.
	// Default: the file over built-in defaults and LOGTAP_* variables.
	Resolve ResolveFunc
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:          cliconfig.DefaultConfigPath(),
		DebounceDelay: 100 * time.Millisecond,
		Resolve:       resolveDefaults,
	}
}

func resolveDefaults(path string) (cliconfig.Config, error) {
	return cliconfig.Resolve(cliconfig.DefaultConfig(), path, nil)
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = def.DebounceDelay
	}
	if cfg.Resolve == nil {
		cfg.Resolve = def.Resolve
	}
	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		resolve:       cfg.Resolve,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize applies the current file and starts watching it.
// A missing directory disables watching without failing Start.
func (p *Plugin) Initialize(ctx context.Context, cfg logtap.PluginConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	logger = log.With(logger, log.String("plugin", p.Name()), log.String("path", p.path))

	p.mu.Lock()
	p.logger = logger
	p.control = cfg.Control
	p.mu.Unlock()

	if cfg.Control == nil {
		logger.Warn("config watcher disabled: no control available")
		return nil
	}

	if cliconfig.FileExists(p.path) {
		p.reload()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("config watcher: failed to create watcher", log.Err(err))
		return nil
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		logger.Warn("config watcher disabled: failed to watch directory", log.Err(err))
		_ = watcher.Close()
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	logger.Info("config watcher plugin initialized")

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the watcher. No reload runs after Shutdown returns.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	if p.debounce != nil {
		p.debounce.Stop()
		p.debounce = nil
	}
	p.control = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			p.scheduleReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.currentLogger().Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) scheduleReload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.control == nil {
		return
	}
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, p.reload)
}

// reload resolves the file and applies it. A file that fails to parse or
// validate leaves the running settings untouched.
func (p *Plugin) reload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.control == nil {
		return
	}

	cfg, err := p.resolve(p.path)
	if err != nil {
		p.logger.Warn("config reload rejected", log.Err(err))
		return
	}
	filters, err := cfg.Filters()
	if err != nil {
		p.logger.Warn("config reload rejected", log.Err(err))
		return
	}

	if err := p.control.SetPollInterval(cfg.PollInterval); err != nil {
		p.logger.Warn("config reload: poll interval not applied", log.Err(err))
	}

	for _, name := range p.control.FilterNames() {
		if _, keep := filters[name]; !keep && strings.HasPrefix(name, cliconfig.FilterPrefix) {
			p.control.RemoveFilter(name)
		}
	}
	for name, pred := range filters {
		p.control.AddFilter(name, pred)
	}

	p.logger.Info("config reloaded",
		log.Duration("poll_interval", cfg.PollInterval),
		log.Int("filters", len(filters)))
}

func (p *Plugin) currentLogger() log.Logger {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logger
}

// Ensure Plugin implements logtap.Plugin.
var _ logtap.Plugin = (*Plugin)(nil)
