package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Command      string   `toml:"command"`
	Format       []string `toml:"format"`
	Buffers      []string `toml:"buffers"`
	BufferFlag   string   `toml:"buffer_flag"`
	PollInterval string   `toml:"poll_interval"`
	StopTimeout  string   `toml:"stop_timeout"`
	JoinTimeout  string   `toml:"join_timeout"`
	MinPriority  string   `toml:"min_priority"`
	Tags         []string `toml:"tags"`
	PIDs         []int    `toml:"pids"`
	Grep         string   `toml:"grep"`
	Export       string   `toml:"export"`
	LogLevel     string   `toml:"log_level"`
	JSONLogs     *bool    `toml:"json_logs"`
	WatchConfig  *bool    `toml:"watch_config"`
	ResolveNames *bool    `toml:"resolve_names"`
	Restart      *bool    `toml:"restart"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.logtap/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logtap", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("command", fc.Command, &cfg.Command)
	s.setStrings("format", fc.Format, &cfg.Format)
	s.setStrings("buffer", fc.Buffers, &cfg.Buffers)
	s.setString("buffer-flag", fc.BufferFlag, &cfg.BufferFlag)
	s.setString("min-priority", fc.MinPriority, &cfg.MinPriority)
	s.setStrings("tag", fc.Tags, &cfg.Tags)
	s.setInts("pid", fc.PIDs, &cfg.PIDs)
	s.setString("grep", fc.Grep, &cfg.Grep)
	s.setString("export", fc.Export, &cfg.Export)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", fc.StopTimeout, &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("join-timeout", fc.JoinTimeout, &cfg.JoinTimeout); err != nil {
		return err
	}

	s.setBool("json-logs", fc.JSONLogs, &cfg.JSONLogs)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)
	s.setBool("resolve-names", fc.ResolveNames, &cfg.ResolveNames)
	s.setBool("restart", fc.Restart, &cfg.Restart)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Resolve layers the config file at path (when it exists) and LOGTAP_*
// environment variables over cfg, skipping changed flags, then validates
// the result. cfg itself is not modified.
func Resolve(cfg Config, path string, changed map[string]bool) (Config, error) {
	if path != "" && FileExists(path) {
		fc, err := LoadFileConfig(path)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		if err := ApplyFileConfig(&cfg, fc, changed); err != nil {
			return cfg, err
		}
	}

	// Env overrides file config but is overridden by flags (checked via changed map)
	if err := ApplyEnvConfig(&cfg, changed); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
