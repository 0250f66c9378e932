package cliconfig

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/pkg/log"
)

// Defaults for the capture command.
const (
	DefaultCommand = "logcat"
	DefaultLevel   = "info"
)

var (
	// DefaultFormat selects the long output format, one header line per record.
	DefaultFormat = []string{"-v", "long"}

	DefaultBuffers = []string{"main", "crash", "system"}
)

// Config holds CLI configuration for logtap.
type Config struct {
	Command    string
	Format     []string
	Buffers    []string
	BufferFlag string

	PollInterval time.Duration
	StopTimeout  time.Duration
	JoinTimeout  time.Duration

	// Record filters installed at start.
	MinPriority string
	Tags        []string
	PIDs        []int
	Grep        string

	Export       string
	LogLevel     string
	JSONLogs     bool
	WatchConfig  bool
	ResolveNames bool

	// Restart relaunches a capture that exits unexpectedly.
	Restart bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Command:      DefaultCommand,
		Format:       append([]string(nil), DefaultFormat...),
		Buffers:      append([]string(nil), DefaultBuffers...),
		BufferFlag:   "-b",
		PollInterval: 250 * time.Millisecond,
		StopTimeout:  300 * time.Millisecond,
		JoinTimeout:  2 * time.Second,
		LogLevel:     DefaultLevel,
	}
}

// Validate checks the configuration for errors and normalizes list values.
func (c *Config) Validate() error {
	c.Command = strings.TrimSpace(c.Command)
	if c.Command == "" {
		return fmt.Errorf("%w: command is required", domain.ErrInvalidConfig)
	}
	c.Buffers = compact(c.Buffers)
	c.Tags = compact(c.Tags)

	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", domain.ErrInvalidConfig)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("%w: stop timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("%w: join timeout must be positive", domain.ErrInvalidConfig)
	}
	if c.MinPriority != "" {
		if _, err := domain.ParsePriority(c.MinPriority); err != nil {
			return fmt.Errorf("%w: min priority: %v", domain.ErrInvalidConfig, err)
		}
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log level: %v", domain.ErrInvalidConfig, err)
	}
	return nil
}

// compact returns the trimmed, non-empty entries of values in a new slice.
func compact(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setStrings sets a list value if not empty and flag not changed.
func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInts sets an int list value if not empty and flag not changed.
func (s *configSetter) setInts(flag string, value []int, dst *[]int) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]int(nil), value...)
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setStringsFromString splits a comma-separated list and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setStringsFromString(flag, value string, dst *[]string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = compact(strings.Split(value, ","))
}

// setIntsFromString parses a comma-separated list of ints and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setIntsFromString(flag, value string, dst *[]int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	var out []int
	for _, part := range compact(strings.Split(value, ",")) {
		i, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("parse %s: %w", flag, err)
		}
		out = append(out, i)
	}
	*dst = out
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
