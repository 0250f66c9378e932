package logtap

import (
	"fmt"
	"strings"
	"time"

	"github.com/bft-labs/logtap/internal/app"
)

// Config describes the capture command and delivery timing.
type Config struct {
	// Command is the capture executable.
	// Default: "logcat"
	Command string

	// Args are placed right after Command.
	// Default: ["-v", "long"]
	Args []string

	// Buffers are the log sources to capture; each adds BufferFlag and the
	// name to the command line. A nil slice selects the defaults; an empty
	// non-nil slice captures without buffer arguments.
	// Default: ["main", "crash", "system"]
	Buffers []string

	// BufferFlag precedes each buffer name.
	// Default: "-b"
	BufferFlag string

	// PollInterval is the delivery cycle period.
	// Default: 250ms
	PollInterval time.Duration

	// StopTimeout bounds how long Stop waits for the capture to wind down.
	// Default: 300ms
	StopTimeout time.Duration

	// JoinTimeout bounds how long a finished capture waits for its workers.
	// Default: 2s
	JoinTimeout time.Duration
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.Command == "" {
		c.Command = "logcat"
	}
	if c.Args == nil {
		c.Args = []string{"-v", "long"}
	}
	if c.Buffers == nil {
		c.Buffers = []string{"main", "crash", "system"}
	}
	if c.BufferFlag == "" {
		c.BufferFlag = "-b"
	}
	if c.PollInterval == 0 {
		c.PollInterval = app.DefaultPollInterval
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = app.DefaultStopTimeout
	}
	if c.JoinTimeout == 0 {
		c.JoinTimeout = app.DefaultJoinTimeout
	}
}

// Validate checks the configuration for errors.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return fmt.Errorf("%w: command is required", ErrInvalidConfig)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("%w: stop timeout must be positive", ErrInvalidConfig)
	}
	if c.JoinTimeout <= 0 {
		return fmt.Errorf("%w: join timeout must be positive", ErrInvalidConfig)
	}
	for _, b := range c.Buffers {
		if strings.TrimSpace(b) == "" {
			return fmt.Errorf("%w: empty buffer name", ErrInvalidConfig)
		}
	}
	return nil
}

// CommandLine returns the command and arguments a Tap spawns.
func (c Config) CommandLine() []string {
	return append([]string{c.Command}, c.sessionConfig().CommandArgs()...)
}

func (c Config) sessionConfig() app.SessionConfig {
	return app.SessionConfig{
		Command:      c.Command,
		Args:         c.Args,
		BufferFlag:   c.BufferFlag,
		Buffers:      c.Buffers,
		PollInterval: c.PollInterval,
		StopTimeout:  c.StopTimeout,
		JoinTimeout:  c.JoinTimeout,
	}
}
