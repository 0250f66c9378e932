package cliconfig

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/bft-labs/logtap/pkg/log"
)

// Logger builds the CLI logger on stderr: console output by default,
// JSON lines when JSONLogs is set. Records go to stdout, so the two never mix.
func (c Config) Logger() zerolog.Logger {
	return c.loggerTo(os.Stderr)
}

func (c Config) loggerTo(out io.Writer) zerolog.Logger {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if c.JSONLogs {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	return log.NewConsoleLogger(out, level)
}
