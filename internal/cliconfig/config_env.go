package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGTAP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("command", os.Getenv("LOGTAP_COMMAND"), &cfg.Command)
	s.setStringsFromString("format", os.Getenv("LOGTAP_FORMAT"), &cfg.Format)
	s.setStringsFromString("buffer", os.Getenv("LOGTAP_BUFFERS"), &cfg.Buffers)
	s.setString("buffer-flag", os.Getenv("LOGTAP_BUFFER_FLAG"), &cfg.BufferFlag)
	s.setString("min-priority", os.Getenv("LOGTAP_MIN_PRIORITY"), &cfg.MinPriority)
	s.setStringsFromString("tag", os.Getenv("LOGTAP_TAGS"), &cfg.Tags)
	s.setString("grep", os.Getenv("LOGTAP_GREP"), &cfg.Grep)
	s.setString("export", os.Getenv("LOGTAP_EXPORT"), &cfg.Export)
	s.setString("log-level", os.Getenv("LOGTAP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setIntsFromString("pid", os.Getenv("LOGTAP_PIDS"), &cfg.PIDs); err != nil {
		return err
	}

	if err := s.setDuration("poll", os.Getenv("LOGTAP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("stop-timeout", os.Getenv("LOGTAP_STOP_TIMEOUT"), &cfg.StopTimeout); err != nil {
		return err
	}
	if err := s.setDuration("join-timeout", os.Getenv("LOGTAP_JOIN_TIMEOUT"), &cfg.JoinTimeout); err != nil {
		return err
	}

	s.setBoolFromString("json-logs", os.Getenv("LOGTAP_JSON_LOGS"), &cfg.JSONLogs)
	s.setBoolFromString("watch-config", os.Getenv("LOGTAP_WATCH_CONFIG"), &cfg.WatchConfig)
	s.setBoolFromString("resolve-names", os.Getenv("LOGTAP_RESOLVE_NAMES"), &cfg.ResolveNames)
	s.setBoolFromString("restart", os.Getenv("LOGTAP_RESTART"), &cfg.Restart)

	return nil
}
