package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/logtap/internal/adapters/procfs"
	"github.com/bft-labs/logtap/internal/cliconfig"
	"github.com/bft-labs/logtap/pkg/log"
	"github.com/bft-labs/logtap/pkg/logtap"
	"github.com/bft-labs/logtap/plugins/configwatcher"
)

const helpDescription = `
Stream a device log capture to stdout, filter it as it arrives, and export it on exit.

Highlights:
  - Runs logcat (or any command printing the long format) and parses each record.
  - Filters by priority, tag, pid or message text; configure via file, env, or flags.
  - SIGUSR1 holds delivery, SIGUSR2 releases the backlog.
  - Optional export to a plain or gzip-compressed file on shutdown.
`

var exampleUsage = strings.TrimSpace(`
  logtap --min-priority W --tag ActivityManager
  logtap --buffer main --buffer events --export /tmp/capture.log.gz
  logtap --command adb --format shell,logcat,-v,long --watch-config
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:          "logtap",
		Short:        "Stream, filter and export device log records",
		Long:         strings.TrimSpace(helpDescription),
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			// Build set of changed flags
			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			flagCfg := cfg
			resolved, err := cliconfig.Resolve(flagCfg, cfgFile, changed)
			if err != nil {
				return err
			}

			zl := resolved.Logger()
			zl.Info().Interface("config", resolved).Msg("configuration")

			return run(cmd.Context(), resolved, zl, cfgFile, func(path string) (cliconfig.Config, error) {
				return cliconfig.Resolve(flagCfg, path, changed)
			})
		},
	}

	f := root.Flags()
	f.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.logtap/config.toml)")
	f.StringVar(&cfg.Command, "command", cfg.Command, "capture executable")
	f.StringSliceVar(&cfg.Format, "format", cfg.Format, "arguments placed right after the command")
	f.StringSliceVar(&cfg.Buffers, "buffer", cfg.Buffers, "log buffer to capture (repeatable)")
	f.StringVar(&cfg.BufferFlag, "buffer-flag", cfg.BufferFlag, "flag preceding each buffer name")

	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "delivery cycle period")
	f.DurationVar(&cfg.StopTimeout, "stop-timeout", cfg.StopTimeout, "how long stop waits for the capture to wind down")
	f.DurationVar(&cfg.JoinTimeout, "join-timeout", cfg.JoinTimeout, "how long a finished capture waits for its workers")

	f.StringVar(&cfg.MinPriority, "min-priority", cfg.MinPriority, "lowest priority shown (V, D, I, W, E, F, A)")
	f.StringSliceVar(&cfg.Tags, "tag", cfg.Tags, "only show these tags (repeatable)")
	f.IntSliceVar(&cfg.PIDs, "pid", cfg.PIDs, "only show these process ids (repeatable)")
	f.StringVar(&cfg.Grep, "grep", cfg.Grep, "only show messages containing this text")

	f.StringVar(&cfg.Export, "export", cfg.Export, "write the visible records to this file on exit (.gz compresses)")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "diagnostic log level (debug, info, warn, error)")
	f.BoolVar(&cfg.JSONLogs, "json-logs", cfg.JSONLogs, "emit diagnostic logs as JSON")
	f.BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload filters and poll interval when the config file changes")
	f.BoolVar(&cfg.ResolveNames, "resolve-names", cfg.ResolveNames, "resolve process names from /proc")
	f.BoolVar(&cfg.Restart, "restart", cfg.Restart, "relaunch the capture with backoff when it exits unexpectedly")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// run captures until interrupted or until the capture process exits.
func run(ctx context.Context, cfg cliconfig.Config, zl zerolog.Logger, cfgFile string, resolve configwatcher.ResolveFunc) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := log.NewZerologAdapterWithLogger(zl)
	out := &printer{w: os.Stdout, logger: logger, stopped: make(chan bool, 1)}

	opts := []logtap.Option{
		logtap.WithLogger(logger),
		logtap.WithListener(out),
	}
	if cfg.ResolveNames {
		if res, err := procfs.NewResolver(procfs.DefaultRoot); err != nil {
			logger.Warn("process names unavailable", log.Err(err))
		} else {
			opts = append(opts, logtap.WithResolver(res))
		}
	}
	if cfg.WatchConfig && cfgFile != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
			Path:    cfgFile,
			Resolve: resolve,
		}))
	}

	tap, err := logtap.New(logtap.Config{
		Command:      cfg.Command,
		Args:         cfg.Format,
		Buffers:      nonNil(cfg.Buffers),
		BufferFlag:   cfg.BufferFlag,
		PollInterval: cfg.PollInterval,
		StopTimeout:  cfg.StopTimeout,
		JoinTimeout:  cfg.JoinTimeout,
	}, opts...)
	if err != nil {
		return fmt.Errorf("create tap: %w", err)
	}

	filters, err := cfg.Filters()
	if err != nil {
		return err
	}
	for name, pred := range filters {
		tap.AddFilter(name, pred)
	}

	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	notifyHostSignals(sigCh)
	defer signal.Stop(sigCh)

	if err := tap.Start(ctx); err != nil {
		_ = tap.Close()
		return fmt.Errorf("start capture: %w", err)
	}

	var (
		failed    bool
		restartC  <-chan time.Time
		startedAt = time.Now()
		bo        = newBackoff(restartInitialDelay, restartMaxDelay)
	)
wait:
	for {
		select {
		case sig := <-sigCh:
			if handleHostSignal(tap, sig) {
				logger.Info("host signal handled", log.String("signal", sig.String()),
					log.String("delivery", tap.DeliveryState()))
				continue
			}
			logger.Info("received signal, stopping", log.String("signal", sig.String()))
			break wait
		case wasError := <-out.stopped:
			if !wasError || !cfg.Restart {
				failed = wasError
				break wait
			}
			if time.Since(startedAt) > restartMaxDelay {
				bo.reset()
			}
			delay := bo.next()
			logger.Warn("capture exited, restarting", log.Duration("delay", delay))
			restartC = time.After(delay)
		case <-restartC:
			restartC = nil
			startedAt = time.Now()
			if err := tap.Start(ctx); err != nil {
				delay := bo.next()
				logger.Warn("restart failed", log.Err(err), log.Duration("delay", delay))
				restartC = time.After(delay)
			}
		case <-ctx.Done():
			break wait
		}
	}

	// Export before Close: stopping clears the store.
	if cfg.Export != "" {
		if err := tap.Export(cfg.Export, true); err != nil {
			logger.Error("export failed", log.String("path", cfg.Export), log.Err(err))
		} else {
			logger.Info("export written", log.String("path", cfg.Export),
				log.Int("records", len(tap.Filtered())))
		}
	}

	if err := tap.Close(); err != nil {
		return fmt.Errorf("stop capture: %w", err)
	}
	if failed {
		return fmt.Errorf("capture process %q exited unexpectedly", cfg.Command)
	}
	return nil
}

// nonNil keeps an explicitly empty buffer list empty instead of defaulted.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// printer writes delivered records to w.
type printer struct {
	logtap.BaseListener

	mu      sync.Mutex
	w       io.Writer
	logger  log.Logger
	stopped chan bool
}

func (p *printer) OnStart() {
	p.logger.Info("capture started")
}

func (p *printer) OnStartFailed() {
	p.logger.Error("capture failed to start")
}

func (p *printer) OnStop(wasError bool) {
	select {
	case p.stopped <- wasError:
	default:
	}
}

func (p *printer) OnRecord(rec logtap.Record) {
	p.OnRecordBatch([]logtap.Record{rec})
}

func (p *printer) OnRecordBatch(recs []logtap.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var b strings.Builder
	for _, rec := range recs {
		b.WriteString(displayRecord(rec))
	}
	if _, err := io.WriteString(p.w, b.String()); err != nil {
		p.logger.Warn("write records failed", log.Err(err))
	}
}

// displayRecord is the canonical text of rec with the resolved process
// name, when known, appended to the header line.
func displayRecord(rec logtap.Record) string {
	if rec.ProcessName == "" {
		return rec.String()
	}
	return rec.Header() + " " + rec.ProcessName + "\n" + rec.Message + "\n\n"
}
