package logtap_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/logtap/internal/adapters/fs"
	"github.com/bft-labs/logtap/pkg/logtap"
)

func TestConfig_SetDefaults(t *testing.T) {
	cfg := logtap.DefaultConfig()

	if cfg.Command != "logcat" {
		t.Errorf("Command = %q, want logcat", cfg.Command)
	}
	if !reflect.DeepEqual(cfg.Args, []string{"-v", "long"}) {
		t.Errorf("Args = %v", cfg.Args)
	}
	if !reflect.DeepEqual(cfg.Buffers, []string{"main", "crash", "system"}) {
		t.Errorf("Buffers = %v", cfg.Buffers)
	}
	if cfg.BufferFlag != "-b" {
		t.Errorf("BufferFlag = %q, want -b", cfg.BufferFlag)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Errorf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
	if cfg.StopTimeout != 300*time.Millisecond {
		t.Errorf("StopTimeout = %v, want 300ms", cfg.StopTimeout)
	}
	if cfg.JoinTimeout != 2*time.Second {
		t.Errorf("JoinTimeout = %v, want 2s", cfg.JoinTimeout)
	}
}

func TestConfig_SetDefaultsKeepsEmptyBuffers(t *testing.T) {
	cfg := logtap.Config{Buffers: []string{}}
	cfg.SetDefaults()
	if len(cfg.Buffers) != 0 {
		t.Errorf("Buffers = %v, want empty", cfg.Buffers)
	}
	if got := cfg.CommandLine(); !reflect.DeepEqual(got, []string{"logcat", "-v", "long"}) {
		t.Errorf("CommandLine() = %v", got)
	}
}

func TestConfig_CommandLine(t *testing.T) {
	got := logtap.DefaultConfig().CommandLine()
	want := []string{"logcat", "-v", "long", "-b", "main", "-b", "crash", "-b", "system"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CommandLine() = %v, want %v", got, want)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*logtap.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*logtap.Config) {}},
		{name: "blank command", mutate: func(c *logtap.Config) { c.Command = "  " }, wantErr: true},
		{name: "negative poll", mutate: func(c *logtap.Config) { c.PollInterval = -time.Second }, wantErr: true},
		{name: "negative stop timeout", mutate: func(c *logtap.Config) { c.StopTimeout = -1 }, wantErr: true},
		{name: "negative join timeout", mutate: func(c *logtap.Config) { c.JoinTimeout = -1 }, wantErr: true},
		{name: "empty buffer", mutate: func(c *logtap.Config) { c.Buffers = []string{"main", ""} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := logtap.DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, logtap.ErrInvalidConfig) {
				t.Errorf("error %v does not wrap ErrInvalidConfig", err)
			}
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	_, err := logtap.New(logtap.Config{PollInterval: -time.Second})
	if !errors.Is(err, logtap.ErrInvalidConfig) {
		t.Fatalf("New() error = %v, want ErrInvalidConfig", err)
	}
}

func TestTap_StartDeliversRecords(t *testing.T) {
	sp := &scriptedSpawner{output: entry(10, "I", "Alpha", "one") + entry(11, "E", "Beta", "two")}
	l := &collector{}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp), logtap.WithListener(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if tap.Status() != logtap.StateRunning {
		t.Errorf("Status() = %v, want Running", tap.Status())
	}
	if tap.SessionID() == "" {
		t.Error("SessionID() is empty while running")
	}

	waitFor(t, "two records", func() bool { return len(l.Records()) == 2 })

	recs := l.Records()
	if recs[0].Tag != "Alpha" || recs[1].Tag != "Beta" {
		t.Errorf("tags = %q, %q", recs[0].Tag, recs[1].Tag)
	}
	if recs[1].Priority != logtap.PriorityError || recs[1].Message != "two" {
		t.Errorf("second record = %+v", recs[1])
	}
	if ev := l.Events(); len(ev) == 0 || ev[0] != "start" {
		t.Errorf("events = %v, want start first", ev)
	}

	want := sp.lines[0]
	if !reflect.DeepEqual(want, fastConfig().CommandLine()) {
		t.Errorf("spawned %v, want %v", want, fastConfig().CommandLine())
	}
}

func TestTap_StartTwice(t *testing.T) {
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(&scriptedSpawner{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := tap.Start(context.Background()); !errors.Is(err, logtap.ErrAlreadyRunning) {
		t.Errorf("second Start() error = %v, want ErrAlreadyRunning", err)
	}
}

func TestTap_SpawnFailure(t *testing.T) {
	l := &collector{}
	tap, err := logtap.New(fastConfig(),
		logtap.WithSpawner(&scriptedSpawner{err: errors.New("not found")}),
		logtap.WithListener(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); !errors.Is(err, logtap.ErrSpawnFailed) {
		t.Fatalf("Start() error = %v, want ErrSpawnFailed", err)
	}
	waitFor(t, "start-failed", func() bool {
		ev := l.Events()
		return len(ev) == 1 && ev[0] == "start-failed"
	})
	if tap.Status() != logtap.StateIdle {
		t.Errorf("Status() = %v, want Idle", tap.Status())
	}
}

func TestTap_StopClearsRecordsAndFilters(t *testing.T) {
	sp := &scriptedSpawner{output: entry(1, "W", "T", "kept")}
	l := &collector{}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp), logtap.WithListener(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	tap.AddFilter("warn", logtap.MinPriority(logtap.PriorityWarn))
	waitFor(t, "record", func() bool { return len(tap.All()) == 1 })

	if err := tap.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if n := len(tap.All()); n != 0 {
		t.Errorf("All() has %d records after Stop, want 0", n)
	}
	if names := tap.FilterNames(); len(names) != 0 {
		t.Errorf("FilterNames() = %v after Stop, want none", names)
	}
	if tap.SessionID() != "" {
		t.Errorf("SessionID() = %q after Stop, want empty", tap.SessionID())
	}
	waitFor(t, "stop event", func() bool {
		for _, ev := range l.Events() {
			if ev == "stop(false)" || ev == "stop(true)" {
				return true
			}
		}
		return false
	})
}

func TestTap_Filtered(t *testing.T) {
	sp := &scriptedSpawner{output: entry(1, "D", "Noise", "a") + entry(2, "E", "App", "b")}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "records", func() bool { return len(tap.All()) == 2 })

	tap.AddFilter("errors", logtap.MinPriority(logtap.PriorityError))
	got := tap.Filtered()
	if len(got) != 1 || got[0].Tag != "App" {
		t.Errorf("Filtered() = %+v, want only App", got)
	}

	tap.RemoveFilter("errors")
	if n := len(tap.Filtered()); n != 2 {
		t.Errorf("Filtered() after RemoveFilter has %d records, want 2", n)
	}
}

func TestTap_PauseResume(t *testing.T) {
	sp := &scriptedSpawner{}
	l := &collector{}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp), logtap.WithListener(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "active delivery", func() bool { return tap.DeliveryState() == "Active" })
	tap.Pause()
	if !tap.Paused() || tap.DeliveryState() != "Paused" {
		t.Fatalf("Paused() = %v, DeliveryState() = %q", tap.Paused(), tap.DeliveryState())
	}

	go func() { _, _ = sp.last().outW.Write([]byte(entry(3, "I", "Held", "x"))) }()
	time.Sleep(50 * time.Millisecond)
	if n := len(l.Records()); n != 0 {
		t.Fatalf("delivered %d records while paused", n)
	}

	tap.Resume()
	waitFor(t, "held record", func() bool { return len(l.Records()) == 1 })
}

func TestTap_BackgroundForeground(t *testing.T) {
	sp := &scriptedSpawner{}
	l := &collector{}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp), logtap.WithListener(l))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	tap.OnBackground()
	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := sp.last().outW.Write([]byte(entry(3, "I", "Late", "x"))); err != nil {
		t.Fatalf("write: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(tap.All()); n != 0 {
		t.Errorf("committed %d records while backgrounded", n)
	}
	if ev := l.Events(); len(ev) != 0 {
		t.Fatalf("events while backgrounded = %v, want none", ev)
	}
	waitFor(t, "backgrounded delivery", func() bool { return tap.DeliveryState() == "Backgrounded" })

	tap.OnForeground()
	waitFor(t, "backlog", func() bool { return len(l.Records()) == 1 })
	if n := len(tap.All()); n != 1 {
		t.Errorf("All() has %d records after foreground, want 1", n)
	}
	if ev := l.Events(); ev[0] != "start" {
		t.Errorf("events = %v, want start first", ev)
	}
}

func TestTap_ClosedRejectsStart(t *testing.T) {
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(&scriptedSpawner{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := tap.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tap.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := tap.Start(context.Background()); !errors.Is(err, logtap.ErrClosed) {
		t.Errorf("Start() after Close error = %v, want ErrClosed", err)
	}
}

func TestTap_SetPollInterval(t *testing.T) {
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(&scriptedSpawner{}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.SetPollInterval(0); !errors.Is(err, logtap.ErrInvalidConfig) {
		t.Errorf("SetPollInterval(0) error = %v, want ErrInvalidConfig", err)
	}
	if err := tap.SetPollInterval(time.Second); err != nil {
		t.Fatalf("SetPollInterval() error = %v", err)
	}
	if got := tap.PollInterval(); got != time.Second {
		t.Errorf("PollInterval() = %v, want 1s", got)
	}
}

type stateRecorder struct {
	events chan logtap.StateChangeEvent
}

func (s *stateRecorder) OnStateChange(ev logtap.StateChangeEvent) {
	select {
	case s.events <- ev:
	default:
	}
}

func TestTap_EventHandler(t *testing.T) {
	rec := &stateRecorder{events: make(chan logtap.StateChangeEvent, 16)}
	tap, err := logtap.New(fastConfig(),
		logtap.WithSpawner(&scriptedSpawner{}),
		logtap.WithEventHandler(rec))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	var seen []logtap.State
	timeout := time.After(time.Second)
	for len(seen) < 2 {
		select {
		case ev := <-rec.events:
			seen = append(seen, ev.Current)
		case <-timeout:
			t.Fatalf("saw states %v, want Starting then Running", seen)
		}
	}
	if seen[0] != logtap.StateStarting || seen[1] != logtap.StateRunning {
		t.Errorf("states = %v, want [Starting Running]", seen)
	}
}

func TestTap_WriteToAndExport(t *testing.T) {
	sp := &scriptedSpawner{output: entry(1, "I", "A", "first") + entry(2, "E", "B", "second")}
	tap, err := logtap.New(fastConfig(), logtap.WithSpawner(sp))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tap.Close()

	if err := tap.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	waitFor(t, "records", func() bool { return len(tap.All()) == 2 })

	var buf bytes.Buffer
	n, err := tap.WriteTo(&buf)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("WriteTo() = %d, wrote %d bytes", n, buf.Len())
	}
	if buf.String() != tap.String() {
		t.Errorf("WriteTo() output differs from String()")
	}
	if !strings.Contains(buf.String(), "E/B ]\nsecond\n\n") {
		t.Errorf("output missing second record:\n%s", buf.String())
	}

	tap.AddFilter("errors", logtap.MinPriority(logtap.PriorityError))
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "errors.log.gz")
	if err := tap.Export(path, true); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	got, err := fs.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(got, "first") || !strings.Contains(got, "second") {
		t.Errorf("filtered export = %q", got)
	}

	plain := filepath.Join(dir, "all.log")
	if err := tap.Export(plain, false); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	raw, err := os.ReadFile(plain)
	if err != nil {
		t.Fatalf("os.ReadFile() error = %v", err)
	}
	if string(raw) != buf.String() {
		t.Errorf("plain export differs from WriteTo output")
	}
}
