package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/pkg/log"
)

// mockLogger implements log.Logger for testing.
type mockLogger struct{}

func (mockLogger) Debug(msg string, fields ...log.Field) {}
func (mockLogger) Info(msg string, fields ...log.Field)  {}
func (mockLogger) Warn(msg string, fields ...log.Field)  {}
func (mockLogger) Error(msg string, fields ...log.Field) {}

// mockObserver tracks state change events for testing.
type mockObserver struct {
	mu     sync.Mutex
	events []stateChangeEvent
}

type stateChangeEvent struct {
	previous State
	current  State
	reason   string
}

func (m *mockObserver) OnStateChange(previous, current State, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, stateChangeEvent{previous, current, reason})
}

func (m *mockObserver) Events() []stateChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]stateChangeEvent{}, m.events...)
}

// recordingListener records every callback as a short event string.
type recordingListener struct {
	mu      sync.Mutex
	events  []string
	records []domain.Record
}

func (l *recordingListener) add(ev string, recs ...domain.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	l.records = append(l.records, recs...)
}

func (l *recordingListener) OnStart()       { l.add("start") }
func (l *recordingListener) OnStartFailed() { l.add("start-failed") }
func (l *recordingListener) OnStop(wasError bool) {
	l.add(fmt.Sprintf("stop(%t)", wasError))
}
func (l *recordingListener) OnRecord(rec domain.Record) { l.add("record:"+rec.Tag, rec) }
func (l *recordingListener) OnRecordBatch(recs []domain.Record) {
	tags := make([]string, len(recs))
	for i, r := range recs {
		tags[i] = r.Tag
	}
	l.add("batch:"+strings.Join(tags, ","), recs...)
}

func (l *recordingListener) Events() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.events...)
}

func (l *recordingListener) Records() []domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Record{}, l.records...)
}

func (l *recordingListener) has(ev string) bool {
	for _, e := range l.Events() {
		if e == ev {
			return true
		}
	}
	return false
}

// fakeProcess is a capture process backed by in-memory pipes.
type fakeProcess struct {
	stdoutR *io.PipeReader
	stdoutW *io.PipeWriter
	stderrR *io.PipeReader
	stderrW *io.PipeWriter

	exited     chan struct{}
	exitOnce   sync.Once
	exitErr    error
	ignoreTerm bool

	mu         sync.Mutex
	terminated int
}

func newFakeProcess() *fakeProcess {
	p := &fakeProcess{exited: make(chan struct{})}
	p.stdoutR, p.stdoutW = io.Pipe()
	p.stderrR, p.stderrW = io.Pipe()
	return p
}

func (p *fakeProcess) Stdout() io.Reader { return p.stdoutR }
func (p *fakeProcess) Stderr() io.Reader { return p.stderrR }
func (p *fakeProcess) Pid() int          { return 4242 }

func (p *fakeProcess) Wait() error {
	<-p.exited
	return p.exitErr
}

// exit simulates the process ending on its own.
func (p *fakeProcess) exit(err error) {
	p.exitOnce.Do(func() {
		p.exitErr = err
		_ = p.stdoutW.Close()
		_ = p.stderrW.Close()
		close(p.exited)
	})
}

func (p *fakeProcess) Terminate() error {
	p.mu.Lock()
	p.terminated++
	ignore := p.ignoreTerm
	p.mu.Unlock()
	if !ignore {
		p.exit(errors.New("signal: terminated"))
	}
	return nil
}

func (p *fakeProcess) Terminated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminated
}

// write emits raw text on the primary stream.
func (p *fakeProcess) write(t *testing.T, text string) {
	t.Helper()
	if _, err := io.WriteString(p.stdoutW, text); err != nil {
		t.Fatalf("write to fake stdout: %v", err)
	}
}

// fakeSpawner hands out fake processes and records the command lines.
type fakeSpawner struct {
	mu         sync.Mutex
	err        error
	procs      []*fakeProcess
	calls      [][]string
	ignoreTerm bool
}

func (s *fakeSpawner) Spawn(ctx context.Context, name string, args []string) (ports.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.err != nil {
		return nil, s.err
	}
	p := newFakeProcess()
	p.ignoreTerm = s.ignoreTerm
	s.procs = append(s.procs, p)
	return p, nil
}

func (s *fakeSpawner) last() *fakeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil
	}
	return s.procs[len(s.procs)-1]
}

// entry renders one record in the long capture format.
func entry(pid int, prio, tag, msg string) string {
	return fmt.Sprintf("[ 01-02 03:04:05.678  %d:%d %s/%s ]\n%s\n\n", pid, pid, prio, tag, msg)
}

// waitFor polls cond until it holds or the timeout expires.
func waitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
