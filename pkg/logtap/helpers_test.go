package logtap_test

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/logtap/pkg/logtap"
)

// pipeProcess is a capture process whose output is written by the test.
type pipeProcess struct {
	out     *io.PipeReader
	outW    *io.PipeWriter
	exited  chan struct{}
	once    sync.Once
	exitErr error
}

func newPipeProcess() *pipeProcess {
	r, w := io.Pipe()
	return &pipeProcess{out: r, outW: w, exited: make(chan struct{})}
}

func (p *pipeProcess) Stdout() io.Reader { return p.out }
func (p *pipeProcess) Stderr() io.Reader { return strings.NewReader("") }
func (p *pipeProcess) Pid() int          { return 1 }

func (p *pipeProcess) Wait() error {
	<-p.exited
	return p.exitErr
}

func (p *pipeProcess) Terminate() error {
	p.exit(fmt.Errorf("terminated"))
	return nil
}

func (p *pipeProcess) exit(err error) {
	p.once.Do(func() {
		p.exitErr = err
		_ = p.outW.Close()
		close(p.exited)
	})
}

// scriptedSpawner starts pipe processes, optionally pre-loaded with output.
type scriptedSpawner struct {
	mu     sync.Mutex
	output string
	err    error
	procs  []*pipeProcess
	lines  [][]string
}

func (s *scriptedSpawner) Spawn(ctx context.Context, name string, args []string) (logtap.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, append([]string{name}, args...))
	if s.err != nil {
		return nil, s.err
	}
	p := newPipeProcess()
	s.procs = append(s.procs, p)
	if s.output != "" {
		out := s.output
		go func() { _, _ = io.WriteString(p.outW, out) }()
	}
	return p, nil
}

func (s *scriptedSpawner) last() *pipeProcess {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[len(s.procs)-1]
}

// collector records listener callbacks.
type collector struct {
	logtap.BaseListener

	mu      sync.Mutex
	events  []string
	records []logtap.Record
}

func (c *collector) note(ev string, recs ...logtap.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	c.records = append(c.records, recs...)
}

func (c *collector) OnStart()                           { c.note("start") }
func (c *collector) OnStartFailed()                     { c.note("start-failed") }
func (c *collector) OnStop(wasError bool)               { c.note(fmt.Sprintf("stop(%t)", wasError)) }
func (c *collector) OnRecord(rec logtap.Record)         { c.note("record", rec) }
func (c *collector) OnRecordBatch(recs []logtap.Record) { c.note("batch", recs...) }

func (c *collector) Events() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *collector) Records() []logtap.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]logtap.Record(nil), c.records...)
}

func entry(pid int, prio, tag, msg string) string {
	return fmt.Sprintf("[ 05-06 07:08:09.010  %d:%d %s/%s ]\n%s\n\n", pid, pid, prio, tag, msg)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fastConfig() logtap.Config {
	cfg := logtap.DefaultConfig()
	cfg.PollInterval = 5 * time.Millisecond
	return cfg
}
