// Package process spawns capture processes on the host OS.
package process

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/logtap/internal/ports"
	"github.com/bft-labs/logtap/pkg/log"
)

// DefaultKillGrace is how long Terminate waits after SIGTERM before it
// kills the process group.
const DefaultKillGrace = 2 * time.Second

// Spawner implements ports.Spawner with os/exec.
// Each child runs in its own process group so Terminate reaches anything
// it forks.
type Spawner struct {
	logger    log.Logger
	env       []string
	dir       string
	killGrace time.Duration
}

// Option configures a Spawner.
type Option func(*Spawner)

// WithEnv appends KEY=VALUE entries to the child's environment.
func WithEnv(env ...string) Option {
	return func(s *Spawner) {
		s.env = append(s.env, env...)
	}
}

// WithDir sets the child's working directory.
func WithDir(dir string) Option {
	return func(s *Spawner) {
		s.dir = dir
	}
}

// WithKillGrace sets how long a terminated child may take to exit before
// its process group is killed.
func WithKillGrace(d time.Duration) Option {
	return func(s *Spawner) {
		s.killGrace = d
	}
}

// NewSpawner creates a Spawner.
func NewSpawner(logger log.Logger, opts ...Option) *Spawner {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Spawner{logger: logger, killGrace: DefaultKillGrace}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spawn starts name with args. The returned process owns the read ends of
// the stdout and stderr pipes.
func (s *Spawner) Spawn(ctx context.Context, name string, args []string) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// os.Pipe instead of cmd.StdoutPipe: Wait must not close the read
	// ends while a drain is still reading buffered output.
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		closeAll(stdoutR, stdoutW)
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	cmd := exec.Command(name, args...)
	cmd.Stdout = stdoutW
	cmd.Stderr = stderrW
	cmd.Dir = s.dir
	if len(s.env) > 0 {
		cmd.Env = append(os.Environ(), s.env...)
	}
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		closeAll(stdoutR, stdoutW, stderrR, stderrW)
		return nil, err
	}
	// The child holds its own copies of the write ends.
	closeAll(stdoutW, stderrW)

	s.logger.Debug("spawned process",
		log.String("name", name),
		log.Int("pid", cmd.Process.Pid),
	)

	return &Process{
		cmd:       cmd,
		stdout:    stdoutR,
		stderr:    stderrR,
		logger:    s.logger,
		killGrace: s.killGrace,
		waited:    make(chan struct{}),
	}, nil
}

// Process is a running child started by Spawner.
type Process struct {
	cmd       *exec.Cmd
	stdout    *os.File
	stderr    *os.File
	logger    log.Logger
	killGrace time.Duration

	exited    atomic.Bool
	waited    chan struct{}
	waitOnce  sync.Once
	waitErr   error
	termOnce  sync.Once
	closeOnce sync.Once
}

var _ ports.Process = (*Process)(nil)

// Stdout returns the child's standard output.
func (p *Process) Stdout() io.Reader { return p.stdout }

// Stderr returns the child's standard error.
func (p *Process) Stderr() io.Reader { return p.stderr }

// Pid returns the child's process id.
func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Wait blocks until the child exits. Later calls return the same result.
func (p *Process) Wait() error {
	p.waitOnce.Do(func() {
		p.waitErr = p.cmd.Wait()
		p.exited.Store(true)
		close(p.waited)
	})
	return p.waitErr
}

// Terminate signals the child's process group unless the child was already
// reaped, then closes the read ends so blocked readers return. A child that
// has not been reaped after the kill grace period has its group killed.
func (p *Process) Terminate() error {
	var err error
	if !p.exited.Load() {
		err = terminate(p.cmd)
		if err != nil {
			p.logger.Debug("signal process", log.Int("pid", p.Pid()), log.Err(err))
		}
		p.termOnce.Do(func() { go p.killAfterGrace() })
	}
	p.closeOnce.Do(func() {
		closeAll(p.stdout, p.stderr)
	})
	return err
}

func (p *Process) killAfterGrace() {
	t := time.NewTimer(p.killGrace)
	defer t.Stop()
	select {
	case <-p.waited:
		return
	case <-t.C:
	}
	p.logger.Debug("process ignored SIGTERM; killing its group",
		log.Int("pid", p.Pid()),
		log.Duration("grace", p.killGrace),
	)
	if err := kill(p.cmd); err != nil {
		p.logger.Debug("kill process", log.Int("pid", p.Pid()), log.Err(err))
	}
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
