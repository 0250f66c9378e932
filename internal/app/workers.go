package app

import (
	"sync"
	"time"

	"github.com/sourcegraph/conc/panics"

	"github.com/bft-labs/logtap/internal/domain"
	"github.com/bft-labs/logtap/pkg/log"
)

// Workers tracks the goroutines of one capture run.
// A panicking worker is recovered and logged instead of crashing the host.
type Workers struct {
	wg     sync.WaitGroup
	logger log.Logger
}

// NewWorkers creates an empty worker group.
func NewWorkers(logger log.Logger) *Workers {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Workers{logger: logger}
}

// Go runs fn on a new goroutine. The returned channel is closed when fn returns.
func (w *Workers) Go(name string, fn func()) <-chan struct{} {
	done := make(chan struct{})
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer close(done)

		var pc panics.Catcher
		pc.Try(fn)
		if r := pc.Recovered(); r != nil {
			w.logger.Error("worker panicked",
				log.String("worker", name),
				log.Err(r.AsError()),
			)
		}
	}()
	return done
}

// WaitWithTimeout waits for all workers to finish with a timeout.
// Returns ErrShutdownTimeout if the timeout expires; the remaining workers
// are abandoned, not interrupted.
func (w *Workers) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		w.logger.Debug("workers did not finish in time",
			log.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
