package runner

import (
	"context"

	"github.com/aretw0/pdasim/pkg/ports"
)

// Handle controls a run started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	res    Result
	err    error
}

// Start runs r on a background goroutine.
func (r *Runner) Start(ctx context.Context, sim ports.Simulator) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.res, h.err = r.Run(ctx, sim)
	}()
	return h
}

// Stop asks the run to end at the next generation boundary.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed when the run has ended.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run ends and returns its outcome.
func (h *Handle) Wait() (Result, error) {
	<-h.done
	return h.res, h.err
}
