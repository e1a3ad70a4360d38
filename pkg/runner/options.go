package runner

import (
	"log/slog"
	"time"

	"github.com/aretw0/pdasim/pkg/ports"
)

// DefaultBudget bounds runs that do not set WithBudget.
const DefaultBudget = 1000

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithBudget caps the number of generations. n <= 0 removes the cap.
func WithBudget(n int) Option {
	return func(r *Runner) {
		r.budget = n
	}
}

// WithDelay pauses between generations, like an animation speed.
func WithDelay(d time.Duration) Option {
	return func(r *Runner) {
		r.delay = d
	}
}

// WithStopOnAccept stops as soon as the verdict becomes accepted,
// even if other branches are still pending.
func WithStopOnAccept() Option {
	return func(r *Runner) {
		r.stopOnAccept = true
	}
}

// WithDedup installs a Dedup pruner into simulators that accept one.
func WithDedup() Option {
	return func(r *Runner) {
		r.dedup = true
	}
}

// WithHandler configures the progress handler.
func WithHandler(h Handler) Option {
	return func(r *Runner) {
		r.handler = h
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithStore checkpoints the run after every generation.
// The run ID is required for persistence.
func WithStore(store ports.RunStore, runID string) Option {
	return func(r *Runner) {
		r.store = store
		r.runID = runID
	}
}
