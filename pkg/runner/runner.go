package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopHalted   StopReason = "halted"   // the engine reached a halted phase
	StopAccepted StopReason = "accepted" // WithStopOnAccept saw an accepting configuration
	StopBudget   StopReason = "budget"   // the step budget was spent
	StopCanceled StopReason = "canceled" // the context was canceled between generations
)

// Result is the outcome of a run.
type Result struct {
	Reason   StopReason      `json:"reason"`
	Steps    int             `json:"steps"` // generations computed by this run
	Snapshot domain.Snapshot `json:"snapshot"`
	// Traces holds the path of every accepting configuration when the run
	// accepted, otherwise the path of every frontier member.
	Traces []domain.Trace `json:"traces"`
}

// Accepted reports whether the run ended with an accepted verdict.
func (r Result) Accepted() bool {
	return r.Snapshot.Verdict == domain.VerdictAccepted
}

// Runner drives a ports.Simulator generation by generation.
type Runner struct {
	budget       int
	delay        time.Duration
	stopOnAccept bool
	dedup        bool
	handler      Handler
	logger       *slog.Logger
	store        ports.RunStore
	runID        string
}

// prunable is implemented by engines that accept a frontier policy.
type prunable interface {
	SetPruner(p domain.Pruner)
}

// New creates a Runner with DefaultBudget and no output.
func New(opts ...Option) *Runner {
	r := &Runner{
		budget:  DefaultBudget,
		handler: NopHandler{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run advances sim until it halts, the budget is spent or ctx is canceled.
// Cancellation is only observed between generations and is not an error.
func (r *Runner) Run(ctx context.Context, sim ports.Simulator) (Result, error) {
	if r.dedup {
		if p, ok := sim.(prunable); ok {
			p.SetPruner(NewDedup())
		} else {
			r.logger.Warn("simulator does not accept a pruner, dedup disabled")
		}
	}

	snap := sim.Snapshot()
	if snap.Phase == domain.PhaseIdle {
		return Result{}, &domain.StepPreconditionError{Op: "run", Err: domain.ErrNoModel}
	}
	if err := r.handler.Step(ctx, snap); err != nil {
		return Result{}, fmt.Errorf("handler error: %w", err)
	}

	steps := 0
	var reason StopReason
	for {
		reason = r.stopReason(ctx, snap, steps)
		if reason != "" {
			break
		}
		if steps > 0 && r.delay > 0 {
			select {
			case <-ctx.Done():
				continue
			case <-time.After(r.delay):
			}
		}

		next, err := sim.Advance(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("advance error: %w", err)
		}
		snap = next
		steps++

		if err := r.handler.Step(ctx, snap); err != nil {
			return Result{}, fmt.Errorf("handler error: %w", err)
		}
		if err := r.save(ctx, sim); err != nil {
			return Result{}, fmt.Errorf("critical persistence error: %w", err)
		}
	}

	res := Result{Reason: reason, Steps: steps, Snapshot: snap, Traces: traces(sim, snap)}
	r.logger.Info("run finished",
		"reason", res.Reason,
		"steps", res.Steps,
		"verdict", snap.Verdict,
		"frontier", len(snap.Frontier),
	)
	if err := r.handler.Finish(ctx, res); err != nil {
		return res, fmt.Errorf("handler error: %w", err)
	}
	return res, nil
}

func (r *Runner) stopReason(ctx context.Context, snap domain.Snapshot, steps int) StopReason {
	switch {
	case snap.Phase.Halted():
		return StopHalted
	case r.stopOnAccept && snap.Verdict == domain.VerdictAccepted:
		return StopAccepted
	case ctx.Err() != nil:
		return StopCanceled
	case r.budget > 0 && steps >= r.budget:
		return StopBudget
	}
	return ""
}

func (r *Runner) save(ctx context.Context, sim ports.Simulator) error {
	if r.store == nil || r.runID == "" {
		return nil
	}
	cp, err := sim.Checkpoint()
	if err != nil {
		return err
	}
	cp.RunID = r.runID
	// Persistence must survive a cancellation that arrives mid-run.
	if err := r.store.Save(context.WithoutCancel(ctx), r.runID, cp); err != nil {
		return err
	}
	r.logger.Debug("checkpoint saved", "run_id", r.runID, "step", cp.Step)
	return nil
}

func traces(sim ports.Simulator, snap domain.Snapshot) []domain.Trace {
	if snap.Verdict == domain.VerdictAccepted {
		return sim.AcceptingTraces()
	}
	out := make([]domain.Trace, 0, len(snap.Frontier))
	for _, c := range snap.Frontier {
		if t, err := sim.Trace(c.ID); err == nil {
			out = append(out, t)
		}
	}
	return out
}
