package runner

import (
	"context"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Handler receives the progress of a run.
// This allows switching between Text (CLI) and JSON (structured) output.
type Handler interface {
	// Step is called with the seed snapshot and after every generation.
	Step(ctx context.Context, snap domain.Snapshot) error

	// Finish is called once with the outcome of the run.
	Finish(ctx context.Context, res Result) error
}

// NopHandler discards progress.
type NopHandler struct{}

func (NopHandler) Step(context.Context, domain.Snapshot) error { return nil }
func (NopHandler) Finish(context.Context, Result) error        { return nil }
