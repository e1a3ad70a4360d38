package ports

import (
	"context"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Simulator is the stepping surface of an engine.
// Drivers only need this interface, so they never depend on the engine package.
type Simulator interface {
	// Advance computes one generation and returns the resulting snapshot.
	Advance(ctx context.Context) (domain.Snapshot, error)

	// Snapshot returns the current state without advancing.
	Snapshot() domain.Snapshot

	// Trace reconstructs the root-to-leaf path of a configuration.
	Trace(id domain.ConfigID) (domain.Trace, error)

	// AcceptingTraces returns the path of every accepting frontier member.
	AcceptingTraces() []domain.Trace

	// Checkpoint captures the run so it can be persisted.
	Checkpoint() (*domain.Checkpoint, error)
}
