package ports

import (
	"context"

	"github.com/aretw0/pdasim/pkg/domain"
)

// RunStore defines the interface for persisting run checkpoints.
// This allows a simulation to be stopped and resumed later.
type RunStore interface {
	// Save persists the checkpoint for a given run ID.
	Save(ctx context.Context, runID string, cp *domain.Checkpoint) error

	// Load retrieves the checkpoint for a given run ID.
	// Returns domain.ErrRunNotFound if the run does not exist.
	Load(ctx context.Context, runID string) (*domain.Checkpoint, error)

	// Delete removes the checkpoint for a given run ID.
	Delete(ctx context.Context, runID string) error

	// List returns all stored run IDs.
	List(ctx context.Context) ([]string, error)
}
