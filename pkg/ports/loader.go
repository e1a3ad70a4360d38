package ports

import (
	"context"

	"github.com/aretw0/pdasim/pkg/domain"
)

// DefinitionLoader defines how automaton definitions are retrieved.
// This allows the storage layer (Loam, FS, Memory) to be decoupled.
type DefinitionLoader interface {
	// Load retrieves a definition by ID. Compact rule notation is already
	// expanded into transitions. Unknown IDs yield domain.ErrDefinitionNotFound.
	Load(ctx context.Context, id string) (*domain.Definition, error)

	// List returns the IDs of every definition available.
	List(ctx context.Context) ([]string, error)
}
