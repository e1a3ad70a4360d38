package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Loader implements ports.DefinitionLoader using an in-memory map.
type Loader struct {
	defs map[string]domain.Definition
}

// NewLoader creates a Loader from raw documents (JSON or YAML).
func NewLoader(data map[string]string) (*Loader, error) {
	parser := compiler.NewParser()
	defs := make(map[string]domain.Definition, len(data))
	for id, raw := range data {
		def, err := parser.Parse([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse definition %s: %w", id, err)
		}
		defs[id] = *def
	}
	return &Loader{defs: defs}, nil
}

// NewFromDefinitions creates a Loader from domain values, keyed by Name.
func NewFromDefinitions(defs ...domain.Definition) (*Loader, error) {
	out := make(map[string]domain.Definition, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("definition missing name")
		}
		if err := compiler.Expand(&d); err != nil {
			return nil, fmt.Errorf("failed to expand rules of %s: %w", d.Name, err)
		}
		out[d.Name] = d
	}
	return &Loader{defs: out}, nil
}

// Load returns a copy of the definition stored under id.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Definition, error) {
	def, ok := l.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, id)
	}
	out := def.Clone()
	return &out, nil
}

// List returns all definition IDs in sorted order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
