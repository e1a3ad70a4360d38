package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Loader adapts a Loam repository of automaton documents to ports.DefinitionLoader.
// Frontmatter carries the definition; the document body is its description.
// A fenced ```rules block in the body adds compact rules.
type Loader struct {
	Repo *loam.TypedRepository[DefinitionMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[DefinitionMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Load retrieves a definition by its normalized ID.
func (l *Loader) Load(ctx context.Context, id string) (*domain.Definition, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (loam: %w)", domain.ErrDefinitionNotFound, id, err)
	}

	meta := doc.Data
	def := &domain.Definition{
		Name:               firstNonEmpty(meta.Name, trimExtension(firstNonEmpty(meta.ID, doc.ID))),
		States:             meta.States,
		Alphabet:           meta.Alphabet,
		StackSymbols:       meta.StackSymbols,
		InitialState:       meta.InitialState,
		InitialStackSymbol: meta.InitialStackSymbol,
		AcceptStates:       meta.AcceptStates,
		InputString:        meta.InputString,
		Rules:              meta.Rules,
	}
	for _, t := range meta.Transitions {
		def.Transitions = append(def.Transitions, t.Record())
	}

	body, rules := splitRulesBlock(doc.Content)
	def.Description = strings.TrimSpace(body)
	if rules != "" {
		def.Rules = strings.TrimSpace(def.Rules + "\n" + rules)
	}
	if err := compiler.Expand(def); err != nil {
		return nil, fmt.Errorf("invalid rules in %s: %w", id, err)
	}
	return def, nil
}

// splitRulesBlock extracts the first ```rules fenced block from content.
func splitRulesBlock(content string) (body, rules string) {
	const open = "```rules"
	start := strings.Index(content, open)
	if start < 0 {
		return content, ""
	}
	rest := content[start+len(open):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return content, ""
	}
	return content[:start] + rest[end+3:], rest[:end]
}

// List lists all definitions in the repository.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		id := trimExtension(firstNonEmpty(doc.Data.ID, doc.ID))
		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
