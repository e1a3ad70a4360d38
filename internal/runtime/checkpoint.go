package runtime

import (
	"fmt"
	"slices"
	"time"

	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Checkpoint captures the whole run, arena included, so it can be persisted.
func (e *Engine) Checkpoint() (*domain.Checkpoint, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return nil, &domain.StepPreconditionError{Op: "checkpoint", Err: domain.ErrNoModel}
	}

	def := e.model.Definition()
	def.Name = e.name
	def.InputString = domain.FormatSymbols(e.input)

	cp := &domain.Checkpoint{
		RunID:       e.runID,
		Definition:  def,
		Input:       slices.Clone(e.input),
		Step:        e.step,
		Phase:       e.phase,
		Nodes:       make([]domain.NodeRecord, len(e.nodes)),
		Frontier:    slices.Clone(e.frontier),
		Generations: make([][]domain.ConfigID, len(e.generations)),
		UpdatedAt:   time.Now().UTC(),
	}
	for i, n := range e.nodes {
		cp.Nodes[i] = domain.NodeRecord{
			State:  n.state,
			Offset: n.offset,
			Stack:  slices.Clone(n.stack),
			Parent: n.parent,
			Rule:   n.rule,
		}
	}
	for i, g := range e.generations {
		cp.Generations[i] = slices.Clone(g)
	}
	return cp, nil
}

// Restore rebuilds an engine from a checkpoint. The definition is validated
// again and every arena link is checked before the engine is returned.
func Restore(cp *domain.Checkpoint, opts ...EngineOption) (*Engine, error) {
	if cp == nil {
		return nil, fmt.Errorf("%w: nil checkpoint", domain.ErrInvalidCheckpoint)
	}
	if len(cp.Sealed) > 0 {
		return nil, fmt.Errorf("%w: checkpoint is sealed", domain.ErrInvalidCheckpoint)
	}
	m, err := automaton.FromDefinition(cp.Definition)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCheckpoint, err)
	}
	if err := checkArena(cp, m); err != nil {
		return nil, err
	}

	if cp.RunID != "" {
		opts = append([]EngineOption{WithRunID(cp.RunID)}, opts...)
	}
	if cp.Definition.Name != "" {
		opts = append([]EngineOption{WithName(cp.Definition.Name)}, opts...)
	}
	e := NewEngine(opts...)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.install(m, cp.Input)
	e.nodes = make([]node, len(cp.Nodes))
	for i, n := range cp.Nodes {
		e.nodes[i] = node{
			state:  n.State,
			offset: n.Offset,
			stack:  slices.Clone(n.Stack),
			parent: n.Parent,
			rule:   n.Rule,
		}
	}
	e.frontier = slices.Clone(cp.Frontier)
	e.generations = make([][]domain.ConfigID, len(cp.Generations))
	for i, g := range cp.Generations {
		e.generations[i] = slices.Clone(g)
	}
	e.step = cp.Step
	e.phase = e.evaluatePhase()
	e.seedPrunerLocked()
	return e, nil
}

func checkArena(cp *domain.Checkpoint, m *automaton.Model) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", domain.ErrInvalidCheckpoint, fmt.Sprintf(format, args...))
	}
	if len(cp.Nodes) == 0 {
		return invalid("no configurations")
	}
	if cp.Nodes[0].Parent != domain.NoParent || cp.Nodes[0].Rule != -1 {
		return invalid("node 0 is not a root")
	}
	if len(cp.Generations) != cp.Step+1 {
		return invalid("%d generations recorded for step %d", len(cp.Generations), cp.Step)
	}
	for i, n := range cp.Nodes {
		if !m.HasState(n.State) {
			return invalid("node %d: unknown state %q", i, n.State)
		}
		if n.Offset < 0 || n.Offset > len(cp.Input) {
			return invalid("node %d: offset %d out of range", i, n.Offset)
		}
		if i == 0 {
			continue
		}
		if n.Parent < 0 || int(n.Parent) >= i {
			return invalid("node %d: parent %d does not precede it", i, n.Parent)
		}
		if n.Rule < 0 || n.Rule >= m.RuleCount() {
			return invalid("node %d: rule %d out of range", i, n.Rule)
		}
	}
	ids := append([][]domain.ConfigID{cp.Frontier}, cp.Generations...)
	for _, g := range ids {
		for _, id := range g {
			if id < 0 || int(id) >= len(cp.Nodes) {
				return invalid("configuration %d not in arena", id)
			}
		}
	}
	return nil
}
