package runtime

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
)

// node is one configuration in the run's arena.
// Remaining input is input[offset:]; rule is -1 for the root.
type node struct {
	state  domain.State
	offset int
	stack  []domain.Symbol
	parent domain.ConfigID
	rule   int
}

// Engine is the nondeterministic stepping core.
// It owns the configuration arena, the current frontier and the history of
// every generation. One writer advances it; any number of readers may observe it.
type Engine struct {
	mu sync.RWMutex

	model  *automaton.Model
	index  *automaton.Index
	labels []string
	input  []domain.Symbol

	nodes       []node
	frontier    []domain.ConfigID
	generations [][]domain.ConfigID
	step        int
	phase       domain.Phase

	runID  string
	name   string
	logger *slog.Logger
	hooks  domain.LifecycleHooks
	pruner domain.Pruner
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger. Generations are logged at debug level.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithPruner installs an explicit frontier policy, applied after every generation.
func WithPruner(p domain.Pruner) EngineOption {
	return func(e *Engine) {
		e.pruner = p
	}
}

// WithRunID tags events, logs and checkpoints with a run identifier.
func WithRunID(id string) EngineOption {
	return func(e *Engine) {
		e.runID = id
	}
}

// WithName keeps the automaton name in checkpoints.
func WithName(name string) EngineOption {
	return func(e *Engine) {
		e.name = name
	}
}

// NewEngine creates an idle engine. Load must be called before Advance.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		phase:  domain.PhaseIdle,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID != "" {
		e.logger = e.logger.With("run_id", e.runID)
	}
	return e
}

// Load installs a model and an input string and seeds the frontier with the
// root configuration. Any previous run is discarded.
func (e *Engine) Load(m *automaton.Model, input []domain.Symbol) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.install(m, input)
	e.seed()
}

func (e *Engine) install(m *automaton.Model, input []domain.Symbol) {
	e.model = m
	e.index = automaton.NewIndex(m)
	e.input = slices.Clone(input)
	e.labels = make([]string, m.RuleCount())
	for i := range e.labels {
		r, _ := m.Rule(i)
		e.labels[i] = r.String()
	}
}

// Reset discards the history and reseeds the current model and input.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return &domain.StepPreconditionError{Op: "reset", Err: domain.ErrNoModel}
	}
	e.seed()
	return nil
}

// SetPruner replaces the frontier policy between generations. nil removes it.
// A domain.PrunerSeeder is seeded with the current arena.
func (e *Engine) SetPruner(p domain.Pruner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pruner = p
	e.seedPrunerLocked()
}

// seedPrunerLocked hands every arena configuration, in ID order, to a
// seeding pruner.
func (e *Engine) seedPrunerLocked() {
	seeder, ok := e.pruner.(domain.PrunerSeeder)
	if !ok || len(e.nodes) == 0 {
		return
	}
	history := make([]domain.ConfigView, len(e.nodes))
	for i := range e.nodes {
		history[i] = e.viewLocked(domain.ConfigID(i))
	}
	seeder.Seed(history)
}

func (e *Engine) seed() {
	root := node{
		state:  e.model.InitialState(),
		stack:  []domain.Symbol{e.model.InitialStackSymbol()},
		parent: domain.NoParent,
		rule:   -1,
	}
	e.nodes = []node{root}
	e.frontier = []domain.ConfigID{0}
	e.generations = [][]domain.ConfigID{{0}}
	e.step = 0
	e.phase = e.evaluatePhase()
	e.seedPrunerLocked()
}

type generationStats struct {
	created int
	dropped int
	pruned  int
}

// Advance expands every member of the frontier by one generation.
// Calling it on a halted engine is a no-op that returns the current snapshot.
func (e *Engine) Advance(ctx context.Context) (domain.Snapshot, error) {
	e.mu.Lock()
	if e.model == nil {
		e.mu.Unlock()
		return domain.Snapshot{Phase: domain.PhaseIdle, Verdict: domain.VerdictPending},
			&domain.StepPreconditionError{Op: "advance", Err: domain.ErrNoModel}
	}
	if e.phase.Halted() {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap, nil
	}

	stats := e.expand()
	e.step++
	e.generations = append(e.generations, slices.Clone(e.frontier))
	e.phase = e.evaluatePhase()

	snap := e.snapshotLocked()
	halted := e.phase.Halted()
	e.mu.Unlock()

	e.logger.Debug("generation",
		"step", snap.Step,
		"frontier", len(snap.Frontier),
		"created", stats.created,
		"dropped", stats.dropped,
		"pruned", stats.pruned,
		"phase", snap.Phase,
	)
	e.emitGeneration(ctx, snap, stats)
	if halted {
		e.emitHalt(ctx, snap)
	}
	return snap, nil
}

// expand builds the next frontier in place. Caller holds the write lock.
func (e *Engine) expand() generationStats {
	var stats generationStats
	next := make([]domain.ConfigID, 0, len(e.frontier))

	for _, id := range e.frontier {
		c := e.nodes[id]
		if len(c.stack) == 0 {
			stats.dropped++
			continue
		}
		top := c.stack[0]
		children := 0

		if c.offset < len(e.input) {
			for _, o := range e.index.Lookup(c.state, e.input[c.offset], top) {
				next = append(next, e.spawn(id, c, o, c.offset+1))
				children++
			}
		}
		for _, o := range e.index.Lookup(c.state, domain.Epsilon, top) {
			next = append(next, e.spawn(id, c, o, c.offset))
			children++
		}

		switch {
		case children > 0:
			stats.created += children
		case c.offset == len(e.input):
			next = append(next, id)
		default:
			stats.dropped++
		}
	}

	if e.pruner != nil {
		kept := next[:0]
		for _, id := range next {
			if e.pruner.Keep(e.viewLocked(id)) {
				kept = append(kept, id)
			} else {
				stats.pruned++
			}
		}
		next = kept
	}

	e.frontier = next
	return stats
}

// spawn appends a child of parent produced by outcome o.
// The stack is freshly allocated: push ++ parent.stack[1:].
func (e *Engine) spawn(parentID domain.ConfigID, parent node, o domain.Outcome, offset int) domain.ConfigID {
	stack := make([]domain.Symbol, 0, len(o.Push)+len(parent.stack)-1)
	stack = append(stack, o.Push...)
	stack = append(stack, parent.stack[1:]...)

	e.nodes = append(e.nodes, node{
		state:  o.To,
		offset: offset,
		stack:  stack,
		parent: parentID,
		rule:   o.Rule,
	})
	return domain.ConfigID(len(e.nodes) - 1)
}

func (e *Engine) accepts(id domain.ConfigID) bool {
	c := e.nodes[id]
	return c.offset == len(e.input) && e.model.IsAccepting(c.state)
}

func (e *Engine) pending(id domain.ConfigID) bool {
	c := e.nodes[id]
	if c.offset < len(e.input) {
		return true
	}
	return len(c.stack) > 0 && e.index.HasEpsilon(c.state, c.stack[0])
}

func (e *Engine) frontierFlags() (accepting, pending bool) {
	for _, id := range e.frontier {
		if !accepting && e.accepts(id) {
			accepting = true
		}
		if !pending && e.pending(id) {
			pending = true
		}
		if accepting && pending {
			break
		}
	}
	return accepting, pending
}

func (e *Engine) evaluatePhase() domain.Phase {
	if len(e.frontier) == 0 {
		return domain.PhaseRejected
	}
	accepting, pending := e.frontierFlags()
	switch {
	case pending:
		return domain.PhaseActive
	case accepting:
		return domain.PhaseAccepted
	default:
		return domain.PhaseStuck
	}
}

func (e *Engine) verdictLocked() domain.Verdict {
	if e.model == nil {
		return domain.VerdictPending
	}
	if len(e.frontier) == 0 {
		return domain.VerdictRejected
	}
	accepting, pending := e.frontierFlags()
	switch {
	case accepting:
		return domain.VerdictAccepted
	case pending:
		return domain.VerdictPending
	default:
		return domain.VerdictRejected
	}
}

func (e *Engine) viewLocked(id domain.ConfigID) domain.ConfigView {
	c := e.nodes[id]
	v := domain.ConfigView{
		ID:             id,
		State:          c.state,
		RemainingInput: slices.Clone(e.input[c.offset:]),
		Stack:          slices.Clone(c.stack),
		Parent:         c.parent,
		HasParent:      c.parent != domain.NoParent,
	}
	if c.rule >= 0 {
		v.Label = e.labels[c.rule]
	}
	return v
}

func (e *Engine) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		Step:     e.step,
		Phase:    e.phase,
		Verdict:  e.verdictLocked(),
		Frontier: make([]domain.ConfigView, 0, len(e.frontier)),
	}
	for _, id := range e.frontier {
		snap.Frontier = append(snap.Frontier, e.viewLocked(id))
	}
	return snap
}

// Snapshot returns the current step, phase, verdict and frontier.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotLocked()
}

// Verdict evaluates the current frontier.
func (e *Engine) Verdict() domain.Verdict {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.verdictLocked()
}

// Phase returns the lifecycle position of the engine.
func (e *Engine) Phase() domain.Phase {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.phase
}

// Step returns the number of generations computed so far.
func (e *Engine) Step() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.step
}

// Pending reports whether more generations could change the verdict.
func (e *Engine) Pending() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.model == nil {
		return false
	}
	_, pending := e.frontierFlags()
	return pending
}

// Model returns the loaded automaton, or nil while idle.
func (e *Engine) Model() *automaton.Model {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.model
}

// Input returns the run input.
func (e *Engine) Input() []domain.Symbol {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return slices.Clone(e.input)
}

// Size returns the number of configurations ever created in this run.
func (e *Engine) Size() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.nodes)
}

// RunID returns the identifier given with WithRunID.
func (e *Engine) RunID() string {
	return e.runID
}

// Config returns the configuration with the given ID.
func (e *Engine) Config(id domain.ConfigID) (domain.ConfigView, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.known(id) {
		return domain.ConfigView{}, domain.ErrUnknownConfig
	}
	return e.viewLocked(id), nil
}

// Generation returns the frontier as it was after k generations.
func (e *Engine) Generation(k int) ([]domain.ConfigView, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if k < 0 || k >= len(e.generations) {
		return nil, domain.ErrUnknownConfig
	}
	out := make([]domain.ConfigView, 0, len(e.generations[k]))
	for _, id := range e.generations[k] {
		out = append(out, e.viewLocked(id))
	}
	return out, nil
}

func (e *Engine) known(id domain.ConfigID) bool {
	return id >= 0 && int(id) < len(e.nodes)
}

func (e *Engine) emitGeneration(ctx context.Context, snap domain.Snapshot, stats generationStats) {
	if e.hooks.OnGeneration == nil {
		return
	}
	e.hooks.OnGeneration(ctx, &domain.GenerationEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventGeneration, RunID: e.runID},
		Step:      snap.Step,
		Frontier:  len(snap.Frontier),
		Created:   stats.created,
		Dropped:   stats.dropped,
		Pruned:    stats.pruned,
		Phase:     snap.Phase,
		Verdict:   snap.Verdict,
	})
}

func (e *Engine) emitHalt(ctx context.Context, snap domain.Snapshot) {
	if e.hooks.OnHalt == nil {
		return
	}
	e.hooks.OnHalt(ctx, &domain.HaltEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventHalt, RunID: e.runID},
		Step:      snap.Step,
		Phase:     snap.Phase,
		Verdict:   snap.Verdict,
		Configs:   e.Size(),
	})
}
