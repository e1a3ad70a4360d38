package pdasim

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/loam"
	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/internal/runtime"
	loamAdapter "github.com/aretw0/pdasim/pkg/adapters/loam"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/aretw0/pdasim/pkg/runner"
)

// Version is the library version reported by the CLI.
const Version = "0.3.0"

// Engine is the high-level entry point for the library.
// It wraps the internal runtime and provides a simplified API for consumers.
type Engine struct {
	runtime *runtime.Engine
	model   *automaton.Model
	hooks   domain.LifecycleHooks
	pruner  domain.Pruner
	logger  *slog.Logger
	runID   string
	ingest  []automaton.Option
	Name    string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithPruner installs an explicit frontier policy.
func WithPruner(p domain.Pruner) Option {
	return func(e *Engine) {
		e.pruner = p
	}
}

// WithRunID tags events, logs and checkpoints with a run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// WithAutoDeclare adds push symbols missing from the stack alphabet instead
// of rejecting the definition.
func WithAutoDeclare() Option {
	return func(e *Engine) {
		e.ingest = append(e.ingest, automaton.WithAutoDeclare())
	}
}

func configure(opts []Option) *Engine {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}
	// Ensure logger is initialized (so we don't pass nil to runtime)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	return eng
}

func (e *Engine) runtimeOptions() []runtime.EngineOption {
	logger := e.logger
	if e.Name != "" {
		logger = logger.With("automaton", e.Name)
	}
	return []runtime.EngineOption{
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(e.hooks),
		runtime.WithPruner(e.pruner),
		runtime.WithRunID(e.runID),
		runtime.WithName(e.Name),
	}
}

// New validates def and seeds an engine with def.InputString.
// Rules written in compact notation are expanded first.
// Validation failures are returned as an *automaton.AggregateError.
func New(def domain.Definition, opts ...Option) (*Engine, error) {
	eng := configure(opts)
	def = def.Clone()
	if err := compiler.Expand(&def); err != nil {
		return nil, err
	}
	m, err := automaton.FromDefinition(def, eng.ingest...)
	if err != nil {
		return nil, err
	}
	if added := m.AutoDeclared(); len(added) > 0 {
		eng.logger.Info("auto-declared stack symbols", "symbols", added)
	}
	eng.Name = def.Name
	eng.model = m
	eng.runtime = runtime.NewEngine(eng.runtimeOptions()...)
	eng.runtime.Load(m, def.Input())
	return eng, nil
}

// NewFromModel seeds an engine with an already validated model.
func NewFromModel(m *automaton.Model, input []domain.Symbol, opts ...Option) *Engine {
	eng := configure(opts)
	eng.model = m
	eng.runtime = runtime.NewEngine(eng.runtimeOptions()...)
	eng.runtime.Load(m, input)
	return eng
}

// Restore resumes a checkpointed run.
func Restore(cp *domain.Checkpoint, opts ...Option) (*Engine, error) {
	if cp == nil {
		return nil, fmt.Errorf("%w: nil checkpoint", domain.ErrInvalidCheckpoint)
	}
	eng := configure(opts)
	eng.Name = cp.Definition.Name
	if eng.runID == "" {
		eng.runID = cp.RunID
	}
	rt, err := runtime.Restore(cp, eng.runtimeOptions()...)
	if err != nil {
		return nil, err
	}
	eng.runtime = rt
	eng.model = rt.Model()
	return eng, nil
}

// Open loads the definition id from loader and seeds an engine with it.
func Open(ctx context.Context, loader ports.DefinitionLoader, id string, opts ...Option) (*Engine, error) {
	def, err := loader.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition %s: %w", id, err)
	}
	return New(*def, opts...)
}

// OpenLibrary opens a Loam repository of markdown definitions read-only.
func OpenLibrary(repoPath string) (ports.DefinitionLoader, error) {
	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	// Strict mode keeps numeric frontmatter consistent across formats; the
	// simulator never writes to the library.
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return loamAdapter.New(loam.NewTypedRepository[loamAdapter.DefinitionMetadata](repo)), nil
}

// Advance computes one generation. It is a no-op once the run has halted.
func (e *Engine) Advance(ctx context.Context) (domain.Snapshot, error) {
	return e.runtime.Advance(ctx)
}

// Run drives the engine with a runner configured by opts.
func (e *Engine) Run(ctx context.Context, opts ...runner.Option) (runner.Result, error) {
	return runner.New(opts...).Run(ctx, e)
}

// Snapshot returns the current frontier without advancing.
func (e *Engine) Snapshot() domain.Snapshot {
	return e.runtime.Snapshot()
}

// Verdict evaluates the current frontier.
func (e *Engine) Verdict() domain.Verdict {
	return e.runtime.Verdict()
}

// Phase returns the lifecycle phase.
func (e *Engine) Phase() domain.Phase {
	return e.runtime.Phase()
}

// Step returns the number of generations computed so far.
func (e *Engine) Step() int {
	return e.runtime.Step()
}

// Trace returns the root-to-leaf path of a configuration.
func (e *Engine) Trace(id domain.ConfigID) (domain.Trace, error) {
	return e.runtime.Trace(id)
}

// AcceptingTraces returns the path of every accepting frontier member.
func (e *Engine) AcceptingTraces() []domain.Trace {
	return e.runtime.AcceptingTraces()
}

// FrontierTraces returns the path of every frontier member.
func (e *Engine) FrontierTraces() []domain.Trace {
	return e.runtime.FrontierTraces()
}

// Config returns any configuration ever produced by the run.
func (e *Engine) Config(id domain.ConfigID) (domain.ConfigView, error) {
	return e.runtime.Config(id)
}

// Generation returns the frontier recorded after k generations.
func (e *Engine) Generation(k int) ([]domain.ConfigView, error) {
	return e.runtime.Generation(k)
}

// Checkpoint captures the run for persistence.
func (e *Engine) Checkpoint() (*domain.Checkpoint, error) {
	return e.runtime.Checkpoint()
}

// SetPruner replaces the frontier policy between generations.
func (e *Engine) SetPruner(p domain.Pruner) {
	e.runtime.SetPruner(p)
}

// Reset restarts the run from the root configuration.
func (e *Engine) Reset() error {
	return e.runtime.Reset()
}

// SetInput restarts the run with a new input string.
func (e *Engine) SetInput(input string) {
	e.runtime.Load(e.model, domain.SplitSymbols(input))
}

// Model returns the validated automaton.
func (e *Engine) Model() *automaton.Model {
	return e.model
}

// Definition serializes the model back to a definition record with the
// current input.
func (e *Engine) Definition() domain.Definition {
	def := e.model.Definition()
	def.Name = e.Name
	def.InputString = domain.FormatSymbols(e.runtime.Input())
	return def
}
