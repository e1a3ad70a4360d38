package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/internal/runtime"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a distributed lock survives a crashed holder.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates persisted runs, ensuring safe concurrent operations.
// Every operation restores the run from the store, works on it under the
// run's lock and saves it back. Unused locks are garbage collected by
// reference counting.
type Manager struct {
	store ports.RunStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	pruner  func() domain.Pruner
	ingest  []automaton.Option
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager and the engines it restores.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithLifecycleHooks is passed to every engine the Manager drives.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithPruner installs a fresh pruner, built by factory, into every engine.
func WithPruner(factory func() domain.Pruner) Option {
	return func(m *Manager) {
		m.pruner = factory
	}
}

// WithAutoDeclare lets Start accept definitions with undeclared push symbols.
func WithAutoDeclare() Option {
	return func(m *Manager) {
		m.ingest = append(m.ingest, automaton.WithAutoDeclare())
	}
}

// NewManager creates a new Manager with the given persistence store.
func NewManager(store ports.RunStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// NewRunID returns a fresh random run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(runID) after unlocking.
func (m *Manager) acquire(runID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		entry = &lockEntry{}
		m.locks[runID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(runID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[runID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, runID)
	}
}

func (m *Manager) engineOptions(runID string) []runtime.EngineOption {
	opts := []runtime.EngineOption{
		runtime.WithRunID(runID),
		runtime.WithLogger(m.logger),
		runtime.WithLifecycleHooks(m.hooks),
	}
	if m.pruner != nil {
		opts = append(opts, runtime.WithPruner(m.pruner()))
	}
	return opts
}

// Start validates def, seeds a new run and persists it.
// An empty runID is replaced by NewRunID().
func (m *Manager) Start(ctx context.Context, runID string, def domain.Definition) (string, domain.Snapshot, error) {
	model, err := automaton.FromDefinition(def, m.ingest...)
	if err != nil {
		return "", domain.Snapshot{}, err
	}
	if runID == "" {
		runID = NewRunID()
	}

	var snap domain.Snapshot
	err = m.WithLock(ctx, runID, func(ctx context.Context) error {
		opts := append(m.engineOptions(runID), runtime.WithName(def.Name))
		e := runtime.NewEngine(opts...)
		e.Load(model, def.Input())
		snap = e.Snapshot()
		return m.persist(ctx, runID, e)
	})
	if err != nil {
		return "", domain.Snapshot{}, err
	}
	m.logger.Info("run started", "run_id", runID, "automaton", def.Name)
	return runID, snap, nil
}

// Advance restores the run and computes up to steps generations, stopping
// early once it halts. steps < 1 is treated as 1.
func (m *Manager) Advance(ctx context.Context, runID string, steps int) (domain.Snapshot, error) {
	if steps < 1 {
		steps = 1
	}
	var snap domain.Snapshot
	err := m.WithLock(ctx, runID, func(ctx context.Context) error {
		e, err := m.restore(ctx, runID)
		if err != nil {
			return err
		}
		snap = e.Snapshot()
		for i := 0; i < steps && !snap.Phase.Halted(); i++ {
			if snap, err = e.Advance(ctx); err != nil {
				return err
			}
		}
		return m.persist(ctx, runID, e)
	})
	return snap, err
}

// View runs fn on a restored engine without saving it back.
func (m *Manager) View(ctx context.Context, runID string, fn func(*runtime.Engine) error) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		e, err := m.restore(ctx, runID)
		if err != nil {
			return err
		}
		return fn(e)
	})
}

// Snapshot returns the current snapshot of a run.
func (m *Manager) Snapshot(ctx context.Context, runID string) (domain.Snapshot, error) {
	var snap domain.Snapshot
	err := m.View(ctx, runID, func(e *runtime.Engine) error {
		snap = e.Snapshot()
		return nil
	})
	return snap, err
}

// Trace reconstructs the path of one configuration of a run.
func (m *Manager) Trace(ctx context.Context, runID string, id domain.ConfigID) (domain.Trace, error) {
	var trace domain.Trace
	err := m.View(ctx, runID, func(e *runtime.Engine) error {
		var err error
		trace, err = e.Trace(id)
		return err
	})
	return trace, err
}

// AcceptingTraces returns the path of every accepting frontier member of a run.
func (m *Manager) AcceptingTraces(ctx context.Context, runID string) ([]domain.Trace, error) {
	var traces []domain.Trace
	err := m.View(ctx, runID, func(e *runtime.Engine) error {
		traces = e.AcceptingTraces()
		return nil
	})
	return traces, err
}

// Load restores a run into a detached engine, e.g. to drive it locally and
// Save it back later.
func (m *Manager) Load(ctx context.Context, runID string) (*runtime.Engine, error) {
	var e *runtime.Engine
	err := m.View(ctx, runID, func(restored *runtime.Engine) error {
		e = restored
		return nil
	})
	return e, err
}

// Save checkpoints sim under runID.
func (m *Manager) Save(ctx context.Context, runID string, sim ports.Simulator) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		return m.persist(ctx, runID, sim)
	})
}

// Delete removes the run from the store.
func (m *Manager) Delete(ctx context.Context, runID string) error {
	return m.WithLock(ctx, runID, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, runID); err != nil {
			return err
		}
		return m.store.Delete(ctx, runID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying run store.
func (m *Manager) Store() ports.RunStore {
	return m.store
}

func (m *Manager) restore(ctx context.Context, runID string) (*runtime.Engine, error) {
	cp, err := m.store.Load(ctx, runID)
	if err != nil {
		if errors.Is(err, domain.ErrRunNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	return runtime.Restore(cp, m.engineOptions(runID)...)
}

func (m *Manager) persist(ctx context.Context, runID string, sim ports.Simulator) error {
	cp, err := sim.Checkpoint()
	if err != nil {
		return err
	}
	cp.RunID = runID
	if err := m.store.Save(ctx, runID, cp); err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	return nil
}

// WithLock executes a function while holding the lock for the run.
func (m *Manager) WithLock(ctx context.Context, runID string, fn func(context.Context) error) error {
	entry := m.acquire(runID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(runID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, runID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"run_id", runID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
