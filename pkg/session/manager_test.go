package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/adapters/memory"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SlowStore simulates latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data  map[string]*domain.Checkpoint
	mu    sync.Mutex
	saves int
}

func (s *SlowStore) Save(ctx context.Context, runID string, cp *domain.Checkpoint) error {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Checkpoint)
	}
	s.data[runID] = cp.Clone()
	s.saves++
	return nil
}

func (s *SlowStore) Load(ctx context.Context, runID string) (*domain.Checkpoint, error) {
	time.Sleep(5 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if cp, ok := s.data[runID]; ok {
		return cp.Clone(), nil
	}
	return nil, domain.ErrRunNotFound
}

func (s *SlowStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, runID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManager_StartAndAdvance(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	id, snap, err := manager.Start(ctx, "", testutils.BalancedDefinition("aabb"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 0, snap.Step)
	assert.Equal(t, domain.PhaseActive, snap.Phase)

	snap, err = manager.Advance(ctx, id, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Step)

	snap, err = manager.Advance(ctx, id, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseAccepted, snap.Phase)
	assert.Equal(t, domain.VerdictAccepted, snap.Verdict)
	assert.Equal(t, 5, snap.Step, "advance stops once the run halts")

	stored, err := manager.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, snap, stored)

	traces := 0
	for _, c := range stored.Frontier {
		trace, err := manager.Trace(ctx, id, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.ID, trace[len(trace)-1].ID)
		traces++
	}
	assert.Positive(t, traces)
}

func TestManager_StartRejectsInvalidDefinition(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	def := testutils.BalancedDefinition("ab")
	def.InitialState = "nowhere"

	_, _, err := manager.Start(context.Background(), "", def)
	require.Error(t, err)

	ids, err := manager.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManager_UnknownRun(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	_, err := manager.Advance(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	_, err = manager.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)

	assert.ErrorIs(t, manager.Delete(ctx, "missing"), domain.ErrRunNotFound)
}

func TestManager_LoadAndSave(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	id, _, err := manager.Start(ctx, "detached", testutils.PalindromeDefinition("abba"))
	require.NoError(t, err)
	assert.Equal(t, "detached", id)

	e, err := manager.Load(ctx, id)
	require.NoError(t, err)
	_, err = e.Advance(ctx)
	require.NoError(t, err)
	require.NoError(t, manager.Save(ctx, id, e))

	snap, err := manager.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Step)

	require.NoError(t, manager.Delete(ctx, id))
	_, err = manager.Snapshot(ctx, id)
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	id, _, err := manager.Start(ctx, "race-test", testutils.LoopingDefinition("aabb"))
	require.NoError(t, err)

	var wg sync.WaitGroup
	concurrentAdvances := 8

	// Read-modify-write without locking would lose generations.
	for i := 0; i < concurrentAdvances; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Advance(ctx, id, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := manager.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, concurrentAdvances, snap.Step)
}

func TestManager_LockMapDoesNotLeak(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = manager.WithLock(ctx, "shared", func(context.Context) error { return nil })
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, session.ActiveLocks(manager))
}

func TestManager_PrunerAndHooks(t *testing.T) {
	var generations int
	var mu sync.Mutex
	hooks := domain.LifecycleHooks{
		OnGeneration: func(context.Context, *domain.GenerationEvent) {
			mu.Lock()
			generations++
			mu.Unlock()
		},
	}
	noLoop := func() domain.Pruner {
		seen := map[string]bool{}
		return domain.PrunerFunc(func(c domain.ConfigView) bool {
			k := c.String()
			if seen[k] {
				return false
			}
			seen[k] = true
			return true
		})
	}
	manager := session.NewManager(memory.NewStore(),
		session.WithLifecycleHooks(hooks),
		session.WithPruner(noLoop),
	)
	ctx := context.Background()

	id, _, err := manager.Start(ctx, "", testutils.BalancedDefinition("ab"))
	require.NoError(t, err)
	_, err = manager.Advance(ctx, id, 3)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, generations)
}

func TestManager_DedupIndependentOfStepSplit(t *testing.T) {
	ctx := context.Background()
	dedup := session.WithPruner(func() domain.Pruner { return runner.NewDedup() })
	def := testutils.LoopingDefinition("aab")

	// 1. One call for the whole budget
	bulk := session.NewManager(memory.NewStore(), dedup)
	id, _, err := bulk.Start(ctx, "bulk", def)
	require.NoError(t, err)
	want, err := bulk.Advance(ctx, id, 30)
	require.NoError(t, err)
	assert.Equal(t, domain.PhaseStuck, want.Phase)
	assert.Equal(t, 3, want.Step)

	// 2. One step per call, reloading the run each time
	stepped := session.NewManager(memory.NewStore(), dedup)
	id, _, err = stepped.Start(ctx, "stepped", def)
	require.NoError(t, err)
	var got domain.Snapshot
	for i := 0; i < 30; i++ {
		got, err = stepped.Advance(ctx, id, 1)
		require.NoError(t, err)
	}

	assert.Equal(t, want, got)
}
