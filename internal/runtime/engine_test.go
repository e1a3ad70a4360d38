package runtime_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/aretw0/pdasim/internal/runtime"
	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func load(t *testing.T, def domain.Definition, opts ...runtime.EngineOption) *runtime.Engine {
	t.Helper()
	m, err := automaton.FromDefinition(def)
	require.NoError(t, err)
	e := runtime.NewEngine(opts...)
	e.Load(m, def.Input())
	return e
}

// drive advances until the engine halts or the budget is spent.
func drive(t *testing.T, e *runtime.Engine, budget int) domain.Snapshot {
	t.Helper()
	snap := e.Snapshot()
	for i := 0; i < budget && !snap.Phase.Halted(); i++ {
		var err error
		snap, err = e.Advance(context.Background())
		require.NoError(t, err)
	}
	return snap
}

func TestEngine_Seed(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("ab"))

	snap := e.Snapshot()
	assert.Equal(t, 0, snap.Step)
	assert.Equal(t, domain.PhaseActive, snap.Phase)
	assert.Equal(t, domain.VerdictPending, snap.Verdict)
	require.Len(t, snap.Frontier, 1)

	root := snap.Frontier[0]
	assert.Equal(t, domain.State("q0"), root.State)
	assert.Equal(t, []domain.Symbol{"a", "b"}, root.RemainingInput)
	assert.Equal(t, []domain.Symbol{"Z"}, root.Stack)
	assert.False(t, root.HasParent)
	assert.Empty(t, root.Label)
}

func TestEngine_ScenarioAccepted(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aabb"))

	snap := drive(t, e, 100)
	assert.Equal(t, domain.PhaseAccepted, snap.Phase)
	assert.Equal(t, domain.VerdictAccepted, snap.Verdict)
	assert.Equal(t, 5, snap.Step)

	require.Len(t, snap.Frontier, 1)
	final := snap.Frontier[0]
	assert.Equal(t, domain.State("q2"), final.State)
	assert.Empty(t, final.RemainingInput)
	assert.Equal(t, []domain.Symbol{"Z"}, final.Stack)

	traces := e.AcceptingTraces()
	require.Len(t, traces, 1)
	assert.Equal(t, []string{
		"q0, a, Z → q0, AZ",
		"q0, a, A → q0, AA",
		"q0, b, A → q1, ε",
		"q1, b, A → q1, ε",
		"q1, ε, Z → q2, Z",
	}, traces[0].Labels())
	assert.Equal(t, domain.State("q0"), traces[0][0].State)
	assert.False(t, traces[0][0].HasParent)
}

func TestEngine_ScenarioRejected(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aab"))

	snap := drive(t, e, 100)
	assert.Equal(t, domain.PhaseStuck, snap.Phase)
	assert.Equal(t, domain.VerdictRejected, snap.Verdict)
	require.Len(t, snap.Frontier, 1)
	assert.Equal(t, domain.State("q1"), snap.Frontier[0].State)
	assert.Equal(t, []domain.Symbol{"A", "Z"}, snap.Frontier[0].Stack)
	assert.Empty(t, e.AcceptingTraces())
}

func TestEngine_EmptyFrontierRejects(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("ba"))

	snap := drive(t, e, 100)
	assert.Equal(t, 1, snap.Step)
	assert.Equal(t, domain.PhaseRejected, snap.Phase)
	assert.Equal(t, domain.VerdictRejected, snap.Verdict)
	assert.Empty(t, snap.Frontier)
}

func TestEngine_ScenarioBudget(t *testing.T) {
	for _, input := range []string{"aab", ""} {
		t.Run(fmt.Sprintf("input=%q", input), func(t *testing.T) {
			e := load(t, testutils.LoopingDefinition(input))

			snap := drive(t, e, 100)
			assert.Equal(t, 100, snap.Step)
			assert.Equal(t, domain.PhaseActive, snap.Phase)
			assert.Equal(t, domain.VerdictPending, snap.Verdict)
		})
	}
}

func TestEngine_LoopStillAccepts(t *testing.T) {
	e := load(t, testutils.LoopingDefinition("aabb"))

	snap := drive(t, e, 5)
	assert.Equal(t, domain.VerdictAccepted, snap.Verdict)
	assert.Equal(t, domain.PhaseActive, snap.Phase, "epsilon loop keeps the frontier pending")
	assert.NotEmpty(t, e.AcceptingTraces())
}

func TestEngine_Palindromes(t *testing.T) {
	tests := []struct {
		input string
		want  domain.Verdict
	}{
		{"abba", domain.VerdictAccepted},
		{"aa", domain.VerdictAccepted},
		{"", domain.VerdictAccepted},
		{"ab", domain.VerdictRejected},
		{"aba", domain.VerdictRejected},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			e := load(t, testutils.PalindromeDefinition(tt.input))
			snap := drive(t, e, 50)
			assert.True(t, snap.Phase.Halted())
			assert.Equal(t, tt.want, snap.Verdict)
		})
	}
}

func TestEngine_AdvanceWithoutModel(t *testing.T) {
	e := runtime.NewEngine()
	assert.Equal(t, domain.PhaseIdle, e.Phase())

	_, err := e.Advance(context.Background())
	require.Error(t, err)

	var pre *domain.StepPreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "advance", pre.Op)
	assert.ErrorIs(t, err, domain.ErrNoModel)

	assert.ErrorIs(t, e.Reset(), domain.ErrNoModel)
}

func TestEngine_AdvanceAfterHaltIsNoop(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aabb"))
	halted := drive(t, e, 100)
	size := e.Size()

	again, err := e.Advance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, halted, again)
	assert.Equal(t, size, e.Size())
}

func TestEngine_ReplayDeterminism(t *testing.T) {
	def := testutils.PalindromeDefinition("abbaab")
	a := load(t, def)
	b := load(t, def)

	for i := 0; i < 12; i++ {
		sa, err := a.Advance(context.Background())
		require.NoError(t, err)
		sb, err := b.Advance(context.Background())
		require.NoError(t, err)
		require.Equal(t, sa, sb, "generation %d", i+1)
	}
	for k := 0; k <= a.Step(); k++ {
		ga, err := a.Generation(k)
		require.NoError(t, err)
		gb, err := b.Generation(k)
		require.NoError(t, err)
		assert.Equal(t, ga, gb, "history %d", k)
	}
}

func TestEngine_Reset(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aabb"))
	first := drive(t, e, 100)

	require.NoError(t, e.Reset())
	assert.Equal(t, 0, e.Step())
	assert.Equal(t, 1, e.Size())

	second := drive(t, e, 100)
	assert.Equal(t, first, second)
}

func TestEngine_ConfigAndGenerationLookups(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aabb"))
	drive(t, e, 100)

	_, err := e.Config(999)
	assert.ErrorIs(t, err, domain.ErrUnknownConfig)
	_, err = e.Trace(-1)
	assert.ErrorIs(t, err, domain.ErrUnknownConfig)
	_, err = e.Generation(42)
	assert.ErrorIs(t, err, domain.ErrUnknownConfig)

	gen0, err := e.Generation(0)
	require.NoError(t, err)
	require.Len(t, gen0, 1)
	assert.Equal(t, domain.ConfigID(0), gen0[0].ID)

	c, err := e.Config(1)
	require.NoError(t, err)
	assert.True(t, c.HasParent)
	assert.Equal(t, domain.ConfigID(0), c.Parent)
	assert.Equal(t, "State: q0, Input: abb, Stack: AZ", c.String())
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var generations []*domain.GenerationEvent
	var halts []*domain.HaltEvent

	hooks := domain.LifecycleHooks{
		OnGeneration: func(ctx context.Context, ev *domain.GenerationEvent) {
			generations = append(generations, ev)
		},
		OnHalt: func(ctx context.Context, ev *domain.HaltEvent) {
			halts = append(halts, ev)
		},
	}
	e := load(t, testutils.BalancedDefinition("aabb"), runtime.WithLifecycleHooks(hooks), runtime.WithRunID("run-1"))

	drive(t, e, 100)
	_, err := e.Advance(context.Background())
	require.NoError(t, err)

	require.Len(t, generations, 5)
	assert.Equal(t, domain.EventGeneration, generations[0].Type)
	assert.Equal(t, "run-1", generations[0].RunID)
	assert.Equal(t, 1, generations[0].Step)
	assert.Equal(t, 1, generations[0].Created)

	require.Len(t, halts, 1, "halt fires once even when advanced again")
	assert.Equal(t, domain.PhaseAccepted, halts[0].Phase)
	assert.Equal(t, 6, halts[0].Configs)
}

func TestEngine_PrunerBoundsEpsilonLoop(t *testing.T) {
	seen := map[string]domain.ConfigID{}
	dedup := domain.PrunerFunc(func(c domain.ConfigView) bool {
		key := fmt.Sprintf("%s|%v|%v", c.State, c.RemainingInput, c.Stack)
		if id, ok := seen[key]; ok {
			return id == c.ID
		}
		seen[key] = c.ID
		return true
	})

	var pruned int
	hooks := domain.LifecycleHooks{
		OnGeneration: func(_ context.Context, ev *domain.GenerationEvent) { pruned += ev.Pruned },
	}
	e := load(t, testutils.LoopingDefinition("aab"), runtime.WithPruner(dedup), runtime.WithLifecycleHooks(hooks))

	snap := drive(t, e, 100)
	assert.Less(t, snap.Step, 100)
	assert.Equal(t, domain.PhaseStuck, snap.Phase)
	assert.Equal(t, domain.VerdictRejected, snap.Verdict)
	assert.Positive(t, pruned)
}

func TestEngine_CheckpointRestore(t *testing.T) {
	def := testutils.PalindromeDefinition("abba")
	e := load(t, def, runtime.WithRunID("cp"), runtime.WithName(def.Name))
	for i := 0; i < 3; i++ {
		_, err := e.Advance(context.Background())
		require.NoError(t, err)
	}

	cp, err := e.Checkpoint()
	require.NoError(t, err)
	assert.Equal(t, "cp", cp.RunID)
	assert.Equal(t, "palindrome", cp.Definition.Name)
	assert.Equal(t, "abba", cp.Definition.InputString)

	data, err := json.Marshal(cp)
	require.NoError(t, err)
	var decoded domain.Checkpoint
	require.NoError(t, json.Unmarshal(data, &decoded))

	restored, err := runtime.Restore(&decoded)
	require.NoError(t, err)
	assert.Equal(t, "cp", restored.RunID())
	assert.Equal(t, e.Snapshot(), restored.Snapshot())

	assert.Equal(t, drive(t, e, 50), drive(t, restored, 50))
	assert.Equal(t, e.Size(), restored.Size())
}

func TestRestore_RejectsBrokenArena(t *testing.T) {
	e := load(t, testutils.BalancedDefinition("aabb"))
	drive(t, e, 2)

	cp, err := e.Checkpoint()
	require.NoError(t, err)

	tests := map[string]func(cp *domain.Checkpoint){
		"forward parent":   func(cp *domain.Checkpoint) { cp.Nodes[1].Parent = 2 },
		"unknown rule":     func(cp *domain.Checkpoint) { cp.Nodes[1].Rule = 42 },
		"unknown state":    func(cp *domain.Checkpoint) { cp.Nodes[1].State = "nowhere" },
		"dangling id":      func(cp *domain.Checkpoint) { cp.Frontier = []domain.ConfigID{99} },
		"missing history":  func(cp *domain.Checkpoint) { cp.Generations = cp.Generations[:1] },
		"bad offset":       func(cp *domain.Checkpoint) { cp.Nodes[2].Offset = 10 },
		"invalid automata": func(cp *domain.Checkpoint) { cp.Definition.InitialState = "" },
	}
	for name, corrupt := range tests {
		t.Run(name, func(t *testing.T) {
			broken := cp.Clone()
			corrupt(broken)
			_, err := runtime.Restore(broken)
			assert.ErrorIs(t, err, domain.ErrInvalidCheckpoint)
		})
	}

	_, err = runtime.Restore(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidCheckpoint)
}

func TestEngine_ConcurrentReaders(t *testing.T) {
	e := load(t, testutils.PalindromeDefinition("abbaabba"))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := e.Snapshot()
				if snap.Step < last {
					t.Errorf("step went backwards: %d < %d", snap.Step, last)
					return
				}
				last = snap.Step
				_ = e.Verdict()
				_ = e.FrontierTraces()
			}
		}()
	}

	drive(t, e, 100)
	close(stop)
	wg.Wait()
	assert.Equal(t, domain.VerdictAccepted, e.Verdict())
}

// seenPruner drops configurations whose key is already known, and learns
// the arena it is installed on.
type seenPruner struct {
	seen map[string]domain.ConfigID
}

func newSeenPruner() *seenPruner { return &seenPruner{seen: map[string]domain.ConfigID{}} }

func (p *seenPruner) Keep(c domain.ConfigView) bool {
	key := fmt.Sprintf("%s|%v|%v", c.State, c.RemainingInput, c.Stack)
	if id, ok := p.seen[key]; ok {
		return id == c.ID
	}
	p.seen[key] = c.ID
	return true
}

func (p *seenPruner) Seed(history []domain.ConfigView) {
	for _, c := range history {
		p.Keep(c)
	}
}

func TestEngine_SeededPrunerSurvivesRestore(t *testing.T) {
	def := testutils.LoopingDefinition("aab")
	continuous := load(t, def, runtime.WithPruner(newSeenPruner()))

	cp, err := continuous.Checkpoint()
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		want, err := continuous.Advance(context.Background())
		require.NoError(t, err)

		// 1. Resume from the previous checkpoint with a fresh pruner
		resumed, err := runtime.Restore(cp, runtime.WithPruner(newSeenPruner()))
		require.NoError(t, err)
		got, err := resumed.Advance(context.Background())
		require.NoError(t, err)

		// 2. Same generation, same arena
		assert.Equal(t, want, got, "generation %d", i+1)
		assert.Equal(t, continuous.Size(), resumed.Size())

		cp, err = resumed.Checkpoint()
		require.NoError(t, err)
	}
}

func TestEngine_SeededPrunerKnowsRoot(t *testing.T) {
	e := load(t, testutils.LoopingDefinition("aab"), runtime.WithPruner(newSeenPruner()))

	snap, err := e.Advance(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Frontier, 1, "the epsilon loop back to the root is pruned")
	assert.Equal(t, domain.State("q0"), snap.Frontier[0].State)
	assert.Equal(t, []domain.Symbol{"A", "Z"}, snap.Frontier[0].Stack)
}

func TestEngine_SetPrunerSeedsArena(t *testing.T) {
	e := load(t, testutils.LoopingDefinition("aab"))
	drive(t, e, 2)

	p := newSeenPruner()
	e.SetPruner(p)
	// Six nodes, three distinct configurations.
	assert.Equal(t, 6, e.Size())
	assert.Len(t, p.seen, 3)
}
