package pdasim_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_Integration(t *testing.T) {
	var halts int
	hooks := domain.LifecycleHooks{
		OnHalt: func(ctx context.Context, ev *domain.HaltEvent) { halts++ },
	}
	eng, err := pdasim.New(testutils.BalancedDefinition("aabb"), pdasim.WithLifecycleHooks(hooks))
	require.NoError(t, err)
	assert.Equal(t, "balanced", eng.Name)
	assert.Equal(t, domain.PhaseActive, eng.Phase())

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictAccepted, res.Snapshot.Verdict)
	assert.Equal(t, 1, halts)
	assert.Len(t, eng.AcceptingTraces(), 1)

	// Restart with another input
	eng.SetInput("abb")
	assert.Equal(t, 0, eng.Step())
	res, err = eng.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.VerdictRejected, res.Snapshot.Verdict)
	assert.Equal(t, "abb", eng.Definition().InputString)
}

func TestFacade_ValidationIsAggregated(t *testing.T) {
	def := testutils.BalancedDefinition("ab")
	def.InitialState = "nowhere"
	def.AcceptStates = []string{"missing"}

	_, err := pdasim.New(def)
	require.Error(t, err)
	var agg *automaton.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, automaton.ValidationErrors(err), 2)
}

func TestFacade_CompactRules(t *testing.T) {
	def := testutils.BalancedDefinition("ab")
	def.Transitions = def.Transitions[:3]
	def.Rules = "q1,b,A->q1,ε\nq1,ε,Z→q2,Z"

	eng, err := pdasim.New(def)
	require.NoError(t, err)
	assert.Equal(t, 5, eng.Model().RuleCount())

	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Accepted())
}

func TestFacade_AutoDeclare(t *testing.T) {
	def := testutils.BalancedDefinition("ab")
	def.StackSymbols = []string{"Z"}

	_, err := pdasim.New(def)
	require.Error(t, err)

	eng, err := pdasim.New(def, pdasim.WithAutoDeclare())
	require.NoError(t, err)
	assert.Equal(t, []domain.Symbol{"A"}, eng.Model().AutoDeclared())
}

func TestFacade_CheckpointRestore(t *testing.T) {
	eng, err := pdasim.New(testutils.PalindromeDefinition("abba"), pdasim.WithRunID("r1"))
	require.NoError(t, err)
	_, err = eng.Run(context.Background(), runner.WithBudget(2))
	require.NoError(t, err)

	cp, err := eng.Checkpoint()
	require.NoError(t, err)
	raw, err := json.Marshal(cp)
	require.NoError(t, err)
	var decoded domain.Checkpoint
	require.NoError(t, json.Unmarshal(raw, &decoded))

	restored, err := pdasim.Restore(&decoded)
	require.NoError(t, err)
	assert.Equal(t, eng.Snapshot(), restored.Snapshot())

	a, err := eng.Run(context.Background())
	require.NoError(t, err)
	b, err := restored.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a.Snapshot, b.Snapshot)
	assert.True(t, b.Accepted())
}

func TestFacade_RestoreNilCheckpoint(t *testing.T) {
	eng, err := pdasim.Restore(nil)
	assert.Nil(t, eng)
	assert.ErrorIs(t, err, domain.ErrInvalidCheckpoint)
}

func TestFacade_OpenLibrary(t *testing.T) {
	doc := `---
name: tiny
states: [q0, q1]
alphabet: [a]
stack_symbols: [Z]
initial_state: q0
initial_stack_symbol: Z
accept_states: [q1]
input_string: a
---
` + "```rules" + `
q0,a,Z→q1,Z
` + "```" + `
`
	dir, _ := testutils.NewLibrary(t, map[string]string{"tiny.md": doc})

	loader, err := pdasim.OpenLibrary(dir)
	require.NoError(t, err)

	eng, err := pdasim.Open(context.Background(), loader, "tiny")
	require.NoError(t, err)
	res, err := eng.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Accepted())
}
