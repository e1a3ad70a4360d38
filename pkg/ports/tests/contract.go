package tests

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SampleCheckpoint returns a small but complete checkpoint for store tests.
func SampleCheckpoint(runID string) *domain.Checkpoint {
	return &domain.Checkpoint{
		RunID: runID,
		Definition: domain.Definition{
			Name:               "sample",
			States:             []string{"q0", "q1"},
			Alphabet:           []string{"a"},
			StackSymbols:       []string{"Z"},
			InitialState:       "q0",
			InitialStackSymbol: "Z",
			AcceptStates:       []string{"q1"},
			Transitions: []domain.TransitionRecord{
				{FromState: "q0", InputSymbol: "a", StackSymbol: "Z", ToState: "q1", StackPush: "Z"},
			},
			InputString: "a",
		},
		Input: []domain.Symbol{"a"},
		Step:  1,
		Phase: domain.PhaseAccepted,
		Nodes: []domain.NodeRecord{
			{State: "q0", Offset: 0, Stack: []domain.Symbol{"Z"}, Parent: domain.NoParent, Rule: -1},
			{State: "q1", Offset: 1, Stack: []domain.Symbol{"Z"}, Parent: 0, Rule: 0},
		},
		Frontier:    []domain.ConfigID{1},
		Generations: [][]domain.ConfigID{{0}, {1}},
		UpdatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

// RunStoreContract is a reusable test suite that verifies if an adapter complies with ports.RunStore.
func RunStoreContract(t *testing.T, store ports.RunStore) {
	t.Helper()
	ctx := context.Background()
	runID := "contract-run-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		cp := SampleCheckpoint(runID)
		require.NoError(t, store.Save(ctx, runID, cp), "Save should not return error")

		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, cp.Definition, loaded.Definition)
		assert.Equal(t, cp.Nodes, loaded.Nodes)
		assert.Equal(t, cp.Frontier, loaded.Frontier)
		assert.Equal(t, cp.Generations, loaded.Generations)
		assert.Equal(t, cp.Phase, loaded.Phase)
		assert.True(t, cp.UpdatedAt.Equal(loaded.UpdatedAt))
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		loaded, err := store.Load(ctx, runID)
		require.NoError(t, err)
		loaded.Nodes[0].State = "mutated"

		again, err := store.Load(ctx, runID)
		require.NoError(t, err)
		assert.Equal(t, domain.State("q0"), again.Nodes[0].State)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, runID, SampleCheckpoint(runID)))
		require.NoError(t, store.Delete(ctx, runID), "Delete should not return error")

		_, err := store.Load(ctx, runID)
		assert.ErrorIs(t, err, domain.ErrRunNotFound, "Load after Delete should return ErrRunNotFound")
	})

	t.Run("List", func(t *testing.T) {
		ids := []string{runID + "-1", runID + "-2"}
		for _, id := range ids {
			require.NoError(t, store.Save(ctx, id, SampleCheckpoint(id)))
		}
		defer func() {
			for _, id := range ids {
				_ = store.Delete(ctx, id)
			}
		}()

		listed, err := store.List(ctx)
		require.NoError(t, err)
		for _, id := range ids {
			assert.Contains(t, listed, id)
		}
	})
}

// DefinitionLoaderContract verifies that a loader returns exactly the definitions it was seeded with.
func DefinitionLoaderContract(t *testing.T, loader ports.DefinitionLoader, expected map[string]domain.Definition) {
	t.Helper()
	ctx := context.Background()

	t.Run("Load_Success", func(t *testing.T) {
		for id, want := range expected {
			got, err := loader.Load(ctx, id)
			require.NoError(t, err, "loading %s", id)
			assert.Equal(t, want.States, got.States, "states of %s", id)
			assert.Equal(t, want.InitialState, got.InitialState, "initial state of %s", id)
			assert.Equal(t, want.AcceptStates, got.AcceptStates, "accept states of %s", id)
			assert.Equal(t, want.Transitions, got.Transitions, "transitions of %s", id)
		}
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		_, err := loader.Load(ctx, "non-existent-definition")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		ids, err := loader.List(ctx)
		require.NoError(t, err)
		want := make([]string, 0, len(expected))
		for id := range expected {
			want = append(want, id)
		}
		assert.ElementsMatch(t, want, ids, fmt.Sprintf("expected %d definitions", len(expected)))
	})
}
