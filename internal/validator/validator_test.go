package validator

import (
	"testing"

	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestLint_Clean(t *testing.T) {
	for _, def := range []domain.Definition{
		testutils.BalancedDefinition(""),
		testutils.PalindromeDefinition(""),
	} {
		m, err := automaton.FromDefinition(def)
		require.NoError(t, err)
		assert.Empty(t, Lint(m), def.Name)
	}
}

func TestLint_EpsilonLoop(t *testing.T) {
	m, err := automaton.FromDefinition(testutils.LoopingDefinition(""))
	require.NoError(t, err)
	issues := Lint(m)
	require.Len(t, issues, 1)
	assert.Equal(t, "epsilon-loop", issues[0].Code)
	assert.Contains(t, issues[0].String(), "transitions[5]")
}

func TestLint_Findings(t *testing.T) {
	def := domain.Definition{
		States:             []string{"q0", "q1", "island", "sink"},
		Alphabet:           []string{"a", "b", "c"},
		StackSymbols:       []string{"Z", "Y"},
		InitialState:       "q0",
		InitialStackSymbol: "Z",
		AcceptStates:       []string{"island"},
		Transitions: []domain.TransitionRecord{
			{FromState: "q0", InputSymbol: "a", StackSymbol: "Z", ToState: "q1", StackPush: "Z"},
			{FromState: "q0", InputSymbol: "a", StackSymbol: "Z", ToState: "q1", StackPush: "Z"},
			{FromState: "q1", InputSymbol: "b", StackSymbol: "Z", ToState: "sink", StackPush: "ε"},
			{FromState: "island", InputSymbol: "a", StackSymbol: "Z", ToState: "island", StackPush: "Z"},
		},
	}
	m, err := automaton.FromDefinition(def)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		"unreachable-state",
		"accept-unreachable",
		"dead-state",
		"unused-input-symbol",
		"unused-stack-symbol",
		"duplicate-rule",
	}, codes(Lint(m)))
}

func TestLint_NoAcceptStates(t *testing.T) {
	def := testutils.BalancedDefinition("")
	def.AcceptStates = nil
	m, err := automaton.FromDefinition(def)
	require.NoError(t, err)
	assert.Contains(t, codes(Lint(m)), "no-accept-state")
}
