package automaton_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/pdasim/internal/testutils"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(err error) []string {
	var out []string
	for _, e := range automaton.ValidationErrors(err) {
		var ve *automaton.ValidationError
		if errors.As(e, &ve) {
			out = append(out, ve.Field)
		}
	}
	return out
}

func TestFromDefinition_Valid(t *testing.T) {
	m, err := automaton.FromDefinition(testutils.BalancedDefinition("aabb"))
	require.NoError(t, err)

	assert.Equal(t, domain.State("q0"), m.InitialState())
	assert.Equal(t, domain.Symbol("Z"), m.InitialStackSymbol())
	assert.True(t, m.IsAccepting("q2"))
	assert.False(t, m.IsAccepting("q0"))
	assert.Equal(t, 5, m.RuleCount())

	r, ok := m.Rule(0)
	require.True(t, ok)
	assert.Equal(t, []domain.Symbol{"A", "Z"}, r.Push)
	assert.Equal(t, "q0, a, Z → q0, AZ", r.String())

	pop, ok := m.Rule(2)
	require.True(t, ok)
	assert.Empty(t, pop.Push)
	assert.Equal(t, "q0, b, A → q1, ε", pop.String())

	_, ok = m.Rule(99)
	assert.False(t, ok)
}

func TestFromDefinition_CollectsEveryViolation(t *testing.T) {
	def := testutils.BalancedDefinition("")
	def.InitialState = "q9"
	def.InitialStackSymbol = "Y"
	def.AcceptStates = []string{"q2", "nowhere"}
	def.Transitions = append(def.Transitions,
		domain.TransitionRecord{FromState: "qx", InputSymbol: "c", StackSymbol: "B", ToState: "qy", StackPush: "CZ"},
	)

	_, err := automaton.FromDefinition(def)
	require.Error(t, err)

	var aggr *automaton.AggregateError
	require.ErrorAs(t, err, &aggr)

	got := fields(err)
	assert.ElementsMatch(t, []string{
		"initial_state",
		"initial_stack_symbol",
		"accept_states[1]",
		"transitions[5].from_state",
		"transitions[5].to_state",
		"transitions[5].input_symbol",
		"transitions[5].stack_symbol",
		"transitions[5].stack_push[0]",
	}, got)
	assert.Contains(t, err.Error(), "8 validation errors")
}

func TestNew_StructuralViolations(t *testing.T) {
	tests := []struct {
		name  string
		spec  automaton.Spec
		field string
	}{
		{
			name:  "no states",
			spec:  automaton.Spec{StackAlphabet: []domain.Symbol{"Z"}, InitialStackSymbol: "Z"},
			field: "states",
		},
		{
			name:  "no stack symbols",
			spec:  automaton.Spec{States: []domain.State{"q"}, InitialState: "q"},
			field: "stack_symbols",
		},
		{
			name: "duplicate state",
			spec: automaton.Spec{
				States: []domain.State{"q", "q"}, InitialState: "q",
				StackAlphabet: []domain.Symbol{"Z"}, InitialStackSymbol: "Z",
			},
			field: "states[1]",
		},
		{
			name: "epsilon in alphabet",
			spec: automaton.Spec{
				States: []domain.State{"q"}, InitialState: "q",
				InputAlphabet: []domain.Symbol{"a", domain.Epsilon},
				StackAlphabet: []domain.Symbol{"Z"}, InitialStackSymbol: "Z",
			},
			field: "alphabet[1]",
		},
		{
			name: "epsilon on stack",
			spec: automaton.Spec{
				States: []domain.State{"q"}, InitialState: "q",
				StackAlphabet: []domain.Symbol{"Z", "ϵ"}, InitialStackSymbol: "Z",
			},
			field: "stack_symbols[1]",
		},
		{
			name: "whitespace in stack symbol",
			spec: automaton.Spec{
				States: []domain.State{"q"}, InitialState: "q",
				StackAlphabet: []domain.Symbol{"Z", "x y"}, InitialStackSymbol: "Z",
			},
			field: "stack_symbols[1]",
		},
		{
			name: "comma as input symbol",
			spec: automaton.Spec{
				States: []domain.State{"q"}, InitialState: "q",
				InputAlphabet: []domain.Symbol{","},
				StackAlphabet: []domain.Symbol{"Z"}, InitialStackSymbol: "Z",
			},
			field: "alphabet[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := automaton.New(tt.spec)
			require.Error(t, err)
			assert.Contains(t, fields(err), tt.field)
		})
	}
}

func TestFromDefinition_EpsilonSpellings(t *testing.T) {
	for _, spelling := range []string{"ε", "ϵ", "Îµ", "Ïµ", ""} {
		def := testutils.BalancedDefinition("")
		def.Transitions[4].InputSymbol = spelling
		def.Transitions[2].StackPush = spelling

		m, err := automaton.FromDefinition(def)
		require.NoError(t, err, "spelling %q", spelling)

		r, _ := m.Rule(4)
		assert.True(t, r.IsEpsilon(), "spelling %q", spelling)
		pop, _ := m.Rule(2)
		assert.Empty(t, pop.Push, "spelling %q", spelling)
	}
}

func TestFromDefinition_WordsAreOrdinarySymbols(t *testing.T) {
	def := domain.Definition{
		States:             []string{"q"},
		Alphabet:           []string{"e", "p", "s"},
		StackSymbols:       []string{"Z", "eps", "λ"},
		InitialState:       "q",
		InitialStackSymbol: "Z",
		AcceptStates:       []string{"q"},
		Transitions: []domain.TransitionRecord{
			{FromState: "q", InputSymbol: "e", StackSymbol: "Z", ToState: "q", StackPush: "eps,Z"},
		},
		InputString: "eps",
	}
	m, err := automaton.FromDefinition(def)
	require.NoError(t, err)

	r, _ := m.Rule(0)
	assert.False(t, r.IsEpsilon())
	assert.Equal(t, []domain.Symbol{"eps", "Z"}, r.Push)
	assert.Equal(t, []domain.Symbol{"e", "p", "s"}, def.Input())
}

func TestFromDefinition_SeparatorInSymbol(t *testing.T) {
	def := testutils.BalancedDefinition("")
	def.StackSymbols = append(def.StackSymbols, "x y")
	def.Transitions[0].StackPush = "x y,"

	_, err := automaton.FromDefinition(def)
	require.Error(t, err)
	assert.Contains(t, fields(err), "stack_symbols[2]")
}

func TestFromDefinition_AutoDeclare(t *testing.T) {
	def := testutils.BalancedDefinition("")
	def.Transitions[0].StackPush = "BZ"

	_, err := automaton.FromDefinition(def)
	require.Error(t, err)
	assert.Equal(t, []string{"transitions[0].stack_push[0]"}, fields(err))

	m, err := automaton.FromDefinition(def, automaton.WithAutoDeclare())
	require.NoError(t, err)
	assert.Equal(t, []domain.Symbol{"B"}, m.AutoDeclared())
	assert.Equal(t, []domain.Symbol{"Z", "A", "B"}, m.StackAlphabet())
}

func TestModel_AccessorsReturnCopies(t *testing.T) {
	m, err := automaton.FromDefinition(testutils.BalancedDefinition(""))
	require.NoError(t, err)

	states := m.States()
	states[0] = "mutated"
	rules := m.Rules()
	rules[0].Push[0] = "X"

	assert.Equal(t, domain.State("q0"), m.States()[0])
	r, _ := m.Rule(0)
	assert.Equal(t, domain.Symbol("A"), r.Push[0])
}

func TestDefinition_RoundTrip(t *testing.T) {
	defs := []domain.Definition{
		testutils.BalancedDefinition(""),
		testutils.LoopingDefinition(""),
		testutils.PalindromeDefinition(""),
	}
	// multi-character symbols survive the push encoding
	multi := testutils.BalancedDefinition("")
	multi.Name = "multi"
	multi.StackSymbols = append(multi.StackSymbols, "TOP")
	multi.Transitions[0].StackPush = "TOP,"
	multi.Transitions[1].StackPush = "TOP,A,Z"
	defs = append(defs, multi)

	for _, def := range defs {
		t.Run(def.Name, func(t *testing.T) {
			original, err := automaton.FromDefinition(def)
			require.NoError(t, err)

			data, err := json.Marshal(original.Definition())
			require.NoError(t, err)

			var decoded domain.Definition
			require.NoError(t, json.Unmarshal(data, &decoded))

			rebuilt, err := automaton.FromDefinition(decoded)
			require.NoError(t, err)

			a, b := automaton.NewIndex(original), automaton.NewIndex(rebuilt)
			require.Equal(t, a.Keys(), b.Keys())
			for _, k := range a.Keys() {
				assert.Equal(t, a.Lookup(k.State, k.Input, k.Top), b.Lookup(k.State, k.Input, k.Top), "key %v", k)
			}
			assert.Equal(t, original.States(), rebuilt.States())
			assert.Equal(t, original.StackAlphabet(), rebuilt.StackAlphabet())
			assert.Equal(t, original.AcceptStates(), rebuilt.AcceptStates())
		})
	}
}
