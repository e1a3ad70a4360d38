package testutils

import "github.com/aretw0/pdasim/pkg/domain"

// BalancedDefinition recognizes a^n b^n (n >= 1) and accepts in q2 by final state.
func BalancedDefinition(input string) domain.Definition {
	return domain.Definition{
		Name:               "balanced",
		States:             []string{"q0", "q1", "q2"},
		Alphabet:           []string{"a", "b"},
		StackSymbols:       []string{"Z", "A"},
		InitialState:       "q0",
		InitialStackSymbol: "Z",
		AcceptStates:       []string{"q2"},
		Transitions: []domain.TransitionRecord{
			{FromState: "q0", InputSymbol: "a", StackSymbol: "Z", ToState: "q0", StackPush: "AZ"},
			{FromState: "q0", InputSymbol: "a", StackSymbol: "A", ToState: "q0", StackPush: "AA"},
			{FromState: "q0", InputSymbol: "b", StackSymbol: "A", ToState: "q1", StackPush: "ε"},
			{FromState: "q1", InputSymbol: "b", StackSymbol: "A", ToState: "q1", StackPush: "ε"},
			{FromState: "q1", InputSymbol: "ε", StackSymbol: "Z", ToState: "q2", StackPush: "Z"},
		},
		InputString: input,
	}
}

// LoopingDefinition is BalancedDefinition plus an epsilon self-loop on (q0, Z),
// so the frontier never settles.
func LoopingDefinition(input string) domain.Definition {
	def := BalancedDefinition(input)
	def.Name = "looping"
	def.Transitions = append(def.Transitions, domain.TransitionRecord{
		FromState: "q0", InputSymbol: "ε", StackSymbol: "Z", ToState: "q0", StackPush: "Z",
	})
	return def
}

// PalindromeDefinition accepts even-length palindromes over {a, b} by guessing
// the midpoint with an epsilon move, which makes every run branch.
func PalindromeDefinition(input string) domain.Definition {
	return domain.Definition{
		Name:               "palindrome",
		States:             []string{"push", "pop", "done"},
		Alphabet:           []string{"a", "b"},
		StackSymbols:       []string{"Z", "a", "b"},
		InitialState:       "push",
		InitialStackSymbol: "Z",
		AcceptStates:       []string{"done"},
		Transitions: []domain.TransitionRecord{
			{FromState: "push", InputSymbol: "a", StackSymbol: "Z", ToState: "push", StackPush: "aZ"},
			{FromState: "push", InputSymbol: "a", StackSymbol: "a", ToState: "push", StackPush: "aa"},
			{FromState: "push", InputSymbol: "a", StackSymbol: "b", ToState: "push", StackPush: "ab"},
			{FromState: "push", InputSymbol: "b", StackSymbol: "Z", ToState: "push", StackPush: "bZ"},
			{FromState: "push", InputSymbol: "b", StackSymbol: "a", ToState: "push", StackPush: "ba"},
			{FromState: "push", InputSymbol: "b", StackSymbol: "b", ToState: "push", StackPush: "bb"},
			{FromState: "push", InputSymbol: "ε", StackSymbol: "Z", ToState: "pop", StackPush: "Z"},
			{FromState: "push", InputSymbol: "ε", StackSymbol: "a", ToState: "pop", StackPush: "a"},
			{FromState: "push", InputSymbol: "ε", StackSymbol: "b", ToState: "pop", StackPush: "b"},
			{FromState: "pop", InputSymbol: "a", StackSymbol: "a", ToState: "pop", StackPush: "ε"},
			{FromState: "pop", InputSymbol: "b", StackSymbol: "b", ToState: "pop", StackPush: "ε"},
			{FromState: "pop", InputSymbol: "ε", StackSymbol: "Z", ToState: "done", StackPush: "Z"},
		},
		InputString: input,
	}
}
