package domain

import "fmt"

// Key groups rules sharing the same (state, input-or-epsilon, stack top).
type Key struct {
	State State
	Input Symbol
	Top   Symbol
}

// Rule defines one move of the automaton.
// Input is Epsilon for moves that consume no input. Push is written top-first:
// its first element becomes the new stack top, and an empty Push pops only.
type Rule struct {
	From     State
	Input    Symbol
	StackTop Symbol
	To       State
	Push     []Symbol
}

// Key returns the index key of the rule.
func (r Rule) Key() Key {
	return Key{State: r.From, Input: r.Input, Top: r.StackTop}
}

// IsEpsilon reports whether the rule consumes no input.
func (r Rule) IsEpsilon() bool {
	return r.Input == Epsilon
}

// String renders the rule as "q0, a, Z → q0, AZ".
func (r Rule) String() string {
	return fmt.Sprintf("%s, %s, %s → %s, %s", r.From, r.Input, r.StackTop, r.To, FormatPush(r.Push))
}

// Outcome is one applicable move returned by a transition lookup.
// Rule is the position of the originating rule in the model.
type Outcome struct {
	To   State
	Push []Symbol
	Rule int
}
