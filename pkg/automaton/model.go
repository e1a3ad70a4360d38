package automaton

import (
	"fmt"
	"slices"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Spec lists the components of an automaton before validation.
type Spec struct {
	States             []domain.State
	InputAlphabet      []domain.Symbol
	StackAlphabet      []domain.Symbol
	Rules              []domain.Rule
	InitialState       domain.State
	InitialStackSymbol domain.Symbol
	AcceptStates       []domain.State
}

// Model is an immutable, validated pushdown automaton.
// Every accessor returns a copy; edits require building a new Model.
type Model struct {
	states        []domain.State
	inputAlphabet []domain.Symbol
	stackAlphabet []domain.Symbol
	rules         []domain.Rule
	initialState  domain.State
	initialStack  domain.Symbol
	acceptStates  []domain.State

	stateSet  map[domain.State]struct{}
	inputSet  map[domain.Symbol]struct{}
	stackSet  map[domain.Symbol]struct{}
	acceptSet map[domain.State]struct{}

	autoDeclared []domain.Symbol
}

// New validates spec and builds a Model.
// On failure it returns an *AggregateError listing every violated invariant.
func New(spec Spec) (*Model, error) {
	v := &validation{}

	stateSet := declareStates(v, "states", spec.States)
	inputSet := declareSymbols(v, "alphabet", spec.InputAlphabet)
	stackSet := declareSymbols(v, "stack_symbols", spec.StackAlphabet)

	if len(spec.States) == 0 {
		v.add("states", "at least one state is required", nil)
	}
	if len(spec.StackAlphabet) == 0 {
		v.add("stack_symbols", "at least one stack symbol is required", nil)
	}

	switch {
	case spec.InitialState == "":
		v.add("initial_state", "required", nil)
	case !has(stateSet, spec.InitialState):
		v.add("initial_state", "not declared in states", spec.InitialState)
	}

	switch {
	case spec.InitialStackSymbol == "" || spec.InitialStackSymbol == domain.Epsilon:
		v.add("initial_stack_symbol", "required", nil)
	case !has(stackSet, spec.InitialStackSymbol):
		v.add("initial_stack_symbol", "not declared in stack_symbols", spec.InitialStackSymbol)
	}

	acceptSet := make(map[domain.State]struct{}, len(spec.AcceptStates))
	for i, s := range spec.AcceptStates {
		if !has(stateSet, s) {
			v.add(fmt.Sprintf("accept_states[%d]", i), "not declared in states", s)
			continue
		}
		acceptSet[s] = struct{}{}
	}

	for i, r := range spec.Rules {
		validateRule(v, i, r, stateSet, inputSet, stackSet)
	}

	if err := v.err(); err != nil {
		return nil, err
	}

	m := &Model{
		states:        slices.Clone(spec.States),
		inputAlphabet: slices.Clone(spec.InputAlphabet),
		stackAlphabet: slices.Clone(spec.StackAlphabet),
		rules:         make([]domain.Rule, len(spec.Rules)),
		initialState:  spec.InitialState,
		initialStack:  spec.InitialStackSymbol,
		acceptStates:  slices.Clone(spec.AcceptStates),
		stateSet:      stateSet,
		inputSet:      inputSet,
		stackSet:      stackSet,
		acceptSet:     acceptSet,
	}
	for i, r := range spec.Rules {
		r.Push = slices.Clone(r.Push)
		m.rules[i] = r
	}
	return m, nil
}

func validateRule(v *validation, i int, r domain.Rule, states map[domain.State]struct{}, inputs, stack map[domain.Symbol]struct{}) {
	field := func(name string) string {
		return fmt.Sprintf("transitions[%d].%s", i, name)
	}
	if !has(states, r.From) {
		v.add(field("from_state"), "not declared in states", r.From)
	}
	if !has(states, r.To) {
		v.add(field("to_state"), "not declared in states", r.To)
	}
	if r.Input != domain.Epsilon && !has(inputs, r.Input) {
		v.add(field("input_symbol"), "not declared in alphabet", r.Input)
	}
	if !has(stack, r.StackTop) {
		v.add(field("stack_symbol"), "not declared in stack_symbols", r.StackTop)
	}
	for j, p := range r.Push {
		if !has(stack, p) {
			v.add(fmt.Sprintf("%s[%d]", field("stack_push"), j), "not declared in stack_symbols", p)
		}
	}
}

func declareStates(v *validation, field string, states []domain.State) map[domain.State]struct{} {
	set := make(map[domain.State]struct{}, len(states))
	for i, s := range states {
		switch {
		case s == "":
			v.add(fmt.Sprintf("%s[%d]", field, i), "empty state name", nil)
		case has(set, s):
			v.add(fmt.Sprintf("%s[%d]", field, i), "declared twice", s)
		default:
			set[s] = struct{}{}
		}
	}
	return set
}

func declareSymbols(v *validation, field string, symbols []domain.Symbol) map[domain.Symbol]struct{} {
	set := make(map[domain.Symbol]struct{}, len(symbols))
	for i, s := range symbols {
		switch {
		case s == domain.Epsilon || domain.IsEpsilon(string(s)):
			v.add(fmt.Sprintf("%s[%d]", field, i), "epsilon is reserved and cannot be declared", s)
		case domain.HasSeparator(string(s)):
			v.add(fmt.Sprintf("%s[%d]", field, i), "contains a comma or whitespace", s)
		case has(set, s):
			v.add(fmt.Sprintf("%s[%d]", field, i), "declared twice", s)
		default:
			set[s] = struct{}{}
		}
	}
	return set
}

func has[K comparable](set map[K]struct{}, k K) bool {
	_, ok := set[k]
	return ok
}

type validation struct {
	errs []error
}

func (v *validation) add(field, reason string, value any) {
	v.errs = append(v.errs, &ValidationError{Field: field, Reason: reason, Value: value})
}

func (v *validation) err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: v.errs}
}

// States returns the declared states in declaration order.
func (m *Model) States() []domain.State { return slices.Clone(m.states) }

// InputAlphabet returns the declared input symbols.
func (m *Model) InputAlphabet() []domain.Symbol { return slices.Clone(m.inputAlphabet) }

// StackAlphabet returns the declared stack symbols.
func (m *Model) StackAlphabet() []domain.Symbol { return slices.Clone(m.stackAlphabet) }

// AcceptStates returns the accept states in declaration order.
func (m *Model) AcceptStates() []domain.State { return slices.Clone(m.acceptStates) }

// InitialState returns the start state.
func (m *Model) InitialState() domain.State { return m.initialState }

// InitialStackSymbol returns the symbol the stack starts with.
func (m *Model) InitialStackSymbol() domain.Symbol { return m.initialStack }

// AutoDeclared lists the push symbols that were added to the stack alphabet
// during ingestion because the definition forgot to declare them.
func (m *Model) AutoDeclared() []domain.Symbol { return slices.Clone(m.autoDeclared) }

// Rules returns a copy of the transition rules in definition order.
func (m *Model) Rules() []domain.Rule {
	out := make([]domain.Rule, len(m.rules))
	for i, r := range m.rules {
		r.Push = slices.Clone(r.Push)
		out[i] = r
	}
	return out
}

// Rule returns the i-th rule.
func (m *Model) Rule(i int) (domain.Rule, bool) {
	if i < 0 || i >= len(m.rules) {
		return domain.Rule{}, false
	}
	r := m.rules[i]
	r.Push = slices.Clone(r.Push)
	return r, true
}

// RuleCount returns the number of rules.
func (m *Model) RuleCount() int { return len(m.rules) }

// IsAccepting reports whether s is an accept state.
func (m *Model) IsAccepting(s domain.State) bool { return has(m.acceptSet, s) }

// HasState reports whether s is declared.
func (m *Model) HasState(s domain.State) bool { return has(m.stateSet, s) }

// HasInputSymbol reports whether s belongs to the input alphabet.
func (m *Model) HasInputSymbol(s domain.Symbol) bool { return has(m.inputSet, s) }
