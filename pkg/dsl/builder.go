package dsl

import (
	"fmt"

	"github.com/aretw0/pdasim/pkg/adapters/memory"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Builder manages the automaton construction.
type Builder struct {
	name    string
	input   string
	initial string
	start   string
	states  *ordered
	accept  *ordered
	inputs  *ordered
	stack   *ordered
	records []domain.TransitionRecord
}

// New creates a new automaton builder.
func New(name string) *Builder {
	return &Builder{
		name:   name,
		states: newOrdered(),
		accept: newOrdered(),
		inputs: newOrdered(),
		stack:  newOrdered(),
	}
}

// Alphabet declares input symbols up front, e.g. ones no rule reads.
func (b *Builder) Alphabet(symbols ...string) *Builder {
	b.inputs.add(symbols...)
	return b
}

// StackSymbols declares stack symbols up front.
func (b *Builder) StackSymbols(symbols ...string) *Builder {
	b.stack.add(symbols...)
	return b
}

// StartStack sets the initial stack symbol.
func (b *Builder) StartStack(symbol string) *Builder {
	b.start = symbol
	b.stack.add(symbol)
	return b
}

// Input sets the input string of the definition.
func (b *Builder) Input(input string) *Builder {
	b.input = input
	return b
}

// State declares a state and returns its builder.
// Calling it again for the same name continues the same state.
func (b *Builder) State(name string) *StateBuilder {
	b.states.add(name)
	return &StateBuilder{builder: b, name: name}
}

// Definition returns the record built so far, without validating it.
func (b *Builder) Definition() domain.Definition {
	return domain.Definition{
		Name:               b.name,
		States:             b.states.list(),
		Alphabet:           b.inputs.list(),
		StackSymbols:       b.stack.list(),
		InitialState:       b.initial,
		InitialStackSymbol: b.start,
		AcceptStates:       b.accept.list(),
		Transitions:        append([]domain.TransitionRecord(nil), b.records...),
		InputString:        b.input,
	}
}

// Build validates the automaton.
func (b *Builder) Build() (*automaton.Model, error) {
	return automaton.FromDefinition(b.Definition())
}

// Loader compiles the automaton into a memory.Loader keyed by its name.
func (b *Builder) Loader() (*memory.Loader, error) {
	if _, err := b.Build(); err != nil {
		return nil, err
	}
	loader, err := memory.NewFromDefinitions(b.Definition())
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// StateBuilder adds rules leaving one state.
type StateBuilder struct {
	builder *Builder
	name    string
}

// Initial marks the state as the initial state.
func (s *StateBuilder) Initial() *StateBuilder {
	s.builder.initial = s.name
	return s
}

// Accept marks the state as accepting.
func (s *StateBuilder) Accept() *StateBuilder {
	s.builder.accept.add(s.name)
	return s
}

// On starts a rule reading input with top on the stack.
func (s *StateBuilder) On(input, top string) *RuleBuilder {
	s.builder.inputs.add(input)
	s.builder.stack.add(top)
	return &RuleBuilder{state: s, input: input, top: top}
}

// Epsilon starts a rule that consumes no input.
func (s *StateBuilder) Epsilon(top string) *RuleBuilder {
	s.builder.stack.add(top)
	return &RuleBuilder{state: s, input: string(domain.Epsilon), top: top}
}

// RuleBuilder completes one rule.
type RuleBuilder struct {
	state *StateBuilder
	input string
	top   string
	push  []domain.Symbol
}

// Push sets the symbols replacing the top, first one on top.
func (r *RuleBuilder) Push(symbols ...string) *RuleBuilder {
	for _, sym := range symbols {
		r.push = append(r.push, domain.Symbol(sym))
		r.state.builder.stack.add(sym)
	}
	return r
}

// Pop removes the top without pushing anything.
func (r *RuleBuilder) Pop() *RuleBuilder {
	r.push = nil
	return r
}

// Go sets the target state and records the rule.
// It returns the source state so rules can be chained.
func (r *RuleBuilder) Go(to string) *StateBuilder {
	b := r.state.builder
	b.states.add(to)
	b.records = append(b.records, domain.TransitionRecord{
		FromState:   r.state.name,
		InputSymbol: r.input,
		StackSymbol: r.top,
		ToState:     to,
		StackPush:   domain.FormatPush(r.push),
	})
	return r.state
}

// ordered is an insertion-ordered set of names.
type ordered struct {
	seen  map[string]bool
	items []string
}

func newOrdered() *ordered {
	return &ordered{seen: map[string]bool{}}
}

func (o *ordered) add(items ...string) {
	for _, it := range items {
		if !o.seen[it] {
			o.seen[it] = true
			o.items = append(o.items, it)
		}
	}
}

func (o *ordered) list() []string {
	return append([]string(nil), o.items...)
}
