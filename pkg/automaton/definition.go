package automaton

import (
	"slices"
	"strings"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Option configures how a Definition is turned into a Model.
type Option func(*ingest)

type ingest struct {
	autoDeclare bool
}

// WithAutoDeclare adds push symbols missing from the stack alphabet instead of
// rejecting the definition. The added symbols are reported by Model.AutoDeclared.
func WithAutoDeclare() Option {
	return func(i *ingest) {
		i.autoDeclare = true
	}
}

// FromDefinition normalizes epsilon spellings, splits push strings into symbols
// and validates the result.
func FromDefinition(def domain.Definition, opts ...Option) (*Model, error) {
	cfg := &ingest{}
	for _, opt := range opts {
		opt(cfg)
	}

	spec := Spec{
		InitialState:       domain.State(trim(def.InitialState)),
		InitialStackSymbol: domain.NormalizeSymbol(def.InitialStackSymbol),
	}
	for _, s := range def.States {
		spec.States = append(spec.States, domain.State(trim(s)))
	}
	for _, s := range def.AcceptStates {
		spec.AcceptStates = append(spec.AcceptStates, domain.State(trim(s)))
	}
	for _, s := range def.Alphabet {
		spec.InputAlphabet = append(spec.InputAlphabet, domain.NormalizeSymbol(s))
	}
	for _, s := range def.StackSymbols {
		spec.StackAlphabet = append(spec.StackAlphabet, domain.NormalizeSymbol(s))
	}
	for _, t := range def.Transitions {
		spec.Rules = append(spec.Rules, domain.Rule{
			From:     domain.State(trim(t.FromState)),
			Input:    domain.NormalizeSymbol(t.InputSymbol),
			StackTop: domain.NormalizeSymbol(t.StackSymbol),
			To:       domain.State(trim(t.ToState)),
			Push:     domain.SplitSymbols(t.StackPush),
		})
	}

	var added []domain.Symbol
	if cfg.autoDeclare {
		added = declareMissingPush(&spec)
	}

	m, err := New(spec)
	if err != nil {
		return nil, err
	}
	m.autoDeclared = added
	return m, nil
}

func declareMissingPush(spec *Spec) []domain.Symbol {
	var added []domain.Symbol
	for _, r := range spec.Rules {
		for _, p := range r.Push {
			if p == domain.Epsilon || slices.Contains(spec.StackAlphabet, p) {
				continue
			}
			spec.StackAlphabet = append(spec.StackAlphabet, p)
			added = append(added, p)
		}
	}
	return added
}

// Definition renders the model back into the record loaders produce.
// FromDefinition(m.Definition()) yields an equivalent model.
func (m *Model) Definition() domain.Definition {
	def := domain.Definition{
		InitialState:       string(m.initialState),
		InitialStackSymbol: string(m.initialStack),
		States:             make([]string, 0, len(m.states)),
		Alphabet:           make([]string, 0, len(m.inputAlphabet)),
		StackSymbols:       make([]string, 0, len(m.stackAlphabet)),
		AcceptStates:       make([]string, 0, len(m.acceptStates)),
		Transitions:        make([]domain.TransitionRecord, 0, len(m.rules)),
	}
	for _, s := range m.states {
		def.States = append(def.States, string(s))
	}
	for _, s := range m.inputAlphabet {
		def.Alphabet = append(def.Alphabet, string(s))
	}
	for _, s := range m.stackAlphabet {
		def.StackSymbols = append(def.StackSymbols, string(s))
	}
	for _, s := range m.acceptStates {
		def.AcceptStates = append(def.AcceptStates, string(s))
	}
	for _, r := range m.rules {
		def.Transitions = append(def.Transitions, domain.TransitionRecord{
			FromState:   string(r.From),
			InputSymbol: string(r.Input),
			StackSymbol: string(r.StackTop),
			ToState:     string(r.To),
			StackPush:   domain.FormatPush(r.Push),
		})
	}
	return def
}

func trim(s string) string {
	return strings.TrimSpace(s)
}
