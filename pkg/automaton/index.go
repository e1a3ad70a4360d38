package automaton

import (
	"slices"

	"github.com/aretw0/pdasim/pkg/domain"
)

// Index answers "which moves apply from (state, input-or-epsilon, top)?".
// Outcomes keep the order of the rules in the model, duplicates included.
type Index struct {
	entries map[domain.Key][]domain.Outcome
	keys    []domain.Key
}

// NewIndex groups the rules of m by key.
func NewIndex(m *Model) *Index {
	idx := &Index{
		entries: make(map[domain.Key][]domain.Outcome),
	}
	for i, r := range m.rules {
		k := r.Key()
		if _, ok := idx.entries[k]; !ok {
			idx.keys = append(idx.keys, k)
		}
		idx.entries[k] = append(idx.entries[k], domain.Outcome{
			To:   r.To,
			Push: slices.Clone(r.Push),
			Rule: i,
		})
	}
	return idx
}

// Lookup returns the outcomes registered under exactly (state, input, top).
// Callers must not modify the returned slice.
func (x *Index) Lookup(state domain.State, input, top domain.Symbol) []domain.Outcome {
	return x.entries[domain.Key{State: state, Input: input, Top: top}]
}

// Candidates returns the input-consuming moves for sym followed by the epsilon
// moves. When hasSym is false only epsilon moves are returned.
func (x *Index) Candidates(state domain.State, sym domain.Symbol, hasSym bool, top domain.Symbol) []domain.Outcome {
	eps := x.Lookup(state, domain.Epsilon, top)
	if !hasSym || sym == domain.Epsilon {
		return eps
	}
	consuming := x.Lookup(state, sym, top)
	if len(eps) == 0 {
		return consuming
	}
	out := make([]domain.Outcome, 0, len(consuming)+len(eps))
	out = append(out, consuming...)
	return append(out, eps...)
}

// HasEpsilon reports whether an epsilon move applies from (state, top).
func (x *Index) HasEpsilon(state domain.State, top domain.Symbol) bool {
	return len(x.Lookup(state, domain.Epsilon, top)) > 0
}

// Keys lists the distinct keys in first-seen rule order.
func (x *Index) Keys() []domain.Key {
	return slices.Clone(x.keys)
}

// Len returns the number of distinct keys.
func (x *Index) Len() int {
	return len(x.keys)
}
