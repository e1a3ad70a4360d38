package runner

import (
	"testing"

	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestDedup_Keep(t *testing.T) {
	d := NewDedup()
	view := func(id domain.ConfigID, state string, input string, stack ...domain.Symbol) domain.ConfigView {
		return domain.ConfigView{ID: id, State: domain.State(state), RemainingInput: domain.SplitSymbols(input), Stack: stack}
	}

	assert.True(t, d.Keep(view(1, "q0", "ab", "Z")))
	assert.True(t, d.Keep(view(1, "q0", "ab", "Z")), "a retained configuration keeps its ID")
	assert.False(t, d.Keep(view(2, "q0", "ab", "Z")))
	assert.True(t, d.Keep(view(3, "q0", "ab", "A", "Z")))
	assert.True(t, d.Keep(view(4, "q0", "b", "Z")))
	assert.True(t, d.Keep(view(5, "q1", "ab", "Z")))

	// Symbol boundaries matter: "AB" as one symbol differs from A then B.
	assert.True(t, d.Keep(view(6, "q0", "", "AB")))
	assert.True(t, d.Keep(view(7, "q0", "", "A", "B")))
}

func TestDedup_Seed(t *testing.T) {
	d := NewDedup()
	history := []domain.ConfigView{
		{ID: 0, State: "q0", RemainingInput: []domain.Symbol{"a"}, Stack: []domain.Symbol{"Z"}},
		{ID: 1, State: "q0", Stack: []domain.Symbol{"A", "Z"}},
		{ID: 2, State: "q0", RemainingInput: []domain.Symbol{"a"}, Stack: []domain.Symbol{"Z"}},
	}
	d.Seed(history)

	assert.True(t, d.Keep(history[0]), "the root is known under its own ID")
	assert.True(t, d.Keep(history[1]))
	assert.False(t, d.Keep(history[2]), "a pruned twin stays pruned")
	assert.False(t, d.Keep(domain.ConfigView{ID: 9, State: "q0", Stack: []domain.Symbol{"A", "Z"}}))
}
