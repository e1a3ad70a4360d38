package validator

import (
	"fmt"
	"slices"

	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Severity ranks a lint finding.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is one finding about a valid but suspicious automaton.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s] %s", i.Severity, i.Code, i.Message)
}

// Lint inspects a validated model for problems that construction accepts:
// unreachable states, unused symbols, dead ends, duplicate rules and
// epsilon self-loops that never terminate on their own.
//
// Reachability ignores the stack, so a state reported reachable may still
// never be entered; one reported unreachable never is.
func Lint(m *automaton.Model) []Issue {
	var issues []Issue
	rules := m.Rules()

	// 1. Reachability from the initial state (breadth-first)
	visited := map[domain.State]bool{m.InitialState(): true}
	queue := []domain.State{m.InitialState()}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, r := range rules {
			if r.From == current && !visited[r.To] {
				visited[r.To] = true
				queue = append(queue, r.To)
			}
		}
	}
	for _, s := range m.States() {
		if !visited[s] {
			issues = append(issues, Issue{SeverityWarning, "unreachable-state", fmt.Sprintf("state %q is unreachable from %q", s, m.InitialState())})
		}
	}

	// 2. Acceptance
	accept := m.AcceptStates()
	if len(accept) == 0 {
		issues = append(issues, Issue{SeverityWarning, "no-accept-state", "no accept states: every input is rejected"})
	} else if !slices.ContainsFunc(accept, func(s domain.State) bool { return visited[s] }) {
		issues = append(issues, Issue{SeverityWarning, "accept-unreachable", "no accept state is reachable: every input is rejected"})
	}

	// 3. Dead ends
	outgoing := map[domain.State]bool{}
	for _, r := range rules {
		outgoing[r.From] = true
	}
	for _, s := range m.States() {
		if visited[s] && !outgoing[s] && !m.IsAccepting(s) {
			issues = append(issues, Issue{SeverityInfo, "dead-state", fmt.Sprintf("state %q has no moves and does not accept", s)})
		}
	}

	// 4. Unused symbols
	readInput := map[domain.Symbol]bool{}
	usedStack := map[domain.Symbol]bool{m.InitialStackSymbol(): true}
	for _, r := range rules {
		readInput[r.Input] = true
		usedStack[r.StackTop] = true
		for _, p := range r.Push {
			usedStack[p] = true
		}
	}
	for _, sym := range m.InputAlphabet() {
		if !readInput[sym] {
			issues = append(issues, Issue{SeverityInfo, "unused-input-symbol", fmt.Sprintf("input symbol %q is never read: inputs containing it are rejected", sym)})
		}
	}
	for _, sym := range m.StackAlphabet() {
		if !usedStack[sym] {
			issues = append(issues, Issue{SeverityInfo, "unused-stack-symbol", fmt.Sprintf("stack symbol %q is never used", sym)})
		}
	}

	// 5. Rule shapes
	seen := map[string]int{}
	for i, r := range rules {
		label := r.String()
		if first, ok := seen[label]; ok {
			issues = append(issues, Issue{SeverityWarning, "duplicate-rule", fmt.Sprintf("transitions[%d] repeats transitions[%d] (%s): every run branches twice", i, first, label)})
		} else {
			seen[label] = i
		}
		if r.IsEpsilon() && r.From == r.To && len(r.Push) > 0 && r.Push[0] == r.StackTop {
			issues = append(issues, Issue{SeverityWarning, "epsilon-loop", fmt.Sprintf("transitions[%d] (%s) can repeat forever: bound runs with a budget or dedup", i, label)})
		}
	}
	return issues
}
