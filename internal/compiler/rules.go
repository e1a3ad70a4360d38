package compiler

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/aretw0/pdasim/pkg/domain"
)

var arrows = []string{"→", "->"}

// SyntaxError locates a malformed compact rule.
type SyntaxError struct {
	Line int
	Text string
	Msg  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %s: %q", e.Line, e.Msg, e.Text)
}

// ParseRules reads one rule per line in the form "from,input,top→to,push".
// "->" is accepted for the arrow. Blank lines and lines starting with '#'
// are skipped. Epsilon spellings are kept as written; the automaton
// normalizes them.
func ParseRules(text string) ([]domain.TransitionRecord, error) {
	var out []domain.TransitionRecord
	scanner := bufio.NewScanner(strings.NewReader(text))
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		rec, err := parseRule(raw)
		if err != nil {
			return nil, &SyntaxError{Line: line, Text: raw, Msg: err.Error()}
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rules: %w", err)
	}
	return out, nil
}

func parseRule(raw string) (domain.TransitionRecord, error) {
	var lhs, rhs string
	found := false
	for _, arrow := range arrows {
		if l, r, ok := strings.Cut(raw, arrow); ok {
			lhs, rhs, found = l, r, true
			break
		}
	}
	if !found {
		return domain.TransitionRecord{}, fmt.Errorf("missing arrow")
	}

	left := strings.Split(lhs, ",")
	if len(left) != 3 {
		return domain.TransitionRecord{}, fmt.Errorf("left side needs state,input,top")
	}
	to, push, ok := strings.Cut(rhs, ",")
	if !ok {
		return domain.TransitionRecord{}, fmt.Errorf("right side needs state,push")
	}

	rec := domain.TransitionRecord{
		FromState:   strings.TrimSpace(left[0]),
		InputSymbol: strings.TrimSpace(left[1]),
		StackSymbol: strings.TrimSpace(left[2]),
		ToState:     strings.TrimSpace(to),
		StackPush:   strings.TrimSpace(push),
	}
	if rec.FromState == "" || rec.ToState == "" {
		return domain.TransitionRecord{}, fmt.Errorf("empty state")
	}
	if rec.StackSymbol == "" {
		return domain.TransitionRecord{}, fmt.Errorf("empty stack symbol")
	}
	return rec, nil
}

// FormatRules writes records back in compact notation, one per line.
func FormatRules(records []domain.TransitionRecord) string {
	var b strings.Builder
	for _, r := range records {
		input := r.InputSymbol
		if domain.IsEpsilon(input) {
			input = string(domain.Epsilon)
		}
		push := r.StackPush
		if domain.IsEpsilon(push) {
			push = string(domain.Epsilon)
		}
		fmt.Fprintf(&b, "%s,%s,%s→%s,%s\n", r.FromState, input, r.StackSymbol, r.ToState, push)
	}
	return b.String()
}
