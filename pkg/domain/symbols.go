package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// State identifies a control state of the automaton.
type State string

// Symbol is a token of the input alphabet or of the stack alphabet.
type Symbol string

// Epsilon is the reserved token meaning "no symbol consumed" when used as a rule
// input and "nothing pushed" when used as a push sequence.
const Epsilon Symbol = "ε"

// epsilonSpellings lists the encodings of epsilon accepted at ingestion.
// The mojibake variants come from definitions saved with the wrong charset.
var epsilonSpellings = map[string]struct{}{
	"":   {},
	"ε":  {},
	"ϵ":  {},
	"Îµ": {},
	"Ïµ": {},
}

// IsEpsilon reports whether raw is one of the accepted epsilon spellings.
func IsEpsilon(raw string) bool {
	_, ok := epsilonSpellings[strings.TrimSpace(raw)]
	return ok
}

// NormalizeSymbol trims raw and maps every epsilon spelling to Epsilon.
func NormalizeSymbol(raw string) Symbol {
	if IsEpsilon(raw) {
		return Epsilon
	}
	return Symbol(strings.TrimSpace(raw))
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// HasSeparator reports whether raw contains a comma or whitespace. Such a
// symbol cannot survive SplitSymbols, so it cannot be declared.
func HasSeparator(raw string) bool {
	return strings.IndexFunc(raw, isSeparator) >= 0
}

// SplitSymbols turns a textual sequence into symbols.
// If raw contains commas or whitespace those separate multi-character tokens,
// otherwise every rune is one symbol ("AZ" is [A Z]). Epsilon spellings yield
// an empty sequence.
func SplitSymbols(raw string) []Symbol {
	if IsEpsilon(raw) {
		return nil
	}
	raw = strings.TrimSpace(raw)
	if strings.IndexFunc(raw, isSeparator) >= 0 {
		fields := strings.FieldsFunc(raw, isSeparator)
		out := make([]Symbol, 0, len(fields))
		for _, f := range fields {
			out = append(out, Symbol(f))
		}
		return out
	}
	out := make([]Symbol, 0, utf8.RuneCountInString(raw))
	for _, r := range raw {
		out = append(out, Symbol(string(r)))
	}
	return out
}

// FormatSymbols is the inverse of SplitSymbols for non-empty sequences.
// Single-rune symbols are concatenated; otherwise symbols are comma-joined, and
// a lone multi-rune symbol gets a trailing comma so it splits back unchanged.
func FormatSymbols(seq []Symbol) string {
	if len(seq) == 0 {
		return ""
	}
	compact := true
	for _, s := range seq {
		if utf8.RuneCountInString(string(s)) != 1 || strings.IndexFunc(string(s), isSeparator) >= 0 {
			compact = false
			break
		}
	}
	parts := make([]string, len(seq))
	for i, s := range seq {
		parts[i] = string(s)
	}
	if compact {
		return strings.Join(parts, "")
	}
	if len(parts) == 1 {
		return parts[0] + ","
	}
	return strings.Join(parts, ",")
}

// FormatPush renders a push sequence, using Epsilon for pop-only moves.
func FormatPush(push []Symbol) string {
	if len(push) == 0 {
		return string(Epsilon)
	}
	return FormatSymbols(push)
}
