package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/aretw0/pdasim/pkg/domain"
)

// Overlay marks one run on the diagram: every state and move the trace
// passed through is styled visited, and its last state current.
type Overlay struct {
	Trace domain.Trace
}

// GenerateMermaid renders the state diagram of m as a Mermaid flowchart.
// Shapes:
// - Initial state: ((Circle))
// - Accept state: (((Double circle)))
// - Other states: [Rectangle]
// Rules sharing a source and target are merged into one edge whose label
// lists "input, top / push" per rule. Epsilon moves are drawn dotted.
func GenerateMermaid(m *automaton.Model, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, s := range m.States() {
		opener, closer := "[", "]"
		switch {
		case m.IsAccepting(s):
			opener, closer = "(((", ")))"
		case s == m.InitialState():
			opener, closer = "((", "))"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(string(s)), opener, escapeLabel(string(s)), closer))
	}

	edges := collectEdges(m.Rules())
	for _, e := range edges {
		arrow := fmt.Sprintf("-- \"%s\" -->", strings.Join(e.labels, "<br/>"))
		if e.epsilonOnly {
			arrow = fmt.Sprintf("-. \"%s\" .->", strings.Join(e.labels, "<br/>"))
		}
		sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(string(e.from)), arrow, sanitizeMermaidID(string(e.to))))
	}

	if overlay != nil && len(overlay.Trace) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, c := range overlay.Trace {
			id := sanitizeMermaidID(string(c.State))
			if !visited[id] {
				visited[id] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", id))
			}
		}
		last := overlay.Trace[len(overlay.Trace)-1]
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(string(last.State))))

		taken := make(map[int]bool)
		for i := 1; i < len(overlay.Trace); i++ {
			from, to := overlay.Trace[i-1].State, overlay.Trace[i].State
			for n, e := range edges {
				if e.from == from && e.to == to && !taken[n] {
					taken[n] = true
					sb.WriteString(fmt.Sprintf("    linkStyle %d stroke:#01579b,stroke-width:3px;\n", n))
				}
			}
		}
	}

	return sb.String()
}

type edge struct {
	from, to    domain.State
	labels      []string
	epsilonOnly bool
}

// collectEdges merges rules by (from, to), keeping first-seen order.
func collectEdges(rules []domain.Rule) []edge {
	var edges []edge
	pos := make(map[[2]domain.State]int)
	for _, r := range rules {
		k := [2]domain.State{r.From, r.To}
		label := escapeLabel(fmt.Sprintf("%s, %s / %s", r.Input, r.StackTop, domain.FormatPush(r.Push)))
		i, ok := pos[k]
		if !ok {
			pos[k] = len(edges)
			edges = append(edges, edge{from: r.From, to: r.To, labels: []string{label}, epsilonOnly: r.IsEpsilon()})
			continue
		}
		edges[i].labels = append(edges[i].labels, label)
		edges[i].epsilonOnly = edges[i].epsilonOnly && r.IsEpsilon()
	}
	return edges
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	// Mermaid reserves "end" as a keyword
	if strings.EqualFold(s, "end") {
		s = "state_" + s
	}
	return s
}
