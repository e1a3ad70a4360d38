package tui

import (
	"fmt"
	"io"
	"strconv"

	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/jedib0t/go-pretty/v6/table"
)

// FrontierTable writes the active configurations of snap as a table.
func FrontierTable(w io.Writer, snap domain.Snapshot) {
	if len(snap.Frontier) == 0 {
		_, _ = fmt.Fprintf(w, "Step %d: (no configurations)\n", snap.Step)
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Step %d: %s", snap.Step, snap.Phase))
	t.AppendHeader(table.Row{"ID", "State", "Remaining Input", "Stack", "Parent", "Via"})

	for _, c := range snap.Frontier {
		input := domain.FormatSymbols(c.RemainingInput)
		if input == "" {
			input = string(domain.Epsilon)
		}
		stack := domain.FormatSymbols(c.Stack)
		if stack == "" {
			stack = "empty"
		}
		parent := "-"
		if c.HasParent {
			parent = strconv.Itoa(int(c.Parent))
		}
		t.AppendRow(table.Row{c.ID, c.State, input, stack, parent, c.Label})
	}
	t.Render()
}

// TraceTable writes one trace as a numbered table of configurations.
func TraceTable(w io.Writer, title string, tr domain.Trace) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"#", "Configuration", "Via"})
	for i, c := range tr {
		t.AppendRow(table.Row{i + 1, c.String(), c.Label})
	}
	t.Render()
}
