package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the pdasim ASCII banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text, color string
	}{
		{"             _           _", "#818cf8"},
		{"  _ __   __| | __ _ ___(_)_ __ ___", "#a78bfa"},
		{" | '_ \\ / _` |/ _` / __| | '_ ` _ \\ ", "#c084fc"},
		{" | |_) | (_| | (_| \\__ \\ | | | | | |", "#e879f9"},
		{" | .__/ \\__,_|\\__,_|___/_|_| |_| |_|", "#f472b6"},
		{" |_|", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}

// Verdict colors a verdict or phase word for terminal output: green for
// accepted, red for rejected, yellow otherwise.
func Verdict(s string) string {
	p := termenv.ColorProfile()
	color := "#facc15"
	switch s {
	case "accepted", "halted_accepted", "ACCEPTED":
		color = "#4ade80"
	case "rejected", "halted_rejected", "halted_stuck", "REJECTED":
		color = "#f87171"
	}
	return termenv.String(s).Foreground(p.Color(color)).Bold().String()
}
