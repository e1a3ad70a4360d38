package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/pdasim/pkg/domain"
)

// ContentRenderer transforms the final report before it is written.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// TextHandler prints a status block per generation and a report at the end.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer

	// Traces prints the path of every reported configuration in the report.
	Traces bool
	// Quiet suppresses the per-generation status blocks.
	Quiet bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the report renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithTextHandlerTraces prints execution traces in the report.
func WithTextHandlerTraces() TextHandlerOption {
	return func(h *TextHandler) {
		h.Traces = true
	}
}

// WithTextHandlerQuiet prints only the report.
func WithTextHandlerQuiet() TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = true
	}
}

// NewTextHandler creates a handler writing to w (stdout when nil).
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Step(ctx context.Context, snap domain.Snapshot) error {
	if h.Quiet {
		return nil
	}
	_, err := fmt.Fprintln(h.Writer, StatusLine(snap))
	return err
}

// StatusLine describes a snapshot: the number of active configurations and
// the first one in detail.
func StatusLine(snap domain.Snapshot) string {
	if len(snap.Frontier) == 0 {
		return fmt.Sprintf("Step %d: No valid configurations remain. String rejected.", snap.Step)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Step %d: %d active configuration(s)", snap.Step, len(snap.Frontier))
	c := snap.Frontier[0]
	fmt.Fprintf(&b, "\nCurrent State: %s", c.State)
	fmt.Fprintf(&b, "\nRemaining Input: %s", orEpsilon(c.RemainingInput))
	stack := domain.FormatSymbols(c.Stack)
	if stack == "" {
		stack = "empty"
	}
	fmt.Fprintf(&b, "\nStack: %s", stack)
	if c.Label != "" {
		fmt.Fprintf(&b, "\nTransition: %s", c.Label)
	}
	return b.String()
}

func (h *TextHandler) Finish(ctx context.Context, res Result) error {
	report := Report(res, h.Traces)
	if h.Renderer != nil {
		rendered, err := h.Renderer(report)
		if err != nil {
			return err
		}
		report = rendered
	}
	_, err := fmt.Fprint(h.Writer, report)
	return err
}

// Report renders the outcome of a run as markdown.
func Report(res Result, withTraces bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Result: %s\n\n", strings.ToUpper(string(res.Snapshot.Verdict)))
	fmt.Fprintf(&b, "- Stopped: %s after %d step(s)\n", res.Reason, res.Snapshot.Step)
	fmt.Fprintf(&b, "- Phase: %s\n", res.Snapshot.Phase)
	fmt.Fprintf(&b, "- Active configurations: %d\n", len(res.Snapshot.Frontier))
	if res.Reason == StopBudget {
		b.WriteString("\nThe step budget was spent before the run halted; the verdict may still change.\n")
	}
	if !withTraces || len(res.Traces) == 0 {
		return b.String()
	}

	title := "Execution Traces"
	if res.Accepted() {
		title = "Accepting Traces"
	}
	fmt.Fprintf(&b, "\n### %s\n", title)
	for i, t := range res.Traces {
		fmt.Fprintf(&b, "\nTrace %d:\n\n", i+1)
		for j, c := range t {
			fmt.Fprintf(&b, "%d. %s", j, c)
			if c.Label != "" {
				fmt.Fprintf(&b, " (via %s)", c.Label)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

func orEpsilon(seq []domain.Symbol) string {
	if len(seq) == 0 {
		return string(domain.Epsilon)
	}
	return domain.FormatSymbols(seq)
}
