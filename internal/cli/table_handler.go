package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/pdasim/internal/presentation/tui"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/runner"
)

// TableHandler prints each generation as a table of configurations.
type TableHandler struct {
	Writer io.Writer
	Traces bool
	Quiet  bool
}

func (h *TableHandler) Step(ctx context.Context, snap domain.Snapshot) error {
	if h.Quiet {
		return nil
	}
	tui.FrontierTable(h.Writer, snap)
	return nil
}

func (h *TableHandler) Finish(ctx context.Context, res runner.Result) error {
	fmt.Fprintf(h.Writer, "Result: %s (%s after %d step(s))\n",
		strings.ToUpper(string(res.Snapshot.Verdict)), res.Reason, res.Snapshot.Step)
	if !h.Traces {
		return nil
	}
	for i, t := range res.Traces {
		tui.TraceTable(h.Writer, fmt.Sprintf("Trace %d", i+1), t)
	}
	return nil
}
