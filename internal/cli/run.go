package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/config"
	"github.com/aretw0/pdasim/internal/logging"
	"github.com/aretw0/pdasim/internal/presentation/tui"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/ports"
	"github.com/aretw0/pdasim/pkg/runner"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Config *config.Config
	// Source is a definition file path or a library definition ID.
	Source string
	// Input overrides the definition's input string when set.
	Input *string
	// RunID persists every generation under this ID and resumes from it.
	RunID string
	// Fresh discards a stored run before starting.
	Fresh bool
	// Pretty renders the final report through glamour, wrapped at Width.
	Pretty bool
	Width  int
	Quiet  bool
	Watch  bool

	Stdout io.Writer
	Logger *slog.Logger
}

func (o *RunOptions) stdout() io.Writer {
	if o.Stdout == nil {
		return os.Stdout
	}
	return o.Stdout
}

// Execute runs a definition to completion, dispatching to watch mode when
// requested.
func Execute(ctx context.Context, opts RunOptions) (runner.Result, error) {
	if opts.Config == nil {
		return runner.Result{}, errors.New("missing configuration")
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	if opts.Watch {
		if opts.Config.Format == "json" {
			return runner.Result{}, fmt.Errorf("--watch and --format=json cannot be used together")
		}
		return runner.Result{}, RunWatch(ctx, opts)
	}

	backend, err := OpenBackend(opts.Config)
	if err != nil {
		return runner.Result{}, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			opts.Logger.Warn("Failed to close store", "err", err)
		}
	}()

	loader, err := OpenLoader(opts.Config)
	if err != nil {
		return runner.Result{}, err
	}
	return runOnce(ctx, opts, backend.Store, loader)
}

func runOnce(ctx context.Context, opts RunOptions, store ports.RunStore, loader ports.DefinitionLoader) (runner.Result, error) {
	logger := opts.Logger

	if opts.RunID != "" && opts.Fresh {
		if err := store.Delete(ctx, opts.RunID); err != nil && !errors.Is(err, domain.ErrRunNotFound) {
			return runner.Result{}, fmt.Errorf("failed to reset run %s: %w", opts.RunID, err)
		}
	}

	eng, resumed, err := openEngine(ctx, opts, store, loader)
	if err != nil {
		return runner.Result{}, err
	}
	logRunStatus(logger, opts.stdout(), opts.RunID, eng.Step(), resumed, opts.Quiet || opts.Config.Format == "json")

	r := runner.New(runnerOptions(opts, store)...)
	res, err := r.Run(ctx, eng)
	if err != nil {
		return res, err
	}
	logCompletion(ctx, opts.stdout(), res, opts.Quiet || opts.Config.Format == "json")
	return res, nil
}

// openEngine resumes opts.RunID from store when a checkpoint exists and
// otherwise builds a fresh engine from opts.Source.
func openEngine(ctx context.Context, opts RunOptions, store ports.RunStore, loader ports.DefinitionLoader) (*pdasim.Engine, bool, error) {
	engOpts := []pdasim.Option{pdasim.WithLogger(opts.Logger)}
	if opts.RunID != "" {
		engOpts = append(engOpts, pdasim.WithRunID(opts.RunID))
		cp, err := store.Load(ctx, opts.RunID)
		switch {
		case err == nil:
			eng, err := pdasim.Restore(cp, engOpts...)
			if err != nil {
				return nil, false, fmt.Errorf("failed to resume run %s: %w", opts.RunID, err)
			}
			return eng, true, nil
		case !errors.Is(err, domain.ErrRunNotFound):
			return nil, false, fmt.Errorf("failed to load run %s: %w", opts.RunID, err)
		}
	}

	def, err := ResolveDefinition(ctx, opts.Source, loader)
	if err != nil {
		return nil, false, err
	}
	if opts.Input != nil {
		def.InputString = *opts.Input
	}
	eng, err := pdasim.New(*def, engOpts...)
	if err != nil {
		return nil, false, err
	}
	return eng, false, nil
}

func runnerOptions(opts RunOptions, store ports.RunStore) []runner.Option {
	cfg := opts.Config
	ropts := []runner.Option{
		runner.WithLogger(opts.Logger),
		runner.WithBudget(cfg.Budget),
		runner.WithDelay(cfg.Delay),
		runner.WithHandler(newHandler(opts)),
	}
	if cfg.Dedup {
		ropts = append(ropts, runner.WithDedup())
	}
	if cfg.StopOnAccept {
		ropts = append(ropts, runner.WithStopOnAccept())
	}
	if opts.RunID != "" {
		ropts = append(ropts, runner.WithStore(store, opts.RunID))
	}
	return ropts
}

func newHandler(opts RunOptions) runner.Handler {
	w := opts.stdout()
	switch opts.Config.Format {
	case "json":
		return runner.NewJSONHandler(w)
	case "table":
		return &TableHandler{Writer: w, Traces: opts.Config.Traces, Quiet: opts.Quiet}
	default:
		var hopts []runner.TextHandlerOption
		if opts.Config.Traces {
			hopts = append(hopts, runner.WithTextHandlerTraces())
		}
		if opts.Quiet {
			hopts = append(hopts, runner.WithTextHandlerQuiet())
		}
		if opts.Pretty {
			hopts = append(hopts, runner.WithTextHandlerRenderer(tui.NewRenderer(opts.Width)))
		}
		return runner.NewTextHandler(w, hopts...)
	}
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logRunStatus(logger *slog.Logger, w io.Writer, runID string, step int, resumed, quiet bool) {
	if resumed {
		logger.Info("Run Resumed", "run_id", runID, "step", step)
		if !quiet {
			printSystemMessage(w, "Resuming run '%s' at step %d...", runID, step)
		}
	} else if runID != "" {
		logger.Info("Run Created", "run_id", runID)
		if !quiet {
			printSystemMessage(w, "Run '%s' active.", runID)
		}
	}
}

func logCompletion(ctx context.Context, w io.Writer, res runner.Result, quiet bool) {
	if quiet {
		return
	}
	if res.Reason == runner.StopCanceled {
		sig := "context canceled"
		if sc, ok := ctx.(*SignalContext); ok && sc.Signal() != nil {
			sig = sc.Signal().String()
		}
		printSystemMessage(w, "Interrupted at step %d (%s).", res.Snapshot.Step, sig)
		return
	}
	printSystemMessage(w, "Finished at step %d: %s.", res.Snapshot.Step, tui.Verdict(string(res.Snapshot.Verdict)))
}
