package main

import (
	"fmt"
	"os"

	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// exitRejected is the status of --exit-code runs that did not accept.
const exitRejected = 3

var runCmd = &cobra.Command{
	Use:   "run <definition>",
	Short: "Simulate a definition until it halts or the budget is spent",
	Long: `Runs the automaton in a definition file (JSON or YAML), or a definition ID
from --library, printing every generation and the final verdict.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quiet, _ := cmd.Flags().GetBool("quiet")
		watch, _ := cmd.Flags().GetBool("watch")
		runID, _ := cmd.Flags().GetString("run-id")
		fresh, _ := cmd.Flags().GetBool("fresh")
		exitCode, _ := cmd.Flags().GetBool("exit-code")

		tty := term.IsTerminal(int(os.Stdout.Fd()))
		width := 0
		if tty {
			width, _, _ = term.GetSize(int(os.Stdout.Fd()))
		}
		if tty && !quiet && cfg.Format == "text" {
			tui.PrintBanner(os.Stdout)
		}

		opts := cli.RunOptions{
			Config: cfg,
			Source: args[0],
			RunID:  runID,
			Fresh:  fresh,
			Pretty: tty,
			Width:  width,
			Quiet:  quiet,
			Watch:  watch,
			Stdout: cmd.OutOrStdout(),
			Logger: logger,
		}
		if cmd.Flags().Changed("input") {
			input, _ := cmd.Flags().GetString("input")
			opts.Input = &input
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		res, err := cli.Execute(sigCtx, opts)
		if err != nil {
			return fmt.Errorf("run failed: %w", err)
		}
		if exitCode && !watch && !res.Accepted() {
			os.Exit(exitRejected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.StringP("input", "i", "", "Input string (overrides the definition's input_string)")
	f.IntP("budget", "b", 1000, "Maximum generations to compute (0 for no limit)")
	f.Duration("delay", 0, "Pause between generations")
	f.Bool("dedup", false, "Drop configurations already seen in an earlier generation")
	f.Bool("stop-on-accept", false, "Stop as soon as a configuration accepts")
	f.StringP("format", "f", "text", "Output format: text, json or table")
	f.Bool("traces", true, "Print traces in the final report")
	f.String("run-id", "", "Persist the run under this ID and resume it if it exists")
	f.Bool("fresh", false, "Discard the stored run before starting")
	f.BoolP("quiet", "q", false, "Print only the final report")
	f.BoolP("watch", "w", false, "Re-run whenever the definition file changes")
	f.Bool("exit-code", false, "Exit with status 3 when the input is not accepted")
}
