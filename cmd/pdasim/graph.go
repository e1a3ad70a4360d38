package main

import (
	"fmt"

	"github.com/aretw0/pdasim"
	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/internal/presentation/graph"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <definition>",
	Short: "Export the state diagram as Mermaid",
	Long: `Outputs a Mermaid flowchart of the automaton. With --trace the input is
simulated first and the first accepting trace (or the first frontier trace)
is highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		withTrace, _ := cmd.Flags().GetBool("trace")

		loader, err := cli.OpenLoader(cfg)
		if err != nil {
			return err
		}
		def, err := cli.ResolveDefinition(cmd.Context(), args[0], loader)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("input") {
			def.InputString, _ = cmd.Flags().GetString("input")
		}

		eng, err := pdasim.New(*def, pdasim.WithLogger(logger))
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if withTrace {
			res, err := eng.Run(cmd.Context(),
				runner.WithBudget(cfg.Budget),
				runner.WithStopOnAccept(),
				runner.WithLogger(logger),
			)
			if err != nil {
				return err
			}
			if len(res.Traces) > 0 {
				overlay = &graph.Overlay{Trace: res.Traces[0]}
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(eng.Model(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("trace", false, "Highlight the path of a simulated run")
	graphCmd.Flags().StringP("input", "i", "", "Input string for --trace")
	graphCmd.Flags().IntP("budget", "b", 1000, "Maximum generations for --trace")
}
