package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/internal/compiler"
	"github.com/aretw0/pdasim/internal/validator"
	"github.com/aretw0/pdasim/pkg/automaton"
	"github.com/spf13/cobra"
)

var errLintWarnings = errors.New("lint warnings found")

var validateCmd = &cobra.Command{
	Use:   "validate <definition>",
	Short: "Check a definition for errors and suspicious constructs",
	Long: `Builds the automaton, listing every violated invariant, then lints it for
unreachable states, unused symbols, duplicate rules and epsilon self-loops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		strict, _ := cmd.Flags().GetBool("strict")
		autoDeclare, _ := cmd.Flags().GetBool("auto-declare")
		out := cmd.OutOrStdout()

		loader, err := cli.OpenLoader(cfg)
		if err != nil {
			return err
		}
		def, err := cli.ResolveDefinition(cmd.Context(), args[0], loader)
		if err != nil {
			return err
		}
		if err := compiler.Expand(def); err != nil {
			return err
		}

		var opts []automaton.Option
		if autoDeclare {
			opts = append(opts, automaton.WithAutoDeclare())
		}
		m, err := automaton.FromDefinition(*def, opts...)
		if err != nil {
			errs := automaton.ValidationErrors(err)
			for _, e := range errs {
				fmt.Fprintf(out, "- %v\n", e)
			}
			return fmt.Errorf("validation failed: found %d errors", len(errs))
		}
		for _, sym := range m.AutoDeclared() {
			fmt.Fprintf(out, "info [auto-declared] stack symbol %q was added\n", sym)
		}

		issues := validator.Lint(m)
		warnings := 0
		for _, i := range issues {
			fmt.Fprintln(out, i)
			if i.Severity == validator.SeverityWarning {
				warnings++
			}
		}
		if strict && warnings > 0 {
			return errLintWarnings
		}
		fmt.Fprintf(out, "Definition is valid! ✅ (%d states, %d transitions)\n", len(m.States()), m.RuleCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Fail when the lint reports warnings")
	validateCmd.Flags().Bool("auto-declare", false, "Add undeclared push symbols instead of failing")
}
