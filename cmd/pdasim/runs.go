package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/internal/presentation/tui"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage persisted runs",
	Long:  `List, inspect and remove runs stored by 'run --run-id' or the servers.`,
}

func openSessions() (*session.Manager, func(), error) {
	backend, err := cli.OpenBackend(cfg)
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if err := backend.Close(); err != nil {
			logger.Warn("Failed to close store", "err", err)
		}
	}
	return session.NewManager(backend.Store, session.WithLogger(logger)), closer, nil
}

var runsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List stored runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, closer, err := openSessions()
		if err != nil {
			return err
		}
		defer closer()

		ids, err := sessions.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No stored runs found.")
			return nil
		}
		fmt.Fprintln(out, "Stored Runs:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var runsInspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Show the frontier of a stored run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		sessions, closer, err := openSessions()
		if err != nil {
			return err
		}
		defer closer()

		snap, err := sessions.Snapshot(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("error loading run '%s': %w", args[0], err)
		}
		if asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}
		tui.FrontierTable(cmd.OutOrStdout(), snap)
		return nil
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Remove one or more runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessions, closer, err := openSessions()
		if err != nil {
			return err
		}
		defer closer()

		var errs []error
		for _, id := range args {
			if err := sessions.Delete(cmd.Context(), id); err != nil {
				errs = append(errs, fmt.Errorf("error removing '%s': %w", id, err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed run '%s'\n", id)
		}
		return errors.Join(errs...)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsLsCmd, runsInspectCmd, runsRmCmd)
	runsInspectCmd.Flags().Bool("json", false, "Print the snapshot as JSON")
}
