package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/internal/config"
	"github.com/spf13/cobra"
)

// Loaded once per invocation by the root PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pdasim",
	Short: "pdasim simulates nondeterministic pushdown automata",
	Long: `pdasim explores every branch of a pushdown automaton generation by
generation and reports whether the input is accepted, with the traces that
led there.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, used, err := config.Load(path, cmd.Flags())
		if err != nil {
			return err
		}
		cfg = loaded
		logger, err = cli.NewLogger(cfg)
		if err != nil {
			return err
		}
		if used != "" {
			logger.Debug("Loaded config file", "path", used)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("config", "", "Config file (default: pdasim.yaml in the working directory)")
	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("store", config.StoreMemory, "Run store: memory, file or redis")
	f.String("store-dir", ".pdasim/runs", "Directory of the file run store")
	f.String("library", "", "Directory of a definition library (markdown, JSON or YAML)")
	f.String("redis-addr", "localhost:6379", "Redis address")
	f.String("redis-password", "", "Redis password")
	f.Int("redis-db", 0, "Redis database")
	f.String("redis-prefix", "pdasim:run:", "Redis key prefix")
	f.Duration("redis-ttl", 0, "Expiration of runs stored in redis (0 keeps them)")
	f.String("encryption-key", "", "Base64 AES-256 key sealing stored runs")
}
