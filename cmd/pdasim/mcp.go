package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/pdasim/internal/cli"
	"github.com/aretw0/pdasim/pkg/adapters/mcp"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes simulation, validation and persisted runs as MCP tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		backend, err := cli.OpenBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		loader, err := cli.OpenLoader(cfg)
		if err != nil {
			return err
		}

		sessionOpts := []session.Option{session.WithLogger(logger)}
		if backend.Locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(backend.Locker))
		}
		opts := []mcp.Option{mcp.WithLogger(logger)}
		if loader != nil {
			opts = append(opts, mcp.WithLoader(loader))
		}
		srv := mcp.NewServer(session.NewManager(backend.Store, sessionOpts...), opts...)

		switch transport {
		case "stdio":
			// Keep JSON-RPC alone on stdout
			log.SetOutput(os.Stderr)
			logger.Info("Starting pdasim MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()
			logger.Info("Starting pdasim MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil {
				return err
			}
			logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
