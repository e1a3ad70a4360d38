package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/pdasim/internal/cli"
	httpAdapter "github.com/aretw0/pdasim/pkg/adapters/http"
	"github.com/aretw0/pdasim/pkg/domain"
	"github.com/aretw0/pdasim/pkg/observability"
	"github.com/aretw0/pdasim/pkg/runner"
	"github.com/aretw0/pdasim/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests may take after a signal.
const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves stateless simulation (/simulate), persisted runs (/runs), their
event streams and, unless disabled, prometheus metrics (/metrics).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		backend, err := cli.OpenBackend(cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		loader, err := cli.OpenLoader(cfg)
		if err != nil {
			return err
		}

		hooks := observability.LogHooks(logger)
		var httpOpts []httpAdapter.Option
		if cfg.Metrics.Enabled {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := observability.NewMetrics(reg)
			if err != nil {
				return err
			}
			hooks = observability.Combine(hooks, metrics.Hooks())
			httpOpts = append(httpOpts, httpAdapter.WithMetrics(reg))
		}

		sessionOpts := []session.Option{
			session.WithLogger(logger),
			session.WithLifecycleHooks(hooks),
		}
		if backend.Locker != nil {
			sessionOpts = append(sessionOpts, session.WithLocker(backend.Locker))
		}
		if cfg.Dedup {
			sessionOpts = append(sessionOpts, session.WithPruner(func() domain.Pruner { return runner.NewDedup() }))
		}
		sessions := session.NewManager(backend.Store, sessionOpts...)

		httpOpts = append(httpOpts,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithLifecycleHooks(hooks),
		)
		if loader != nil {
			httpOpts = append(httpOpts, httpAdapter.WithLoader(loader))
		}

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           httpAdapter.NewHandler(sessions, httpOpts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()
		g, ctx := errgroup.WithContext(sigCtx)

		g.Go(func() error {
			logger.Info("Starting pdasim server", "addr", srv.Addr, "store", cfg.Store, "metrics", cfg.Metrics.Enabled)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("Start shutdown", "signal", sigCtx.Signal())
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			logger.Info("pdasim server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("http-addr", ":8080", "Address to listen on")
	serveCmd.Flags().Bool("metrics-enabled", true, "Expose prometheus metrics on /metrics")
	serveCmd.Flags().Bool("dedup", false, "Drop configurations already seen in a run")
}
