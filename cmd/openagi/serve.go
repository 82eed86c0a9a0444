package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/openagi"
	"github.com/aretw0/openagi/internal/config"
	"github.com/aretw0/openagi/internal/presentation/tui"
	httpAdapter "github.com/aretw0/openagi/pkg/adapters/http"
	redisAdapter "github.com/aretw0/openagi/pkg/adapters/redis"
	"github.com/aretw0/openagi/pkg/domain"
	"github.com/aretw0/openagi/pkg/observability"
	"github.com/aretw0/openagi/pkg/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the workflow API and the model relay",
	Long: `Starts the HTTP server: the workspace API, the server-sent event streams,
the relay at POST /api/together and, when enabled, Prometheus metrics at /metrics.

Workspaces live in memory unless redis.addr is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		logger := newLogger(cfg)

		handler, cleanup, err := buildServer(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: handler,
		}

		if quiet, _ := cmd.Flags().GetBool("quiet"); !quiet {
			tui.PrintBanner(cmd.ErrOrStderr())
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			logger.Info("Starting OpenAGI Server", "addr", srv.Addr, "redis", cfg.Redis.Addr != "", "metrics", cfg.Metrics.Enabled)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		// Blocking main and waiting for shutdown.
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("Start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", cfg.Server.ShutdownTimeout, "error", err)
				if err := srv.Close(); err != nil {
					logger.Error("Error killing server", "error", err)
				}
			}
			logger.Info("OpenAGI Server stopped gracefully")
			return nil
		}
	},
}

// buildServer wires the store, relay, workbench and HTTP handler described by cfg.
// The returned cleanup releases external connections.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (http.Handler, func(), error) {
	streams := httpAdapter.NewStreamManager(logger)
	hooks := []domain.LifecycleHooks{
		observability.LoggingHooks(logger),
		streams.Hooks(),
	}

	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics := observability.NewMetrics(reg)
		hooks = append(hooks, metrics.Hooks())
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	allHooks := domain.ChainHooks(hooks...)

	relayOpts := []relay.Option{
		relay.WithUpstreamURL(cfg.Relay.UpstreamURL),
		relay.WithLifecycleHooks(allHooks),
		relay.WithLogger(logger),
	}
	if cfg.Relay.IntegerTemperature {
		relayOpts = append(relayOpts, relay.WithIntegerTemperature())
	}
	relayHandler := relay.NewHandler(relayOpts...)

	wbOpts := []openagi.Option{
		openagi.WithRelay(relayHandler),
		openagi.WithLifecycleHooks(allHooks),
		openagi.WithChangeListener(streams.OnChange),
		openagi.WithLogger(logger),
	}

	ws, shared, cleanup, err := openStore(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if shared != nil {
		wbOpts = append(wbOpts,
			openagi.WithStore(ws),
			openagi.WithLocker(redisAdapter.NewLocker(shared.Client(), cfg.Redis.Prefix)),
		)
	} else if cfg.Encryption.Enabled() {
		logger.Warn("encryption key ignored: workspaces are kept in memory")
	}

	wb := openagi.New(wbOpts...)

	handlerOpts := []httpAdapter.Option{
		httpAdapter.WithStreams(streams),
		httpAdapter.WithRelayHandler(relayHandler),
		httpAdapter.WithLogger(logger),
	}
	if metricsHandler != nil {
		handlerOpts = append(handlerOpts, httpAdapter.WithMetricsHandler(metricsHandler))
	}
	handler, err := httpAdapter.NewHandler(wb, handlerOpts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return handler, cleanup, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (overrides server.addr)")
	serveCmd.Flags().BoolP("quiet", "q", false, "Do not print the banner")
}
