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
	"time"

	"github.com/enetx/g"
	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/internal/config"
	"github.com/enetx/hfsm/internal/server"
	"github.com/enetx/hfsm/internal/traffic"
	"github.com/enetx/hfsm/metrics"
	"github.com/enetx/hfsm/persist"
	"github.com/enetx/hfsm/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the traffic light over HTTP",
	Long: `Starts an HTTP server exposing the traffic light:

  GET  /state, POST /events/{event}, GET /history, POST /reset, GET /dot, GET /metrics

When HFSM_REDIS_ADDR (or --redis) is set the snapshot is restored on start
and saved after every commit.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}

		if addr, _ := cmd.Flags().GetString("redis"); addr != "" {
			cfg.RedisAddr = addr
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		m, cleanup, err := newServedMachine(cmd.Context(), cfg, logger, reg)
		if err != nil {
			return err
		}
		defer cleanup()

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           server.New[traffic.Light](m, server.WithLogger(logger), server.WithGatherer(reg)),
			ReadHeaderTimeout: 5 * time.Second,
		}

		return listen(srv, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from HFSM_HTTP_ADDR, \":8080\")")
	serveCmd.Flags().String("redis", "", "Redis address for snapshot persistence (default from HFSM_REDIS_ADDR)")
}

// newServedMachine builds the traffic light with logging, metrics and, when
// configured, Redis persistence. The returned cleanup closes the Redis client.
func newServedMachine(
	ctx context.Context,
	cfg config.Config,
	logger *slog.Logger,
	reg prometheus.Registerer,
) (*hfsm.Machine[traffic.Light], func(), error) {
	collector := metrics.New(reg, cfg.MachineID)

	middleware := []store.Middleware[hfsm.Snapshot[traffic.Light]]{
		store.Logger[hfsm.Snapshot[traffic.Light]](logger),
		metrics.Middleware[traffic.Light](collector),
	}

	cleanup := func() {}

	var snapshots *persist.Store[traffic.Light]

	if cfg.RedisAddr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		cleanup = func() { _ = client.Close() }

		if err := client.Ping(ctx).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}

		codec := persist.JSON
		if cfg.Codec == "yaml" {
			codec = persist.YAML
		}

		snapshots = persist.New[traffic.Light](client,
			persist.WithPrefix(cfg.RedisPrefix),
			persist.WithTTL(cfg.SnapshotTTL),
			persist.WithCodec(codec),
			persist.WithLogger(logger),
		)
		middleware = append(middleware, snapshots.Middleware(cfg.MachineID))
	}

	m := traffic.Definition().New(
		hfsm.WithID[traffic.Light](g.String(cfg.MachineID)),
		hfsm.WithLogger[traffic.Light](logger),
		hfsm.WithHistoryLimit[traffic.Light](cfg.HistoryLimit),
		hfsm.WithMiddleware[traffic.Light](middleware...),
	)
	m.Watch(metrics.Watcher[traffic.Light](collector))

	if snapshots != nil {
		err := snapshots.Restore(ctx, m)

		switch {
		case err == nil:
			logger.Info("snapshot restored", "state", m.Current())
		case errors.Is(err, persist.ErrNotFound):
			logger.Info("no stored snapshot, starting fresh", "state", m.Current())
		default:
			cleanup()
			return nil, nil, err
		}
	}

	return m, cleanup, nil
}

// listen serves until SIGINT or SIGTERM, then shuts down gracefully.
func listen(srv *http.Server, logger *slog.Logger) error {
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}

		logger.Info("server stopped")
	}

	return nil
}
