package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yotlabs/hubclient/client"
	"github.com/yotlabs/hubclient/service/config"
	"github.com/yotlabs/hubclient/service/db"
	"github.com/yotlabs/hubclient/service/metrics"
	natspkg "github.com/yotlabs/hubclient/service/nats"
	"github.com/yotlabs/hubclient/service/pipeline"
	"github.com/yotlabs/hubclient/service/pool"
	"github.com/yotlabs/hubclient/service/temporal"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting auto-harvest worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Start metrics HTTP server
	metricsAddr := getEnv("METRICS_ADDR", ":9091")
	metricsServer := &http.Server{
		Addr:    metricsAddr,
		Handler: promhttp.Handler(),
	}

	go func() {
		logger.Info("starting metrics HTTP server", "addr", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Build the RPC endpoint pool
	endpoints := make([]pool.Endpoint, len(cfg.RPCEndpoints))
	for i, ep := range cfg.RPCEndpoints {
		endpoints[i] = pool.Endpoint{URL: ep.URL, Commitment: rpc.CommitmentType(ep.Commitment)}
	}
	p, err := pool.New(endpoints,
		pool.WithMaxRetries(cfg.MaxRetries),
		pool.WithInitialDelay(cfg.InitialDelay),
		pool.WithLogger(logger),
		pool.WithMetrics(metricsCollector),
	)
	if err != nil {
		logger.Error("failed to build endpoint pool", "error", err)
		os.Exit(1)
	}
	logger.Info("initialized RPC endpoint pool", "total_endpoints", len(endpoints))

	// Initialize the audit store if a database is configured
	var store *db.Store
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		store = db.NewStore(dbPool)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")
	} else {
		logger.Warn("no DATABASE_URL configured, submissions will not be persisted")
	}

	// Initialize NATS publisher
	natsPublisher, err := natspkg.NewPublisher(cfg.NATSURL, logger)
	if err != nil {
		logger.Error("failed to create NATS publisher", "error", err)
		os.Exit(1)
	}
	defer natsPublisher.Close()
	logger.Info("connected to NATS", "url", cfg.NATSURL)

	// Build the submission pipeline
	submitterOpts := []pipeline.SubmitterOption{
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(metricsCollector),
		pipeline.WithPublisher(natsPublisher),
		pipeline.WithConfirmTimeout(cfg.ConfirmTimeout),
		pipeline.WithConfirmInterval(cfg.ConfirmInterval),
	}
	if store != nil {
		submitterOpts = append(submitterOpts, pipeline.WithStore(store))
	}
	if cfg.ReserveKeypairPath != "" {
		reserveSigner, err := pipeline.LocalSignerFromFile(cfg.ReserveKeypairPath)
		if err != nil {
			logger.Error("failed to load reserve keypair", "error", err)
			os.Exit(1)
		}
		reserve, err := pipeline.NewReserve(reserveSigner, p, logger)
		if err != nil {
			logger.Error("failed to build refund reserve", "error", err)
			os.Exit(1)
		}
		submitterOpts = append(submitterOpts, pipeline.WithReserve(reserve))
		logger.Info("refund reserve enabled", "reserve", reserveSigner.PublicKey())
	}
	submitter := pipeline.NewSubmitter(p, submitterOpts...)

	// Load the harvest signer
	if cfg.HarvestKeypairPath == "" {
		logger.Error("HARVEST_KEYPAIR_PATH is required for the auto-harvest worker")
		os.Exit(1)
	}
	harvestSigner, err := pipeline.LocalSignerFromFile(cfg.HarvestKeypairPath)
	if err != nil {
		logger.Error("failed to load harvest keypair", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded harvest signer", "wallet", harvestSigner.PublicKey())

	// Build the hub client
	stakingProgram := solana.MustPublicKeyFromBase58(cfg.StakingProgramID)
	clientOpts := []client.Option{client.WithLogger(logger)}
	if cfg.SwapProgramID != "" {
		clientOpts = append(clientOpts, client.WithSwapProgram(solana.MustPublicKeyFromBase58(cfg.SwapProgramID)))
	}
	hubClient, err := client.New(p, submitter, stakingProgram, clientOpts...)
	if err != nil {
		logger.Error("failed to build hub client", "error", err)
		os.Exit(1)
	}

	// Initialize Temporal worker
	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		HubClient:         hubClient,
		Signer:            harvestSigner,
		Publisher:         natsPublisher,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	logger.Info("temporal worker initialized, all dependencies ready",
		"total_endpoints", len(endpoints),
		"temporal_host", cfg.TemporalHost,
		"temporal_namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
	)

	// Start worker in background
	workerErrors := make(chan error, 1)
	go func() {
		logger.Info("starting temporal worker")
		workerErrors <- worker.Start()
	}()

	// Wait for shutdown signal or worker error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-workerErrors:
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		logger.Info("stopping temporal worker")
		worker.Stop()
		logger.Info("temporal worker stopped")

		logger.Info("shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

// getEnv returns the value of an environment variable or a default if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
