package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/blinkmart/service/actions"
	"github.com/brojonat/blinkmart/service/config"
	"github.com/brojonat/blinkmart/service/db"
	"github.com/brojonat/blinkmart/service/marketplace"
	"github.com/brojonat/blinkmart/service/metrics"
	"github.com/brojonat/blinkmart/service/nats"
	"github.com/brojonat/blinkmart/service/server"
	"github.com/brojonat/blinkmart/service/solana"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	// Fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(nil)

	// Pick one RPC endpoint for the life of the process to spread load across replicas
	rpcURL, err := solana.SelectRandomEndpoint(cfg.SolanaRPCURLs)
	if err != nil {
		logger.Error("failed to select solana RPC endpoint", "error", err)
		os.Exit(1)
	}
	solanaClient := solana.NewClient(solana.NewRPCClient(rpcURL), rpcURL, m, logger)
	logger.Info("initialized solana RPC client", "url", rpcURL, "configured_endpoints", len(cfg.SolanaRPCURLs))

	marketClient := marketplace.NewClient(
		cfg.MarketplaceAPIURL,
		cfg.MarketplaceAPIKey,
		&http.Client{Timeout: cfg.MarketplaceTimeout},
		m,
		logger,
	)
	resolver := marketplace.NewResolver(marketClient)
	builder := marketplace.NewTransactionBuilder(marketClient, solanaClient, logger)

	var recorders []actions.Recorder

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

		store := db.NewStore(dbPool, m)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply database schema", "error", err)
			os.Exit(1)
		}
		recorders = append(recorders, store)
		logger.Info("action audit store enabled")
	} else {
		logger.Warn("DATABASE_URL not set, action audit store disabled")
	}

	if cfg.NATSURL != "" {
		publisher, err := nats.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		recorders = append(recorders, publisher)
	} else {
		logger.Warn("NATS_URL not set, action events will not be published")
	}

	orchestrator := actions.NewOrchestrator(resolver, builder, m, logger, recorders...)
	httpServer := server.New(cfg.ServerAddr, orchestrator, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"marketplace_api", cfg.MarketplaceAPIURL,
		"recorders", len(recorders),
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		// Flush in-flight action events before the sinks are closed
		orchestrator.Wait()

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
