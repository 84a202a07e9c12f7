package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chainlock/config"
	httpHandler "chainlock/internal/adapter/http/handler"
	noopNotifier "chainlock/internal/adapter/notifier/noop"
	snsNotifier "chainlock/internal/adapter/notifier/sns"
	memStorage "chainlock/internal/adapter/storage/memory"
	pgStorage "chainlock/internal/adapter/storage/postgres"
	redisStorage "chainlock/internal/adapter/storage/redis"
	"chainlock/internal/adapter/wallet/blockio"
	"chainlock/internal/core/ports"
	"chainlock/internal/service"
	"chainlock/pkg/logger"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting chainlock")

	ctx := context.Background()

	// Initialize transaction store
	var (
		txStore        ports.TransactionStore
		healthCheckers []ports.HealthChecker
	)
	switch cfg.Storage.Driver {
	case "memory":
		txStore = memStorage.NewTransactionStore()
		log.Warn().Msg("Using in-memory transaction store; state is lost on restart")
	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		txStore = pgStorage.NewTransactionStore(pool)
		healthCheckers = append(healthCheckers, pgStorage.NewHealthCheck(pool))
	}

	// Initialize Redis-backed rate limiting (optional)
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled; rate limiting is off")
	}

	// Initialize wallet client
	walletClient := blockio.NewClient(cfg.Wallet, log)

	// Initialize push notifier
	var notifier ports.Notifier
	if cfg.Notifier.Enabled {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Notifier.Region))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load AWS configuration")
		}
		notifier = snsNotifier.New(awssns.NewFromConfig(awsCfg), cfg.Notifier, log)
	} else {
		notifier = noopNotifier.New(log)
	}

	// Initialize the authorization engine
	authSvc := service.NewAuthorizationService(
		txStore,
		walletClient,
		notifier,
		cfg.Transfer.DefaultFromAddress,
		cfg.Wallet.Timeout,
		cfg.Notifier.Timeout,
		log,
	)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
