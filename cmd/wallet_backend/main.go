package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SscSPs/wallet_ledger/internal/adapters/cache"
	"github.com/SscSPs/wallet_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/wallet_ledger/internal/adapters/database/pgsql"
	"github.com/SscSPs/wallet_ledger/internal/adapters/events"
	"github.com/SscSPs/wallet_ledger/internal/adapters/events/kafka"
	"github.com/SscSPs/wallet_ledger/internal/core/ports"
	portsrepo "github.com/SscSPs/wallet_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/wallet_ledger/internal/core/services"
	"github.com/SscSPs/wallet_ledger/internal/handlers"
	"github.com/SscSPs/wallet_ledger/internal/middleware"
	"github.com/SscSPs/wallet_ledger/internal/platform/config"
	"github.com/SscSPs/wallet_ledger/internal/platform/scheduler"
	"github.com/SscSPs/wallet_ledger/pkg/database"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repos, closeStore, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger store", slog.String("backend", cfg.StoreBackend), slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	balanceCache, err := cache.NewBalanceCache(cfg.BalanceCacheSize)
	if err != nil {
		logger.Error("Failed to create balance cache", slog.String("error", err.Error()))
		os.Exit(1)
	}

	publisher := setupPublisher(cfg, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", slog.String("error", err.Error()))
		}
	}()

	serviceContainer := services.NewServiceContainer(cfg, repos, balanceCache, publisher)

	if cfg.ReconcileSchedule != "" {
		c, err := scheduler.StartReconciliation(cfg.ReconcileSchedule, serviceContainer.Reconciliation, logger)
		if err != nil {
			logger.Error("Failed to schedule reconciliation", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { <-c.Stop().Done() }()
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery, CORS)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	limiter, err := middleware.NewRateLimiter(cfg.RateLimit)
	if err != nil {
		logger.Error("Failed to create rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, serviceContainer, middleware.RateLimit(limiter))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("store_backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
	logger.Info("Server exited")
}

// setupStore opens the configured ledger backend. The returned func releases it.
func setupStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (portsrepo.RepositoryProvider, func(), error) {
	if cfg.StoreBackend == config.StoreBackendMemory {
		logger.Warn("Using in-memory ledger store; balances are lost on restart")
		return memory.NewRepositoryProvider(), func() {}, nil
	}

	logger.Info("Running database migrations...")
	if err := pgsql.RunMigrations(cfg.DatabaseURL, logger); err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}

	dbPool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return portsrepo.RepositoryProvider{}, nil, err
	}
	logger.Info("Database connection pool established.")
	return pgsql.NewRepositoryProvider(dbPool), func() { database.ClosePgxPool(dbPool) }, nil
}

func setupPublisher(cfg *config.Config, logger *slog.Logger) ports.EventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured; ledger events are logged only")
		return events.NewLogPublisher(logger)
	}
	logger.Info("Publishing ledger events to Kafka", slog.Any("brokers", cfg.KafkaBrokers), slog.String("topic", cfg.KafkaTopic))
	return kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.DefaultConfig()
	c.AllowHeaders = append(c.AllowHeaders, "X-Request-ID")
	c.ExposeHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	if len(cfg.CORSAllowedOrigins) == 0 || (len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSAllowedOrigins
	}
	return c
}
