package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/services-marketplace/go/configs"
	"github.com/avatarctic/services-marketplace/go/internal/application/services"
	"github.com/avatarctic/services-marketplace/go/internal/core/ports"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/db"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/health"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/httpserver"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/redis"
	"github.com/avatarctic/services-marketplace/go/internal/infrastructure/repositories"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("load configuration: ", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		log.Fatal("invalid server configuration: ", err)
	}

	logger := cfg.Log.NewLogger()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("billing API terminated")
		os.Exit(1)
	}
}

// run wires the billing API and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *configs.Config, logger *logrus.Logger) error {
	database, err := db.NewDatabase(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if version, err := database.Migrate(cfg.Server.MigrationsPath); err != nil {
		logger.WithError(err).Warn("migrations not applied")
	} else {
		logger.WithField("schema_version", version).Info("billing store ready")
	}

	clock := clockwork.NewRealClock()
	sharedCache := redis.NewRedisCache(redisClient, "marketcache", logger)

	billingRepo := repositories.NewCachingBillingRepository(
		repositories.NewBillingRepository(database, logger), sharedCache, cfg.Redis.PlanCacheTTL)
	directoryRepo := repositories.NewCachingDirectoryRepository(
		repositories.NewDirectoryRepository(database, logger), sharedCache, cfg.Redis.DirectoryCacheTTL)

	limiter := services.NewRateLimiterService(
		repositories.NewRateLimitRedisRepository(redisClient, clock),
		billingRepo,
		&services.RateLimiterConfig{
			DefaultRequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Window:                   cfg.RateLimit.Window,
			KeyPrefix:                cfg.RateLimit.KeyPrefix,
		},
		logger,
	)

	server := httpserver.NewServer(&httpserver.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		TLSCertFile:    cfg.Server.TLSCertFile,
		TLSKeyFile:     cfg.Server.TLSKeyFile,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Environment:    cfg.Server.Environment,
	}, logger, httpserver.ServerDeps{
		BillingService:     services.NewBillingService(billingRepo, logger),
		DirectoryService:   services.NewDirectoryService(directoryRepo, logger),
		TokenService:       services.NewTokenService(cfg.JWT, clock),
		RateLimiterService: limiter,
		HealthCheckers: []ports.HealthChecker{
			health.NewDBHealthChecker(database),
			health.NewRedisHealthChecker(redisClient),
		},
	})

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start() }()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down billing API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
