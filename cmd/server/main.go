package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/sentinelfi/risk-engine/internal/api"
	"github.com/sentinelfi/risk-engine/internal/api/handlers"
	"github.com/sentinelfi/risk-engine/internal/cache"
	"github.com/sentinelfi/risk-engine/internal/config"
	"github.com/sentinelfi/risk-engine/internal/logging"
	"github.com/sentinelfi/risk-engine/internal/middleware"
	"github.com/sentinelfi/risk-engine/internal/observability"
	"github.com/sentinelfi/risk-engine/internal/services"
)

const (
	serviceName    = "risk-engine"
	serviceVersion = "1.0.0"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)

	if err := observability.InitSentry(cfg.Sentry, serviceVersion, cfg.Environment); err != nil {
		logger.WithError(err).Error("failed to initialize Sentry, continuing without error tracking")
	}
	observability.SetTag(context.Background(), "service", serviceName)
	observability.SetTag(context.Background(), "version", serviceVersion)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		observability.Flush(ctx)
	}()

	// Redis is optional: the in-memory cache keeps the publish path alive
	// when it is unreachable.
	var redisClient *redis.Client
	var assessmentCache cache.AssessmentCache
	{
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.WithError(err).Warn("redis unreachable, using in-memory assessment cache")
			_ = client.Close()
			assessmentCache = cache.NewMemoryAssessmentCache()
		} else {
			redisClient = client
			assessmentCache = cache.NewRedisAssessmentCache(client)
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.WithError(err).Error("failed to close redis client")
				}
			}()
		}
	}

	// Scoring pipeline
	contagion := services.NewContagionSimulator(services.DefaultContagionModel(), logger)
	depeg := services.NewDepegMonitor(logger)
	consensus := services.NewConsensusAggregator(logger)
	rules := services.DefaultRuleModel()
	aiScorer := services.NoopAIScorer{ModelName: cfg.Risk.AIModelName}
	riskService := services.NewRiskService(contagion, depeg, consensus, rules, aiScorer, logger)

	backtester := services.NewBacktester(contagion, depeg, rules, cfg.Backtest, logger)
	breaker := services.NewOperationsBreaker(cfg.Risk.BreakerRecoveryEvaluations, logger)
	notifier := services.NewNotificationService(cfg.Telegram, logger)

	monitor := services.NewPerformanceMonitor(logger)
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	monitor.Start(monitorCtx, 30*time.Second)

	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{
			Repanic:         true,
			WaitForDelivery: false,
			Timeout:         2 * time.Second,
		}))
	}
	router.Use(gin.Recovery())

	var redisCmdable redis.Cmdable
	if redisClient != nil {
		redisCmdable = redisClient
	}
	api.SetupRoutes(router, api.Handlers{
		Risk:     handlers.NewRiskHandler(riskService, assessmentCache, breaker, notifier, monitor, cfg.Risk.CacheTTL, logger),
		Backtest: handlers.NewBacktestHandler(backtester, logger),
		Health:   handlers.NewHealthHandler(redisCmdable, monitor, serviceVersion),
		Auth:     authMiddleware,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       15 * time.Second,
	}

	go func() {
		logger.LogStartup(serviceName, serviceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.LogShutdown(serviceName, "signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}
