// Command server runs the incentive engine HTTP API and its daily commit
// scheduler.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/venturehq/incentive-engine/internal/api/incentives"
	"github.com/venturehq/incentive-engine/internal/audit"
	"github.com/venturehq/incentive-engine/internal/cache"
	"github.com/venturehq/incentive-engine/internal/config"
	"github.com/venturehq/incentive-engine/internal/metricsource"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/internal/service/aggregation"
	"github.com/venturehq/incentive-engine/internal/service/engine"
	"github.com/venturehq/incentive-engine/internal/service/gamification"
	"github.com/venturehq/incentive-engine/internal/service/scheduler"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	log.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("Starting incentive engine")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	var appCache cache.Cache = cache.Noop{}
	redisCache, err := cache.NewRedis(&cfg.Database.Redis, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without cache")
	} else {
		appCache = redisCache
		defer redisCache.Close()
	}

	// Repositories
	planRepo := repository.NewPlanRepository(db)
	userRepo := repository.NewUserRepository(db)
	incentiveRepo := repository.NewIncentiveRepository(db)

	// Services
	auditor := audit.NewStore(db, log)
	provider := metricsource.NewCompositeProvider(db, log)
	evaluator := engine.NewEvaluator(cfg.Incentives.BonusZeroThresholdFires)
	computeEngine := engine.NewEngine(planRepo, userRepo, provider, evaluator, log)
	committer := engine.NewCommitter(computeEngine, incentiveRepo, auditor, cfg.Incentives.DefaultCurrency, log)
	aggregationService := aggregation.NewService(
		incentiveRepo,
		userRepo,
		appCache,
		cfg.Incentives.MaxWindowDays,
		time.Duration(cfg.Incentives.CacheTTL)*time.Second,
		log,
	)
	gamificationService := gamification.NewService(incentiveRepo, cfg.Incentives.Badges, cfg.Incentives.MaxWindowDays, log)

	// Scheduler
	schedulerService := scheduler.NewService(cfg, planRepo, committer, log)
	if err := schedulerService.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer schedulerService.Stop()

	// HTTP server
	handler := incentives.NewHandler(
		computeEngine,
		committer,
		planRepo,
		aggregationService,
		gamificationService,
		auditor,
		cfg.Incentives.DefaultWindowDays,
		log,
	)
	router := incentives.SetupRouter(handler, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}

	log.Info().Msg("Server stopped")
}
