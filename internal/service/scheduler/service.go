// Package scheduler provides the nightly commit job for active incentive plans.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/venturehq/incentive-engine/internal/config"
	prommetrics "github.com/venturehq/incentive-engine/internal/metrics"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/internal/service/engine"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// systemActorID marks commits performed by the scheduler rather than a caller.
const systemActorID = 0

// PlanLister interface for discovering plans to commit.
type PlanLister interface {
	ListActivePlans() ([]models.IncentivePlan, error)
}

// Committer interface for running the persisting pipeline.
type Committer interface {
	Commit(ctx context.Context, planID uint, date string, actorID uint) (*engine.CommitResult, error)
}

// Service runs the daily automatic commit of every active plan.
type Service struct {
	config    *config.Config
	planRepo  PlanLister
	committer Committer
	log       *logger.Logger
	cron      *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(cfg *config.Config, planRepo *repository.PlanRepository, committer *engine.Committer, log *logger.Logger) *Service {
	return &Service{
		config:    cfg,
		planRepo:  planRepo,
		committer: committer,
		log:       log,
	}
}

// NewServiceWithInterfaces creates a scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(cfg *config.Config, planRepo PlanLister, committer Committer, log *logger.Logger) *Service {
	return &Service{
		config:    cfg,
		planRepo:  planRepo,
		committer: committer,
		log:       log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.runDailyCommits(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register daily commit job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.Time).
		Bool("skip_weekends", s.config.Scheduler.SkipWeekends).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Scheduler.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Scheduler.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	if s.config.Scheduler.SkipWeekends {
		// Monday-Friday only (1-5)
		return fmt.Sprintf("%d %d * * 1-5", minute, hour), nil
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runDailyCommits commits yesterday's incentives for every active plan.
// Commits are idempotent, so a rerun after a partial failure is safe.
func (s *Service) runDailyCommits(ctx context.Context) {
	start := time.Now()

	day := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")

	s.log.Info().Str("date", day).Msg("Running daily commit job")

	plans, err := s.planRepo.ListActivePlans()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list active plans")
		prommetrics.SchedulerJobsRunTotal.WithLabelValues("error").Inc()
		return
	}

	prommetrics.ActivePlans.Set(float64(len(plans)))

	var committed, failed int
	for i := range plans {
		plan := &plans[i]
		result, err := s.committer.Commit(ctx, plan.ID, day, systemActorID)
		if err != nil {
			failed++
			s.log.Error().
				Err(err).
				Uint("plan_id", plan.ID).
				Str("date", day).
				Msg("Failed to commit plan")
			continue
		}
		committed++
		s.log.Info().
			Uint("plan_id", plan.ID).
			Str("date", day).
			Int("rows", result.Count).
			Int("inserted", result.Inserted).
			Int("updated", result.Updated).
			Msg("Committed plan")
	}

	status := "success"
	if failed > 0 {
		status = "error"
	}
	prommetrics.SchedulerJobsRunTotal.WithLabelValues(status).Inc()

	s.log.Info().
		Int("plans_committed", committed).
		Int("plans_failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Daily commit job completed")
}
