package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/venturehq/incentive-engine/internal/metricsource"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrPlanNotFound = errors.New("incentive plan not found")
	ErrInvalidDate  = errors.New("invalid date, expected YYYY-MM-DD")
)

// Item is one computed (user, rule, amount) contribution for a day.
type Item struct {
	UserID uint    `json:"userId"`
	RuleID uint    `json:"ruleId"`
	Amount float64 `json:"amount"`
	Date   string  `json:"date"`
	PlanID uint    `json:"planId"`
}

// PlanRepository interface for plan and rule reads.
type PlanRepository interface {
	GetPlan(id uint) (*models.IncentivePlan, error)
	GetEnabledRules(planID uint) ([]models.IncentiveRule, error)
}

// UserRepository interface for resolving the plan's user population.
type UserRepository interface {
	ListByVenture(ventureID uint) ([]models.User, error)
}

// Engine computes a day's incentive items for a plan without persisting
// anything. Running it twice before a commit yields identical items.
type Engine struct {
	planRepo  PlanRepository
	userRepo  UserRepository
	metrics   metricsource.Provider
	evaluator *Evaluator
	log       *logger.Logger
}

// NewEngine creates a daily computation engine with concrete repository types.
func NewEngine(
	planRepo *repository.PlanRepository,
	userRepo *repository.UserRepository,
	metrics metricsource.Provider,
	evaluator *Evaluator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		planRepo:  planRepo,
		userRepo:  userRepo,
		metrics:   metrics,
		evaluator: evaluator,
		log:       log,
	}
}

// NewEngineWithInterfaces creates an engine with interface dependencies (useful for testing).
func NewEngineWithInterfaces(
	planRepo PlanRepository,
	userRepo UserRepository,
	metrics metricsource.Provider,
	evaluator *Evaluator,
	log *logger.Logger,
) *Engine {
	return &Engine{
		planRepo:  planRepo,
		userRepo:  userRepo,
		metrics:   metrics,
		evaluator: evaluator,
		log:       log,
	}
}

// ParseDay validates a YYYY-MM-DD date string and returns its UTC midnight.
func ParseDay(date string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return day, nil
}

// CalculateForDay computes all incentive items for a plan and date. Items are
// ordered by (userID, ruleID) so previews and commits are deterministic.
func (e *Engine) CalculateForDay(ctx context.Context, planID uint, date string) ([]Item, *models.IncentivePlan, error) {
	day, err := ParseDay(date)
	if err != nil {
		return nil, nil, err
	}

	plan, err := e.planRepo.GetPlan(planID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: plan %d", ErrPlanNotFound, planID)
		}
		return nil, nil, fmt.Errorf("failed to load plan: %w", err)
	}

	rules, err := e.planRepo.GetEnabledRules(planID)
	if err != nil {
		return nil, plan, fmt.Errorf("failed to load rules: %w", err)
	}
	if len(rules) == 0 {
		return []Item{}, plan, nil
	}

	keys := make(map[string]bool, len(rules))
	for _, r := range rules {
		keys[r.MetricKey] = true
	}

	snapshots, err := e.metrics.MetricsForDay(ctx, plan.VentureID, day, keys)
	if err != nil {
		return nil, plan, fmt.Errorf("failed to load metrics: %w", err)
	}

	users, err := e.userRepo.ListByVenture(plan.VentureID)
	if err != nil {
		return nil, plan, fmt.Errorf("failed to load venture users: %w", err)
	}

	// Population is the union of venture members and metric-bearing users, so
	// activity from users missing a membership row still gets computed.
	roleByUser := make(map[uint]string, len(users))
	population := make(map[uint]bool, len(users))
	for _, u := range users {
		roleByUser[u.ID] = u.RoleKey
		population[u.ID] = true
	}
	for userID := range snapshots {
		population[userID] = true
	}

	dateStr := day.Format("2006-01-02")
	items := make([]Item, 0, len(population))

	for userID := range population {
		snapshot := snapshots[userID]
		role := roleByUser[userID]

		for i := range rules {
			rule := &rules[i]
			if !rule.AppliesToRole(role) {
				continue
			}

			amount := e.evaluator.Evaluate(rule, snapshot[rule.MetricKey])
			if amount == 0 {
				continue
			}

			items = append(items, Item{
				UserID: userID,
				RuleID: rule.ID,
				Amount: amount,
				Date:   dateStr,
				PlanID: planID,
			})
		}
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].UserID != items[j].UserID {
			return items[i].UserID < items[j].UserID
		}
		return items[i].RuleID < items[j].RuleID
	})

	e.log.Debug().
		Uint("plan_id", planID).
		Str("date", dateStr).
		Int("users", len(population)).
		Int("rules", len(rules)).
		Int("items", len(items)).
		Msg("Computed daily incentive items")

	return items, plan, nil
}
