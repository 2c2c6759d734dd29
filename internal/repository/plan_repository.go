package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/venturehq/incentive-engine/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("record not found")

// PlanRepository handles incentive plan and rule database operations.
type PlanRepository struct {
	db *DB
}

// NewPlanRepository creates a new plan repository.
func NewPlanRepository(db *DB) *PlanRepository {
	return &PlanRepository{db: db}
}

// GetPlan retrieves a plan by its ID.
func (r *PlanRepository) GetPlan(id uint) (*models.IncentivePlan, error) {
	var plan models.IncentivePlan
	if err := r.db.First(&plan, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get plan %d: %w", id, err)
	}
	return &plan, nil
}

// ListActivePlans retrieves all plans currently enabled for computation.
func (r *PlanRepository) ListActivePlans() ([]models.IncentivePlan, error) {
	var plans []models.IncentivePlan
	err := r.db.Where("is_active = ?", true).Order("id ASC").Find(&plans).Error
	return plans, err
}

// GetEnabledRules retrieves the enabled rules for a plan, ordered by ID so
// breakdown entries stay in a stable order.
func (r *PlanRepository) GetEnabledRules(planID uint) ([]models.IncentiveRule, error) {
	var rules []models.IncentiveRule
	err := r.db.
		Where("plan_id = ? AND is_enabled = ?", planID, true).
		Order("id ASC").
		Find(&rules).Error
	return rules, err
}

// ListRules retrieves all rules, optionally filtered by plan.
func (r *PlanRepository) ListRules(planID uint) ([]models.IncentiveRule, error) {
	var rules []models.IncentiveRule
	query := r.db.Order("id ASC")
	if planID > 0 {
		query = query.Where("plan_id = ?", planID)
	}
	err := query.Find(&rules).Error
	return rules, err
}

// GetRule retrieves a rule by its ID.
func (r *PlanRepository) GetRule(id uint) (*models.IncentiveRule, error) {
	var rule models.IncentiveRule
	if err := r.db.First(&rule, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("rule %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule %d: %w", id, err)
	}
	return &rule, nil
}

// CreateRule creates a new rule.
func (r *PlanRepository) CreateRule(rule *models.IncentiveRule) error {
	if err := r.db.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}
	return nil
}

// UpdateRule updates an existing rule.
func (r *PlanRepository) UpdateRule(rule *models.IncentiveRule) error {
	if err := r.db.Save(rule).Error; err != nil {
		return fmt.Errorf("failed to update rule %d: %w", rule.ID, err)
	}
	return nil
}

// DisableRule soft-deletes a rule. Committed history referencing the rule is
// untouched; the rule just stops firing for newly computed dates.
func (r *PlanRepository) DisableRule(id uint) (*models.IncentiveRule, error) {
	rule, err := r.GetRule(id)
	if err != nil {
		return nil, err
	}
	rule.IsEnabled = false
	if err := r.db.Save(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to disable rule %d: %w", id, err)
	}
	return rule, nil
}
