// Package models defines domain models for the incentive engine.
package models

import (
	"time"
)

// CalcType identifies how a rule converts a metric value into money.
type CalcType string

// Supported rule calculation types.
const (
	CalcPercentOfMetric CalcType = "PERCENT_OF_METRIC"
	CalcFlatPerUnit     CalcType = "FLAT_PER_UNIT"
	CalcCurrencyPerUnit CalcType = "CURRENCY_PER_DOLLAR"
	CalcBonusOnTarget   CalcType = "BONUS_ON_TARGET"
)

// Valid reports whether the calc type is one the evaluator understands.
func (c CalcType) Valid() bool {
	switch c {
	case CalcPercentOfMetric, CalcFlatPerUnit, CalcCurrencyPerUnit, CalcBonusOnTarget:
		return true
	}
	return false
}

// IncentivePlan is a named container of compensation rules scoped to a venture.
type IncentivePlan struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;size:255" json:"name"`
	VentureID uint      `gorm:"not null;index" json:"venture_id"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Rules []IncentiveRule `gorm:"foreignKey:PlanID" json:"rules,omitempty"`
}

// TableName specifies the table name for IncentivePlan model.
func (IncentivePlan) TableName() string {
	return "incentive_plans"
}

// IncentiveRule is one compensation formula attached to a plan.
// Rules are never hard-deleted; disabling keeps historical computations reproducible.
type IncentiveRule struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	PlanID    uint          `gorm:"not null;index" json:"plan_id"`
	Plan      IncentivePlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	RoleKey   string        `gorm:"size:100" json:"role_key"` // empty = applies to every role
	MetricKey string        `gorm:"not null;size:100" json:"metric_key"`
	CalcType  CalcType      `gorm:"not null;size:50" json:"calc_type"`
	Rate      float64       `json:"rate"`
	Threshold float64       `json:"threshold"` // BONUS_ON_TARGET only
	Currency  string        `gorm:"size:10" json:"currency"`
	IsEnabled bool          `gorm:"default:true;index" json:"is_enabled"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// TableName specifies the table name for IncentiveRule model.
func (IncentiveRule) TableName() string {
	return "incentive_rules"
}

// AppliesToRole reports whether the rule fires for the given role key.
func (r *IncentiveRule) AppliesToRole(roleKey string) bool {
	return r.RoleKey == "" || r.RoleKey == roleKey
}
