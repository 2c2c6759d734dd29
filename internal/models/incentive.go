package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BreakdownEntry is one rule's contribution to a day's total amount.
type BreakdownEntry struct {
	RuleID uint    `json:"ruleId"`
	Amount float64 `json:"amount"`
}

// Breakdown is the ordered list of per-rule contributions persisted with a
// daily record. Stored as JSON so the reconciliation invariant
// (amount == sum of entries) stays machine-checkable.
type Breakdown []BreakdownEntry

// Value implements driver.Valuer for JSON column storage.
func (b Breakdown) Value() (driver.Value, error) {
	if b == nil {
		b = Breakdown{}
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSON column storage.
func (b *Breakdown) Scan(value interface{}) error {
	if value == nil {
		*b = Breakdown{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return fmt.Errorf("unsupported breakdown column type %T", value)
	}
}

// Total returns the sum of all entry amounts.
func (b Breakdown) Total() float64 {
	var sum float64
	for _, e := range b {
		sum += e.Amount
	}
	return sum
}

// IncentiveDaily is the authoritative persisted record of one user's incentive
// for one day in one venture. The (user_id, venture_id, date) triple is unique;
// recomputation replaces the whole breakdown.
type IncentiveDaily struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_incentive_daily_key" json:"user_id"`
	VentureID uint      `gorm:"not null;uniqueIndex:idx_incentive_daily_key" json:"venture_id"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_incentive_daily_key" json:"date"`
	PlanID    uint      `gorm:"index" json:"plan_id"`
	Amount    float64   `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"size:10" json:"currency"`
	Breakdown Breakdown `gorm:"type:text" json:"breakdown"`
	IsTest    bool      `gorm:"default:false" json:"is_test"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for IncentiveDaily model.
func (IncentiveDaily) TableName() string {
	return "incentive_daily"
}

// Day returns the record's date formatted as YYYY-MM-DD.
func (d *IncentiveDaily) Day() string {
	return d.Date.UTC().Format("2006-01-02")
}
