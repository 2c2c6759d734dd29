package models

import (
	"encoding/json"
	"time"
)

// Audit actions emitted by the incentive engine.
const (
	AuditActionCommit     = "INCENTIVE_COMMIT"
	AuditActionRuleCreate = "INCENTIVE_RULE_CREATE"
	AuditActionRuleUpdate = "INCENTIVE_RULE_UPDATE"
	AuditActionRuleDelete = "INCENTIVE_RULE_DELETE"
)

// AuditRecord is one structured audit event. Metadata carries enough fields
// to reconstruct the operation (planId, date, counts for commits).
type AuditRecord struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Domain     string          `gorm:"size:100;index" json:"domain"`
	Action     string          `gorm:"size:100;index" json:"action"`
	EntityType string          `gorm:"size:100" json:"entity_type"`
	EntityID   uint            `gorm:"index" json:"entity_id"`
	ActorID    uint            `gorm:"index" json:"actor_id"`
	Metadata   json.RawMessage `gorm:"type:text" json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

// TableName specifies the table name for AuditRecord model.
func (AuditRecord) TableName() string {
	return "audit_records"
}
