// Package audit emits structured audit records for commit and rule mutations.
package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Recorder persists audit events. Implementations must not fail the business
// operation they describe; callers log and continue on error.
type Recorder interface {
	Record(ctx context.Context, domain, action, entityType string, entityID, actorID uint, metadata interface{}) error
}

// Store is a gorm-backed Recorder.
type Store struct {
	db  *repository.DB
	log *logger.Logger
}

// NewStore creates a new audit store.
func NewStore(db *repository.DB, log *logger.Logger) *Store {
	return &Store{db: db, log: log}
}

// Record writes one audit record. Metadata is serialized to JSON.
func (s *Store) Record(ctx context.Context, domain, action, entityType string, entityID, actorID uint, metadata interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	record := &models.AuditRecord{
		Domain:     domain,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Metadata:   raw,
	}

	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}

	s.log.Debug().
		Str("action", action).
		Str("entity_type", entityType).
		Uint("entity_id", entityID).
		Msg("Audit record written")

	return nil
}

// List returns the most recent audit records for an action, newest first.
func (s *Store) List(ctx context.Context, action string, limit int) ([]models.AuditRecord, error) {
	var records []models.AuditRecord
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if action != "" {
		query = query.Where("action = ?", action)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&records).Error
	return records, err
}
