package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/venturehq/incentive-engine/internal/models"
)

// IncentiveRepository handles persisted daily incentive records. The single
// write primitive is UpsertByKey, which isolates the idempotency guarantee
// of the commit pipeline behind one interface.
type IncentiveRepository struct {
	db *DB
}

// NewIncentiveRepository creates a new incentive repository.
func NewIncentiveRepository(db *DB) *IncentiveRepository {
	return &IncentiveRepository{db: db}
}

// normalizeDay truncates a timestamp to its UTC calendar date.
func normalizeDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UpsertByKey inserts or overwrites the record for (userID, ventureID, date).
// Returns true when a new row was inserted, false when an existing row was
// updated. The whole breakdown is replaced, never appended to.
func (r *IncentiveRepository) UpsertByKey(tx *gorm.DB, userID, ventureID uint, date time.Time, record *models.IncentiveDaily) (bool, error) {
	if tx == nil {
		tx = r.db.DB
	}
	day := normalizeDay(date)

	var existing models.IncentiveDaily
	err := tx.
		Where("user_id = ? AND venture_id = ? AND date = ?", userID, ventureID, day).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		record.UserID = userID
		record.VentureID = ventureID
		record.Date = day
		if err := tx.Create(record).Error; err != nil {
			return false, fmt.Errorf("failed to insert incentive daily: %w", err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up incentive daily: %w", err)
	}

	existing.PlanID = record.PlanID
	existing.Amount = record.Amount
	existing.Currency = record.Currency
	existing.Breakdown = record.Breakdown
	existing.IsTest = record.IsTest
	if err := tx.Save(&existing).Error; err != nil {
		return false, fmt.Errorf("failed to update incentive daily: %w", err)
	}
	*record = existing
	return false, nil
}

// Transaction runs fn inside a single database transaction so a commit either
// fully succeeds or leaves no partial upserts behind.
func (r *IncentiveRepository) Transaction(fn func(tx *gorm.DB) error) error {
	return r.db.DB.Transaction(fn)
}

// GetByKey retrieves the record for an exact (userID, ventureID, date) key.
func (r *IncentiveRepository) GetByKey(userID, ventureID uint, date time.Time) (*models.IncentiveDaily, error) {
	var record models.IncentiveDaily
	err := r.db.
		Where("user_id = ? AND venture_id = ? AND date = ?", userID, ventureID, normalizeDay(date)).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("incentive daily for user %d venture %d on %s: %w",
			userID, ventureID, normalizeDay(date).Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incentive daily: %w", err)
	}
	return &record, nil
}

// GetByUserAndRange retrieves a user's records in a venture within a window,
// ordered by date ascending. Test records are excluded.
func (r *IncentiveRepository) GetByUserAndRange(userID, ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error) {
	var records []models.IncentiveDaily
	err := r.db.
		Where("user_id = ? AND venture_id = ? AND date BETWEEN ? AND ? AND is_test = ?",
			userID, ventureID, normalizeDay(from), normalizeDay(to), false).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

// GetByUserAcrossVentures retrieves a user's records in all ventures within a
// window, ordered by date ascending.
func (r *IncentiveRepository) GetByUserAcrossVentures(userID uint, from, to time.Time) ([]models.IncentiveDaily, error) {
	var records []models.IncentiveDaily
	err := r.db.
		Where("user_id = ? AND date BETWEEN ? AND ? AND is_test = ?",
			userID, normalizeDay(from), normalizeDay(to), false).
		Order("date ASC").
		Find(&records).Error
	return records, err
}

// GetByVentureAndRange retrieves all records for a venture within a window.
func (r *IncentiveRepository) GetByVentureAndRange(ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error) {
	var records []models.IncentiveDaily
	err := r.db.
		Where("venture_id = ? AND date BETWEEN ? AND ? AND is_test = ?",
			ventureID, normalizeDay(from), normalizeDay(to), false).
		Order("date ASC").
		Find(&records).Error
	return records, err
}
