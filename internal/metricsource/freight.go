package metricsource

import (
	"context"
	"time"

	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
)

// freightSource aggregates delivered loads billed on the target day.
type freightSource struct {
	db *repository.DB
}

func (s *freightSource) serves(keys map[string]bool) bool {
	return anyKey(keys, MetricLoadsCompleted, MetricLoadsRevenue, MetricLoadsMiles, MetricLoadsMargin)
}

func (s *freightSource) load(ctx context.Context, ventureID uint, start, end time.Time, _ map[string]bool, out map[uint]Snapshot) error {
	var loads []models.FreightLoad
	err := s.db.WithContext(ctx).
		Where("venture_id = ? AND status = ? AND billing_date BETWEEN ? AND ?",
			ventureID, models.LoadStatusDelivered, start, end).
		Find(&loads).Error
	if err != nil {
		return err
	}

	for _, l := range loads {
		if l.CreatedByID == 0 {
			continue
		}
		b := bucket(out, l.CreatedByID)
		b[MetricLoadsCompleted]++
		b[MetricLoadsRevenue] += l.BillAmount
		b[MetricLoadsMiles] += l.Miles
		b[MetricLoadsMargin] += l.MarginAmount
	}

	return nil
}
