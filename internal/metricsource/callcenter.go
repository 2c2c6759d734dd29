package metricsource

import (
	"context"
	"time"

	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
)

// callCenterSource aggregates call logs started on the target day.
type callCenterSource struct {
	db *repository.DB
}

func (s *callCenterSource) serves(keys map[string]bool) bool {
	return anyKey(keys, MetricBpoDials, MetricBpoConnects, MetricBpoTalkSeconds, MetricBpoDeals)
}

func (s *callCenterSource) load(ctx context.Context, ventureID uint, start, end time.Time, _ map[string]bool, out map[uint]Snapshot) error {
	var logs []models.CallLog
	err := s.db.WithContext(ctx).
		Where("venture_id = ? AND started_at BETWEEN ? AND ?", ventureID, start, end).
		Find(&logs).Error
	if err != nil {
		return err
	}

	for _, l := range logs {
		if l.AgentUserID == 0 {
			continue
		}
		b := bucket(out, l.AgentUserID)

		dials := l.DialCount
		if dials <= 0 {
			dials = 1
		}
		b[MetricBpoDials] += float64(dials)
		if l.Connected {
			b[MetricBpoConnects]++
		}
		if l.DealWon {
			b[MetricBpoDeals]++
		}

		if l.EndedAt != nil {
			dur := l.EndedAt.Sub(l.StartedAt).Seconds()
			if dur > 0 {
				b[MetricBpoTalkSeconds] += dur
			}
		}
	}

	return nil
}
