package metricsource

import (
	"context"
	"time"

	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
)

// hotelSource counts answered guest reviews per user and applies venture-level
// ADR / RevPAR averages to every user that already has a snapshot.
type hotelSource struct {
	db *repository.DB
}

func (s *hotelSource) serves(keys map[string]bool) bool {
	return anyKey(keys, MetricHotelReviewsResponded, MetricHotelADR, MetricHotelRevPAR)
}

func (s *hotelSource) load(ctx context.Context, ventureID uint, start, end time.Time, keys map[string]bool, out map[uint]Snapshot) error {
	if keys[MetricHotelReviewsResponded] {
		var reviews []models.HotelReview
		err := s.db.WithContext(ctx).
			Where("venture_id = ? AND responded_by_id IS NOT NULL AND review_date BETWEEN ? AND ?",
				ventureID, start, end).
			Find(&reviews).Error
		if err != nil {
			return err
		}
		for _, r := range reviews {
			if r.RespondedByID == nil {
				continue
			}
			bucket(out, *r.RespondedByID)[MetricHotelReviewsResponded]++
		}
	}

	if !keys[MetricHotelADR] && !keys[MetricHotelRevPAR] {
		return nil
	}

	var kpis []models.HotelKPIDaily
	err := s.db.WithContext(ctx).
		Where("venture_id = ? AND date BETWEEN ? AND ?", ventureID, start, end).
		Find(&kpis).Error
	if err != nil {
		return err
	}
	if len(kpis) == 0 {
		return nil
	}

	var adr, revpar float64
	for _, k := range kpis {
		adr += k.ADR
		revpar += k.RevPAR
	}
	adr /= float64(len(kpis))
	revpar /= float64(len(kpis))

	// Venture-level averages apply to every user already carrying a snapshot.
	for _, b := range out {
		if keys[MetricHotelADR] && adr > 0 {
			b[MetricHotelADR] = adr
		}
		if keys[MetricHotelRevPAR] && revpar > 0 {
			b[MetricHotelRevPAR] = revpar
		}
	}

	return nil
}
