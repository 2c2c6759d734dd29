package metricsource

import (
	"context"
	"fmt"
	"time"

	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// CompositeProvider fans a metrics request out to the domain sources whose
// keys the rule set actually needs.
type CompositeProvider struct {
	sources []source
	log     *logger.Logger
}

// NewCompositeProvider creates a provider backed by the freight, call-center
// and hotel stores.
func NewCompositeProvider(db *repository.DB, log *logger.Logger) *CompositeProvider {
	return &CompositeProvider{
		sources: []source{
			&freightSource{db: db},
			&callCenterSource{db: db},
			&hotelSource{db: db},
		},
		log: log,
	}
}

// MetricsForDay implements Provider.
func (p *CompositeProvider) MetricsForDay(ctx context.Context, ventureID uint, date time.Time, keys map[string]bool) (map[uint]Snapshot, error) {
	start, end := dayBounds(date)
	out := make(map[uint]Snapshot)

	for _, src := range p.sources {
		if !src.serves(keys) {
			continue
		}
		if err := src.load(ctx, ventureID, start, end, keys, out); err != nil {
			return nil, fmt.Errorf("failed to load metrics: %w", err)
		}
	}

	p.log.Debug().
		Uint("venture_id", ventureID).
		Str("date", start.Format("2006-01-02")).
		Int("users", len(out)).
		Msg("Loaded metric snapshots")

	return out, nil
}
