// Package metricsource reads per-user daily business metrics from the domain
// stores (freight, call-center, hotel). Pure read side; metrics are fetched
// fresh on every computation and never cached.
package metricsource

import (
	"context"
	"time"
)

// Metric keys produced by the built-in sources.
const (
	MetricLoadsCompleted        = "loads_completed"
	MetricLoadsRevenue          = "loads_revenue"
	MetricLoadsMiles            = "loads_miles"
	MetricLoadsMargin           = "loads_margin"
	MetricBpoDials              = "bpo_dials"
	MetricBpoConnects           = "bpo_connects"
	MetricBpoTalkSeconds        = "bpo_talk_seconds"
	MetricBpoDeals              = "bpo_deals"
	MetricHotelReviewsResponded = "hotel_reviews_responded"
	MetricHotelADR              = "hotel_adr"
	MetricHotelRevPAR           = "hotel_revpar"
)

// Snapshot maps metricKey to its value for one user on one day.
type Snapshot map[string]float64

// Provider reads a day's business metrics for every metric-bearing user of a
// venture. Implementations must be side-effect free.
type Provider interface {
	// MetricsForDay returns per-user snapshots for the venture and date,
	// restricted to the requested metric keys. Users without any matching
	// activity are absent from the result.
	MetricsForDay(ctx context.Context, ventureID uint, date time.Time, keys map[string]bool) (map[uint]Snapshot, error)
}

// source loads one domain's metrics. A source is only consulted when the rule
// set needs at least one of the keys it serves.
type source interface {
	serves(keys map[string]bool) bool
	load(ctx context.Context, ventureID uint, start, end time.Time, keys map[string]bool, out map[uint]Snapshot) error
}

// dayBounds returns the inclusive UTC start and end instants of a calendar day.
func dayBounds(date time.Time) (start, end time.Time) {
	u := date.UTC()
	start = time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	end = start.Add(24*time.Hour - time.Millisecond)
	return start, end
}

func bucket(out map[uint]Snapshot, userID uint) Snapshot {
	b, ok := out[userID]
	if !ok {
		b = Snapshot{}
		out[userID] = b
	}
	return b
}

func anyKey(keys map[string]bool, candidates ...string) bool {
	for _, c := range candidates {
		if keys[c] {
			return true
		}
	}
	return false
}
