package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/venturehq/incentive-engine/internal/audit"
	prommetrics "github.com/venturehq/incentive-engine/internal/metrics"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// CommitResult reports what a commit run wrote.
type CommitResult struct {
	Items    []Item `json:"items"`
	Inserted int    `json:"inserted"`
	Updated  int    `json:"updated"`
	Count    int    `json:"count"`
}

// IncentiveStore interface for the commit write path.
type IncentiveStore interface {
	UpsertByKey(tx *gorm.DB, userID, ventureID uint, date time.Time, record *models.IncentiveDaily) (bool, error)
	Transaction(fn func(tx *gorm.DB) error) error
}

// Committer persists a computed day as the authoritative record, one row per
// (user, venture, date) key. Re-running a commit for the same plan and date
// with unchanged metrics updates every row and inserts none.
type Committer struct {
	engine   *Engine
	store    IncentiveStore
	auditor  audit.Recorder
	currency string
	log      *logger.Logger
}

// NewCommitter creates a commit pipeline with concrete repository types.
func NewCommitter(
	engine *Engine,
	store *repository.IncentiveRepository,
	auditor audit.Recorder,
	currency string,
	log *logger.Logger,
) *Committer {
	return &Committer{
		engine:   engine,
		store:    store,
		auditor:  auditor,
		currency: currency,
		log:      log,
	}
}

// NewCommitterWithInterfaces creates a commit pipeline with interface dependencies (useful for testing).
func NewCommitterWithInterfaces(
	engine *Engine,
	store IncentiveStore,
	auditor audit.Recorder,
	currency string,
	log *logger.Logger,
) *Committer {
	return &Committer{
		engine:   engine,
		store:    store,
		auditor:  auditor,
		currency: currency,
		log:      log,
	}
}

// Commit computes and persists a day's incentives for a plan. The whole run is
// one transaction: either every key is upserted or none are.
func (c *Committer) Commit(ctx context.Context, planID uint, date string, actorID uint) (*CommitResult, error) {
	start := time.Now()

	items, plan, err := c.engine.CalculateForDay(ctx, planID, date)
	if err != nil {
		prommetrics.RecordCommit("error", 0, 0)
		return nil, err
	}

	day, err := ParseDay(date)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{Items: items}

	// Group items by user; the venture and date are fixed by the plan and the
	// run, so the (user, venture, date) key collapses to the user here.
	type group struct {
		userID    uint
		amount    float64
		breakdown models.Breakdown
	}
	groups := make(map[uint]*group)
	order := make([]uint, 0)
	for _, item := range items {
		g, ok := groups[item.UserID]
		if !ok {
			g = &group{userID: item.UserID}
			groups[item.UserID] = g
			order = append(order, item.UserID)
		}
		g.amount += item.Amount
		g.breakdown = append(g.breakdown, models.BreakdownEntry{RuleID: item.RuleID, Amount: item.Amount})
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	err = c.store.Transaction(func(tx *gorm.DB) error {
		for _, userID := range order {
			g := groups[userID]
			record := &models.IncentiveDaily{
				PlanID:    planID,
				Amount:    g.amount,
				Currency:  c.currency,
				Breakdown: g.breakdown,
			}
			inserted, err := c.store.UpsertByKey(tx, g.userID, plan.VentureID, day, record)
			if err != nil {
				return fmt.Errorf("failed to upsert incentives for user %d: %w", g.userID, err)
			}
			if inserted {
				result.Inserted++
			} else {
				result.Updated++
			}
		}
		return nil
	})
	if err != nil {
		prommetrics.RecordCommit("error", 0, 0)
		return nil, err
	}

	result.Count = result.Inserted + result.Updated

	prommetrics.RecordCommit("success", result.Inserted, result.Updated)
	prommetrics.ComputeDurationSeconds.Observe(time.Since(start).Seconds())

	if c.auditor != nil {
		auditErr := c.auditor.Record(ctx, "incentives", models.AuditActionCommit, "incentivePlan", planID, actorID,
			map[string]interface{}{
				"planId":   planID,
				"date":     date,
				"count":    result.Count,
				"inserted": result.Inserted,
				"updated":  result.Updated,
			})
		if auditErr != nil {
			c.log.Warn().Err(auditErr).Uint("plan_id", planID).Msg("Failed to write commit audit record")
		}
	}

	c.log.Info().
		Uint("plan_id", planID).
		Str("date", date).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Int("count", result.Count).
		Dur("duration", time.Since(start)).
		Msg("Incentive commit complete")

	return result, nil
}
