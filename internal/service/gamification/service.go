// Package gamification derives streaks, ranks, and badges from committed
// daily incentives.
package gamification

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/venturehq/incentive-engine/internal/config"
	"github.com/venturehq/incentive-engine/internal/metrics"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/internal/service/aggregation"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Badge names awarded by MyGamification.
const (
	BadgeDailyStarter        = "Daily Starter"
	BadgeConsistentPerformer = "Consistent Performer"
	BadgeTopEarner           = "Top Earner"
)

// IncentiveRepository interface for committed record reads.
type IncentiveRepository interface {
	GetByUserAndRange(userID, ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error)
	GetByVentureAndRange(ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error)
}

// Streaks describes consecutive days with a positive incentive.
type Streaks struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

// Totals sums a user's window.
type Totals struct {
	Amount float64 `json:"amount"`
	Days   int     `json:"days"`
}

// Rank places a user within the venture's earners for the window.
type Rank struct {
	Rank       int `json:"rank"`
	TotalUsers int `json:"totalUsers"`
	Percentile int `json:"percentile"`
}

// Summary is the full gamification view for one user.
type Summary struct {
	Streaks Streaks  `json:"streaks"`
	Totals  Totals   `json:"totals"`
	Rank    Rank     `json:"rank"`
	Badges  []string `json:"badges"`
}

// Service computes gamification summaries.
type Service struct {
	incentiveRepo IncentiveRepository
	badges        config.BadgesConfig
	maxWindowDays int
	log           *logger.Logger
}

// NewService creates a gamification service with concrete repository types.
func NewService(incentiveRepo *repository.IncentiveRepository, badges config.BadgesConfig, maxWindowDays int, log *logger.Logger) *Service {
	return &Service{incentiveRepo: incentiveRepo, badges: badges, maxWindowDays: maxWindowDays, log: log}
}

// NewServiceWithInterfaces creates a gamification service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(incentiveRepo IncentiveRepository, badges config.BadgesConfig, maxWindowDays int, log *logger.Logger) *Service {
	return &Service{incentiveRepo: incentiveRepo, badges: badges, maxWindowDays: maxWindowDays, log: log}
}

// MyGamification builds the caller's summary for a window within one venture.
//
//nolint:revive // ctx reserved for future context-aware operations
func (s *Service) MyGamification(ctx context.Context, userID, ventureID uint, from, to time.Time) (*Summary, error) {
	if err := s.validateWindow(from, to); err != nil {
		return nil, err
	}

	userRecords, err := s.incentiveRepo.GetByUserAndRange(userID, ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get user records: %w", err)
	}

	ventureRecords, err := s.incentiveRepo.GetByVentureAndRange(ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get venture records: %w", err)
	}

	summary := &Summary{
		Streaks: computeStreaks(userRecords, to),
		Totals:  computeTotals(userRecords),
		Rank:    computeRank(ventureRecords, userID),
	}
	summary.Badges = s.awardBadges(summary)

	metrics.RecordBadges(summary.Badges)
	return summary, nil
}

// validateWindow applies the same inclusive span cap the aggregation reads
// enforce.
func (s *Service) validateWindow(from, to time.Time) error {
	fromDay := time.Date(from.UTC().Year(), from.UTC().Month(), from.UTC().Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.UTC().Year(), to.UTC().Month(), to.UTC().Day(), 0, 0, 0, 0, time.UTC)
	if toDay.Before(fromDay) {
		return fmt.Errorf("%w: from is after to", aggregation.ErrInvalidWindow)
	}
	spanDays := int(toDay.Sub(fromDay).Hours()/24) + 1
	if spanDays > s.maxWindowDays {
		return fmt.Errorf("%w: maximum allowed range is %d days", aggregation.ErrWindowTooLarge, s.maxWindowDays)
	}
	return nil
}

// computeTotals sums amounts and counts distinct days with a positive amount.
func computeTotals(records []models.IncentiveDaily) Totals {
	totals := Totals{}
	days := make(map[string]bool)
	for i := range records {
		r := &records[i]
		totals.Amount += r.Amount
		if r.Amount > 0 {
			days[r.Day()] = true
		}
	}
	totals.Days = len(days)
	return totals
}

// computeStreaks walks the window's earning days. The current streak counts
// back from the window end; a gap of one or more days breaks it.
func computeStreaks(records []models.IncentiveDaily, windowEnd time.Time) Streaks {
	earning := make(map[string]bool)
	for i := range records {
		r := &records[i]
		if r.Amount > 0 {
			earning[r.Day()] = true
		}
	}
	if len(earning) == 0 {
		return Streaks{}
	}

	days := make([]string, 0, len(earning))
	for d := range earning {
		days = append(days, d)
	}
	sort.Strings(days)

	longest, run := 1, 1
	prev, _ := time.Parse("2006-01-02", days[0])
	for _, d := range days[1:] {
		cur, _ := time.Parse("2006-01-02", d)
		if cur.Sub(prev) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
		prev = cur
	}

	// The current streak only counts if the run reaches the window's last
	// day or the day before it.
	end := time.Date(windowEnd.UTC().Year(), windowEnd.UTC().Month(), windowEnd.UTC().Day(), 0, 0, 0, 0, time.UTC)
	current := 0
	cursor := end
	if !earning[cursor.Format("2006-01-02")] {
		cursor = cursor.AddDate(0, 0, -1)
	}
	for earning[cursor.Format("2006-01-02")] {
		current++
		cursor = cursor.AddDate(0, 0, -1)
	}

	return Streaks{Current: current, Longest: longest}
}

// computeRank orders the venture's users by total amount descending, ties
// broken by lower user ID, and places userID within that order. Percentile is
// the share of users at or below this user's rank.
func computeRank(ventureRecords []models.IncentiveDaily, userID uint) Rank {
	totals := make(map[uint]float64)
	for i := range ventureRecords {
		r := &ventureRecords[i]
		totals[r.UserID] += r.Amount
	}
	if len(totals) == 0 {
		return Rank{}
	}

	type userTotal struct {
		userID uint
		total  float64
	}
	ranking := make([]userTotal, 0, len(totals))
	for uid, total := range totals {
		ranking = append(ranking, userTotal{userID: uid, total: total})
	}
	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].total != ranking[j].total {
			return ranking[i].total > ranking[j].total
		}
		return ranking[i].userID < ranking[j].userID
	})

	rank := Rank{TotalUsers: len(ranking)}
	for i := range ranking {
		if ranking[i].userID == userID {
			rank.Rank = i + 1
			break
		}
	}
	if rank.Rank == 0 {
		// The user earned nothing in the window and ranks last.
		rank.Rank = rank.TotalUsers
	}

	pct := int(math.Round(100 * float64(rank.TotalUsers-rank.Rank) / float64(rank.TotalUsers)))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	rank.Percentile = pct

	return rank
}

// awardBadges applies the configured thresholds to a computed summary.
func (s *Service) awardBadges(summary *Summary) []string {
	badges := make([]string, 0, 3)
	if summary.Streaks.Current >= s.badges.DailyStarterStreak {
		badges = append(badges, BadgeDailyStarter)
	}
	if summary.Totals.Days >= s.badges.ConsistentPerformerDays {
		badges = append(badges, BadgeConsistentPerformer)
	}
	if summary.Rank.TotalUsers > 0 && summary.Rank.Percentile >= s.badges.TopEarnerPercentile {
		badges = append(badges, BadgeTopEarner)
	}
	return badges
}
