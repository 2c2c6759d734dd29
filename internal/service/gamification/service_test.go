package gamification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/venturehq/incentive-engine/internal/config"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/service/aggregation"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Mock repository for testing

type mockIncentiveRepository struct {
	records []models.IncentiveDaily
}

func (m *mockIncentiveRepository) GetByUserAndRange(userID, ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error) {
	var out []models.IncentiveDaily
	for i := range m.records {
		r := &m.records[i]
		if r.UserID == userID && r.VentureID == ventureID && !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockIncentiveRepository) GetByVentureAndRange(ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error) {
	var out []models.IncentiveDaily
	for i := range m.records {
		r := &m.records[i]
		if r.VentureID == ventureID && !r.Date.Before(from) && !r.Date.After(to) {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Test setup

func testBadges() config.BadgesConfig {
	return config.BadgesConfig{
		DailyStarterStreak:      3,
		ConsistentPerformerDays: 10,
		TopEarnerPercentile:     90,
	}
}

func setupTestService() (*Service, *mockIncentiveRepository) {
	repo := &mockIncentiveRepository{}
	log := logger.New("debug", "text", "stdout")
	service := NewServiceWithInterfaces(repo, testBadges(), 90, log)
	return service, repo
}

func mkDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(userID uint, date time.Time, amount float64) models.IncentiveDaily {
	return models.IncentiveDaily{UserID: userID, VentureID: 7, Date: date, Amount: amount, Currency: "USD"}
}

// Tests

func TestMyGamification_Streaks(t *testing.T) {
	service, repo := setupTestService()

	// Earning days: 1-3 (run of 3), gap, 5-10 (run of 6 ending at window end).
	for d := 1; d <= 3; d++ {
		repo.records = append(repo.records, record(42, mkDate(2026, 3, d), 100))
	}
	for d := 5; d <= 10; d++ {
		repo.records = append(repo.records, record(42, mkDate(2026, 3, d), 100))
	}

	summary, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if summary.Streaks.Current != 6 {
		t.Errorf("Expected current streak 6, got %d", summary.Streaks.Current)
	}
	if summary.Streaks.Longest != 6 {
		t.Errorf("Expected longest streak 6, got %d", summary.Streaks.Longest)
	}
	if summary.Streaks.Current > summary.Streaks.Longest {
		t.Error("Current streak exceeds longest streak")
	}
	if summary.Totals.Amount != 900 {
		t.Errorf("Expected total 900, got %v", summary.Totals.Amount)
	}
	if summary.Totals.Days != 9 {
		t.Errorf("Expected 9 earning days, got %d", summary.Totals.Days)
	}
}

func TestMyGamification_BrokenCurrentStreak(t *testing.T) {
	service, repo := setupTestService()

	// Earning days end well before the window end, so the current streak is 0.
	for d := 1; d <= 4; d++ {
		repo.records = append(repo.records, record(42, mkDate(2026, 3, d), 100))
	}

	summary, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 15))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if summary.Streaks.Current != 0 {
		t.Errorf("Expected broken current streak, got %d", summary.Streaks.Current)
	}
	if summary.Streaks.Longest != 4 {
		t.Errorf("Expected longest streak 4, got %d", summary.Streaks.Longest)
	}
}

func TestMyGamification_RankAndPercentile(t *testing.T) {
	service, repo := setupTestService()

	repo.records = []models.IncentiveDaily{
		record(41, mkDate(2026, 3, 1), 500),
		record(42, mkDate(2026, 3, 1), 300),
		record(43, mkDate(2026, 3, 1), 100),
		record(44, mkDate(2026, 3, 1), 50),
	}

	summary, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if summary.Rank.Rank != 2 {
		t.Errorf("Expected rank 2, got %d", summary.Rank.Rank)
	}
	if summary.Rank.TotalUsers != 4 {
		t.Errorf("Expected 4 ranked users, got %d", summary.Rank.TotalUsers)
	}
	// round(100 * (4-2) / 4) = 50
	if summary.Rank.Percentile != 50 {
		t.Errorf("Expected percentile 50, got %d", summary.Rank.Percentile)
	}
	if summary.Rank.Rank < 1 || summary.Rank.Rank > summary.Rank.TotalUsers {
		t.Error("Rank out of bounds")
	}
}

func TestMyGamification_RankTieBreak(t *testing.T) {
	service, repo := setupTestService()

	// Equal totals; the lower user ID takes the better rank.
	repo.records = []models.IncentiveDaily{
		record(42, mkDate(2026, 3, 1), 100),
		record(43, mkDate(2026, 3, 1), 100),
	}

	lower, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}
	higher, err := service.MyGamification(context.Background(), 43, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if lower.Rank.Rank != 1 || higher.Rank.Rank != 2 {
		t.Errorf("Expected tie broken by lower ID, got ranks %d and %d", lower.Rank.Rank, higher.Rank.Rank)
	}
}

func TestMyGamification_Badges(t *testing.T) {
	service, repo := setupTestService()

	// 12 consecutive earning days ending at the window end: streak and days
	// thresholds both clear, and the sole earner sits at percentile 0.
	for d := 1; d <= 12; d++ {
		repo.records = append(repo.records, record(42, mkDate(2026, 3, d), 100))
	}

	summary, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 12))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if !containsBadge(summary.Badges, BadgeDailyStarter) {
		t.Errorf("Expected %s badge, got %v", BadgeDailyStarter, summary.Badges)
	}
	if !containsBadge(summary.Badges, BadgeConsistentPerformer) {
		t.Errorf("Expected %s badge, got %v", BadgeConsistentPerformer, summary.Badges)
	}
	if containsBadge(summary.Badges, BadgeTopEarner) {
		t.Errorf("Did not expect %s for a single-user population, got %v", BadgeTopEarner, summary.Badges)
	}
}

func TestMyGamification_TopEarnerBadge(t *testing.T) {
	service, repo := setupTestService()

	// 10 earners; the leader lands at percentile 90.
	for u := uint(1); u <= 10; u++ {
		repo.records = append(repo.records, record(u, mkDate(2026, 3, 1), float64(u*10)))
	}

	summary, err := service.MyGamification(context.Background(), 10, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if summary.Rank.Rank != 1 || summary.Rank.Percentile != 90 {
		t.Fatalf("Expected rank 1 at percentile 90, got %+v", summary.Rank)
	}
	if !containsBadge(summary.Badges, BadgeTopEarner) {
		t.Errorf("Expected %s badge, got %v", BadgeTopEarner, summary.Badges)
	}
}

func TestMyGamification_NoRecords(t *testing.T) {
	service, repo := setupTestService()
	repo.records = []models.IncentiveDaily{
		record(99, mkDate(2026, 3, 1), 100),
	}

	summary, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 3, 1), mkDate(2026, 3, 10))
	if err != nil {
		t.Fatalf("MyGamification failed: %v", err)
	}

	if summary.Streaks.Current != 0 || summary.Streaks.Longest != 0 {
		t.Errorf("Expected zero streaks, got %+v", summary.Streaks)
	}
	if summary.Totals.Amount != 0 || summary.Totals.Days != 0 {
		t.Errorf("Expected zero totals, got %+v", summary.Totals)
	}
	// The user ranks last against the population that does have records.
	if summary.Rank.Rank != 1 || summary.Rank.TotalUsers != 1 {
		t.Errorf("Expected rank against earning population, got %+v", summary.Rank)
	}
	if len(summary.Badges) != 0 {
		t.Errorf("Expected no badges, got %v", summary.Badges)
	}
}

func TestMyGamification_WindowTooLarge(t *testing.T) {
	service, _ := setupTestService()

	_, err := service.MyGamification(context.Background(), 42, 7, mkDate(2026, 1, 1), mkDate(2026, 6, 1))
	if !errors.Is(err, aggregation.ErrWindowTooLarge) {
		t.Errorf("Expected ErrWindowTooLarge, got %v", err)
	}
}

func containsBadge(badges []string, badge string) bool {
	for _, b := range badges {
		if b == badge {
			return true
		}
	}
	return false
}
