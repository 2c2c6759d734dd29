package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/venturehq/incentive-engine/internal/metricsource"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Mock repositories for testing

type mockPlanRepository struct {
	plans map[uint]*models.IncentivePlan
	rules map[uint][]models.IncentiveRule
}

func newMockPlanRepository() *mockPlanRepository {
	return &mockPlanRepository{
		plans: make(map[uint]*models.IncentivePlan),
		rules: make(map[uint][]models.IncentiveRule),
	}
}

func (m *mockPlanRepository) GetPlan(id uint) (*models.IncentivePlan, error) {
	plan, exists := m.plans[id]
	if !exists {
		return nil, repository.ErrNotFound
	}
	return plan, nil
}

func (m *mockPlanRepository) GetEnabledRules(planID uint) ([]models.IncentiveRule, error) {
	var enabled []models.IncentiveRule
	for _, rule := range m.rules[planID] {
		if rule.IsEnabled {
			enabled = append(enabled, rule)
		}
	}
	return enabled, nil
}

type mockUserRepository struct {
	users map[uint][]models.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uint][]models.User)}
}

func (m *mockUserRepository) ListByVenture(ventureID uint) ([]models.User, error) {
	return m.users[ventureID], nil
}

type mockProvider struct {
	snapshots map[uint]metricsource.Snapshot
	err       error
}

func (m *mockProvider) MetricsForDay(ctx context.Context, ventureID uint, date time.Time, keys map[string]bool) (map[uint]metricsource.Snapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.snapshots, nil
}

// Test setup

func setupTestEngine() (*Engine, *mockPlanRepository, *mockUserRepository, *mockProvider) {
	planRepo := newMockPlanRepository()
	userRepo := newMockUserRepository()
	provider := &mockProvider{snapshots: make(map[uint]metricsource.Snapshot)}
	log := logger.New("debug", "text", "stdout")

	engine := NewEngineWithInterfaces(planRepo, userRepo, provider, NewEvaluator(true), log)
	return engine, planRepo, userRepo, provider
}

// seedScenarioPlan installs a plan with the four calc types against freight
// metrics for venture 7.
func seedScenarioPlan(planRepo *mockPlanRepository, userRepo *mockUserRepository, provider *mockProvider) {
	planRepo.plans[1] = &models.IncentivePlan{ID: 1, Name: "Freight Q1", VentureID: 7, IsActive: true}
	planRepo.rules[1] = []models.IncentiveRule{
		{ID: 10, PlanID: 1, MetricKey: metricsource.MetricLoadsRevenue, CalcType: models.CalcPercentOfMetric, Rate: 0.02, IsEnabled: true},
		{ID: 11, PlanID: 1, MetricKey: metricsource.MetricLoadsCompleted, CalcType: models.CalcFlatPerUnit, Rate: 50, IsEnabled: true},
		{ID: 12, PlanID: 1, MetricKey: metricsource.MetricLoadsMiles, CalcType: models.CalcCurrencyPerUnit, Rate: 0.10, IsEnabled: true},
		{ID: 13, PlanID: 1, MetricKey: metricsource.MetricLoadsCompleted, CalcType: models.CalcBonusOnTarget, Rate: 200, Threshold: 10, IsEnabled: true},
	}
	userRepo.users[7] = []models.User{
		{ID: 42, FullName: "Dana Driver", RoleKey: "FREIGHT_AGENT", VentureID: 7},
	}
	provider.snapshots[42] = metricsource.Snapshot{
		metricsource.MetricLoadsRevenue:   4500,
		metricsource.MetricLoadsCompleted: 3,
		metricsource.MetricLoadsMiles:     2250,
	}
}

// Tests

func TestCalculateForDay_Scenario(t *testing.T) {
	engine, planRepo, userRepo, provider := setupTestEngine()
	seedScenarioPlan(planRepo, userRepo, provider)

	items, plan, err := engine.CalculateForDay(context.Background(), 1, "2026-03-05")
	if err != nil {
		t.Fatalf("CalculateForDay failed: %v", err)
	}
	if plan.ID != 1 {
		t.Errorf("Expected plan 1, got %d", plan.ID)
	}

	// The bonus rule misses its threshold (3 < 10) and must not appear.
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}

	var total float64
	for _, item := range items {
		total += item.Amount
		if item.UserID != 42 {
			t.Errorf("Expected all items for user 42, got %d", item.UserID)
		}
		if item.Date != "2026-03-05" {
			t.Errorf("Expected item date 2026-03-05, got %s", item.Date)
		}
	}
	if total != 465 {
		t.Errorf("Expected total 465, got %v", total)
	}

	expected := map[uint]float64{10: 90, 11: 150, 12: 225}
	for _, item := range items {
		if expected[item.RuleID] != item.Amount {
			t.Errorf("Rule %d: expected amount %v, got %v", item.RuleID, expected[item.RuleID], item.Amount)
		}
	}
}

func TestCalculateForDay_Repeatable(t *testing.T) {
	engine, planRepo, userRepo, provider := setupTestEngine()
	seedScenarioPlan(planRepo, userRepo, provider)

	first, _, err := engine.CalculateForDay(context.Background(), 1, "2026-03-05")
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	second, _, err := engine.CalculateForDay(context.Background(), 1, "2026-03-05")
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical items across runs, got %+v then %+v", first, second)
	}
}

func TestCalculateForDay_PlanNotFound(t *testing.T) {
	engine, _, _, _ := setupTestEngine()

	_, _, err := engine.CalculateForDay(context.Background(), 99, "2026-03-05")
	if err == nil {
		t.Fatal("Expected error for unknown plan")
	}
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("Expected ErrPlanNotFound, got %v", err)
	}
}

func TestCalculateForDay_InvalidDate(t *testing.T) {
	engine, planRepo, userRepo, provider := setupTestEngine()
	seedScenarioPlan(planRepo, userRepo, provider)

	for _, date := range []string{"not-a-date", "2026/03/05", ""} {
		_, _, err := engine.CalculateForDay(context.Background(), 1, date)
		if !errors.Is(err, ErrInvalidDate) {
			t.Errorf("Date %q: expected ErrInvalidDate, got %v", date, err)
		}
	}
}

func TestCalculateForDay_NoRules(t *testing.T) {
	engine, planRepo, _, _ := setupTestEngine()
	planRepo.plans[2] = &models.IncentivePlan{ID: 2, Name: "Empty", VentureID: 7}

	items, _, err := engine.CalculateForDay(context.Background(), 2, "2026-03-05")
	if err != nil {
		t.Fatalf("CalculateForDay failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty item list, got %d items", len(items))
	}
}

func TestCalculateForDay_RoleFilter(t *testing.T) {
	engine, planRepo, userRepo, provider := setupTestEngine()

	planRepo.plans[1] = &models.IncentivePlan{ID: 1, VentureID: 7}
	planRepo.rules[1] = []models.IncentiveRule{
		{ID: 10, PlanID: 1, RoleKey: "BPO_AGENT", MetricKey: metricsource.MetricBpoDials, CalcType: models.CalcFlatPerUnit, Rate: 1, IsEnabled: true},
		{ID: 11, PlanID: 1, MetricKey: metricsource.MetricBpoDials, CalcType: models.CalcFlatPerUnit, Rate: 2, IsEnabled: true},
	}
	userRepo.users[7] = []models.User{
		{ID: 1, RoleKey: "BPO_AGENT"},
		{ID: 2, RoleKey: "FREIGHT_AGENT"},
	}
	provider.snapshots[1] = metricsource.Snapshot{metricsource.MetricBpoDials: 10}
	provider.snapshots[2] = metricsource.Snapshot{metricsource.MetricBpoDials: 10}

	items, _, err := engine.CalculateForDay(context.Background(), 1, "2026-03-05")
	if err != nil {
		t.Fatalf("CalculateForDay failed: %v", err)
	}

	// User 1 matches both rules, user 2 only the wildcard rule.
	if len(items) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(items))
	}
	for _, item := range items {
		if item.UserID == 2 && item.RuleID == 10 {
			t.Errorf("Role-restricted rule fired for non-matching user: %+v", item)
		}
	}
}

func TestCalculateForDay_MetricBearingUserOutsideVenture(t *testing.T) {
	engine, planRepo, userRepo, provider := setupTestEngine()
	seedScenarioPlan(planRepo, userRepo, provider)

	// A user with metrics but no membership row still joins the population
	// through the wildcard rules.
	provider.snapshots[77] = metricsource.Snapshot{metricsource.MetricLoadsCompleted: 2}

	items, _, err := engine.CalculateForDay(context.Background(), 1, "2026-03-05")
	if err != nil {
		t.Fatalf("CalculateForDay failed: %v", err)
	}

	found := false
	for _, item := range items {
		if item.UserID == 77 && item.RuleID == 11 && item.Amount == 100 {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected an item for metric-bearing user 77, got %+v", items)
	}
}

func TestParseDay(t *testing.T) {
	day, err := ParseDay("2026-03-05")
	if err != nil {
		t.Fatalf("ParseDay failed: %v", err)
	}
	expected := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	if !day.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, day)
	}
}
