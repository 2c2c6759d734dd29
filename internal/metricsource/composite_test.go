package metricsource

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// setupTestDB creates an in-memory SQLite database with the domain stores.
func setupTestDB(t *testing.T) *repository.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.FreightLoad{},
		&models.CallLog{},
		&models.HotelReview{},
		&models.HotelKPIDaily{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &repository.DB{DB: db}
}

func setupTestProvider(t *testing.T) (*CompositeProvider, *repository.DB) {
	t.Helper()
	db := setupTestDB(t)
	provider := NewCompositeProvider(db, logger.New("debug", "text", "stdout"))
	return provider, db
}

func timePtr(t time.Time) *time.Time { return &t }
func uintPtr(u uint) *uint           { return &u }

func TestMetricsForDay_Freight(t *testing.T) {
	provider, db := setupTestProvider(t)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	loads := []models.FreightLoad{
		{VentureID: 7, CreatedByID: 42, Status: models.LoadStatusDelivered, BillingDate: timePtr(day.Add(10 * time.Hour)), BillAmount: 3000, Miles: 1500, MarginAmount: 600},
		{VentureID: 7, CreatedByID: 42, Status: models.LoadStatusDelivered, BillingDate: timePtr(day.Add(15 * time.Hour)), BillAmount: 1500, Miles: 750, MarginAmount: 300},
		// Not delivered: must not count.
		{VentureID: 7, CreatedByID: 42, Status: "IN_TRANSIT", BillingDate: timePtr(day.Add(12 * time.Hour)), BillAmount: 9999},
		// Billed the next day: must not count.
		{VentureID: 7, CreatedByID: 42, Status: models.LoadStatusDelivered, BillingDate: timePtr(day.AddDate(0, 0, 1)), BillAmount: 9999},
		// Other venture: must not count.
		{VentureID: 8, CreatedByID: 42, Status: models.LoadStatusDelivered, BillingDate: timePtr(day.Add(10 * time.Hour)), BillAmount: 9999},
	}
	for i := range loads {
		if err := db.Create(&loads[i]).Error; err != nil {
			t.Fatalf("Failed to seed load: %v", err)
		}
	}

	keys := map[string]bool{MetricLoadsCompleted: true, MetricLoadsRevenue: true, MetricLoadsMiles: true}
	snapshots, err := provider.MetricsForDay(context.Background(), 7, day, keys)
	if err != nil {
		t.Fatalf("MetricsForDay failed: %v", err)
	}

	snap := snapshots[42]
	if snap == nil {
		t.Fatal("Expected a snapshot for user 42")
	}
	if snap[MetricLoadsCompleted] != 2 {
		t.Errorf("Expected 2 completed loads, got %v", snap[MetricLoadsCompleted])
	}
	if snap[MetricLoadsRevenue] != 4500 {
		t.Errorf("Expected revenue 4500, got %v", snap[MetricLoadsRevenue])
	}
	if snap[MetricLoadsMiles] != 2250 {
		t.Errorf("Expected 2250 miles, got %v", snap[MetricLoadsMiles])
	}
}

func TestMetricsForDay_CallCenter(t *testing.T) {
	provider, db := setupTestProvider(t)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	callStart := day.Add(9 * time.Hour)
	logs := []models.CallLog{
		{VentureID: 7, AgentUserID: 50, StartedAt: callStart, EndedAt: timePtr(callStart.Add(3 * time.Minute)), DialCount: 5, Connected: true, DealWon: true},
		{VentureID: 7, AgentUserID: 50, StartedAt: callStart.Add(time.Hour), DialCount: 0, Connected: false},
	}
	for i := range logs {
		if err := db.Create(&logs[i]).Error; err != nil {
			t.Fatalf("Failed to seed call log: %v", err)
		}
	}

	keys := map[string]bool{MetricBpoDials: true, MetricBpoConnects: true, MetricBpoTalkSeconds: true, MetricBpoDeals: true}
	snapshots, err := provider.MetricsForDay(context.Background(), 7, day, keys)
	if err != nil {
		t.Fatalf("MetricsForDay failed: %v", err)
	}

	snap := snapshots[50]
	if snap == nil {
		t.Fatal("Expected a snapshot for agent 50")
	}
	// The zero dial-count log still counts as one dial.
	if snap[MetricBpoDials] != 6 {
		t.Errorf("Expected 6 dials, got %v", snap[MetricBpoDials])
	}
	if snap[MetricBpoConnects] != 1 {
		t.Errorf("Expected 1 connect, got %v", snap[MetricBpoConnects])
	}
	if snap[MetricBpoDeals] != 1 {
		t.Errorf("Expected 1 deal, got %v", snap[MetricBpoDeals])
	}
	if snap[MetricBpoTalkSeconds] != 180 {
		t.Errorf("Expected 180 talk seconds, got %v", snap[MetricBpoTalkSeconds])
	}
}

func TestMetricsForDay_Hotel(t *testing.T) {
	provider, db := setupTestProvider(t)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	reviews := []models.HotelReview{
		{VentureID: 7, RespondedByID: uintPtr(60), ReviewDate: day.Add(8 * time.Hour)},
		{VentureID: 7, RespondedByID: uintPtr(60), ReviewDate: day.Add(9 * time.Hour)},
		{VentureID: 7, RespondedByID: nil, ReviewDate: day.Add(10 * time.Hour)},
	}
	for i := range reviews {
		if err := db.Create(&reviews[i]).Error; err != nil {
			t.Fatalf("Failed to seed review: %v", err)
		}
	}
	kpis := []models.HotelKPIDaily{
		{VentureID: 7, Date: day, ADR: 120, RevPAR: 90},
	}
	for i := range kpis {
		if err := db.Create(&kpis[i]).Error; err != nil {
			t.Fatalf("Failed to seed KPI: %v", err)
		}
	}

	keys := map[string]bool{MetricHotelReviewsResponded: true, MetricHotelADR: true, MetricHotelRevPAR: true}
	snapshots, err := provider.MetricsForDay(context.Background(), 7, day, keys)
	if err != nil {
		t.Fatalf("MetricsForDay failed: %v", err)
	}

	snap := snapshots[60]
	if snap == nil {
		t.Fatal("Expected a snapshot for user 60")
	}
	if snap[MetricHotelReviewsResponded] != 2 {
		t.Errorf("Expected 2 answered reviews, got %v", snap[MetricHotelReviewsResponded])
	}
	if snap[MetricHotelADR] != 120 {
		t.Errorf("Expected ADR 120, got %v", snap[MetricHotelADR])
	}
	if snap[MetricHotelRevPAR] != 90 {
		t.Errorf("Expected RevPAR 90, got %v", snap[MetricHotelRevPAR])
	}
}

func TestMetricsForDay_SkipsUnrelatedSources(t *testing.T) {
	provider, db := setupTestProvider(t)
	day := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)

	load := models.FreightLoad{VentureID: 7, CreatedByID: 42, Status: models.LoadStatusDelivered, BillingDate: timePtr(day.Add(time.Hour)), BillAmount: 100}
	if err := db.Create(&load).Error; err != nil {
		t.Fatalf("Failed to seed load: %v", err)
	}

	// Only call-center keys are requested; freight activity must not surface.
	snapshots, err := provider.MetricsForDay(context.Background(), 7, day, map[string]bool{MetricBpoDials: true})
	if err != nil {
		t.Fatalf("MetricsForDay failed: %v", err)
	}
	if len(snapshots) != 0 {
		t.Errorf("Expected no snapshots, got %d", len(snapshots))
	}
}
