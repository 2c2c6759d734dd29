package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/venturehq/incentive-engine/internal/config"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/service/engine"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

func TestBuildCronExpression(t *testing.T) {
	tests := []struct {
		name         string
		time         string
		skipWeekends bool
		want         string
		wantErr      bool
	}{
		{
			name:         "daily at 2am",
			time:         "02:00",
			skipWeekends: false,
			want:         "0 2 * * *",
			wantErr:      false,
		},
		{
			name:         "weekdays at 2am",
			time:         "02:00",
			skipWeekends: true,
			want:         "0 2 * * 1-5",
			wantErr:      false,
		},
		{
			name:         "daily at 23:45",
			time:         "23:45",
			skipWeekends: false,
			want:         "45 23 * * *",
			wantErr:      false,
		},
		{
			name:    "invalid format no colon",
			time:    "0200",
			wantErr: true,
		},
		{
			name:    "invalid hour",
			time:    "25:00",
			wantErr: true,
		},
		{
			name:    "invalid minute",
			time:    "02:60",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				Scheduler: config.SchedulerConfig{
					Time:         tt.time,
					SkipWeekends: tt.skipWeekends,
				},
			}

			s := &Service{config: cfg}

			got, err := s.buildCronExpression()

			if (err != nil) != tt.wantErr {
				t.Errorf("buildCronExpression() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("buildCronExpression() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Mocks for the commit job

type mockPlanLister struct {
	plans []models.IncentivePlan
	err   error
}

func (m *mockPlanLister) ListActivePlans() ([]models.IncentivePlan, error) {
	return m.plans, m.err
}

type mockCommitter struct {
	calls   []uint
	failFor map[uint]bool
}

func (m *mockCommitter) Commit(ctx context.Context, planID uint, date string, actorID uint) (*engine.CommitResult, error) {
	m.calls = append(m.calls, planID)
	if m.failFor[planID] {
		return nil, errors.New("commit failed")
	}
	return &engine.CommitResult{Inserted: 2, Count: 2}, nil
}

func TestRunDailyCommits_AllPlans(t *testing.T) {
	planRepo := &mockPlanLister{plans: []models.IncentivePlan{
		{ID: 1, Name: "Freight", IsActive: true},
		{ID: 2, Name: "BPO", IsActive: true},
	}}
	committer := &mockCommitter{}
	cfg := &config.Config{Scheduler: config.SchedulerConfig{Enabled: true}}
	log := logger.New("debug", "text", "stdout")

	s := NewServiceWithInterfaces(cfg, planRepo, committer, log)
	s.runDailyCommits(context.Background())

	if len(committer.calls) != 2 {
		t.Fatalf("Expected both plans committed, got %v", committer.calls)
	}
}

func TestRunDailyCommits_ContinuesPastFailure(t *testing.T) {
	planRepo := &mockPlanLister{plans: []models.IncentivePlan{
		{ID: 1, IsActive: true},
		{ID: 2, IsActive: true},
		{ID: 3, IsActive: true},
	}}
	committer := &mockCommitter{failFor: map[uint]bool{2: true}}
	cfg := &config.Config{Scheduler: config.SchedulerConfig{Enabled: true}}
	log := logger.New("debug", "text", "stdout")

	s := NewServiceWithInterfaces(cfg, planRepo, committer, log)
	s.runDailyCommits(context.Background())

	// A failing plan must not stop the remaining plans from committing.
	if len(committer.calls) != 3 {
		t.Fatalf("Expected all 3 plans attempted, got %v", committer.calls)
	}
}

func TestStart_DisabledScheduler(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{Enabled: false}}
	log := logger.New("debug", "text", "stdout")

	s := NewServiceWithInterfaces(cfg, &mockPlanLister{}, &mockCommitter{}, log)
	if err := s.Start(); err != nil {
		t.Fatalf("Expected disabled scheduler to start without error, got %v", err)
	}
	s.Stop()
}

func TestStart_InvalidTimezone(t *testing.T) {
	cfg := &config.Config{Scheduler: config.SchedulerConfig{
		Enabled:  true,
		Time:     "02:00",
		Timezone: "Not/AZone",
	}}
	log := logger.New("debug", "text", "stdout")

	s := NewServiceWithInterfaces(cfg, &mockPlanLister{}, &mockCommitter{}, log)
	if err := s.Start(); err == nil {
		t.Fatal("Expected error for invalid timezone")
	}
}
