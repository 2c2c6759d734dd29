// Package aggregation provides read-only views over persisted daily incentives.
package aggregation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/venturehq/incentive-engine/internal/cache"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrWindowTooLarge = errors.New("date range too large")
	ErrInvalidWindow  = errors.New("invalid date range")
)

// IncentiveRepository interface for persisted record reads.
type IncentiveRepository interface {
	GetByKey(userID, ventureID uint, date time.Time) (*models.IncentiveDaily, error)
	GetByUserAndRange(userID, ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error)
	GetByUserAcrossVentures(userID uint, from, to time.Time) ([]models.IncentiveDaily, error)
	GetByVentureAndRange(ventureID uint, from, to time.Time) ([]models.IncentiveDaily, error)
}

// UserRepository interface for user lookups in venture summaries.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// DailyItem is one day's amount in a user listing.
type DailyItem struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// UserDailyResult is a user's daily listing plus its reconciled total.
type UserDailyResult struct {
	Items       []DailyItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
}

// VentureUserSummary is one user's totals within a venture summary.
type VentureUserSummary struct {
	UserID             uint    `json:"userId"`
	UserName           string  `json:"userName"`
	RoleKey            string  `json:"roleKey,omitempty"`
	TotalAmount        float64 `json:"totalAmount"`
	DaysWithIncentives int     `json:"daysWithIncentives"`
}

// VentureSummaryResult aggregates a venture's users over a window.
type VentureSummaryResult struct {
	Items       []VentureUserSummary `json:"items"`
	TotalAmount float64              `json:"totalAmount"`
}

// TimeseriesPoint is one calendar day in a series. Days without records carry
// a zero amount so a window of N days always yields N points.
type TimeseriesPoint struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// AuditDailyResult is the stored drill-down for one exact key.
type AuditDailyResult struct {
	Amount    float64          `json:"amount"`
	Currency  string           `json:"currency"`
	Breakdown models.Breakdown `json:"breakdown"`
}

// Service answers read-side aggregation queries.
type Service struct {
	incentiveRepo IncentiveRepository
	userRepo      UserRepository
	cache         cache.Cache
	maxWindowDays int
	cacheTTL      time.Duration
	log           *logger.Logger
}

// NewService creates an aggregation service with concrete repository types.
func NewService(
	incentiveRepo *repository.IncentiveRepository,
	userRepo *repository.UserRepository,
	c cache.Cache,
	maxWindowDays int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return newService(incentiveRepo, userRepo, c, maxWindowDays, cacheTTL, log)
}

// NewServiceWithInterfaces creates an aggregation service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	incentiveRepo IncentiveRepository,
	userRepo UserRepository,
	c cache.Cache,
	maxWindowDays int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return newService(incentiveRepo, userRepo, c, maxWindowDays, cacheTTL, log)
}

func newService(
	incentiveRepo IncentiveRepository,
	userRepo UserRepository,
	c cache.Cache,
	maxWindowDays int,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		incentiveRepo: incentiveRepo,
		userRepo:      userRepo,
		cache:         c,
		maxWindowDays: maxWindowDays,
		cacheTTL:      cacheTTL,
		log:           log,
	}
}

// ValidateWindow checks a [from, to] window against the span cap. The span is
// counted in inclusive days: from == to is one day.
func (s *Service) ValidateWindow(from, to time.Time) error {
	from, to = day(from), day(to)
	if to.Before(from) {
		return fmt.Errorf("%w: from is after to", ErrInvalidWindow)
	}
	spanDays := int(to.Sub(from).Hours()/24) + 1
	if spanDays > s.maxWindowDays {
		return fmt.Errorf("%w: maximum allowed range is %d days", ErrWindowTooLarge, s.maxWindowDays)
	}
	return nil
}

// MaxWindowDays exposes the configured span cap.
func (s *Service) MaxWindowDays() int {
	return s.maxWindowDays
}

func day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UserDaily lists a user's records in a venture, date ascending, with the
// exact arithmetic total.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) UserDaily(ctx context.Context, userID, ventureID uint, from, to time.Time) (*UserDailyResult, error) {
	if err := s.ValidateWindow(from, to); err != nil {
		return nil, err
	}

	records, err := s.incentiveRepo.GetByUserAndRange(userID, ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get user daily records: %w", err)
	}

	result := &UserDailyResult{Items: make([]DailyItem, 0, len(records))}
	for i := range records {
		r := &records[i]
		result.Items = append(result.Items, DailyItem{Date: r.Day(), Amount: r.Amount})
		result.TotalAmount += r.Amount
	}
	return result, nil
}

// MyDaily lists the caller's own records across all ventures.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) MyDaily(ctx context.Context, userID uint, from, to time.Time) (*UserDailyResult, error) {
	if err := s.ValidateWindow(from, to); err != nil {
		return nil, err
	}

	records, err := s.incentiveRepo.GetByUserAcrossVentures(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get user daily records: %w", err)
	}

	result := &UserDailyResult{Items: make([]DailyItem, 0, len(records))}
	for i := range records {
		r := &records[i]
		result.Items = append(result.Items, DailyItem{Date: r.Day(), Amount: r.Amount})
		result.TotalAmount += r.Amount
	}
	return result, nil
}

// VentureSummary aggregates per-user totals for a venture over a window,
// ordered by total amount descending.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) VentureSummary(ctx context.Context, ventureID uint, from, to time.Time) (*VentureSummaryResult, error) {
	if err := s.ValidateWindow(from, to); err != nil {
		return nil, err
	}

	records, err := s.incentiveRepo.GetByVentureAndRange(ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get venture records: %w", err)
	}

	type acc struct {
		total float64
		days  map[string]bool
	}
	byUser := make(map[uint]*acc)
	order := make([]uint, 0)
	for i := range records {
		r := &records[i]
		a, ok := byUser[r.UserID]
		if !ok {
			a = &acc{days: make(map[string]bool)}
			byUser[r.UserID] = a
			order = append(order, r.UserID)
		}
		a.total += r.Amount
		if r.Amount > 0 {
			a.days[r.Day()] = true
		}
	}

	result := &VentureSummaryResult{Items: make([]VentureUserSummary, 0, len(byUser))}
	for _, userID := range order {
		a := byUser[userID]
		item := VentureUserSummary{
			UserID:             userID,
			UserName:           fmt.Sprintf("User #%d", userID),
			TotalAmount:        a.total,
			DaysWithIncentives: len(a.days),
		}
		if user, err := s.userRepo.GetByID(userID); err == nil && user != nil {
			item.UserName = user.FullName
			item.RoleKey = user.RoleKey
		}
		result.Items = append(result.Items, item)
		result.TotalAmount += a.total
	}

	sortSummaries(result.Items)
	return result, nil
}

// sortSummaries orders by total descending, ties by lower userID.
func sortSummaries(items []VentureUserSummary) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].TotalAmount != items[j].TotalAmount {
			return items[i].TotalAmount > items[j].TotalAmount
		}
		return items[i].UserID < items[j].UserID
	})
}

// VentureTimeseries returns one zero-filled point per calendar day in the
// window, summed across the venture's users. Results are cached briefly.
func (s *Service) VentureTimeseries(ctx context.Context, ventureID uint, from, to time.Time) ([]TimeseriesPoint, error) {
	if err := s.ValidateWindow(from, to); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("ts:venture:%d:%s:%s", ventureID, day(from).Format("2006-01-02"), day(to).Format("2006-01-02"))
	if points, ok := s.cachedPoints(ctx, cacheKey); ok {
		return points, nil
	}

	records, err := s.incentiveRepo.GetByVentureAndRange(ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get venture records: %w", err)
	}

	points := buildSeries(records, from, to)
	s.storePoints(ctx, cacheKey, points)
	return points, nil
}

// UserTimeseries is the user-scoped equivalent of VentureTimeseries.
func (s *Service) UserTimeseries(ctx context.Context, userID, ventureID uint, from, to time.Time) ([]TimeseriesPoint, error) {
	if err := s.ValidateWindow(from, to); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("ts:user:%d:%d:%s:%s", userID, ventureID, day(from).Format("2006-01-02"), day(to).Format("2006-01-02"))
	if points, ok := s.cachedPoints(ctx, cacheKey); ok {
		return points, nil
	}

	records, err := s.incentiveRepo.GetByUserAndRange(userID, ventureID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get user records: %w", err)
	}

	points := buildSeries(records, from, to)
	s.storePoints(ctx, cacheKey, points)
	return points, nil
}

// buildSeries zero-fills every calendar day of the window and adds record
// amounts onto their days.
func buildSeries(records []models.IncentiveDaily, from, to time.Time) []TimeseriesPoint {
	from, to = day(from), day(to)

	amounts := make(map[string]float64)
	for i := range records {
		r := &records[i]
		amounts[r.Day()] += r.Amount
	}

	var points []TimeseriesPoint
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		points = append(points, TimeseriesPoint{Date: key, Amount: amounts[key]})
	}
	return points
}

func (s *Service) cachedPoints(ctx context.Context, key string) ([]TimeseriesPoint, bool) {
	raw, err := s.cache.Get(ctx, key)
	if err != nil || raw == "" {
		return nil, false
	}
	var points []TimeseriesPoint
	if err := json.Unmarshal([]byte(raw), &points); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to decode cached timeseries")
		return nil, false
	}
	return points, true
}

func (s *Service) storePoints(ctx context.Context, key string, points []TimeseriesPoint) {
	raw, err := json.Marshal(points)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache timeseries")
	}
}

// AuditDaily returns the stored breakdown for an exact (user, venture, date)
// key. Missing records surface repository.ErrNotFound.
//
//nolint:revive // ctx reserved for future context-aware repository calls
func (s *Service) AuditDaily(ctx context.Context, userID, ventureID uint, date time.Time) (*AuditDailyResult, error) {
	record, err := s.incentiveRepo.GetByKey(userID, ventureID, date)
	if err != nil {
		return nil, err
	}
	return &AuditDailyResult{
		Amount:    record.Amount,
		Currency:  record.Currency,
		Breakdown: record.Breakdown,
	}, nil
}
