// Package incentives provides REST API handlers for the incentive engine.
// It exposes preview/commit runs, rule management, aggregation views, and
// the gamification read endpoint.
package incentives

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/venturehq/incentive-engine/internal/audit"
	prommetrics "github.com/venturehq/incentive-engine/internal/metrics"
	"github.com/venturehq/incentive-engine/internal/models"
	"github.com/venturehq/incentive-engine/internal/repository"
	"github.com/venturehq/incentive-engine/internal/service/aggregation"
	"github.com/venturehq/incentive-engine/internal/service/engine"
	"github.com/venturehq/incentive-engine/internal/service/gamification"
	"github.com/venturehq/incentive-engine/pkg/logger"
)

// ComputationEngine interface for preview runs.
type ComputationEngine interface {
	CalculateForDay(ctx context.Context, planID uint, date string) ([]engine.Item, *models.IncentivePlan, error)
}

// CommitService interface for persisting runs.
type CommitService interface {
	Commit(ctx context.Context, planID uint, date string, actorID uint) (*engine.CommitResult, error)
}

// RuleRepository interface for rule management.
type RuleRepository interface {
	ListRules(planID uint) ([]models.IncentiveRule, error)
	GetRule(id uint) (*models.IncentiveRule, error)
	CreateRule(rule *models.IncentiveRule) error
	UpdateRule(rule *models.IncentiveRule) error
	DisableRule(id uint) (*models.IncentiveRule, error)
}

// AggregationService interface for read-side views.
type AggregationService interface {
	MyDaily(ctx context.Context, userID uint, from, to time.Time) (*aggregation.UserDailyResult, error)
	UserDaily(ctx context.Context, userID, ventureID uint, from, to time.Time) (*aggregation.UserDailyResult, error)
	VentureSummary(ctx context.Context, ventureID uint, from, to time.Time) (*aggregation.VentureSummaryResult, error)
	VentureTimeseries(ctx context.Context, ventureID uint, from, to time.Time) ([]aggregation.TimeseriesPoint, error)
	UserTimeseries(ctx context.Context, userID, ventureID uint, from, to time.Time) ([]aggregation.TimeseriesPoint, error)
	AuditDaily(ctx context.Context, userID, ventureID uint, date time.Time) (*aggregation.AuditDailyResult, error)
}

// GamificationService interface for the gamification read.
type GamificationService interface {
	MyGamification(ctx context.Context, userID, ventureID uint, from, to time.Time) (*gamification.Summary, error)
}

// Handler handles incentive API requests.
type Handler struct {
	engine            ComputationEngine
	committer         CommitService
	ruleRepo          RuleRepository
	aggregation       AggregationService
	gamification      GamificationService
	auditor           audit.Recorder
	defaultWindowDays int
	log               *logger.Logger
}

// NewHandler creates a new incentives handler.
func NewHandler(
	computeEngine *engine.Engine,
	committer *engine.Committer,
	ruleRepo *repository.PlanRepository,
	aggregationService *aggregation.Service,
	gamificationService *gamification.Service,
	auditor audit.Recorder,
	defaultWindowDays int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engine:            computeEngine,
		committer:         committer,
		ruleRepo:          ruleRepo,
		aggregation:       aggregationService,
		gamification:      gamificationService,
		auditor:           auditor,
		defaultWindowDays: defaultWindowDays,
		log:               log,
	}
}

// NewHandlerWithInterfaces creates a new incentives handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	computeEngine ComputationEngine,
	committer CommitService,
	ruleRepo RuleRepository,
	aggregationService AggregationService,
	gamificationService GamificationService,
	auditor audit.Recorder,
	defaultWindowDays int,
	log *logger.Logger,
) *Handler {
	return &Handler{
		engine:            computeEngine,
		committer:         committer,
		ruleRepo:          ruleRepo,
		aggregation:       aggregationService,
		gamification:      gamificationService,
		auditor:           auditor,
		defaultWindowDays: defaultWindowDays,
		log:               log,
	}
}

// runRequest is the body shared by preview and commit.
type runRequest struct {
	PlanID uint   `json:"planId" binding:"required"`
	Date   string `json:"date"`
}

// Run computes a plan for one day without persisting anything.
// POST /incentives/run.
func (h *Handler) Run(c *gin.Context) {
	caller, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "planId is required and must be a positive integer")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	ctx := context.Background()
	items, plan, err := h.engine.CalculateForDay(ctx, req.PlanID, req.Date)
	if err != nil {
		h.runError(c, err, req.PlanID)
		return
	}

	prommetrics.PreviewRunsTotal.Inc()

	h.log.Info().
		Uint("plan_id", plan.ID).
		Str("date", req.Date).
		Uint("actor_id", caller.UserID).
		Int("items", len(items)).
		Msg("Computed incentive preview")

	c.JSON(http.StatusOK, gin.H{
		"planId": plan.ID,
		"date":   req.Date,
		"items":  items,
		"count":  len(items),
	})
}

// Commit computes a plan for one day and persists the result.
// POST /incentives/commit.
func (h *Handler) Commit(c *gin.Context) {
	caller, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "planId is required and must be a positive integer")
		return
	}
	if req.Date == "" {
		req.Date = time.Now().UTC().Format("2006-01-02")
	}

	ctx := context.Background()
	result, err := h.committer.Commit(ctx, req.PlanID, req.Date, caller.UserID)
	if err != nil {
		h.runError(c, err, req.PlanID)
		return
	}

	h.log.Info().
		Uint("plan_id", req.PlanID).
		Str("date", req.Date).
		Uint("actor_id", caller.UserID).
		Int("count", result.Count).
		Int("inserted", result.Inserted).
		Int("updated", result.Updated).
		Msg("Committed incentives")

	c.JSON(http.StatusOK, gin.H{
		"planId":   req.PlanID,
		"date":     req.Date,
		"items":    result.Items,
		"inserted": result.Inserted,
		"updated":  result.Updated,
		"count":    result.Count,
	})
}

// runError maps compute pipeline failures onto the error taxonomy.
func (h *Handler) runError(c *gin.Context, err error, planID uint) {
	switch {
	case errors.Is(err, engine.ErrPlanNotFound):
		h.errorResponse(c, http.StatusNotFound, "Plan not found")
	case errors.Is(err, engine.ErrInvalidDate):
		h.errorResponse(c, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
	default:
		h.log.Error().Err(err).Uint("plan_id", planID).Msg("Incentive run failed")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to run incentive computation")
	}
}

// ruleRequest is the body for rule create/update. Numeric fields are
// pointers so an omitted field can be told apart from an explicit zero.
type ruleRequest struct {
	ID        uint     `json:"id"`
	PlanID    uint     `json:"planId"`
	RoleKey   string   `json:"roleKey"`
	MetricKey string   `json:"metricKey"`
	CalcType  string   `json:"calcType"`
	Rate      *float64 `json:"rate"`
	Threshold *float64 `json:"threshold"`
	Currency  string   `json:"currency"`
	IsEnabled *bool    `json:"isEnabled"`
}

// ListRules returns a plan's rules, or all rules when no filter is given.
// GET /incentives/rules?planId=1.
func (h *Handler) ListRules(c *gin.Context) {
	if _, ok := h.requireAdmin(c); !ok {
		return
	}

	var planID uint
	if raw := c.Query("planId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid planId: %s", raw))
			return
		}
		planID = uint(id)
	}

	rules, err := h.ruleRepo.ListRules(planID)
	if err != nil {
		h.log.Error().Err(err).Uint("plan_id", planID).Msg("Failed to list rules")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to list rules")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rules": rules,
		"count": len(rules),
	})
}

// CreateRule creates a rule, or soft-deletes one when called with
// ?action=delete.
// POST /incentives/rules.
func (h *Handler) CreateRule(c *gin.Context) {
	caller, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	if c.Query("action") == "delete" {
		h.deleteRule(c, caller)
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid rule payload")
		return
	}
	if err := validateRule(&req, true); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rule := &models.IncentiveRule{
		PlanID:    req.PlanID,
		RoleKey:   req.RoleKey,
		MetricKey: req.MetricKey,
		CalcType:  models.CalcType(req.CalcType),
		Currency:  req.Currency,
		IsEnabled: true,
	}
	if req.Rate != nil {
		rule.Rate = *req.Rate
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.IsEnabled != nil {
		rule.IsEnabled = *req.IsEnabled
	}

	if err := h.ruleRepo.CreateRule(rule); err != nil {
		h.log.Error().Err(err).Uint("plan_id", rule.PlanID).Msg("Failed to create rule")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create rule")
		return
	}

	h.recordRuleAudit(c, models.AuditActionRuleCreate, nil, rule, caller)

	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateRule overwrites a rule's mutable fields.
// PUT /incentives/rules.
func (h *Handler) UpdateRule(c *gin.Context) {
	caller, ok := h.requireAdmin(c)
	if !ok {
		return
	}

	var req ruleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid rule payload")
		return
	}
	if req.ID == 0 {
		h.errorResponse(c, http.StatusBadRequest, "id is required")
		return
	}
	if err := validateRule(&req, false); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.ruleRepo.GetRule(req.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Rule not found")
			return
		}
		h.log.Error().Err(err).Uint("rule_id", req.ID).Msg("Failed to load rule")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	before := *rule

	if req.RoleKey != "" {
		rule.RoleKey = req.RoleKey
	}
	if req.MetricKey != "" {
		rule.MetricKey = req.MetricKey
	}
	if req.CalcType != "" {
		rule.CalcType = models.CalcType(req.CalcType)
	}
	if req.Rate != nil {
		rule.Rate = *req.Rate
	}
	if req.Threshold != nil {
		rule.Threshold = *req.Threshold
	}
	if req.Currency != "" {
		rule.Currency = req.Currency
	}
	if req.IsEnabled != nil {
		rule.IsEnabled = *req.IsEnabled
	}

	if err := h.ruleRepo.UpdateRule(rule); err != nil {
		h.log.Error().Err(err).Uint("rule_id", rule.ID).Msg("Failed to update rule")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update rule")
		return
	}

	h.recordRuleAudit(c, models.AuditActionRuleUpdate, &before, rule, caller)

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule soft-deletes a rule.
// DELETE /incentives/rules?id=1.
func (h *Handler) DeleteRule(c *gin.Context) {
	caller, ok := h.requireAdmin(c)
	if !ok {
		return
	}
	h.deleteRule(c, caller)
}

func (h *Handler) deleteRule(c *gin.Context, caller *Caller) {
	ruleID, err := h.parseIDQuery(c, "id")
	if err != nil {
		// The delete action also accepts the id in a JSON body.
		var req ruleRequest
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil || req.ID == 0 {
			h.errorResponse(c, http.StatusBadRequest, "id is required")
			return
		}
		ruleID = req.ID
	}

	current, err := h.ruleRepo.GetRule(ruleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Rule not found")
			return
		}
		h.log.Error().Err(err).Uint("rule_id", ruleID).Msg("Failed to load rule")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to delete rule")
		return
	}
	before := *current

	rule, err := h.ruleRepo.DisableRule(ruleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "Rule not found")
			return
		}
		h.log.Error().Err(err).Uint("rule_id", ruleID).Msg("Failed to disable rule")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to delete rule")
		return
	}

	h.recordRuleAudit(c, models.AuditActionRuleDelete, &before, rule, caller)

	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// recordRuleAudit writes the full before/after rule state so a mutation can
// be reconstructed. Before is nil on create.
func (h *Handler) recordRuleAudit(c *gin.Context, action string, before, after *models.IncentiveRule, caller *Caller) {
	metadata := gin.H{
		"before": before,
		"after":  after,
	}
	if err := h.auditor.Record(c.Request.Context(), "incentives", action, "incentive_rule", after.ID, caller.UserID, metadata); err != nil {
		h.log.Warn().Err(err).Str("action", action).Uint("rule_id", after.ID).Msg("Failed to record audit event")
	}
}

func validateRule(req *ruleRequest, creating bool) error {
	if creating && req.PlanID == 0 {
		return fmt.Errorf("planId is required")
	}
	if creating && req.MetricKey == "" {
		return fmt.Errorf("metricKey is required")
	}
	if req.CalcType != "" && !models.CalcType(req.CalcType).Valid() {
		return fmt.Errorf("invalid calcType: %s", req.CalcType)
	}
	if creating && req.CalcType == "" {
		return fmt.Errorf("calcType is required")
	}
	return nil
}

// MyDaily lists the caller's own incentive records.
// GET /incentives/my-daily?from=2026-01-01&to=2026-01-31.
func (h *Handler) MyDaily(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.aggregation.MyDaily(context.Background(), caller.UserID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve daily incentives")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      caller.UserID,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"items":       result.Items,
		"totalAmount": result.TotalAmount,
	})
}

// UserDaily lists another user's records within one venture.
// GET /incentives/user-daily?userId=1&ventureId=2.
func (h *Handler) UserDaily(c *gin.Context) {
	caller, ok := h.requireLeadership(c)
	if !ok {
		return
	}

	userID, err := h.parseIDQuery(c, "userId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	ventureID, err := h.parseIDQuery(c, "ventureId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.aggregation.UserDaily(context.Background(), userID, ventureID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve daily incentives")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":      userID,
		"ventureId":   ventureID,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"items":       result.Items,
		"totalAmount": result.TotalAmount,
	})
}

// VentureSummary aggregates per-user totals for a venture.
// GET /incentives/venture-summary?ventureId=2.
func (h *Handler) VentureSummary(c *gin.Context) {
	caller, ok := h.requireLeadership(c)
	if !ok {
		return
	}

	ventureID, err := h.parseIDQuery(c, "ventureId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.aggregation.VentureSummary(context.Background(), ventureID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve venture summary")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ventureId":   ventureID,
		"from":        from.Format("2006-01-02"),
		"to":          to.Format("2006-01-02"),
		"items":       result.Items,
		"totalAmount": result.TotalAmount,
	})
}

// VentureTimeseries returns the venture's zero-filled daily series.
// GET /incentives/venture-timeseries?ventureId=2.
func (h *Handler) VentureTimeseries(c *gin.Context) {
	caller, ok := h.requireLeadership(c)
	if !ok {
		return
	}

	ventureID, err := h.parseIDQuery(c, "ventureId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.aggregation.VentureTimeseries(context.Background(), ventureID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve timeseries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ventureId": ventureID,
		"from":      from.Format("2006-01-02"),
		"to":        to.Format("2006-01-02"),
		"points":    points,
	})
}

// UserTimeseries returns one user's zero-filled daily series.
// GET /incentives/user-timeseries?userId=1&ventureId=2.
func (h *Handler) UserTimeseries(c *gin.Context) {
	caller, ok := h.requireLeadership(c)
	if !ok {
		return
	}

	userID, err := h.parseIDQuery(c, "userId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	ventureID, err := h.parseIDQuery(c, "ventureId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.aggregation.UserTimeseries(context.Background(), userID, ventureID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve timeseries")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":    userID,
		"ventureId": ventureID,
		"from":      from.Format("2006-01-02"),
		"to":        to.Format("2006-01-02"),
		"points":    points,
	})
}

// AuditDaily returns the stored breakdown for one exact key.
// GET /incentives/audit-daily?userId=1&ventureId=2&date=2026-01-15.
func (h *Handler) AuditDaily(c *gin.Context) {
	caller, ok := h.requireLeadership(c)
	if !ok {
		return
	}

	userID, err := h.parseIDQuery(c, "userId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	ventureID, err := h.parseIDQuery(c, "ventureId")
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	dateStr := c.Query("date")
	date, err := engine.ParseDay(dateStr)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid date: %s", dateStr))
		return
	}

	result, err := h.aggregation.AuditDaily(context.Background(), userID, ventureID, date)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			h.errorResponse(c, http.StatusNotFound, "No incentive record for this key")
			return
		}
		h.aggregationError(c, err, "Failed to retrieve incentive record")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":    userID,
		"ventureId": ventureID,
		"date":      date.Format("2006-01-02"),
		"amount":    result.Amount,
		"currency":  result.Currency,
		"breakdown": result.Breakdown,
	})
}

// MyGamification returns the caller's streaks, totals, rank, and badges.
// GET /incentives/gamification/my?ventureId=2.
func (h *Handler) MyGamification(c *gin.Context) {
	caller, ok := CallerFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	var ventureID uint
	if c.Query("ventureId") == "" {
		if len(caller.VentureIDs) == 0 {
			h.errorResponse(c, http.StatusBadRequest, "ventureId is required")
			return
		}
		ventureID = caller.VentureIDs[0]
	} else {
		var err error
		ventureID, err = h.parseIDQuery(c, "ventureId")
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	if !caller.HasVenture(ventureID) {
		h.errorResponse(c, http.StatusForbidden, "Venture is outside your scope")
		return
	}

	from, to, err := h.parseWindow(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.gamification.MyGamification(context.Background(), caller.UserID, ventureID, from, to)
	if err != nil {
		h.aggregationError(c, err, "Failed to retrieve gamification summary")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId": caller.UserID,
		"window": gin.H{
			"from": from.Format("2006-01-02"),
			"to":   to.Format("2006-01-02"),
		},
		"streaks": summary.Streaks,
		"totals":  summary.Totals,
		"rank":    summary.Rank,
		"badges":  summary.Badges,
	})
}

// Helper functions

// requireAdmin aborts with 401/403 unless the caller may mutate.
func (h *Handler) requireAdmin(c *gin.Context) (*Caller, bool) {
	caller, ok := CallerFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	if !caller.IsAdmin() {
		h.errorResponse(c, http.StatusForbidden, "Insufficient role")
		return nil, false
	}
	return caller, true
}

// requireLeadership aborts with 401/403 unless the caller may read other
// users' data.
func (h *Handler) requireLeadership(c *gin.Context) (*Caller, bool) {
	caller, ok := CallerFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	if !caller.IsLeadership() {
		h.errorResponse(c, http.StatusForbidden, "Insufficient role")
		return nil, false
	}
	return caller, true
}

// parseIDQuery extracts and validates a positive integer query parameter.
func (h *Handler) parseIDQuery(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return uint(id), nil
}

// parseWindow reads the from/to query parameters. Both default so the window
// covers the configured trailing span ending today.
func (h *Handler) parseWindow(c *gin.Context) (from, to time.Time, err error) {
	now := time.Now().UTC()
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from = to.AddDate(0, 0, -(h.defaultWindowDays - 1))

	if raw := c.Query("to"); raw != "" {
		to, err = engine.ParseDay(raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid to date: %s", raw)
		}
		from = to.AddDate(0, 0, -(h.defaultWindowDays - 1))
	}
	if raw := c.Query("from"); raw != "" {
		from, err = engine.ParseDay(raw)
		if err != nil {
			return from, to, fmt.Errorf("invalid from date: %s", raw)
		}
	}
	return from, to, nil
}

// aggregationError maps read-side failures onto the error taxonomy.
func (h *Handler) aggregationError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, aggregation.ErrWindowTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Date range too large",
			"detail":    err.Error(),
			"timestamp": time.Now().UTC(),
		})
	case errors.Is(err, aggregation.ErrInvalidWindow):
		h.errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.errorResponse(c, http.StatusInternalServerError, message)
	}
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
