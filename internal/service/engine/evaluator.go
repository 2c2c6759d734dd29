// Package engine implements incentive rule evaluation and the daily
// compute-and-commit pipeline.
package engine

import (
	"github.com/venturehq/incentive-engine/internal/models"
)

// Evaluator turns a rule and a metric value into a monetary amount.
type Evaluator struct {
	// zeroThresholdFires controls the BONUS_ON_TARGET boundary when both the
	// threshold and the metric value are zero.
	zeroThresholdFires bool
}

// NewEvaluator creates a rule evaluator.
func NewEvaluator(zeroThresholdFires bool) *Evaluator {
	return &Evaluator{zeroThresholdFires: zeroThresholdFires}
}

// Evaluate computes the amount a rule yields for a metric value. Disabled
// rules and unknown calc types yield 0; callers drop zero amounts so they
// never reach a breakdown.
func (e *Evaluator) Evaluate(rule *models.IncentiveRule, metricValue float64) float64 {
	if !rule.IsEnabled {
		return 0
	}

	switch rule.CalcType {
	case models.CalcPercentOfMetric, models.CalcFlatPerUnit, models.CalcCurrencyPerUnit:
		// All three are linear scalings; they differ only in the unit of the
		// metric value, not in the formula.
		return metricValue * rule.Rate
	case models.CalcBonusOnTarget:
		if rule.Threshold == 0 && metricValue == 0 && !e.zeroThresholdFires {
			return 0
		}
		if metricValue >= rule.Threshold {
			return rule.Rate
		}
		return 0
	default:
		return 0
	}
}
