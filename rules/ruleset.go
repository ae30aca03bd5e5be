// Package rules converts measured energy-reduction events into point awards.
// Evaluation is pure: it takes the candidate rules and the event and performs
// no I/O, so award decisions are fully reproducible from versioned rule rows.
package rules

import (
	"fmt"
	"time"

	"ecopoints/models"

	"github.com/shopspring/decimal"
)

// ReductionEvent is one qualifying energy-reduction measurement, with the
// CO2 figure already computed upstream.
type ReductionEvent struct {
	UserID     int64
	CompanyID  int64
	Category   models.RuleKind
	Quantity   decimal.Decimal // kg CO2 for per_kg, placement weight for rank_bonus
	OccurredAt time.Time
}

// PointAward is the outcome of evaluating an event against the rule set.
type PointAward struct {
	Amount int64
	RuleID int64
	Reason models.EntryReason
}

// Evaluate selects the single applicable rule for the event and computes the
// award. If several rules of the matching kind are in force for the same
// company and date, the most recently created one wins (ties on creation time
// fall back to the highest id). Returns (nil, nil) when no active rule
// applies.
//
// Fractional points round half away from zero, which for the non-negative
// quantities seen here is round half up: 2.5 kg at 10 points/kg is 25 points,
// 0.25 kg at 10 points/kg is 3 points.
func Evaluate(candidates []*models.PointRule, event ReductionEvent) (*PointAward, error) {
	rule := selectRule(candidates, event)
	if rule == nil {
		return nil, nil
	}

	amount := rule.Coefficient.Mul(event.Quantity).Round(0).IntPart()
	if amount < 0 {
		return nil, fmt.Errorf("rule %d produced negative award %d for user %d", rule.ID, amount, event.UserID)
	}

	reason := models.EntryReasonReduction
	if rule.Kind == models.RuleKindRankBonus {
		reason = models.EntryReasonRankBonus
	}

	return &PointAward{
		Amount: amount,
		RuleID: rule.ID,
		Reason: reason,
	}, nil
}

// selectRule picks the winning rule: kind match, company/date applicability,
// then latest creation time.
func selectRule(candidates []*models.PointRule, event ReductionEvent) *models.PointRule {
	var selected *models.PointRule
	for _, rule := range candidates {
		if rule.Kind != event.Category {
			continue
		}
		if !rule.AppliesTo(event.CompanyID, event.OccurredAt) {
			continue
		}
		if selected == nil || newerThan(rule, selected) {
			selected = rule
		}
	}
	return selected
}

func newerThan(a, b *models.PointRule) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
