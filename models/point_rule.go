package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleKind identifies how a rule converts a measured quantity into points.
type RuleKind string

const (
	RuleKindPerKg     RuleKind = "per_kg"     // points per kg of CO2 reduced
	RuleKindRankBonus RuleKind = "rank_bonus" // bonus points for leaderboard placement
)

// PointRule is a versioned, immutable conversion rule. Rules referenced by
// ledger entries are never mutated; a change is a new rule row, so historical
// awards stay reproducible.
type PointRule struct {
	ID            int64           `db:"id"`
	CompanyID     *int64          `db:"company_id"` // nil = applies to every company
	Name          string          `db:"name"`
	Kind          RuleKind        `db:"kind"`
	Coefficient   decimal.Decimal `db:"coefficient"`
	Active        bool            `db:"active"`
	EffectiveFrom time.Time       `db:"effective_from"`
	EffectiveTo   *time.Time      `db:"effective_to"` // nil = open-ended
	CreatedAt     time.Time       `db:"created_at"`
}

// AppliesTo reports whether the rule is in force for the given company and
// date. EffectiveTo is exclusive.
func (r *PointRule) AppliesTo(companyID int64, at time.Time) bool {
	if !r.Active {
		return false
	}
	if r.CompanyID != nil && *r.CompanyID != companyID {
		return false
	}
	if at.Before(r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && !at.Before(*r.EffectiveTo) {
		return false
	}
	return true
}
