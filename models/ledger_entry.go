package models

import (
	"time"
)

// EntryReason classifies why points moved.
type EntryReason string

const (
	EntryReasonReduction  EntryReason = "reduction_award"
	EntryReasonRankBonus  EntryReason = "rank_bonus"
	EntryReasonRedemption EntryReason = "redemption"
	EntryReasonAdjustment EntryReason = "adjustment"
)

// LedgerEntry is an immutable record of a single point movement.
// Entries are never updated or deleted; corrections are issued as new
// offsetting entries with reason EntryReasonAdjustment.
type LedgerEntry struct {
	ID             int64       `db:"id"`
	UserID         int64       `db:"user_id"`
	CompanyID      int64       `db:"company_id"`
	Amount         int64       `db:"amount"` // positive = award, negative = debit
	Reason         EntryReason `db:"reason"`
	ReferenceID    *int64      `db:"reference_id"` // rule id or redemption id, depending on reason
	IdempotencyKey string      `db:"idempotency_key"`
	CreatedAt      time.Time   `db:"created_at"`
}

// SamePayload reports whether another entry carries the same business payload.
// Used to distinguish an idempotent replay from a key reuse with a different
// request body.
func (e *LedgerEntry) SamePayload(other *LedgerEntry) bool {
	if e.UserID != other.UserID || e.CompanyID != other.CompanyID {
		return false
	}
	if e.Amount != other.Amount || e.Reason != other.Reason {
		return false
	}
	if (e.ReferenceID == nil) != (other.ReferenceID == nil) {
		return false
	}
	if e.ReferenceID != nil && *e.ReferenceID != *other.ReferenceID {
		return false
	}
	return true
}
