package models

import (
	"time"
)

// RedemptionStatus is the lifecycle state of a redemption.
type RedemptionStatus string

const (
	RedemptionStatusPending   RedemptionStatus = "pending"
	RedemptionStatusConfirmed RedemptionStatus = "confirmed"
	RedemptionStatusFailed    RedemptionStatus = "failed"
)

// Redemption records one exchange of points for a reward. A redemption and
// its debit ledger entry are created in the same transaction or not at all.
type Redemption struct {
	ID             int64            `db:"id"`
	UserID         int64            `db:"user_id"`
	RewardID       int64            `db:"reward_id"`
	PointsSpent    int64            `db:"points_spent"`
	Status         RedemptionStatus `db:"status"`
	IdempotencyKey string           `db:"idempotency_key"`
	LedgerEntryID  *int64           `db:"ledger_entry_id"`
	CreatedAt      time.Time        `db:"created_at"`
}
