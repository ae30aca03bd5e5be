package testutil

import (
	"fmt"
	"time"

	"ecopoints/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NewIdempotencyKey returns a fresh client-style idempotency key.
func NewIdempotencyKey() string {
	return uuid.NewString()
}

// CreateTestAccount creates a test account with a zero balance
func CreateTestAccount(userID, companyID int64) *models.Account {
	return &models.Account{
		UserID:    userID,
		CompanyID: companyID,
		Balance:   0,
		CreatedAt: time.Now(),
	}
}

// CreateTestLedgerEntry creates a credit ledger entry with default values
func CreateTestLedgerEntry(userID, companyID, amount int64) *models.LedgerEntry {
	return &models.LedgerEntry{
		UserID:         userID,
		CompanyID:      companyID,
		Amount:         amount,
		Reason:         models.EntryReasonReduction,
		IdempotencyKey: NewIdempotencyKey(),
	}
}

// CreateTestLedgerEntryWithReason creates a ledger entry with a specific reason
func CreateTestLedgerEntryWithReason(userID, companyID, amount int64, reason models.EntryReason) *models.LedgerEntry {
	entry := CreateTestLedgerEntry(userID, companyID, amount)
	entry.Reason = reason
	return entry
}

// CreateTestPointRule creates an active global per-kg rule
func CreateTestPointRule(name string, coefficient string) *models.PointRule {
	return &models.PointRule{
		Name:          name,
		Kind:          models.RuleKindPerKg,
		Coefficient:   decimal.RequireFromString(coefficient),
		Active:        true,
		EffectiveFrom: time.Now().Add(-24 * time.Hour),
	}
}

// CreateTestPointRuleForCompany creates an active company-scoped rule
func CreateTestPointRuleForCompany(name string, coefficient string, companyID int64) *models.PointRule {
	rule := CreateTestPointRule(name, coefficient)
	rule.CompanyID = &companyID
	return rule
}

// CreateTestReward creates an active reward with limited stock
func CreateTestReward(title string, pointsRequired, stock int64) *models.Reward {
	return &models.Reward{
		Title:          title,
		Description:    fmt.Sprintf("%s description", title),
		Category:       "gift",
		PointsRequired: pointsRequired,
		Stock:          &stock,
		Active:         true,
	}
}

// CreateTestUnlimitedReward creates an active reward with no stock limit
func CreateTestUnlimitedReward(title string, pointsRequired int64) *models.Reward {
	reward := CreateTestReward(title, pointsRequired, 0)
	reward.Stock = nil
	return reward
}

// CreateTestRedemption creates a confirmed redemption
func CreateTestRedemption(userID, rewardID, pointsSpent int64) *models.Redemption {
	return &models.Redemption{
		UserID:         userID,
		RewardID:       rewardID,
		PointsSpent:    pointsSpent,
		Status:         models.RedemptionStatusConfirmed,
		IdempotencyKey: NewIdempotencyKey(),
	}
}
