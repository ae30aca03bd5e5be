package service

import (
	"context"
	"time"

	"ecopoints/events"
	"ecopoints/models"
	"ecopoints/rules"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByUserID retrieves an account, or nil if none exists
	GetByUserID(ctx context.Context, userID int64) (*models.Account, error)

	// GetForUpdate retrieves an account and row-locks it for the duration
	// of the surrounding transaction, or returns nil if none exists
	GetForUpdate(ctx context.Context, userID int64) (*models.Account, error)

	// Create registers a new account with a zero balance
	Create(ctx context.Context, userID, companyID int64) (*models.Account, error)

	// ApplyDelta adjusts the maintained balance counter. The caller must
	// hold the row lock and have verified the resulting balance is >= 0.
	ApplyDelta(ctx context.Context, userID, delta int64) error

	// SetBalance overwrites the counter; used only by reconciliation
	SetBalance(ctx context.Context, userID, balance int64) error
}

// LedgerRepository defines the interface for ledger entry data access.
// Entries are append-only; there are no update or delete operations.
type LedgerRepository interface {
	// Insert appends a new entry, filling in its id and created timestamp
	Insert(ctx context.Context, entry *models.LedgerEntry) error

	// GetByIdempotencyKey retrieves an entry by key, or nil if none exists
	GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error)

	// GetByUser returns a user's entries, newest first
	GetByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error)

	// SumByUser recomputes a user's balance from entries
	SumByUser(ctx context.Context, userID int64) (int64, error)

	// Summary aggregates earned, spent and current-month totals
	Summary(ctx context.Context, userID int64, monthStart time.Time) (*models.PointsSummary, error)

	// TotalsByCompany sums entry amounts per user for ranking. A nil bound
	// leaves that side of the range open.
	TotalsByCompany(ctx context.Context, companyID int64, from, to *time.Time) ([]*models.UserTotal, error)

	// ActiveCompanies lists companies with at least one ledger entry
	ActiveCompanies(ctx context.Context) ([]int64, error)
}

// PointRuleRepository defines the interface for point rule data access
type PointRuleRepository interface {
	// Create inserts a new rule version
	Create(ctx context.Context, rule *models.PointRule) error

	// GetActiveByKind returns active rules of a kind visible to a company
	// (company-scoped plus global) that are in force at the given time
	GetActiveByKind(ctx context.Context, companyID int64, kind models.RuleKind, asOf time.Time) ([]*models.PointRule, error)

	// Deactivate retires a rule. Historical entries keep referencing it.
	Deactivate(ctx context.Context, ruleID int64) error
}

// RewardRepository defines the interface for reward catalog data access
type RewardRepository interface {
	// GetByID retrieves a reward, or nil if none exists
	GetByID(ctx context.Context, rewardID int64) (*models.Reward, error)

	// List returns active rewards visible to a company, filtered
	List(ctx context.Context, companyID int64, filter models.RewardFilter) ([]*models.Reward, error)

	// Categories returns the distinct categories of active rewards
	Categories(ctx context.Context, companyID int64) ([]string, error)

	// Create inserts a new reward
	Create(ctx context.Context, reward *models.Reward) error

	// DecrementStock atomically checks and decrements stock. Unlimited
	// (NULL) stock always succeeds. Fails with ErrOutOfStock when fewer
	// than qty units remain, ErrNotFound when the reward does not exist.
	DecrementStock(ctx context.Context, rewardID, qty int64) error
}

// RedemptionRepository defines the interface for redemption data access
type RedemptionRepository interface {
	// Create inserts a redemption, filling in its id and created timestamp
	Create(ctx context.Context, redemption *models.Redemption) error

	// GetByIdempotencyKey retrieves a redemption by key, or nil if none exists
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Redemption, error)

	// SetLedgerEntry links the debit entry created in the same transaction
	SetLedgerEntry(ctx context.Context, redemptionID, ledgerEntryID int64) error

	// GetByUser returns a user's redemptions, newest first
	GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Redemption, error)
}

// RankingRepository defines the interface for ranking snapshot data access
type RankingRepository interface {
	// CreateSnapshot persists a snapshot with its entries
	CreateSnapshot(ctx context.Context, snapshot *models.RankingSnapshot) error

	// GetLatest returns the most recently computed snapshot for a company
	// and period, or nil if none exists
	GetLatest(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error)
}

// LedgerService defines the interface for point award and balance operations
type LedgerService interface {
	// RegisterAccount creates the account if missing and returns it
	RegisterAccount(ctx context.Context, userID, companyID int64) (*models.Account, error)

	// AwardForReduction evaluates the active rules against a reduction
	// event and appends the resulting award. Returns (nil, nil) when no
	// rule applies. The idempotency key must be stable per source event so
	// retried ingestion runs never double-award.
	AwardForReduction(ctx context.Context, event rules.ReductionEvent, idempotencyKey string) (*models.LedgerEntry, error)

	// Append is the single write path for all point movement. Replaying an
	// idempotency key with the same payload returns the stored entry;
	// debits that would drive the balance negative fail with
	// ErrInsufficientBalance.
	Append(ctx context.Context, entry *models.LedgerEntry) (*models.LedgerEntry, error)

	// Balance returns the user's current balance
	Balance(ctx context.Context, userID int64) (int64, error)

	// Summary aggregates the user's ledger for dashboard reads
	Summary(ctx context.Context, userID int64) (*models.PointsSummary, error)

	// History returns the user's entries, newest first
	History(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error)

	// Reconcile recomputes the balance counter from entries and repairs it
	// if it drifted. The recovery procedure after suspected corruption.
	Reconcile(ctx context.Context, userID int64) (*ReconcileReport, error)
}

// ReconcileReport describes the outcome of a balance reconciliation pass.
type ReconcileReport struct {
	UserID         int64
	CounterBalance int64
	LedgerBalance  int64
	Repaired       bool
}

// RedemptionService defines the interface for reward redemption operations
type RedemptionService interface {
	// Redeem exchanges points for one unit of a reward. Balance check,
	// stock decrement, debit entry and redemption row commit atomically.
	// Replaying an idempotency key returns the original redemption.
	Redeem(ctx context.Context, userID, rewardID int64, idempotencyKey string) (*models.Redemption, error)

	// History returns a user's redemptions, newest first
	History(ctx context.Context, userID int64, limit int) ([]*models.Redemption, error)
}

// RewardCatalogService defines the interface for catalog reads
type RewardCatalogService interface {
	// List returns active rewards visible to a company
	List(ctx context.Context, companyID int64, filter models.RewardFilter) ([]*models.Reward, error)

	// Get retrieves a single reward
	Get(ctx context.Context, rewardID int64) (*models.Reward, error)

	// Categories returns the distinct active categories
	Categories(ctx context.Context, companyID int64) ([]string, error)
}

// RankingService defines the interface for leaderboard operations
type RankingService interface {
	// ComputeSnapshot aggregates the ledger into an ordered, tie-broken
	// leaderboard and persists it. Deterministic for unchanged ledger data.
	ComputeSnapshot(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error)

	// LatestSnapshot returns the snapshot that currently supersedes all
	// others for the company and period, or nil if none exists
	LatestSnapshot(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error)

	// AwardRankBonuses grants rank_bonus rule awards to the top ranks of a
	// snapshot. Idempotent per company, period and user; returns the number
	// of awards appended.
	AwardRankBonuses(ctx context.Context, snapshot *models.RankingSnapshot) (int, error)

	// ActiveCompanies lists companies with ledger activity
	ActiveCompanies(ctx context.Context) ([]int64, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() AccountRepository
	LedgerRepository() LedgerRepository
	PointRuleRepository() PointRuleRepository
	RewardRepository() RewardRepository
	RedemptionRepository() RedemptionRepository
	RankingRepository() RankingRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}
