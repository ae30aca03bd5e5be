package service

import (
	"context"
	"time"

	"ecopoints/events"
	"ecopoints/models"

	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) GetForUpdate(ctx context.Context, userID int64) (*models.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, userID, companyID int64) (*models.Account, error) {
	args := m.Called(ctx, userID, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, userID, delta int64) error {
	args := m.Called(ctx, userID, delta)
	return args.Error(0)
}

func (m *MockAccountRepository) SetBalance(ctx context.Context, userID, balance int64) error {
	args := m.Called(ctx, userID, balance)
	return args.Error(0)
}

// MockLedgerRepository is a mock implementation of LedgerRepository
type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockLedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) GetByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LedgerEntry), args.Error(1)
}

func (m *MockLedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) Summary(ctx context.Context, userID int64, monthStart time.Time) (*models.PointsSummary, error) {
	args := m.Called(ctx, userID, monthStart)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PointsSummary), args.Error(1)
}

func (m *MockLedgerRepository) TotalsByCompany(ctx context.Context, companyID int64, from, to *time.Time) ([]*models.UserTotal, error) {
	args := m.Called(ctx, companyID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserTotal), args.Error(1)
}

func (m *MockLedgerRepository) ActiveCompanies(ctx context.Context) ([]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockPointRuleRepository is a mock implementation of PointRuleRepository
type MockPointRuleRepository struct {
	mock.Mock
}

func (m *MockPointRuleRepository) Create(ctx context.Context, rule *models.PointRule) error {
	args := m.Called(ctx, rule)
	return args.Error(0)
}

func (m *MockPointRuleRepository) GetActiveByKind(ctx context.Context, companyID int64, kind models.RuleKind, asOf time.Time) ([]*models.PointRule, error) {
	args := m.Called(ctx, companyID, kind, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.PointRule), args.Error(1)
}

func (m *MockPointRuleRepository) Deactivate(ctx context.Context, ruleID int64) error {
	args := m.Called(ctx, ruleID)
	return args.Error(0)
}

// MockRewardRepository is a mock implementation of RewardRepository
type MockRewardRepository struct {
	mock.Mock
}

func (m *MockRewardRepository) GetByID(ctx context.Context, rewardID int64) (*models.Reward, error) {
	args := m.Called(ctx, rewardID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reward), args.Error(1)
}

func (m *MockRewardRepository) List(ctx context.Context, companyID int64, filter models.RewardFilter) ([]*models.Reward, error) {
	args := m.Called(ctx, companyID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Reward), args.Error(1)
}

func (m *MockRewardRepository) Categories(ctx context.Context, companyID int64) ([]string, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	args := m.Called(ctx, reward)
	return args.Error(0)
}

func (m *MockRewardRepository) DecrementStock(ctx context.Context, rewardID, qty int64) error {
	args := m.Called(ctx, rewardID, qty)
	return args.Error(0)
}

// MockRedemptionRepository is a mock implementation of RedemptionRepository
type MockRedemptionRepository struct {
	mock.Mock
}

func (m *MockRedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	args := m.Called(ctx, redemption)
	return args.Error(0)
}

func (m *MockRedemptionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Redemption, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Redemption), args.Error(1)
}

func (m *MockRedemptionRepository) SetLedgerEntry(ctx context.Context, redemptionID, ledgerEntryID int64) error {
	args := m.Called(ctx, redemptionID, ledgerEntryID)
	return args.Error(0)
}

func (m *MockRedemptionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Redemption, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Redemption), args.Error(1)
}

// MockRankingRepository is a mock implementation of RankingRepository
type MockRankingRepository struct {
	mock.Mock
}

func (m *MockRankingRepository) CreateSnapshot(ctx context.Context, snapshot *models.RankingSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockRankingRepository) GetLatest(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error) {
	args := m.Called(ctx, companyID, periodKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RankingSnapshot), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher that simply
// records published events.
type MockEventPublisher struct {
	Events []events.Event
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Events = append(m.Events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork
type MockUnitOfWork struct {
	mock.Mock

	accountRepo    AccountRepository
	ledgerRepo     LedgerRepository
	ruleRepo       PointRuleRepository
	rewardRepo     RewardRepository
	redemptionRepo RedemptionRepository
	rankingRepo    RankingRepository
	eventBus       EventPublisher
}

// SetRepositories wires the repositories returned by the getters
func (m *MockUnitOfWork) SetRepositories(
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	ruleRepo PointRuleRepository,
	rewardRepo RewardRepository,
	redemptionRepo RedemptionRepository,
	rankingRepo RankingRepository,
) {
	m.accountRepo = accountRepo
	m.ledgerRepo = ledgerRepo
	m.ruleRepo = ruleRepo
	m.rewardRepo = rewardRepo
	m.redemptionRepo = redemptionRepo
	m.rankingRepo = rankingRepo
	m.eventBus = &MockEventPublisher{}
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) AccountRepository() AccountRepository {
	return m.accountRepo
}

func (m *MockUnitOfWork) LedgerRepository() LedgerRepository {
	return m.ledgerRepo
}

func (m *MockUnitOfWork) PointRuleRepository() PointRuleRepository {
	return m.ruleRepo
}

func (m *MockUnitOfWork) RewardRepository() RewardRepository {
	return m.rewardRepo
}

func (m *MockUnitOfWork) RedemptionRepository() RedemptionRepository {
	return m.redemptionRepo
}

func (m *MockUnitOfWork) RankingRepository() RankingRepository {
	return m.rankingRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
