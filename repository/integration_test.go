package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ecopoints/events"
	"ecopoints/models"
	"ecopoints/repository/testutil"
	"ecopoints/rules"
	"ecopoints/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// integrationFixture wires real repositories and services against a test
// database, the way cmd.Run does in production.
type integrationFixture struct {
	db             *testutil.TestDatabase
	uowFactory     service.UnitOfWorkFactory
	ledgerService  service.LedgerService
	redemption     service.RedemptionService
	rankingService service.RankingService
}

func setupIntegration(t *testing.T, policy models.RankingPolicy, rankBonusDepth int) *integrationFixture {
	testDB := testutil.SetupTestDatabase(t)
	uowFactory := NewUnitOfWorkFactory(testDB.DB, events.NewBus())
	ledgerService := service.NewLedgerService(uowFactory)
	return &integrationFixture{
		db:             testDB,
		uowFactory:     uowFactory,
		ledgerService:  ledgerService,
		redemption:     service.NewRedemptionService(uowFactory, 3),
		rankingService: service.NewRankingService(uowFactory, ledgerService, models.RankingModePeriod, policy, rankBonusDepth),
	}
}

func TestAwardAndRedeemFlow(t *testing.T) {
	t.Parallel()
	f := setupIntegration(t, models.RankingPolicyStrict, 0)
	ctx := context.Background()

	_, err := f.ledgerService.RegisterAccount(ctx, 100, 1)
	require.NoError(t, err)

	// Registering again is a no-op.
	account, err := f.ledgerService.RegisterAccount(ctx, 100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), account.Balance)

	rule := testutil.CreateTestPointRule("standard per-kg", "2.5")
	require.NoError(t, NewPointRuleRepository(f.db.DB).Create(ctx, rule))

	event := rules.ReductionEvent{
		UserID:     100,
		CompanyID:  1,
		Category:   models.RuleKindPerKg,
		Quantity:   decimal.NewFromInt(200),
		OccurredAt: time.Now().UTC(),
	}
	entry, err := f.ledgerService.AwardForReduction(ctx, event, "evt-1")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, int64(500), entry.Amount)

	// Replaying the same source event never double-awards.
	replayed, err := f.ledgerService.AwardForReduction(ctx, event, "evt-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, replayed.ID)

	balance, err := f.ledgerService.Balance(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(500), balance)

	reward := testutil.CreateTestReward("Coffee Voucher", 400, 3)
	require.NoError(t, NewRewardRepository(f.db.DB).Create(ctx, reward))

	redemption, err := f.redemption.Redeem(ctx, 100, reward.ID, "req-1")
	require.NoError(t, err)
	assert.Equal(t, models.RedemptionStatusConfirmed, redemption.Status)
	assert.Equal(t, int64(400), redemption.PointsSpent)
	require.NotNil(t, redemption.LedgerEntryID)

	balance, err = f.ledgerService.Balance(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	stocked, err := NewRewardRepository(f.db.DB).GetByID(ctx, reward.ID)
	require.NoError(t, err)
	require.NotNil(t, stocked.Stock)
	assert.Equal(t, int64(2), *stocked.Stock)

	// Replaying the redemption returns the original row untouched.
	again, err := f.redemption.Redeem(ctx, 100, reward.ID, "req-1")
	require.NoError(t, err)
	assert.Equal(t, redemption.ID, again.ID)
	balance, err = f.ledgerService.Balance(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	// A second redemption the balance cannot cover fails cleanly.
	_, err = f.redemption.Redeem(ctx, 100, reward.ID, "req-2")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInsufficientBalance))

	summary, err := f.ledgerService.Summary(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), summary.CurrentBalance)
	assert.Equal(t, int64(500), summary.TotalEarned)
	assert.Equal(t, int64(400), summary.TotalSpent)

	history, err := f.ledgerService.History(ctx, 100, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.EntryReasonRedemption, history[0].Reason)
	assert.Equal(t, models.EntryReasonReduction, history[1].Reason)

	report, err := f.ledgerService.Reconcile(ctx, 100)
	require.NoError(t, err)
	assert.False(t, report.Repaired)
	assert.Equal(t, int64(100), report.LedgerBalance)
}

func TestRedeemConcurrentLastUnit(t *testing.T) {
	t.Parallel()
	f := setupIntegration(t, models.RankingPolicyStrict, 0)
	ctx := context.Background()

	const contenders = 8

	reward := testutil.CreateTestReward("Last Unit", 100, 1)
	require.NoError(t, NewRewardRepository(f.db.DB).Create(ctx, reward))

	for i := int64(0); i < contenders; i++ {
		userID := 100 + i
		_, err := f.ledgerService.RegisterAccount(ctx, userID, 1)
		require.NoError(t, err)
		_, err = f.ledgerService.Append(ctx, testutil.CreateTestLedgerEntry(userID, 1, 500))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := int64(0); i < contenders; i++ {
		userID := 100 + i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.redemption.Redeem(ctx, userID, reward.ID, fmt.Sprintf("req-%d", userID))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, outOfStock int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrOutOfStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, contenders-1, outOfStock)

	// Exactly one account paid.
	debited := int64(0)
	for i := int64(0); i < contenders; i++ {
		balance, err := f.ledgerService.Balance(ctx, 100+i)
		require.NoError(t, err)
		if balance != 500 {
			assert.Equal(t, int64(400), balance)
			debited++
		}
	}
	assert.Equal(t, int64(1), debited)
}

func TestAppendConcurrentDebitsGuardBalance(t *testing.T) {
	t.Parallel()
	f := setupIntegration(t, models.RankingPolicyStrict, 0)
	ctx := context.Background()

	_, err := f.ledgerService.RegisterAccount(ctx, 100, 1)
	require.NoError(t, err)
	_, err = f.ledgerService.Append(ctx, testutil.CreateTestLedgerEntry(100, 1, 500))
	require.NoError(t, err)

	// Two debits whose sum exceeds the balance race for the account row.
	// The row lock serializes them, so one must lose the balance check.
	const debits = 2
	var wg sync.WaitGroup
	results := make(chan error, debits)
	for i := 0; i < debits; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			entry := testutil.CreateTestLedgerEntryWithReason(100, 1, -300, models.EntryReasonAdjustment)
			_, err := f.ledgerService.Append(ctx, entry)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, service.ErrInsufficientBalance):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, debits-1, insufficient)

	balance, err := f.ledgerService.Balance(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	// The losing debit left no entry behind.
	sum, err := NewLedgerRepository(f.db.DB).SumByUser(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(200), sum)
}

func TestRankingSnapshotDeterminismAndBonuses(t *testing.T) {
	t.Parallel()
	f := setupIntegration(t, models.RankingPolicyStrict, 2)
	ctx := context.Background()

	periodKey := models.MonthlyPeriod(time.Now().UTC()).Key

	for userID, points := range map[int64]int64{100: 80, 200: 120, 300: 50} {
		_, err := f.ledgerService.RegisterAccount(ctx, userID, 1)
		require.NoError(t, err)
		_, err = f.ledgerService.Append(ctx, testutil.CreateTestLedgerEntry(userID, 1, points))
		require.NoError(t, err)
	}

	first, err := f.rankingService.ComputeSnapshot(ctx, 1, periodKey)
	require.NoError(t, err)
	require.Len(t, first.Entries, 3)
	assert.Equal(t, int64(200), first.Entries[0].UserID)
	assert.Equal(t, int64(100), first.Entries[1].UserID)
	assert.Equal(t, int64(300), first.Entries[2].UserID)

	// Recomputing an unchanged ledger reproduces the ordering.
	second, err := f.rankingService.ComputeSnapshot(ctx, 1, periodKey)
	require.NoError(t, err)
	require.Len(t, second.Entries, 3)
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].UserID, second.Entries[i].UserID)
		assert.Equal(t, first.Entries[i].Rank, second.Entries[i].Rank)
	}

	latest, err := f.rankingService.LatestSnapshot(ctx, 1, periodKey)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	// Rank bonuses need an active rank_bonus rule.
	bonusRule := testutil.CreateTestPointRule("monthly podium", "10")
	bonusRule.Kind = models.RuleKindRankBonus
	require.NoError(t, NewPointRuleRepository(f.db.DB).Create(ctx, bonusRule))

	awarded, err := f.rankingService.AwardRankBonuses(ctx, latest)
	require.NoError(t, err)
	assert.Equal(t, 2, awarded)

	// Rank 1 gets coefficient x 2, rank 2 gets coefficient x 1; rank 3 is
	// below the configured depth.
	balance, err := f.ledgerService.Balance(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(140), balance)
	balance, err = f.ledgerService.Balance(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(90), balance)
	balance, err = f.ledgerService.Balance(ctx, 300)
	require.NoError(t, err)
	assert.Equal(t, int64(50), balance)

	// Re-running the bonus pass replays the stored awards; balances hold.
	_, err = f.rankingService.AwardRankBonuses(ctx, latest)
	require.NoError(t, err)
	balance, err = f.ledgerService.Balance(ctx, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(140), balance)

	companies, err := f.rankingService.ActiveCompanies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, companies)
}
