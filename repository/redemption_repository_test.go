package repository

import (
	"context"
	"errors"
	"testing"

	"ecopoints/repository/testutil"
	"ecopoints/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedemptionRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	rewardRepo := NewRewardRepository(testDB.DB)
	repo := NewRedemptionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accountRepo.Create(ctx, 100, 1)
	require.NoError(t, err)

	reward := testutil.CreateTestReward("Voucher", 100, 5)
	require.NoError(t, rewardRepo.Create(ctx, reward))

	t.Run("successful creation fills id and timestamp", func(t *testing.T) {
		redemption := testutil.CreateTestRedemption(100, reward.ID, 100)

		err := repo.Create(ctx, redemption)
		require.NoError(t, err)

		assert.NotZero(t, redemption.ID)
		assert.False(t, redemption.CreatedAt.IsZero())
		assert.Nil(t, redemption.LedgerEntryID)
	})

	t.Run("duplicate idempotency key conflicts", func(t *testing.T) {
		first := testutil.CreateTestRedemption(100, reward.ID, 100)
		require.NoError(t, repo.Create(ctx, first))

		dup := testutil.CreateTestRedemption(100, reward.ID, 100)
		dup.IdempotencyKey = first.IdempotencyKey
		err := repo.Create(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrConflict))
	})
}

func TestRedemptionRepository_GetByIdempotencyKey(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	rewardRepo := NewRewardRepository(testDB.DB)
	repo := NewRedemptionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accountRepo.Create(ctx, 100, 1)
	require.NoError(t, err)

	reward := testutil.CreateTestReward("Voucher", 100, 5)
	require.NoError(t, rewardRepo.Create(ctx, reward))

	t.Run("key not found", func(t *testing.T) {
		redemption, err := repo.GetByIdempotencyKey(ctx, "nonexistent")
		require.NoError(t, err)
		assert.Nil(t, redemption)
	})

	t.Run("key found", func(t *testing.T) {
		created := testutil.CreateTestRedemption(100, reward.ID, 100)
		require.NoError(t, repo.Create(ctx, created))

		redemption, err := repo.GetByIdempotencyKey(ctx, created.IdempotencyKey)
		require.NoError(t, err)
		require.NotNil(t, redemption)

		assert.Equal(t, created.ID, redemption.ID)
		assert.Equal(t, int64(100), redemption.PointsSpent)
	})
}

func TestRedemptionRepository_SetLedgerEntry(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	rewardRepo := NewRewardRepository(testDB.DB)
	ledgerRepo := NewLedgerRepository(testDB.DB)
	repo := NewRedemptionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accountRepo.Create(ctx, 100, 1)
	require.NoError(t, err)

	reward := testutil.CreateTestReward("Voucher", 100, 5)
	require.NoError(t, rewardRepo.Create(ctx, reward))

	t.Run("links debit entry", func(t *testing.T) {
		redemption := testutil.CreateTestRedemption(100, reward.ID, 100)
		require.NoError(t, repo.Create(ctx, redemption))

		entry := testutil.CreateTestLedgerEntry(100, 1, -100)
		require.NoError(t, ledgerRepo.Insert(ctx, entry))

		err := repo.SetLedgerEntry(ctx, redemption.ID, entry.ID)
		require.NoError(t, err)

		stored, err := repo.GetByIdempotencyKey(ctx, redemption.IdempotencyKey)
		require.NoError(t, err)
		require.NotNil(t, stored.LedgerEntryID)
		assert.Equal(t, entry.ID, *stored.LedgerEntryID)
	})

	t.Run("unknown redemption", func(t *testing.T) {
		entry := testutil.CreateTestLedgerEntry(100, 1, -100)
		require.NoError(t, ledgerRepo.Insert(ctx, entry))

		err := repo.SetLedgerEntry(ctx, 999999, entry.ID)
		assert.Error(t, err)
	})
}

func TestRedemptionRepository_GetByUser(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	accountRepo := NewAccountRepository(testDB.DB)
	rewardRepo := NewRewardRepository(testDB.DB)
	repo := NewRedemptionRepository(testDB.DB)
	ctx := context.Background()

	_, err := accountRepo.Create(ctx, 100, 1)
	require.NoError(t, err)
	_, err = accountRepo.Create(ctx, 200, 1)
	require.NoError(t, err)

	reward := testutil.CreateTestReward("Voucher", 100, 10)
	require.NoError(t, rewardRepo.Create(ctx, reward))

	for _, spent := range []int64{100, 200, 300} {
		redemption := testutil.CreateTestRedemption(100, reward.ID, spent)
		require.NoError(t, repo.Create(ctx, redemption))
	}
	require.NoError(t, repo.Create(ctx, testutil.CreateTestRedemption(200, reward.ID, 999)))

	t.Run("newest first with limit", func(t *testing.T) {
		redemptions, err := repo.GetByUser(ctx, 100, 2)
		require.NoError(t, err)
		require.Len(t, redemptions, 2)

		assert.Equal(t, int64(300), redemptions[0].PointsSpent)
		assert.Equal(t, int64(200), redemptions[1].PointsSpent)
	})

	t.Run("other users excluded", func(t *testing.T) {
		redemptions, err := repo.GetByUser(ctx, 200, 10)
		require.NoError(t, err)
		require.Len(t, redemptions, 1)
		assert.Equal(t, int64(999), redemptions[0].PointsSpent)
	})
}
