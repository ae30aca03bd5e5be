package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"ecopoints/models"
	"ecopoints/repository/testutil"
	"ecopoints/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRewardRepository(testDB.DB)
	ctx := context.Background()

	t.Run("reward not found", func(t *testing.T) {
		reward, err := repo.GetByID(ctx, 999999)
		require.NoError(t, err)
		assert.Nil(t, reward)
	})

	t.Run("reward found", func(t *testing.T) {
		created := testutil.CreateTestReward("Coffee Voucher", 100, 5)
		err := repo.Create(ctx, created)
		require.NoError(t, err)
		require.NotZero(t, created.ID)

		reward, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, reward)

		assert.Equal(t, "Coffee Voucher", reward.Title)
		assert.Equal(t, int64(100), reward.PointsRequired)
		require.NotNil(t, reward.Stock)
		assert.Equal(t, int64(5), *reward.Stock)
	})
}

func TestRewardRepository_List(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRewardRepository(testDB.DB)
	ctx := context.Background()

	companyID := int64(1)
	otherCompanyID := int64(2)

	global := testutil.CreateTestUnlimitedReward("Tree Planting", 50)
	require.NoError(t, repo.Create(ctx, global))

	scoped := testutil.CreateTestReward("Cafeteria Lunch", 200, 10)
	scoped.CompanyID = &companyID
	scoped.Category = "food"
	require.NoError(t, repo.Create(ctx, scoped))

	foreign := testutil.CreateTestReward("Foreign Perk", 300, 10)
	foreign.CompanyID = &otherCompanyID
	require.NoError(t, repo.Create(ctx, foreign))

	inactive := testutil.CreateTestReward("Retired Mug", 10, 1)
	inactive.Active = false
	require.NoError(t, repo.Create(ctx, inactive))

	t.Run("global and company-scoped rewards visible", func(t *testing.T) {
		rewards, err := repo.List(ctx, companyID, models.RewardFilter{})
		require.NoError(t, err)
		require.Len(t, rewards, 2)
	})

	t.Run("category filter", func(t *testing.T) {
		rewards, err := repo.List(ctx, companyID, models.RewardFilter{Category: "food"})
		require.NoError(t, err)
		require.Len(t, rewards, 1)
		assert.Equal(t, "Cafeteria Lunch", rewards[0].Title)
	})

	t.Run("search matches title case-insensitively", func(t *testing.T) {
		rewards, err := repo.List(ctx, companyID, models.RewardFilter{Search: "tree"})
		require.NoError(t, err)
		require.Len(t, rewards, 1)
		assert.Equal(t, "Tree Planting", rewards[0].Title)
	})

	t.Run("no match", func(t *testing.T) {
		rewards, err := repo.List(ctx, companyID, models.RewardFilter{Search: "yacht"})
		require.NoError(t, err)
		assert.Empty(t, rewards)
	})
}

func TestRewardRepository_Categories(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRewardRepository(testDB.DB)
	ctx := context.Background()

	first := testutil.CreateTestReward("Voucher A", 100, 5)
	require.NoError(t, repo.Create(ctx, first))

	second := testutil.CreateTestReward("Lunch B", 100, 5)
	second.Category = "food"
	require.NoError(t, repo.Create(ctx, second))

	third := testutil.CreateTestReward("Voucher C", 100, 5)
	require.NoError(t, repo.Create(ctx, third))

	categories, err := repo.Categories(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"food", "gift"}, categories)
}

func TestRewardRepository_DecrementStock(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewRewardRepository(testDB.DB)
	ctx := context.Background()

	t.Run("decrements limited stock", func(t *testing.T) {
		reward := testutil.CreateTestReward("Limited", 100, 3)
		require.NoError(t, repo.Create(ctx, reward))

		err := repo.DecrementStock(ctx, reward.ID, 1)
		require.NoError(t, err)

		updated, err := repo.GetByID(ctx, reward.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.Stock)
		assert.Equal(t, int64(2), *updated.Stock)
	})

	t.Run("unlimited stock always succeeds", func(t *testing.T) {
		reward := testutil.CreateTestUnlimitedReward("Unlimited", 100)
		require.NoError(t, repo.Create(ctx, reward))

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.DecrementStock(ctx, reward.ID, 1))
		}

		updated, err := repo.GetByID(ctx, reward.ID)
		require.NoError(t, err)
		assert.Nil(t, updated.Stock)
	})

	t.Run("out of stock", func(t *testing.T) {
		reward := testutil.CreateTestReward("Scarce", 100, 1)
		require.NoError(t, repo.Create(ctx, reward))

		require.NoError(t, repo.DecrementStock(ctx, reward.ID, 1))

		err := repo.DecrementStock(ctx, reward.ID, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrOutOfStock))
	})

	t.Run("reward not found", func(t *testing.T) {
		err := repo.DecrementStock(ctx, 999999, 1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrNotFound))
	})

	t.Run("stock never goes negative under concurrency", func(t *testing.T) {
		reward := testutil.CreateTestReward("Last Unit", 100, 1)
		require.NoError(t, repo.Create(ctx, reward))

		const attempts = 25
		var wg sync.WaitGroup
		results := make(chan error, attempts)

		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results <- repo.DecrementStock(ctx, reward.ID, 1)
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
		assert.Equal(t, attempts-1, outOfStock)

		updated, err := repo.GetByID(ctx, reward.ID)
		require.NoError(t, err)
		require.NotNil(t, updated.Stock)
		assert.Equal(t, int64(0), *updated.Stock)
	})
}
