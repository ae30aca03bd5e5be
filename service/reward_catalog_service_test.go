package service

import (
	"context"
	"errors"
	"testing"

	"ecopoints/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardCatalogService(t *testing.T) {
	ctx := context.Background()

	t.Run("list forwards filter", func(t *testing.T) {
		f := newMockUowFixture()
		svc := NewRewardCatalogService(f.factory)

		filter := models.RewardFilter{Category: "food", Limit: 5}
		stored := []*models.Reward{{ID: 1, Title: "Lunch", Category: "food"}}
		f.rewardRepo.On("List", ctx, int64(1), filter).Return(stored, nil)

		rewards, err := svc.List(ctx, 1, filter)
		require.NoError(t, err)
		assert.Equal(t, stored, rewards)
	})

	t.Run("get unknown reward", func(t *testing.T) {
		f := newMockUowFixture()
		svc := NewRewardCatalogService(f.factory)

		f.rewardRepo.On("GetByID", ctx, int64(9)).Return(nil, nil)

		_, err := svc.Get(ctx, 9)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("categories", func(t *testing.T) {
		f := newMockUowFixture()
		svc := NewRewardCatalogService(f.factory)

		f.rewardRepo.On("Categories", ctx, int64(1)).Return([]string{"food", "gift"}, nil)

		categories, err := svc.Categories(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"food", "gift"}, categories)
	})
}
