package service

import (
	"context"
	"fmt"

	"ecopoints/models"
)

// rewardCatalogService implements the RewardCatalogService interface
type rewardCatalogService struct {
	uowFactory UnitOfWorkFactory
}

// NewRewardCatalogService creates a new reward catalog service
func NewRewardCatalogService(uowFactory UnitOfWorkFactory) RewardCatalogService {
	return &rewardCatalogService{
		uowFactory: uowFactory,
	}
}

// List returns active rewards visible to a company
func (s *rewardCatalogService) List(ctx context.Context, companyID int64, filter models.RewardFilter) ([]*models.Reward, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	rewards, err := uow.RewardRepository().List(ctx, companyID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}
	return rewards, nil
}

// Get retrieves a single reward
func (s *rewardCatalogService) Get(ctx context.Context, rewardID int64) (*models.Reward, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", rewardID, err)
	}
	if reward == nil {
		return nil, fmt.Errorf("%w: reward %d", ErrNotFound, rewardID)
	}
	return reward, nil
}

// Categories returns the distinct active categories
func (s *rewardCatalogService) Categories(ctx context.Context, companyID int64) ([]string, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	categories, err := uow.RewardRepository().Categories(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward categories: %w", err)
	}
	return categories, nil
}
