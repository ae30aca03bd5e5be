package repository

import (
	"context"
	"fmt"

	"ecopoints/database"
	"ecopoints/models"
	"ecopoints/service"
	"github.com/jackc/pgx/v5"
)

// RewardRepository implements the RewardRepository interface
type RewardRepository struct {
	q queryable
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{q: db.Pool}
}

// newRewardRepositoryWithTx creates a new reward repository with a transaction
func newRewardRepositoryWithTx(tx queryable) *RewardRepository {
	return &RewardRepository{q: tx}
}

// GetByID retrieves a reward by id
func (r *RewardRepository) GetByID(ctx context.Context, rewardID int64) (*models.Reward, error) {
	query := `
		SELECT id, company_id, title, description, category, points_required, stock, active, created_at, updated_at
		FROM rewards
		WHERE id = $1
	`

	var reward models.Reward
	err := r.q.QueryRow(ctx, query, rewardID).Scan(
		&reward.ID,
		&reward.CompanyID,
		&reward.Title,
		&reward.Description,
		&reward.Category,
		&reward.PointsRequired,
		&reward.Stock,
		&reward.Active,
		&reward.CreatedAt,
		&reward.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", rewardID, err)
	}

	return &reward, nil
}

// List returns active rewards visible to a company, filtered by category
// and search text, newest first
func (r *RewardRepository) List(ctx context.Context, companyID int64, filter models.RewardFilter) ([]*models.Reward, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, company_id, title, description, category, points_required, stock, active, created_at, updated_at
		FROM rewards
		WHERE active
		  AND (company_id IS NULL OR company_id = $1)
		  AND ($2 = '' OR category = $2)
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%' OR description ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC, id DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.q.Query(ctx, query, companyID, filter.Category, filter.Search, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards for company %d: %w", companyID, err)
	}
	defer rows.Close()

	var rewards []*models.Reward
	for rows.Next() {
		var reward models.Reward
		err := rows.Scan(
			&reward.ID,
			&reward.CompanyID,
			&reward.Title,
			&reward.Description,
			&reward.Category,
			&reward.PointsRequired,
			&reward.Stock,
			&reward.Active,
			&reward.CreatedAt,
			&reward.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, &reward)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rewards: %w", err)
	}

	return rewards, nil
}

// Categories returns the distinct categories of active rewards
func (r *RewardRepository) Categories(ctx context.Context, companyID int64) ([]string, error) {
	query := `
		SELECT DISTINCT category
		FROM rewards
		WHERE active AND (company_id IS NULL OR company_id = $1)
		ORDER BY category
	`

	rows, err := r.q.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reward categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var category string
		if err := rows.Scan(&category); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	return categories, nil
}

// Create inserts a new reward
func (r *RewardRepository) Create(ctx context.Context, reward *models.Reward) error {
	query := `
		INSERT INTO rewards (company_id, title, description, category, points_required, stock, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		reward.CompanyID,
		reward.Title,
		reward.Description,
		reward.Category,
		reward.PointsRequired,
		reward.Stock,
		reward.Active,
	).Scan(&reward.ID, &reward.CreatedAt, &reward.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create reward %q: %w", reward.Title, err)
	}

	return nil
}

// DecrementStock atomically checks and decrements stock in one statement.
// NULL stock means unlimited and always succeeds; otherwise the decrement
// applies only while at least qty units remain.
func (r *RewardRepository) DecrementStock(ctx context.Context, rewardID, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	query := `
		UPDATE rewards
		SET stock = CASE WHEN stock IS NULL THEN NULL ELSE stock - $1 END,
		    updated_at = NOW()
		WHERE id = $2
		  AND (stock IS NULL OR stock >= $1)
	`

	result, err := r.q.Exec(ctx, query, qty, rewardID)
	if err != nil {
		return fmt.Errorf("failed to decrement stock for reward %d: %w", rewardID, err)
	}

	if result.RowsAffected() == 0 {
		reward, err := r.GetByID(ctx, rewardID)
		if err != nil {
			return fmt.Errorf("failed to check reward %d: %w", rewardID, err)
		}
		if reward == nil {
			return fmt.Errorf("%w: reward %d", service.ErrNotFound, rewardID)
		}
		return fmt.Errorf("%w: reward %d", service.ErrOutOfStock, rewardID)
	}

	return nil
}
