package repository

import (
	"context"
	"fmt"

	"ecopoints/database"
	"ecopoints/models"
	"ecopoints/service"
	"github.com/jackc/pgx/v5"
)

// RedemptionRepository implements the RedemptionRepository interface
type RedemptionRepository struct {
	q queryable
}

// NewRedemptionRepository creates a new redemption repository
func NewRedemptionRepository(db *database.DB) *RedemptionRepository {
	return &RedemptionRepository{q: db.Pool}
}

// newRedemptionRepositoryWithTx creates a new redemption repository with a transaction
func newRedemptionRepositoryWithTx(tx queryable) *RedemptionRepository {
	return &RedemptionRepository{q: tx}
}

// Create inserts a redemption
func (r *RedemptionRepository) Create(ctx context.Context, redemption *models.Redemption) error {
	query := `
		INSERT INTO redemptions (user_id, reward_id, points_spent, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		redemption.UserID,
		redemption.RewardID,
		redemption.PointsSpent,
		redemption.Status,
		redemption.IdempotencyKey,
	).Scan(&redemption.ID, &redemption.CreatedAt)

	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: idempotency key %q raced a concurrent insert", service.ErrConflict, redemption.IdempotencyKey)
		}
		return fmt.Errorf("failed to create redemption for user %d: %w", redemption.UserID, err)
	}

	return nil
}

// GetByIdempotencyKey retrieves a redemption by key
func (r *RedemptionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.Redemption, error) {
	query := `
		SELECT id, user_id, reward_id, points_spent, status, idempotency_key, ledger_entry_id, created_at
		FROM redemptions
		WHERE idempotency_key = $1
	`

	var redemption models.Redemption
	err := r.q.QueryRow(ctx, query, key).Scan(
		&redemption.ID,
		&redemption.UserID,
		&redemption.RewardID,
		&redemption.PointsSpent,
		&redemption.Status,
		&redemption.IdempotencyKey,
		&redemption.LedgerEntryID,
		&redemption.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redemption by idempotency key: %w", err)
	}

	return &redemption, nil
}

// SetLedgerEntry links the debit entry created in the same transaction
func (r *RedemptionRepository) SetLedgerEntry(ctx context.Context, redemptionID, ledgerEntryID int64) error {
	query := `
		UPDATE redemptions
		SET ledger_entry_id = $1
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, ledgerEntryID, redemptionID)
	if err != nil {
		return fmt.Errorf("failed to link ledger entry to redemption %d: %w", redemptionID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("redemption %d not found", redemptionID)
	}

	return nil
}

// GetByUser returns a user's redemptions, newest first
func (r *RedemptionRepository) GetByUser(ctx context.Context, userID int64, limit int) ([]*models.Redemption, error) {
	query := `
		SELECT id, user_id, reward_id, points_spent, status, idempotency_key, ledger_entry_id, created_at
		FROM redemptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemptions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var redemptions []*models.Redemption
	for rows.Next() {
		var redemption models.Redemption
		err := rows.Scan(
			&redemption.ID,
			&redemption.UserID,
			&redemption.RewardID,
			&redemption.PointsSpent,
			&redemption.Status,
			&redemption.IdempotencyKey,
			&redemption.LedgerEntryID,
			&redemption.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan redemption: %w", err)
		}
		redemptions = append(redemptions, &redemption)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate redemptions: %w", err)
	}

	return redemptions, nil
}
