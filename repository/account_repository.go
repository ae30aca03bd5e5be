package repository

import (
	"context"
	"fmt"

	"ecopoints/database"
	"ecopoints/models"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepositoryWithTx creates a new account repository with a transaction
func newAccountRepositoryWithTx(tx queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

// GetByUserID retrieves an account by user id
func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.Account, error) {
	query := `
		SELECT user_id, company_id, balance, created_at
		FROM accounts
		WHERE user_id = $1
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.CompanyID,
		&account.Balance,
		&account.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", userID, err)
	}

	return &account, nil
}

// GetForUpdate retrieves an account and locks its row for the duration of
// the surrounding transaction
func (r *AccountRepository) GetForUpdate(ctx context.Context, userID int64) (*models.Account, error) {
	query := `
		SELECT user_id, company_id, balance, created_at
		FROM accounts
		WHERE user_id = $1
		FOR UPDATE
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&account.UserID,
		&account.CompanyID,
		&account.Balance,
		&account.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}

	return &account, nil
}

// Create registers a new account with a zero balance
func (r *AccountRepository) Create(ctx context.Context, userID, companyID int64) (*models.Account, error) {
	query := `
		INSERT INTO accounts (user_id, company_id, balance)
		VALUES ($1, $2, 0)
		RETURNING user_id, company_id, balance, created_at
	`

	var account models.Account
	err := r.q.QueryRow(ctx, query, userID, companyID).Scan(
		&account.UserID,
		&account.CompanyID,
		&account.Balance,
		&account.CreatedAt,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to create account %d: %w", userID, err)
	}

	return &account, nil
}

// ApplyDelta adjusts the balance counter. The check constraint on the column
// backstops the caller's balance guard.
func (r *AccountRepository) ApplyDelta(ctx context.Context, userID, delta int64) error {
	query := `
		UPDATE accounts
		SET balance = balance + $1
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, delta, userID)
	if err != nil {
		if database.IsCheckViolation(err) {
			return fmt.Errorf("balance for account %d would go negative: %w", userID, err)
		}
		return fmt.Errorf("failed to apply balance delta for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}

// SetBalance overwrites the counter; used only by reconciliation
func (r *AccountRepository) SetBalance(ctx context.Context, userID, balance int64) error {
	query := `
		UPDATE accounts
		SET balance = $1
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, balance, userID)
	if err != nil {
		return fmt.Errorf("failed to set balance for account %d: %w", userID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("account %d not found", userID)
	}

	return nil
}
