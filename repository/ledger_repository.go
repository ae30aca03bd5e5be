package repository

import (
	"context"
	"fmt"
	"time"

	"ecopoints/database"
	"ecopoints/models"
	"ecopoints/service"
	"github.com/jackc/pgx/v5"
)

// LedgerRepository implements the LedgerRepository interface. The table is
// append-only; there are no UPDATE or DELETE statements here.
type LedgerRepository struct {
	q queryable
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *database.DB) *LedgerRepository {
	return &LedgerRepository{q: db.Pool}
}

// newLedgerRepositoryWithTx creates a new ledger repository with a transaction
func newLedgerRepositoryWithTx(tx queryable) *LedgerRepository {
	return &LedgerRepository{q: tx}
}

// Insert appends a new entry
func (r *LedgerRepository) Insert(ctx context.Context, entry *models.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (user_id, company_id, amount, reason, reference_id, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.UserID,
		entry.CompanyID,
		entry.Amount,
		entry.Reason,
		entry.ReferenceID,
		entry.IdempotencyKey,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		// A concurrent writer with the same key committed first; the retry
		// path resolves through the replay check.
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%w: idempotency key %q raced a concurrent insert", service.ErrConflict, entry.IdempotencyKey)
		}
		return fmt.Errorf("failed to insert ledger entry for user %d: %w", entry.UserID, err)
	}

	return nil
}

// GetByIdempotencyKey retrieves an entry by key
func (r *LedgerRepository) GetByIdempotencyKey(ctx context.Context, key string) (*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, company_id, amount, reason, reference_id, idempotency_key, created_at
		FROM ledger_entries
		WHERE idempotency_key = $1
	`

	var entry models.LedgerEntry
	err := r.q.QueryRow(ctx, query, key).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.CompanyID,
		&entry.Amount,
		&entry.Reason,
		&entry.ReferenceID,
		&entry.IdempotencyKey,
		&entry.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry by idempotency key: %w", err)
	}

	return &entry, nil
}

// GetByUser returns a user's entries, newest first
func (r *LedgerRepository) GetByUser(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, company_id, amount, reason, reference_id, idempotency_key, created_at
		FROM ledger_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.q.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entries for user %d: %w", userID, err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.CompanyID,
			&entry.Amount,
			&entry.Reason,
			&entry.ReferenceID,
			&entry.IdempotencyKey,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger entries: %w", err)
	}

	return entries, nil
}

// SumByUser recomputes a user's balance from entries
func (r *LedgerRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries
		WHERE user_id = $1
	`

	var sum int64
	if err := r.q.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum ledger entries for user %d: %w", userID, err)
	}

	return sum, nil
}

// Summary aggregates earned, spent and current-month totals
func (r *LedgerRepository) Summary(ctx context.Context, userID int64, monthStart time.Time) (*models.PointsSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE amount > 0), 0) AS total_earned,
			COALESCE(-SUM(amount) FILTER (WHERE amount < 0), 0) AS total_spent,
			COALESCE(SUM(amount) FILTER (WHERE amount > 0 AND created_at >= $2), 0) AS this_month_earned
		FROM ledger_entries
		WHERE user_id = $1
	`

	var summary models.PointsSummary
	err := r.q.QueryRow(ctx, query, userID, monthStart).Scan(
		&summary.TotalEarned,
		&summary.TotalSpent,
		&summary.ThisMonthEarned,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger for user %d: %w", userID, err)
	}

	return &summary, nil
}

// TotalsByCompany sums entry amounts per user for ranking, joining the
// account creation time that breaks ties
func (r *LedgerRepository) TotalsByCompany(ctx context.Context, companyID int64, from, to *time.Time) ([]*models.UserTotal, error) {
	query := `
		SELECT le.user_id, SUM(le.amount) AS total_points, a.created_at
		FROM ledger_entries le
		JOIN accounts a ON a.user_id = le.user_id
		WHERE le.company_id = $1
		  AND ($2::timestamptz IS NULL OR le.created_at >= $2)
		  AND ($3::timestamptz IS NULL OR le.created_at < $3)
		GROUP BY le.user_id, a.created_at
	`

	rows, err := r.q.Query(ctx, query, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate totals for company %d: %w", companyID, err)
	}
	defer rows.Close()

	var totals []*models.UserTotal
	for rows.Next() {
		var total models.UserTotal
		if err := rows.Scan(&total.UserID, &total.TotalPoints, &total.AccountCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user total: %w", err)
		}
		totals = append(totals, &total)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user totals: %w", err)
	}

	return totals, nil
}

// ActiveCompanies lists companies with at least one ledger entry
func (r *LedgerRepository) ActiveCompanies(ctx context.Context) ([]int64, error) {
	query := `
		SELECT DISTINCT company_id
		FROM ledger_entries
		ORDER BY company_id
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}
	defer rows.Close()

	var companies []int64
	for rows.Next() {
		var companyID int64
		if err := rows.Scan(&companyID); err != nil {
			return nil, fmt.Errorf("failed to scan company id: %w", err)
		}
		companies = append(companies, companyID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return companies, nil
}
