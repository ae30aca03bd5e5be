package repository

import (
	"context"
	"fmt"

	"ecopoints/database"
	"ecopoints/models"
	"github.com/jackc/pgx/v5"
)

// RankingRepository implements the RankingRepository interface
type RankingRepository struct {
	q queryable
}

// NewRankingRepository creates a new ranking repository
func NewRankingRepository(db *database.DB) *RankingRepository {
	return &RankingRepository{q: db.Pool}
}

// newRankingRepositoryWithTx creates a new ranking repository with a transaction
func newRankingRepositoryWithTx(tx queryable) *RankingRepository {
	return &RankingRepository{q: tx}
}

// CreateSnapshot persists a snapshot with its entries. Older snapshots for
// the same company and period are left in place; the newest computed_at wins.
func (r *RankingRepository) CreateSnapshot(ctx context.Context, snapshot *models.RankingSnapshot) error {
	query := `
		INSERT INTO ranking_snapshots (company_id, period_key, mode, policy)
		VALUES ($1, $2, $3, $4)
		RETURNING id, computed_at
	`

	err := r.q.QueryRow(ctx, query,
		snapshot.CompanyID,
		snapshot.PeriodKey,
		snapshot.Mode,
		snapshot.Policy,
	).Scan(&snapshot.ID, &snapshot.ComputedAt)

	if err != nil {
		return fmt.Errorf("failed to create ranking snapshot: %w", err)
	}

	entryQuery := `
		INSERT INTO ranking_entries (snapshot_id, rank, user_id, total_points)
		VALUES ($1, $2, $3, $4)
	`
	for _, entry := range snapshot.Entries {
		entry.SnapshotID = snapshot.ID
		if _, err := r.q.Exec(ctx, entryQuery, snapshot.ID, entry.Rank, entry.UserID, entry.TotalPoints); err != nil {
			return fmt.Errorf("failed to insert ranking entry for user %d: %w", entry.UserID, err)
		}
	}

	return nil
}

// GetLatest returns the most recently computed snapshot for a company and
// period, with entries in rank order
func (r *RankingRepository) GetLatest(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error) {
	query := `
		SELECT id, company_id, period_key, mode, policy, computed_at
		FROM ranking_snapshots
		WHERE company_id = $1 AND period_key = $2
		ORDER BY computed_at DESC, id DESC
		LIMIT 1
	`

	var snapshot models.RankingSnapshot
	err := r.q.QueryRow(ctx, query, companyID, periodKey).Scan(
		&snapshot.ID,
		&snapshot.CompanyID,
		&snapshot.PeriodKey,
		&snapshot.Mode,
		&snapshot.Policy,
		&snapshot.ComputedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot for company %d period %s: %w", companyID, periodKey, err)
	}

	entryQuery := `
		SELECT snapshot_id, rank, user_id, total_points
		FROM ranking_entries
		WHERE snapshot_id = $1
		ORDER BY rank, user_id
	`

	rows, err := r.q.Query(ctx, entryQuery, snapshot.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get entries for snapshot %d: %w", snapshot.ID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry models.RankingEntry
		if err := rows.Scan(&entry.SnapshotID, &entry.Rank, &entry.UserID, &entry.TotalPoints); err != nil {
			return nil, fmt.Errorf("failed to scan ranking entry: %w", err)
		}
		snapshot.Entries = append(snapshot.Entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ranking entries: %w", err)
	}

	return &snapshot, nil
}
