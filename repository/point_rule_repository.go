package repository

import (
	"context"
	"fmt"
	"time"

	"ecopoints/database"
	"ecopoints/models"
)

// PointRuleRepository implements the PointRuleRepository interface
type PointRuleRepository struct {
	q queryable
}

// NewPointRuleRepository creates a new point rule repository
func NewPointRuleRepository(db *database.DB) *PointRuleRepository {
	return &PointRuleRepository{q: db.Pool}
}

// newPointRuleRepositoryWithTx creates a new point rule repository with a transaction
func newPointRuleRepositoryWithTx(tx queryable) *PointRuleRepository {
	return &PointRuleRepository{q: tx}
}

// Create inserts a new rule version
func (r *PointRuleRepository) Create(ctx context.Context, rule *models.PointRule) error {
	query := `
		INSERT INTO point_rules (company_id, name, kind, coefficient, active, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		rule.CompanyID,
		rule.Name,
		rule.Kind,
		rule.Coefficient,
		rule.Active,
		rule.EffectiveFrom,
		rule.EffectiveTo,
	).Scan(&rule.ID, &rule.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create point rule %q: %w", rule.Name, err)
	}

	return nil
}

// GetActiveByKind returns active rules of a kind visible to a company that
// are in force at the given time
func (r *PointRuleRepository) GetActiveByKind(ctx context.Context, companyID int64, kind models.RuleKind, asOf time.Time) ([]*models.PointRule, error) {
	query := `
		SELECT id, company_id, name, kind, coefficient, active, effective_from, effective_to, created_at
		FROM point_rules
		WHERE kind = $1
		  AND active
		  AND (company_id IS NULL OR company_id = $2)
		  AND effective_from <= $3
		  AND (effective_to IS NULL OR effective_to > $3)
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.q.Query(ctx, query, kind, companyID, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to get active %s rules for company %d: %w", kind, companyID, err)
	}
	defer rows.Close()

	var pointRules []*models.PointRule
	for rows.Next() {
		var rule models.PointRule
		err := rows.Scan(
			&rule.ID,
			&rule.CompanyID,
			&rule.Name,
			&rule.Kind,
			&rule.Coefficient,
			&rule.Active,
			&rule.EffectiveFrom,
			&rule.EffectiveTo,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan point rule: %w", err)
		}
		pointRules = append(pointRules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate point rules: %w", err)
	}

	return pointRules, nil
}

// Deactivate retires a rule without touching its historical definition
func (r *PointRuleRepository) Deactivate(ctx context.Context, ruleID int64) error {
	query := `
		UPDATE point_rules
		SET active = FALSE
		WHERE id = $1
	`

	result, err := r.q.Exec(ctx, query, ruleID)
	if err != nil {
		return fmt.Errorf("failed to deactivate point rule %d: %w", ruleID, err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("point rule %d not found", ruleID)
	}

	return nil
}
