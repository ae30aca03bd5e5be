package models

import (
	"time"
)

// Reward is a redeemable catalog item. Stock is mutable state owned
// exclusively by the redemption flow; nil stock means unlimited.
type Reward struct {
	ID             int64     `db:"id"`
	CompanyID      *int64    `db:"company_id"` // nil = offered globally
	Title          string    `db:"title"`
	Description    string    `db:"description"`
	Category       string    `db:"category"`
	PointsRequired int64     `db:"points_required"`
	Stock          *int64    `db:"stock"`
	Active         bool      `db:"active"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// RewardFilter narrows catalog listings.
type RewardFilter struct {
	Category string
	Search   string // matches title or description
	Limit    int
	Offset   int
}
