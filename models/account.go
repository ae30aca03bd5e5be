package models

import (
	"time"
)

// Account represents a point-earning user scoped to a company.
// The balance column is a maintained counter; the ledger entries are the
// source of truth and the counter is recomputable from them.
type Account struct {
	UserID    int64     `db:"user_id"`
	CompanyID int64     `db:"company_id"`
	Balance   int64     `db:"balance"`
	CreatedAt time.Time `db:"created_at"`
}

// PointsSummary aggregates a user's ledger for dashboard-style reads.
type PointsSummary struct {
	CurrentBalance  int64
	TotalEarned     int64
	TotalSpent      int64
	ThisMonthEarned int64
}
