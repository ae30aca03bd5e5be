package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RankingMode selects which ledger entries feed a snapshot.
type RankingMode string

const (
	RankingModePeriod     RankingMode = "period"     // entries inside the period only
	RankingModeCumulative RankingMode = "cumulative" // everything up to the period end
)

// RankingPolicy selects how ties in total points are ranked.
type RankingPolicy string

const (
	// RankingPolicyStrict gives every user a distinct rank; ties are broken
	// by earliest account creation, then by user id.
	RankingPolicyStrict RankingPolicy = "strict"
	// RankingPolicyCompetition assigns standard competition ranks (1, 2, 2, 4).
	RankingPolicyCompetition RankingPolicy = "competition"
)

// RankingSnapshot is an immutable, dated leaderboard. Recomputing a period
// creates a new snapshot that supersedes older ones by ComputedAt.
type RankingSnapshot struct {
	ID         int64         `db:"id"`
	CompanyID  int64         `db:"company_id"`
	PeriodKey  string        `db:"period_key"`
	Mode       RankingMode   `db:"mode"`
	Policy     RankingPolicy `db:"policy"`
	ComputedAt time.Time     `db:"computed_at"`
	Entries    []*RankingEntry
}

// RankingEntry is one row of a snapshot.
type RankingEntry struct {
	SnapshotID  int64 `db:"snapshot_id"`
	Rank        int   `db:"rank"`
	UserID      int64 `db:"user_id"`
	TotalPoints int64 `db:"total_points"`
}

// Period is a half-open time range identified by a key such as "2026-08",
// "2026-Q3" or "2026".
type Period struct {
	Key   string
	Start time.Time
	End   time.Time
}

// ParsePeriod parses a period key. Supported forms: YYYY-MM (monthly),
// YYYY-Qn (quarterly), YYYY (yearly). Ranges are half-open in UTC.
func ParsePeriod(key string) (Period, error) {
	switch {
	case strings.Contains(key, "-Q"):
		parts := strings.SplitN(key, "-Q", 2)
		year, err := strconv.Atoi(parts[0])
		if err != nil {
			return Period{}, fmt.Errorf("invalid period %q: %w", key, err)
		}
		quarter, err := strconv.Atoi(parts[1])
		if err != nil || quarter < 1 || quarter > 4 {
			return Period{}, fmt.Errorf("invalid quarter in period %q", key)
		}
		start := time.Date(year, time.Month((quarter-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
		return Period{Key: key, Start: start, End: start.AddDate(0, 3, 0)}, nil

	case strings.Contains(key, "-"):
		t, err := time.Parse("2006-01", key)
		if err != nil {
			return Period{}, fmt.Errorf("invalid period %q: %w", key, err)
		}
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Key: key, Start: start, End: start.AddDate(0, 1, 0)}, nil

	default:
		year, err := strconv.Atoi(key)
		if err != nil {
			return Period{}, fmt.Errorf("invalid period %q: %w", key, err)
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Key: key, Start: start, End: start.AddDate(1, 0, 0)}, nil
	}
}

// MonthlyPeriod returns the monthly period containing t.
func MonthlyPeriod(t time.Time) Period {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{
		Key:   start.Format("2006-01"),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}
}

// UserTotal is the aggregate a snapshot is built from: one user's summed
// ledger amounts plus the account creation time used as the tie-break.
type UserTotal struct {
	UserID           int64
	TotalPoints      int64
	AccountCreatedAt time.Time
}
