package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ecopoints/events"
	"ecopoints/models"
	"ecopoints/rules"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// rankingService implements the RankingService interface
type rankingService struct {
	uowFactory     UnitOfWorkFactory
	ledgerService  LedgerService
	mode           models.RankingMode
	policy         models.RankingPolicy
	rankBonusDepth int
}

// NewRankingService creates a new ranking service
func NewRankingService(uowFactory UnitOfWorkFactory, ledgerService LedgerService, mode models.RankingMode, policy models.RankingPolicy, rankBonusDepth int) RankingService {
	return &rankingService{
		uowFactory:     uowFactory,
		ledgerService:  ledgerService,
		mode:           mode,
		policy:         policy,
		rankBonusDepth: rankBonusDepth,
	}
}

// ComputeSnapshot aggregates the ledger into an ordered leaderboard and
// persists it. A second call against an unchanged ledger produces an
// identically ordered snapshot.
func (s *rankingService) ComputeSnapshot(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error) {
	period, err := models.ParsePeriod(periodKey)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	var from *time.Time
	if s.mode == models.RankingModePeriod {
		from = &period.Start
	}
	totals, err := uow.LedgerRepository().TotalsByCompany(ctx, companyID, from, &period.End)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger for company %d: %w", companyID, err)
	}

	snapshot := &models.RankingSnapshot{
		CompanyID: companyID,
		PeriodKey: period.Key,
		Mode:      s.mode,
		Policy:    s.policy,
		Entries:   rankTotals(totals, s.policy),
	}

	if err := uow.RankingRepository().CreateSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	uow.EventBus().Publish(events.SnapshotComputedEvent{
		SnapshotID: snapshot.ID,
		CompanyID:  companyID,
		PeriodKey:  period.Key,
		EntryCount: len(snapshot.Entries),
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"companyID": companyID,
		"periodKey": period.Key,
		"entries":   len(snapshot.Entries),
	}).Info("Ranking snapshot computed")

	return snapshot, nil
}

// rankTotals orders totals and assigns ranks. Sort order: descending total,
// then earliest account creation, then lowest user id, so recomputation from
// the same ledger is byte-for-byte reproducible. The strict policy gives
// every user a distinct rank; the competition policy lets equal totals share
// one (1, 2, 2, 4).
func rankTotals(totals []*models.UserTotal, policy models.RankingPolicy) []*models.RankingEntry {
	sorted := make([]*models.UserTotal, len(totals))
	copy(sorted, totals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalPoints != sorted[j].TotalPoints {
			return sorted[i].TotalPoints > sorted[j].TotalPoints
		}
		if !sorted[i].AccountCreatedAt.Equal(sorted[j].AccountCreatedAt) {
			return sorted[i].AccountCreatedAt.Before(sorted[j].AccountCreatedAt)
		}
		return sorted[i].UserID < sorted[j].UserID
	})

	entries := make([]*models.RankingEntry, 0, len(sorted))
	for i, total := range sorted {
		rank := i + 1
		if policy == models.RankingPolicyCompetition && i > 0 && total.TotalPoints == sorted[i-1].TotalPoints {
			rank = entries[i-1].Rank
		}
		entries = append(entries, &models.RankingEntry{
			Rank:        rank,
			UserID:      total.UserID,
			TotalPoints: total.TotalPoints,
		})
	}
	return entries
}

// LatestSnapshot returns the superseding snapshot for a company and period
func (s *rankingService) LatestSnapshot(ctx context.Context, companyID int64, periodKey string) (*models.RankingSnapshot, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	snapshot, err := uow.RankingRepository().GetLatest(ctx, companyID, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}
	return snapshot, nil
}

// AwardRankBonuses grants rank_bonus awards to the top ranks of a snapshot.
// The award for rank r is the active rank_bonus rule's coefficient scaled by
// (depth - r + 1). Idempotency keys are derived from company, period and
// user, so recomputing a snapshot never double-awards.
func (s *rankingService) AwardRankBonuses(ctx context.Context, snapshot *models.RankingSnapshot) (int, error) {
	if s.rankBonusDepth == 0 {
		return 0, nil
	}

	period, err := models.ParsePeriod(snapshot.PeriodKey)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, entry := range snapshot.Entries {
		if entry.Rank > s.rankBonusDepth {
			break
		}

		weight := int64(s.rankBonusDepth - entry.Rank + 1)
		event := rules.ReductionEvent{
			UserID:     entry.UserID,
			CompanyID:  snapshot.CompanyID,
			Category:   models.RuleKindRankBonus,
			Quantity:   decimal.NewFromInt(weight),
			OccurredAt: period.End.Add(-time.Second),
		}
		key := fmt.Sprintf("rank_bonus:%d:%s:%d", snapshot.CompanyID, snapshot.PeriodKey, entry.UserID)

		grant, err := s.ledgerService.AwardForReduction(ctx, event, key)
		if err != nil {
			return awarded, fmt.Errorf("failed to award rank bonus to user %d: %w", entry.UserID, err)
		}
		if grant != nil {
			awarded++
		}
	}

	return awarded, nil
}

// ActiveCompanies lists companies with ledger activity
func (s *rankingService) ActiveCompanies(ctx context.Context) ([]int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	companies, err := uow.LedgerRepository().ActiveCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active companies: %w", err)
	}
	return companies, nil
}
