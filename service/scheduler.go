package service

import (
	"context"
	"time"

	"ecopoints/models"

	log "github.com/sirupsen/logrus"
)

// RankingScheduler periodically recomputes the current-month snapshot for
// every company with ledger activity and hands out rank bonuses.
type RankingScheduler struct {
	rankingService RankingService
	interval       time.Duration
}

// NewRankingScheduler creates a new ranking scheduler
func NewRankingScheduler(rankingService RankingService, interval time.Duration) *RankingScheduler {
	return &RankingScheduler{
		rankingService: rankingService,
		interval:       interval,
	}
}

// Start runs the scheduler until the context is cancelled. The first pass
// runs immediately.
func (s *RankingScheduler) Start(ctx context.Context) {
	log.WithField("interval", s.interval).Info("Starting ranking scheduler")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("Ranking scheduler stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// runOnce computes one snapshot per active company. A failure for one
// company does not block the others.
func (s *RankingScheduler) runOnce(ctx context.Context) {
	companies, err := s.rankingService.ActiveCompanies(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to list active companies")
		return
	}

	periodKey := models.MonthlyPeriod(time.Now().UTC()).Key
	for _, companyID := range companies {
		snapshot, err := s.rankingService.ComputeSnapshot(ctx, companyID, periodKey)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"companyID": companyID,
				"periodKey": periodKey,
			}).Error("Failed to compute ranking snapshot")
			continue
		}

		awarded, err := s.rankingService.AwardRankBonuses(ctx, snapshot)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"companyID": companyID,
				"periodKey": periodKey,
			}).Error("Failed to award rank bonuses")
			continue
		}
		if awarded > 0 {
			log.WithFields(log.Fields{
				"companyID": companyID,
				"periodKey": periodKey,
				"awarded":   awarded,
			}).Info("Rank bonuses awarded")
		}
	}
}
