package cmd

import (
	"context"
	"fmt"
	"time"

	"ecopoints/config"
	"ecopoints/database"
	"ecopoints/events"
	"ecopoints/models"
	"ecopoints/repository"
	"ecopoints/service"

	log "github.com/sirupsen/logrus"
)

// Services bundles the engine's operations for transports (API handlers,
// ingestion jobs) to mount.
type Services struct {
	Ledger     service.LedgerService
	Catalog    service.RewardCatalogService
	Redemption service.RedemptionService
	Ranking    service.RankingService
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting ecopoints service...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize unit of work factory
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Wire services
	ledgerService := service.NewLedgerService(uowFactory)
	svcs := &Services{
		Ledger:     ledgerService,
		Catalog:    service.NewRewardCatalogService(uowFactory),
		Redemption: service.NewRedemptionService(uowFactory, cfg.ConflictMaxRetries),
		Ranking: service.NewRankingService(
			uowFactory,
			ledgerService,
			models.RankingMode(cfg.RankingMode),
			models.RankingPolicy(cfg.RankingPolicy),
			cfg.RankBonusDepth,
		),
	}

	// Start the periodic snapshot scheduler
	scheduler := service.NewRankingScheduler(svcs.Ranking, cfg.RankingInterval)
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		scheduler.Start(ctx)
	}()

	log.WithFields(log.Fields{
		"environment":   cfg.Environment,
		"rankingMode":   cfg.RankingMode,
		"rankingPolicy": cfg.RankingPolicy,
	}).Info("Service is running")

	// Wait for context cancellation
	<-ctx.Done()

	// Cleanup resources
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded waiting for scheduler")
	}

	log.Info("Closing database connection...")
	db.Close()

	log.Info("Shutdown completed")
	return nil
}
