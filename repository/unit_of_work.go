package repository

import (
	"context"
	"fmt"

	"ecopoints/database"
	"ecopoints/events"
	"ecopoints/service"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// unitOfWork implements the UnitOfWork interface
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus
	accountRepo      service.AccountRepository
	ledgerRepo       service.LedgerRepository
	ruleRepo         service.PointRuleRepository
	rewardRepo       service.RewardRepository
	redemptionRepo   service.RedemptionRepository
	rankingRepo      service.RankingRepository
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.accountRepo = newAccountRepositoryWithTx(tx)
	u.ledgerRepo = newLedgerRepositoryWithTx(tx)
	u.ruleRepo = newPointRuleRepositoryWithTx(tx)
	u.rewardRepo = newRewardRepositoryWithTx(tx)
	u.redemptionRepo = newRedemptionRepositoryWithTx(tx)
	u.rankingRepo = newRankingRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		if database.IsSerializationFailure(err) {
			return fmt.Errorf("%w: commit lost a serialization race: %v", service.ErrConflict, err)
		}
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Flush pending events after successful commit
	if u.transactionalBus != nil {
		if flushErr := u.transactionalBus.Flush(u.ctx); flushErr != nil {
			log.WithError(flushErr).Error("Failed to flush events after commit")
		}
	}

	return nil
}

// Rollback rolls back the transaction
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	// Discard pending events on rollback
	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() service.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// LedgerRepository returns the ledger repository for this unit of work
func (u *unitOfWork) LedgerRepository() service.LedgerRepository {
	if u.ledgerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ledgerRepo
}

// PointRuleRepository returns the point rule repository for this unit of work
func (u *unitOfWork) PointRuleRepository() service.PointRuleRepository {
	if u.ruleRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.ruleRepo
}

// RewardRepository returns the reward repository for this unit of work
func (u *unitOfWork) RewardRepository() service.RewardRepository {
	if u.rewardRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rewardRepo
}

// RedemptionRepository returns the redemption repository for this unit of work
func (u *unitOfWork) RedemptionRepository() service.RedemptionRepository {
	if u.redemptionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.redemptionRepo
}

// RankingRepository returns the ranking repository for this unit of work
func (u *unitOfWork) RankingRepository() service.RankingRepository {
	if u.rankingRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rankingRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
