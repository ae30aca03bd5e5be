package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecopoints/events"
	"ecopoints/models"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// redemptionService implements the RedemptionService interface
type redemptionService struct {
	uowFactory UnitOfWorkFactory
	maxRetries int
}

// NewRedemptionService creates a new redemption service. maxRetries bounds
// the internal retries of transient transaction conflicts.
func NewRedemptionService(uowFactory UnitOfWorkFactory, maxRetries int) RedemptionService {
	return &redemptionService{
		uowFactory: uowFactory,
		maxRetries: maxRetries,
	}
}

// Redeem exchanges points for one unit of a reward. Only ErrConflict is
// retried, with jittered exponential backoff; business failures surface to
// the caller on the first attempt.
func (s *redemptionService) Redeem(ctx context.Context, userID, rewardID int64, idempotencyKey string) (*models.Redemption, error) {
	if idempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxRetries)), ctx)

	var redemption *models.Redemption
	operation := func() error {
		var err error
		redemption, err = s.redeemOnce(ctx, userID, rewardID, idempotencyKey)
		if err != nil && !errors.Is(err, ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	// backoff unwraps Permanent errors, so business failures come back
	// exactly as redeemOnce returned them.
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	return redemption, nil
}

// redeemOnce performs one redemption attempt inside a single transaction.
func (s *redemptionService) redeemOnce(ctx context.Context, userID, rewardID int64, idempotencyKey string) (*models.Redemption, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	// Replay detection first: a retried request must observe the original
	// outcome without touching stock or balance again.
	existing, err := uow.RedemptionRepository().GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if existing != nil {
		if existing.UserID != userID || existing.RewardID != rewardID {
			return nil, fmt.Errorf("%w: idempotency key %q reused with different payload", ErrDuplicateRequest, idempotencyKey)
		}
		log.WithFields(log.Fields{
			"userID":         userID,
			"redemptionID":   existing.ID,
			"idempotencyKey": idempotencyKey,
		}).Debug("Redemption replayed, returning stored redemption")
		return existing, nil
	}

	reward, err := uow.RewardRepository().GetByID(ctx, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reward %d: %w", rewardID, err)
	}
	if reward == nil || !reward.Active {
		return nil, fmt.Errorf("%w: reward %d", ErrNotFound, rewardID)
	}

	// Lock order is fixed: account row first, then the reward row inside
	// DecrementStock.
	account, err := uow.AccountRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, userID)
	}

	if account.Balance < reward.PointsRequired {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, account.Balance, reward.PointsRequired)
	}

	if err := uow.RewardRepository().DecrementStock(ctx, rewardID, 1); err != nil {
		return nil, err
	}

	redemption := &models.Redemption{
		UserID:         userID,
		RewardID:       rewardID,
		PointsSpent:    reward.PointsRequired,
		Status:         models.RedemptionStatusConfirmed,
		IdempotencyKey: idempotencyKey,
	}
	if err := uow.RedemptionRepository().Create(ctx, redemption); err != nil {
		return nil, fmt.Errorf("failed to create redemption: %w", err)
	}

	entry := &models.LedgerEntry{
		UserID:         userID,
		CompanyID:      account.CompanyID,
		Amount:         -reward.PointsRequired,
		Reason:         models.EntryReasonRedemption,
		ReferenceID:    &redemption.ID,
		IdempotencyKey: fmt.Sprintf("redemption:%s", idempotencyKey),
	}
	if err := uow.LedgerRepository().Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert debit entry: %w", err)
	}

	if err := uow.AccountRepository().ApplyDelta(ctx, userID, -reward.PointsRequired); err != nil {
		return nil, fmt.Errorf("%w: balance counter update failed for account %d: %v", ErrInvariantViolation, userID, err)
	}

	if err := uow.RedemptionRepository().SetLedgerEntry(ctx, redemption.ID, entry.ID); err != nil {
		return nil, fmt.Errorf("failed to link debit entry: %w", err)
	}
	redemption.LedgerEntryID = &entry.ID

	uow.EventBus().Publish(events.PointsRedeemedEvent{
		UserID:        userID,
		CompanyID:     account.CompanyID,
		Amount:        entry.Amount,
		LedgerEntryID: entry.ID,
		NewBalance:    account.Balance - reward.PointsRequired,
	})
	uow.EventBus().Publish(events.RedemptionConfirmedEvent{
		RedemptionID: redemption.ID,
		UserID:       userID,
		RewardID:     rewardID,
		PointsSpent:  reward.PointsRequired,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return redemption, nil
}

// History returns a user's redemptions, newest first
func (s *redemptionService) History(ctx context.Context, userID int64, limit int) ([]*models.Redemption, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	redemptions, err := uow.RedemptionRepository().GetByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get redemptions for user %d: %w", userID, err)
	}
	return redemptions, nil
}
