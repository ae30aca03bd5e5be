package service

import (
	"context"
	"fmt"
	"time"

	"ecopoints/events"
	"ecopoints/models"
	"ecopoints/rules"

	log "github.com/sirupsen/logrus"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// RegisterAccount creates the account if missing and returns it
func (s *ledgerService) RegisterAccount(ctx context.Context, userID, companyID int64) (*models.Account, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing account: %w", err)
	}
	if account != nil {
		return account, nil
	}

	account, err = uow.AccountRepository().Create(ctx, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	uow.EventBus().Publish(events.AccountOpenedEvent{
		UserID:    userID,
		CompanyID: companyID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return account, nil
}

// AwardForReduction evaluates the active rules and appends the award.
func (s *ledgerService) AwardForReduction(ctx context.Context, event rules.ReductionEvent, idempotencyKey string) (*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	candidates, err := uow.PointRuleRepository().GetActiveByKind(ctx, event.CompanyID, event.Category, event.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to load point rules: %w", err)
	}

	award, err := rules.Evaluate(candidates, event)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvariantViolation, err)
	}
	if award == nil {
		log.WithFields(log.Fields{
			"userID":    event.UserID,
			"companyID": event.CompanyID,
			"category":  event.Category,
		}).Debug("No active point rule applies to reduction event")
		return nil, nil
	}

	if award.Amount == 0 {
		// A tiny reduction can round to zero points. That is a valid
		// event with nothing to credit, not a ledger error.
		log.WithFields(log.Fields{
			"userID":    event.UserID,
			"companyID": event.CompanyID,
			"category":  event.Category,
		}).Debug("Reduction event rounds to zero points, skipping award")
		return nil, nil
	}

	ruleID := award.RuleID
	entry := &models.LedgerEntry{
		UserID:         event.UserID,
		CompanyID:      event.CompanyID,
		Amount:         award.Amount,
		Reason:         award.Reason,
		ReferenceID:    &ruleID,
		IdempotencyKey: idempotencyKey,
	}

	entry, err = s.append(ctx, uow, entry)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// Append is the single write path for all point movement.
func (s *ledgerService) Append(ctx context.Context, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entry, err := s.append(ctx, uow, entry)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// append runs the idempotency check, balance guard, insert and counter update
// inside the caller's unit of work. The account row lock makes the balance
// check and the insert one atomic unit.
func (s *ledgerService) append(ctx context.Context, uow UnitOfWork, entry *models.LedgerEntry) (*models.LedgerEntry, error) {
	if entry.IdempotencyKey == "" {
		return nil, fmt.Errorf("idempotency key is required")
	}
	if entry.Amount == 0 {
		return nil, fmt.Errorf("entry amount must be non-zero")
	}

	existing, err := uow.LedgerRepository().GetByIdempotencyKey(ctx, entry.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	if existing != nil {
		if !existing.SamePayload(entry) {
			return nil, fmt.Errorf("%w: idempotency key %q reused with different payload", ErrDuplicateRequest, entry.IdempotencyKey)
		}
		log.WithFields(log.Fields{
			"userID":         entry.UserID,
			"idempotencyKey": entry.IdempotencyKey,
		}).Debug("Ledger append replayed, returning stored entry")
		return existing, nil
	}

	account, err := uow.AccountRepository().GetForUpdate(ctx, entry.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", entry.UserID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, entry.UserID)
	}

	newBalance := account.Balance + entry.Amount
	if newBalance < 0 {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientBalance, account.Balance, -entry.Amount)
	}

	if err := uow.LedgerRepository().Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	if err := uow.AccountRepository().ApplyDelta(ctx, entry.UserID, entry.Amount); err != nil {
		// The balance was checked under the row lock, so a failing counter
		// update means the counter and the entries disagree.
		return nil, fmt.Errorf("%w: balance counter update failed for account %d: %v", ErrInvariantViolation, entry.UserID, err)
	}

	if entry.Amount > 0 {
		uow.EventBus().Publish(events.PointsAwardedEvent{
			UserID:        entry.UserID,
			CompanyID:     entry.CompanyID,
			Amount:        entry.Amount,
			Reason:        entry.Reason,
			LedgerEntryID: entry.ID,
			NewBalance:    newBalance,
		})
	} else {
		uow.EventBus().Publish(events.PointsRedeemedEvent{
			UserID:        entry.UserID,
			CompanyID:     entry.CompanyID,
			Amount:        entry.Amount,
			LedgerEntryID: entry.ID,
			NewBalance:    newBalance,
		})
	}

	return entry, nil
}

// Balance returns the user's current balance from the maintained counter
func (s *ledgerService) Balance(ctx context.Context, userID int64) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get account %d: %w", userID, err)
	}
	if account == nil {
		return 0, fmt.Errorf("%w: account %d", ErrNotFound, userID)
	}

	return account.Balance, nil
}

// Summary aggregates the user's ledger for dashboard reads
func (s *ledgerService) Summary(ctx context.Context, userID int64) (*models.PointsSummary, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", userID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, userID)
	}

	monthStart := models.MonthlyPeriod(time.Now().UTC()).Start
	summary, err := uow.LedgerRepository().Summary(ctx, userID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate ledger for user %d: %w", userID, err)
	}
	summary.CurrentBalance = account.Balance

	return summary, nil
}

// History returns the user's entries, newest first
func (s *ledgerService) History(ctx context.Context, userID int64, limit, offset int) ([]*models.LedgerEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	entries, err := uow.LedgerRepository().GetByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger history for user %d: %w", userID, err)
	}
	return entries, nil
}

// Reconcile recomputes the balance counter from entries under the account
// row lock and repairs it if it drifted.
func (s *ledgerService) Reconcile(ctx context.Context, userID int64) (*ReconcileReport, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	account, err := uow.AccountRepository().GetForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", userID, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrNotFound, userID)
	}

	ledgerBalance, err := uow.LedgerRepository().SumByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum ledger entries for user %d: %w", userID, err)
	}

	report := &ReconcileReport{
		UserID:         userID,
		CounterBalance: account.Balance,
		LedgerBalance:  ledgerBalance,
	}

	if account.Balance != ledgerBalance {
		log.WithFields(log.Fields{
			"userID":         userID,
			"counterBalance": account.Balance,
			"ledgerBalance":  ledgerBalance,
		}).Warn("Balance counter drifted from ledger, repairing")

		if err := uow.AccountRepository().SetBalance(ctx, userID, ledgerBalance); err != nil {
			return nil, fmt.Errorf("failed to repair balance counter for user %d: %w", userID, err)
		}
		report.Repaired = true
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return report, nil
}
