package events

import (
	"context"
	"sync"

	"ecopoints/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypePointsAwarded       EventType = "points_awarded"
	EventTypePointsRedeemed      EventType = "points_redeemed"
	EventTypeAccountOpened       EventType = "account_opened"
	EventTypeRedemptionConfirmed EventType = "redemption_confirmed"
	EventTypeSnapshotComputed    EventType = "snapshot_computed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// PointsAwardedEvent represents a positive ledger entry that was committed
type PointsAwardedEvent struct {
	UserID        int64
	CompanyID     int64
	Amount        int64
	Reason        models.EntryReason
	LedgerEntryID int64
	NewBalance    int64
}

func (e PointsAwardedEvent) Type() EventType {
	return EventTypePointsAwarded
}

// PointsRedeemedEvent represents a debit ledger entry that was committed
type PointsRedeemedEvent struct {
	UserID        int64
	CompanyID     int64
	Amount        int64 // negative
	LedgerEntryID int64
	NewBalance    int64
}

func (e PointsRedeemedEvent) Type() EventType {
	return EventTypePointsRedeemed
}

// AccountOpenedEvent represents a newly registered account
type AccountOpenedEvent struct {
	UserID    int64
	CompanyID int64
}

func (e AccountOpenedEvent) Type() EventType {
	return EventTypeAccountOpened
}

// RedemptionConfirmedEvent represents a redemption that debited points and stock
type RedemptionConfirmedEvent struct {
	RedemptionID int64
	UserID       int64
	RewardID     int64
	PointsSpent  int64
}

func (e RedemptionConfirmedEvent) Type() EventType {
	return EventTypeRedemptionConfirmed
}

// SnapshotComputedEvent represents a freshly computed ranking snapshot
type SnapshotComputedEvent struct {
	SnapshotID int64
	CompanyID  int64
	PeriodKey  string
	EntryCount int
}

func (e SnapshotComputedEvent) Type() EventType {
	return EventTypeSnapshotComputed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make([]Handler, 0)
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// A transactional event bus for holding pending events coupled to the Unit of Work.
// Flushes to the underlying event bus.
type TransactionalBus struct {
	real    *Bus
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	// Use background context for event emission so handlers outlive the
	// transaction context.
	eventCtx := context.Background()

	log.WithFields(log.Fields{
		"pendingEventCount": len(b.pending),
	}).Debug("Flushing pending events after commit")

	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
