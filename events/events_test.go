package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_EmitReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{}, 1)

	bus.Subscribe(EventTypePointsAwarded, func(ctx context.Context, event Event) {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		done <- struct{}{}
	})

	bus.Emit(context.Background(), PointsAwardedEvent{UserID: 1, Amount: 25})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	assert.Equal(t, EventTypePointsAwarded, received[0].Type())
}

func TestTransactionalBus_FlushAndDiscard(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var count int
	done := make(chan struct{}, 2)

	bus.Subscribe(EventTypeRedemptionConfirmed, func(ctx context.Context, event Event) {
		mu.Lock()
		count++
		mu.Unlock()
		done <- struct{}{}
	})

	// Discarded events never reach the bus.
	discarded := NewTransactionalBus(bus)
	discarded.Publish(RedemptionConfirmedEvent{RedemptionID: 1})
	discarded.Discard()

	flushed := NewTransactionalBus(bus)
	flushed.Publish(RedemptionConfirmedEvent{RedemptionID: 2})
	assert.NoError(t, flushed.Flush(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flushed event was not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
