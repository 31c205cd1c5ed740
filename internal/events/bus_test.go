package events

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFillsIDAndTimestamp(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Type: TypeBookUpdated, SourceID: "alpha"})

	evt := <-ch
	assert.NotEmpty(t, evt.ID)
	assert.False(t, evt.Timestamp.IsZero())
	assert.Equal(t, TypeBookUpdated, evt.Type)
}

func TestPublishKeepsCallerFields(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	bus.Publish(Event{ID: "evt-1", Timestamp: at, Type: TypeSourceAdded})

	evt := <-ch
	assert.Equal(t, "evt-1", evt.ID)
	assert.Equal(t, at, evt.Timestamp)
}

func TestSlowSubscriberLosesEvents(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Type: TypeBookUpdated, SourceID: "first"})
	bus.Publish(Event{Type: TypeBookUpdated, SourceID: "second"})

	evt := <-ch
	assert.Equal(t, "first", evt.SourceID)

	select {
	case extra := <-ch:
		t.Fatalf("expected second event to be dropped, got %v", extra)
	default:
	}
}

func TestDroppedCountsMissedEvents(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(Event{Type: TypeBookUpdated})
	bus.Publish(Event{Type: TypeBookUpdated})
	bus.Publish(Event{Type: TypeBookUpdated})

	assert.Len(t, ch, 1)
	assert.Equal(t, uint64(2), bus.Dropped())
}

func TestConcurrentPublishersAccountForEveryEvent(t *testing.T) {
	const (
		publishers = 8
		perWorker  = 200
	)
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				bus.Publish(Event{Type: TypeBookUpdated})
			}
		}()
	}
	wg.Wait()

	// Nobody drains, so every event was either buffered or dropped.
	assert.Equal(t, uint64(publishers*perWorker), bus.Dropped()+uint64(len(ch)))
}

func TestSubscribeFanout(t *testing.T) {
	bus := NewBus()
	ch1, cancel1 := bus.Subscribe(4)
	defer cancel1()
	ch2, cancel2 := bus.Subscribe(4)
	defer cancel2()

	require.Equal(t, 2, bus.Subscribers())
	bus.Publish(Event{Type: TypeRouteGenerated})

	assert.Equal(t, TypeRouteGenerated, (<-ch1).Type)
	assert.Equal(t, TypeRouteGenerated, (<-ch2).Type)
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(1)

	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, bus.Subscribers())

	// Second cancel is a no-op.
	cancel()
}

func TestSubscribeDefaultBuffer(t *testing.T) {
	bus := NewBus()
	ch, cancel := bus.Subscribe(0)
	defer cancel()

	// Default buffer must absorb a burst without drops.
	for i := 0; i < 64; i++ {
		bus.Publish(Event{Type: TypeBookUpdated})
	}
	assert.Len(t, ch, 64)
}
