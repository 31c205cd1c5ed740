// Package events carries the outbound notification stream: source lifecycle,
// book updates, and generated routes. Observers are monitoring consumers, not
// control flow; a slow observer loses events rather than stalling a writer.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Type identifies an event kind.
type Type string

const (
	TypeSourceAdded    Type = "source_added"
	TypeSourceRemoved  Type = "source_removed"
	TypeBookUpdated    Type = "book_updated"
	TypeBookRejected   Type = "book_rejected"
	TypeRouteGenerated Type = "route_generated"
)

// Event is a single notification. Payload carries the type-specific value
// (source, book, or route) for consumers that want detail.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	SourceID   string    `json:"source_id,omitempty"`
	Instrument string    `json:"instrument,omitempty"`
	Payload    any       `json:"payload,omitempty"`
}

type subscriber struct {
	ch chan Event
}

// Bus fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event. dropped is atomic; publishers run
// concurrently under the read lock.
type Bus struct {
	mu      sync.RWMutex
	subs    map[int]*subscriber
	nextID  int
	dropped atomic.Uint64
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Subscribe registers an observer queue with the given buffer size and
// returns the receive channel plus an unsubscribe func.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	sub := &subscriber{ch: make(chan Event, buffer)}
	b.subs[id] = sub
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers evt to every subscriber, assigning an id and timestamp if
// the caller left them empty.
func (b *Bus) Publish(evt Event) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- evt:
		default:
			b.dropped.Add(1)
			log.Debug().Str("type", string(evt.Type)).Msg("event dropped: observer queue full")
		}
	}
}

// Subscribers returns the current observer count.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns the total number of events lost to full observer queues.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}
