// Package books caches the most recent order book per (instrument, source)
// pair. Feed writers and aggregation readers run concurrently; all access
// goes through a single RWMutex-guarded keyed map and every book handed out
// is a copy.
package books

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/events"
)

// LatencyRecorder receives the measured update latency for the owning source.
// Satisfied by *registry.Registry.
type LatencyRecorder interface {
	RecordLatency(id string, latencyMs float64, at time.Time)
}

// Store holds cached books keyed by instrument then source. Books are
// retained until replaced; staleness is surfaced through timestamps and
// latency, not eviction.
type Store struct {
	mu       sync.RWMutex
	books    map[string]map[string]domain.OrderBook
	recorder LatencyRecorder
	bus      *events.Bus
	now      func() time.Time
}

// NewStore creates a store. recorder and bus may be nil.
func NewStore(recorder LatencyRecorder, bus *events.Bus) *Store {
	return &Store{
		books:    make(map[string]map[string]domain.OrderBook),
		recorder: recorder,
		bus:      bus,
		now:      time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// Update replaces the cached book for (sourceID, instrument), recomputes the
// derived spread and mid, and records now-timestamp latency against the
// owning source.
func (s *Store) Update(sourceID, instrument string, book domain.OrderBook) error {
	if sourceID == "" || instrument == "" {
		return fmt.Errorf("update requires source and instrument, got (%q, %q)", sourceID, instrument)
	}
	if err := book.Validate(); err != nil {
		if s.bus != nil {
			s.bus.Publish(events.Event{
				Type:       events.TypeBookRejected,
				SourceID:   sourceID,
				Instrument: instrument,
			})
		}
		return fmt.Errorf("book %s/%s rejected: %w", sourceID, instrument, err)
	}

	book = book.Clone()
	book.SourceID = sourceID
	book.Instrument = instrument
	book.Recalculate()

	now := s.now()
	latencyMs := float64(now.Sub(book.Timestamp)) / float64(time.Millisecond)

	s.mu.Lock()
	bySource, ok := s.books[instrument]
	if !ok {
		bySource = make(map[string]domain.OrderBook)
		s.books[instrument] = bySource
	}
	bySource[sourceID] = book
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.RecordLatency(sourceID, latencyMs, now)
	}
	log.Debug().
		Str("source", sourceID).
		Str("instrument", instrument).
		Float64("latency_ms", latencyMs).
		Msg("order book updated")
	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:       events.TypeBookUpdated,
			SourceID:   sourceID,
			Instrument: instrument,
			Payload:    book,
		})
	}
	return nil
}

// Get returns a copy of one source's book for the instrument.
func (s *Store) Get(instrument, sourceID string) (domain.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book, ok := s.books[instrument][sourceID]
	if !ok {
		return domain.OrderBook{}, false
	}
	return book.Clone(), true
}

// All returns copies of every cached book for the instrument keyed by source.
// An instrument with no books yields an empty map.
func (s *Store) All(instrument string) map[string]domain.OrderBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.OrderBook, len(s.books[instrument]))
	for id, book := range s.books[instrument] {
		out[id] = book.Clone()
	}
	return out
}

// Instruments returns the sorted list of instruments with at least one book.
func (s *Store) Instruments() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.books))
	for in, bySource := range s.books {
		if len(bySource) > 0 {
			out = append(out, in)
		}
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
