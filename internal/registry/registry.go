// Package registry owns the set of configured liquidity sources and their
// live health metadata. Readers always receive copies; routing never sees a
// live reference that a concurrent update could mutate.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/events"
)

// latencyAlpha is the EWMA weight applied to a new latency sample when
// updating a source's rolling average.
const latencyAlpha = 0.2

// Registry is a concurrency-safe source catalog.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]domain.LiquiditySource
	bus     *events.Bus
}

// New creates an empty registry. The bus may be nil when no observers are
// wanted.
func New(bus *events.Bus) *Registry {
	return &Registry{
		sources: make(map[string]domain.LiquiditySource),
		bus:     bus,
	}
}

// Add inserts a source, overwriting any existing source with the same id.
// Reliability is clamped to [0,1].
func (r *Registry) Add(src domain.LiquiditySource) {
	if src.Reliability < 0 {
		src.Reliability = 0
	}
	if src.Reliability > 1 {
		src.Reliability = 1
	}

	r.mu.Lock()
	_, replaced := r.sources[src.ID]
	r.sources[src.ID] = src.Clone()
	r.mu.Unlock()

	log.Debug().Str("source", src.ID).Bool("replaced", replaced).Msg("source added")
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:     events.TypeSourceAdded,
			SourceID: src.ID,
			Payload:  src.Clone(),
		})
	}
}

// Remove deletes a source. Removing an unknown id is a no-op reported as
// false, not an error.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	_, ok := r.sources[id]
	if ok {
		delete(r.sources, id)
	}
	r.mu.Unlock()

	if !ok {
		return false
	}
	log.Debug().Str("source", id).Msg("source removed")
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:     events.TypeSourceRemoved,
			SourceID: id,
		})
	}
	return true
}

// Get returns a copy of the source with the given id.
func (r *Registry) Get(id string) (domain.LiquiditySource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[id]
	if !ok {
		return domain.LiquiditySource{}, false
	}
	return src.Clone(), true
}

// List returns copies of all sources ordered by priority, then id for a
// stable iteration order.
func (r *Registry) List() []domain.LiquiditySource {
	r.mu.RLock()
	out := make([]domain.LiquiditySource, 0, len(r.sources))
	for _, src := range r.sources {
		out = append(out, src.Clone())
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// RecordLatency folds a measured book-update latency into the source's
// rolling average and stamps its last update time. Unknown ids are ignored;
// the book store may outlive a removed source.
func (r *Registry) RecordLatency(id string, latencyMs float64, at time.Time) {
	if latencyMs < 0 {
		latencyMs = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.sources[id]
	if !ok {
		return
	}
	if src.AvgLatencyMs == 0 {
		src.AvgLatencyMs = latencyMs
	} else {
		src.AvgLatencyMs = src.AvgLatencyMs*(1-latencyAlpha) + latencyMs*latencyAlpha
	}
	src.LastUpdate = at
	r.sources[id] = src
}
