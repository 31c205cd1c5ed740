package feed

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// SourceLimiter enforces each venue's declared update rate with a token
// bucket per source id.
type SourceLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	defaults rate.Limit
	burst    int
}

// NewSourceLimiter creates a limiter. defaultRPS applies to sources without
// their own declared rate.
func NewSourceLimiter(defaultRPS float64, burst int) *SourceLimiter {
	if defaultRPS <= 0 {
		defaultRPS = 10
	}
	if burst <= 0 {
		burst = 1
	}
	return &SourceLimiter{
		limiters: make(map[string]*rate.Limiter),
		defaults: rate.Limit(defaultRPS),
		burst:    burst,
	}
}

// SetRate declares a source-specific rate, replacing any existing limiter.
func (l *SourceLimiter) SetRate(sourceID string, rps float64) {
	if rps <= 0 {
		return
	}
	l.mu.Lock()
	l.limiters[sourceID] = rate.NewLimiter(rate.Limit(rps), l.burst)
	l.mu.Unlock()
}

func (l *SourceLimiter) limiter(sourceID string) *rate.Limiter {
	l.mu.RLock()
	lim, ok := l.limiters[sourceID]
	l.mu.RUnlock()
	if ok {
		return lim
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.limiters[sourceID]; ok {
		return lim
	}
	lim = rate.NewLimiter(l.defaults, l.burst)
	l.limiters[sourceID] = lim
	return lim
}

// Allow reports whether an update for the source may proceed now.
func (l *SourceLimiter) Allow(sourceID string) bool {
	return l.limiter(sourceID).Allow()
}

// Wait blocks until an update for the source is allowed or ctx is done.
func (l *SourceLimiter) Wait(ctx context.Context, sourceID string) error {
	return l.limiter(sourceID).Wait(ctx)
}
