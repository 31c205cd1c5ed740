package feed

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/registry"
)

// SimFeed generates random-walk synthetic books for every registered source
// and instrument. Used by the demo session and tests; it exercises the same
// Store.Update path a live feed would.
type SimFeed struct {
	registry *registry.Registry
	store    *books.Store
	limiter  *SourceLimiter

	instruments []string
	interval    time.Duration
	rng         *rand.Rand
	prices      map[string]float64
}

// NewSimFeed creates a feed over the given instruments. seed fixes the walk
// for reproducible runs.
func NewSimFeed(reg *registry.Registry, store *books.Store, instruments []string, interval time.Duration, seed int64) *SimFeed {
	if interval <= 0 {
		interval = time.Second
	}
	f := &SimFeed{
		registry:    reg,
		store:       store,
		limiter:     NewSourceLimiter(10, 2),
		instruments: instruments,
		interval:    interval,
		rng:         rand.New(rand.NewSource(seed)),
		prices:      make(map[string]float64),
	}
	for _, src := range reg.List() {
		if src.RateLimitPerSec > 0 {
			f.limiter.SetRate(src.ID, src.RateLimitPerSec)
		}
	}
	return f
}

// Run publishes one refresh cycle per interval until ctx is done.
func (f *SimFeed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	f.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.Refresh(ctx)
		}
	}
}

// Refresh pushes one book per (source, instrument), skipping sources whose
// rate budget is exhausted this cycle.
func (f *SimFeed) Refresh(ctx context.Context) {
	for _, src := range f.registry.List() {
		if !src.Active {
			continue
		}
		for _, instrument := range f.instruments {
			if !src.Supports(instrument) {
				continue
			}
			if !f.limiter.Allow(src.ID) {
				log.Debug().Str("source", src.ID).Msg("feed update skipped: rate limited")
				continue
			}
			book := f.makeBook(src, instrument)
			if err := f.store.Update(src.ID, instrument, book); err != nil {
				log.Warn().Err(err).Str("source", src.ID).Str("instrument", instrument).
					Msg("feed update rejected")
			}
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

func (f *SimFeed) basePrice(instrument string) float64 {
	p, ok := f.prices[instrument]
	if !ok {
		p = 1000 + f.rng.Float64()*50000
		f.prices[instrument] = p
	}
	return p
}

// makeBook walks the instrument's base price and builds a five-level book
// whose spread widens with lower source reliability.
func (f *SimFeed) makeBook(src domain.LiquiditySource, instrument string) domain.OrderBook {
	base := f.basePrice(instrument)
	base *= 1 + (f.rng.Float64()-0.5)*0.002
	f.prices[instrument] = base

	halfSpread := base * (0.0002 + (1-src.Reliability)*0.001)
	tick := halfSpread / 2

	book := domain.OrderBook{
		SourceID:     src.ID,
		Instrument:   instrument,
		Timestamp:    time.Now(),
		Volume24hUSD: base * (500 + f.rng.Float64()*2000),
	}
	for i := 0; i < 5; i++ {
		level := float64(i)
		book.Bids = append(book.Bids, domain.OrderBookLevel{
			Price:  base - halfSpread - level*tick,
			Size:   1 + f.rng.Float64()*10*(level+1),
			Orders: 1 + f.rng.Intn(20),
		})
		book.Asks = append(book.Asks, domain.OrderBookLevel{
			Price:  base + halfSpread + level*tick,
			Size:   1 + f.rng.Float64()*10*(level+1),
			Orders: 1 + f.rng.Intn(20),
		})
	}
	return book
}
