// Package aggregate merges per-venue order books into a single cross-venue
// liquidity snapshot.
package aggregate

import (
	"time"

	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/registry"
)

// Aggregator builds snapshots from current store contents. Snapshots are
// built fresh per request and never cached here.
type Aggregator struct {
	registry *registry.Registry
	store    *books.Store
	now      func() time.Time
}

// New creates an aggregator over the given registry and store.
func New(reg *registry.Registry, store *books.Store) *Aggregator {
	return &Aggregator{registry: reg, store: store, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// latencyWeight discounts a source's mid contribution by its measured
// latency: 1/(1+latencyMs/1000).
func latencyWeight(latencyMs float64) float64 {
	if latencyMs < 0 {
		latencyMs = 0
	}
	return 1 / (1 + latencyMs/1000)
}

// Snapshot merges every active source holding a book for the instrument into
// one cross-venue view. Sources missing a side are skipped. Returns nil when
// no source contributes a valid top-of-book pair: absence, not a zeroed
// struct.
//
// The weighted mid is normalized by the contributing source count rather than
// by the summed weights; this matches the reference behavior and is kept for
// parity.
func (a *Aggregator) Snapshot(instrument string) *domain.LiquiditySnapshot {
	byBook := a.store.All(instrument)
	if len(byBook) == 0 {
		return nil
	}

	snap := &domain.LiquiditySnapshot{
		Instrument: instrument,
		Timestamp:  a.now().UTC(),
	}

	var (
		weightedMidSum float64
		first          = true
	)

	for _, src := range a.registry.List() {
		if !src.Active {
			continue
		}
		book, ok := byBook[src.ID]
		if !ok {
			continue
		}
		bid, hasBid := book.BestBid()
		ask, hasAsk := book.BestAsk()
		if !hasBid || !hasAsk {
			continue
		}

		quote := domain.SourceQuote{
			SourceID:     src.ID,
			BestBid:      bid.Price,
			BestAsk:      ask.Price,
			BidSize:      bid.Size,
			AskSize:      ask.Size,
			Spread:       book.Spread,
			MidPrice:     book.MidPrice,
			Volume24hUSD: book.Volume24hUSD,
			LatencyMs:    src.AvgLatencyMs,
			Reliability:  src.Reliability,
			Priority:     src.Priority,
			TakerFee:     src.Fees.Taker,
		}
		if book.MidPrice > 0 {
			quote.SpreadPct = book.Spread / book.MidPrice * 100
		}
		snap.Sources = append(snap.Sources, quote)

		agg := &snap.Aggregated
		if first || bid.Price > agg.BestBid {
			agg.BestBid = bid.Price
		}
		if first || ask.Price < agg.BestAsk {
			agg.BestAsk = ask.Price
		}
		first = false

		agg.TotalBidSize += bid.Size
		agg.TotalAskSize += ask.Size
		agg.TotalVolume24hUSD += book.Volume24hUSD
		agg.SourceCount++

		weightedMidSum += book.MidPrice * src.Reliability * latencyWeight(src.AvgLatencyMs)
	}

	if snap.Aggregated.SourceCount == 0 {
		return nil
	}

	snap.Aggregated.WeightedMid = weightedMidSum / float64(snap.Aggregated.SourceCount)
	// Negative when venues are crossed; that is an arbitrage signal.
	snap.Aggregated.EffectiveSpread = snap.Aggregated.BestAsk - snap.Aggregated.BestBid
	return snap
}
