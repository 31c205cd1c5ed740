// Package liqmetrics derives depth, spread, volume, and market-impact
// statistics from liquidity snapshots on a slower cadence than the book
// refresh itself.
package liqmetrics

import (
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/domain"
)

// depthTiers are the book-level thresholds reported in LiquidityMetrics.
var depthTiers = []int{1, 2, 3, 5, 10}

// Impact tier notionals in USD.
const (
	SmallTradeUSD  = 10_000
	MediumTradeUSD = 100_000
	LargeTradeUSD  = 1_000_000
)

// MarketImpact estimates price displacement for a given notional using a
// square-root model capped at 10%.
func MarketImpact(notionalUSD float64) float64 {
	if notionalUSD <= 0 {
		return 0
	}
	return math.Min(0.10, math.Sqrt(notionalUSD/1_000_000)*0.001)
}

// Engine computes and caches per-instrument metrics. Compute is safe for
// concurrent use with Cached readers.
type Engine struct {
	agg *aggregate.Aggregator

	mu    sync.RWMutex
	cache map[string]domain.LiquidityMetrics
}

// NewEngine creates a metrics engine over the aggregator.
func NewEngine(agg *aggregate.Aggregator) *Engine {
	return &Engine{
		agg:   agg,
		cache: make(map[string]domain.LiquidityMetrics),
	}
}

// Compute derives fresh metrics for the instrument and caches them. Returns
// nil when no snapshot is available.
//
// Depth at levels beyond the top of book is approximated from aggregated
// top-of-book size; deeper levels are not available from the snapshot. The
// tier values scale with the level count as a documented approximation, not a
// precision claim. Volume and volatility are likewise estimates; a trade
// history collaborator would replace them.
func (e *Engine) Compute(instrument string) *domain.LiquidityMetrics {
	snap := e.agg.Snapshot(instrument)
	if snap == nil {
		return nil
	}
	agg := snap.Aggregated

	m := domain.LiquidityMetrics{
		Instrument: instrument,
		Timestamp:  snap.Timestamp,
		BidDepth:   make(map[int]float64, len(depthTiers)),
		AskDepth:   make(map[int]float64, len(depthTiers)),
	}

	for _, tier := range depthTiers {
		scale := float64(tier)
		m.BidDepth[tier] = agg.TotalBidSize * scale
		m.AskDepth[tier] = agg.TotalAskSize * scale
	}

	m.EffectiveSpread = agg.EffectiveSpread
	m.SpreadAbs = agg.EffectiveSpread
	if agg.WeightedMid > 0 {
		m.SpreadPct = agg.EffectiveSpread / agg.WeightedMid * 100
	}

	// 24h venue volume scaled to a 1h short window and the full day.
	m.VolumeShortUSD = agg.TotalVolume24hUSD / 24
	m.VolumeLongUSD = agg.TotalVolume24hUSD

	// Spread-proportional volatility estimates pending a tick-history source.
	if agg.WeightedMid > 0 {
		rel := math.Abs(agg.EffectiveSpread) / agg.WeightedMid
		m.VolatilityShort = rel * 2
		m.VolatilityLong = rel * 6
	}

	m.ImpactSmall = MarketImpact(SmallTradeUSD)
	m.ImpactMedium = MarketImpact(MediumTradeUSD)
	m.ImpactLarge = MarketImpact(LargeTradeUSD)

	e.mu.Lock()
	e.cache[instrument] = m
	e.mu.Unlock()
	return &m
}

// Cached returns the last computed metrics for the instrument.
func (e *Engine) Cached(instrument string) (domain.LiquidityMetrics, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.cache[instrument]
	return m, ok
}

// Refresh recomputes metrics for every listed instrument. Instruments without
// a snapshot are skipped.
func (e *Engine) Refresh(instruments []string) {
	for _, in := range instruments {
		if e.Compute(in) == nil {
			log.Debug().Str("instrument", in).Msg("metrics refresh skipped: no snapshot")
		}
	}
}
