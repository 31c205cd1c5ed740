package domain

import (
	"fmt"
	"time"
)

// SourceKind classifies a liquidity venue.
type SourceKind string

const (
	SourceExchange   SourceKind = "exchange"
	SourceDEX        SourceKind = "dex"
	SourceOTC        SourceKind = "otc"
	SourceAggregator SourceKind = "aggregator"
)

// Side is the direction of a routed order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// FeeSchedule holds the fee structure for a venue. Maker and taker fees are
// fractions (0.001 = 10 bps), withdrawal is a flat USD amount.
type FeeSchedule struct {
	Maker         float64 `json:"maker" yaml:"maker"`
	Taker         float64 `json:"taker" yaml:"taker"`
	WithdrawalUSD float64 `json:"withdrawal_usd" yaml:"withdrawal_usd"`
}

// LiquiditySource describes a venue the aggregator can draw liquidity from.
// Reliability is a score in [0,1]; AvgLatencyMs is a rolling average measured
// from book update timestamps.
type LiquiditySource struct {
	ID                string      `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name"`
	Kind              SourceKind  `json:"kind" yaml:"kind"`
	Active            bool        `json:"active" yaml:"active"`
	Priority          int         `json:"priority" yaml:"priority"`
	Fees              FeeSchedule `json:"fees" yaml:"fees"`
	MinOrderSize      float64     `json:"min_order_size" yaml:"min_order_size"`
	MaxOrderSize      float64     `json:"max_order_size" yaml:"max_order_size"`
	DailyVolumeCapUSD float64     `json:"daily_volume_cap_usd" yaml:"daily_volume_cap_usd"`
	RateLimitPerSec   float64     `json:"rate_limit_per_sec" yaml:"rate_limit_per_sec"`
	Instruments       []string    `json:"instruments" yaml:"instruments"`
	LastUpdate        time.Time   `json:"last_update" yaml:"-"`
	AvgLatencyMs      float64     `json:"avg_latency_ms" yaml:"-"`
	Reliability       float64     `json:"reliability" yaml:"reliability"`
}

// Supports reports whether the source quotes the given instrument. An empty
// instrument list means the source quotes everything.
func (s *LiquiditySource) Supports(instrument string) bool {
	if len(s.Instruments) == 0 {
		return true
	}
	for _, in := range s.Instruments {
		if in == instrument {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers never hold a live registry reference.
func (s LiquiditySource) Clone() LiquiditySource {
	cp := s
	if s.Instruments != nil {
		cp.Instruments = append([]string(nil), s.Instruments...)
	}
	return cp
}

// OrderBookLevel is a single price level.
type OrderBookLevel struct {
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	Orders int     `json:"orders"`
}

// OrderBook is one venue's view of an instrument. Bids are ordered by strictly
// descending price, asks by strictly ascending price.
type OrderBook struct {
	SourceID     string           `json:"source_id"`
	Instrument   string           `json:"instrument"`
	Timestamp    time.Time        `json:"timestamp"`
	Bids         []OrderBookLevel `json:"bids"`
	Asks         []OrderBookLevel `json:"asks"`
	Spread       float64          `json:"spread"`
	MidPrice     float64          `json:"mid_price"`
	Volume24hUSD float64          `json:"volume_24h_usd"`
}

// BestBid returns the top bid level.
func (b *OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the top ask level.
func (b *OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Asks[0], true
}

// Recalculate refreshes the derived spread and mid from the top of book. Both
// stay zero until both sides are populated.
func (b *OrderBook) Recalculate() {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	if !hasBid || !hasAsk {
		b.Spread = 0
		b.MidPrice = 0
		return
	}
	b.Spread = ask.Price - bid.Price
	b.MidPrice = (ask.Price + bid.Price) / 2
}

// Validate enforces the level ordering invariants.
func (b *OrderBook) Validate() error {
	for i := 1; i < len(b.Bids); i++ {
		if b.Bids[i].Price >= b.Bids[i-1].Price {
			return fmt.Errorf("bids not strictly descending at level %d: %.8f >= %.8f",
				i, b.Bids[i].Price, b.Bids[i-1].Price)
		}
	}
	for i := 1; i < len(b.Asks); i++ {
		if b.Asks[i].Price <= b.Asks[i-1].Price {
			return fmt.Errorf("asks not strictly ascending at level %d: %.8f <= %.8f",
				i, b.Asks[i].Price, b.Asks[i-1].Price)
		}
	}
	return nil
}

// Clone deep-copies the book including its level slices.
func (b OrderBook) Clone() OrderBook {
	cp := b
	if b.Bids != nil {
		cp.Bids = append([]OrderBookLevel(nil), b.Bids...)
	}
	if b.Asks != nil {
		cp.Asks = append([]OrderBookLevel(nil), b.Asks...)
	}
	return cp
}

// SourceQuote is one venue's contribution to a snapshot: its top of book plus
// the health attributes routing scores on.
type SourceQuote struct {
	SourceID     string  `json:"source_id"`
	BestBid      float64 `json:"best_bid"`
	BestAsk      float64 `json:"best_ask"`
	BidSize      float64 `json:"bid_size"`
	AskSize      float64 `json:"ask_size"`
	Spread       float64 `json:"spread"`
	SpreadPct    float64 `json:"spread_pct"`
	MidPrice     float64 `json:"mid_price"`
	Volume24hUSD float64 `json:"volume_24h_usd"`
	LatencyMs    float64 `json:"latency_ms"`
	Reliability  float64 `json:"reliability"`
	Priority     int     `json:"priority"`
	TakerFee     float64 `json:"taker_fee"`
}

// AggregatedView is the cross-venue rollup inside a snapshot. EffectiveSpread
// may be negative when venues are crossed; that signals an arbitrage
// condition, not an error.
type AggregatedView struct {
	BestBid           float64 `json:"best_bid"`
	BestAsk           float64 `json:"best_ask"`
	TotalBidSize      float64 `json:"total_bid_size"`
	TotalAskSize      float64 `json:"total_ask_size"`
	WeightedMid       float64 `json:"weighted_mid"`
	EffectiveSpread   float64 `json:"effective_spread"`
	TotalVolume24hUSD float64 `json:"total_volume_24h_usd"`
	SourceCount       int     `json:"source_count"`
}

// LiquiditySnapshot is the unified per-instrument view built from current
// store contents. It is ephemeral and never persisted.
type LiquiditySnapshot struct {
	Instrument string         `json:"instrument"`
	Timestamp  time.Time      `json:"timestamp"`
	Sources    []SourceQuote  `json:"sources"`
	Aggregated AggregatedView `json:"aggregated"`
}

// RouteSegment is one venue's allocation inside a smart route. EstSlippage is
// a fraction of notional (0.001 = 10 bps).
type RouteSegment struct {
	SourceID    string  `json:"source_id"`
	Size        float64 `json:"size"`
	Price       float64 `json:"price"`
	FeeUSD      float64 `json:"fee_usd"`
	EstSlippage float64 `json:"est_slippage"`
	LatencyMs   float64 `json:"latency_ms"`
	Priority    int     `json:"priority"`
}

// SmartRoute is an allocation of a requested size across venues. FilledSize
// may fall short of RequestedSize when visible liquidity is insufficient; the
// remainder is simply not allocated.
type SmartRoute struct {
	ID            string         `json:"id"`
	Instrument    string         `json:"instrument"`
	Side          Side           `json:"side"`
	RequestedSize float64        `json:"requested_size"`
	Segments      []RouteSegment `json:"segments"`
	FilledSize    float64        `json:"filled_size"`
	TotalCostUSD  float64        `json:"total_cost_usd"`
	TotalFeesUSD  float64        `json:"total_fees_usd"`
	EstSlippage   float64        `json:"est_slippage"`
	ExecTimeMs    float64        `json:"exec_time_ms"`
	Confidence    float64        `json:"confidence"`
	RiskScore     float64        `json:"risk_score"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Partial reports whether the route covers less than the requested size.
func (r *SmartRoute) Partial() bool {
	return r.FilledSize < r.RequestedSize
}

// LiquidityMetrics holds derived depth/spread/volume/impact statistics for an
// instrument. Recomputed per cycle, never persisted.
type LiquidityMetrics struct {
	Instrument      string          `json:"instrument"`
	Timestamp       time.Time       `json:"timestamp"`
	BidDepth        map[int]float64 `json:"bid_depth"`
	AskDepth        map[int]float64 `json:"ask_depth"`
	SpreadAbs       float64         `json:"spread_abs"`
	SpreadPct       float64         `json:"spread_pct"`
	EffectiveSpread float64         `json:"effective_spread"`
	VolumeShortUSD  float64         `json:"volume_short_usd"`
	VolumeLongUSD   float64         `json:"volume_long_usd"`
	VolatilityShort float64         `json:"volatility_short"`
	VolatilityLong  float64         `json:"volatility_long"`
	ImpactSmall     float64         `json:"impact_small"`
	ImpactMedium    float64         `json:"impact_medium"`
	ImpactLarge     float64         `json:"impact_large"`
}
