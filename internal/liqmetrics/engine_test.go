package liqmetrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/registry"
)

func TestMarketImpact(t *testing.T) {
	tests := []struct {
		name     string
		notional float64
		want     float64
	}{
		{"zero", 0, 0},
		{"negative", -100, 0},
		{"one million", 1_000_000, 0.001},
		{"small trade", 10_000, math.Sqrt(0.01) * 0.001},
		{"capped at ten percent", 1e16, 0.10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MarketImpact(tt.notional), 1e-12)
		})
	}
}

func TestMarketImpactMonotone(t *testing.T) {
	assert.Less(t, MarketImpact(SmallTradeUSD), MarketImpact(MediumTradeUSD))
	assert.Less(t, MarketImpact(MediumTradeUSD), MarketImpact(LargeTradeUSD))
}

func newFixture(t *testing.T) (*registry.Registry, *books.Store, *Engine) {
	t.Helper()
	reg := registry.New(nil)
	store := books.NewStore(nil, nil)
	return reg, store, NewEngine(aggregate.New(reg, store))
}

func seedBook(t *testing.T, reg *registry.Registry, store *books.Store) {
	t.Helper()
	reg.Add(domain.LiquiditySource{ID: "a", Active: true, Reliability: 1})
	require.NoError(t, store.Update("a", "BTC-USD", domain.OrderBook{
		Timestamp:    time.Now(),
		Bids:         []domain.OrderBookLevel{{Price: 100, Size: 5}},
		Asks:         []domain.OrderBookLevel{{Price: 101, Size: 4}},
		Volume24hUSD: 2_400_000,
	}))
}

func TestComputeWithoutSnapshot(t *testing.T) {
	_, _, eng := newFixture(t)
	assert.Nil(t, eng.Compute("BTC-USD"))

	_, ok := eng.Cached("BTC-USD")
	assert.False(t, ok)
}

func TestComputeAndCache(t *testing.T) {
	reg, store, eng := newFixture(t)
	seedBook(t, reg, store)

	m := eng.Compute("BTC-USD")
	require.NotNil(t, m)
	assert.Equal(t, "BTC-USD", m.Instrument)
	assert.InDelta(t, 1.0, m.SpreadAbs, 1e-9)
	assert.InDelta(t, 100_000, m.VolumeShortUSD, 1e-6, "24h volume over a 1h window")
	assert.Equal(t, 2_400_000.0, m.VolumeLongUSD)

	assert.Equal(t, 5.0, m.BidDepth[1])
	assert.Equal(t, 4.0, m.AskDepth[1])
	assert.Equal(t, 50.0, m.BidDepth[10])

	assert.Greater(t, m.VolatilityLong, m.VolatilityShort)
	assert.InDelta(t, MarketImpact(SmallTradeUSD), m.ImpactSmall, 1e-12)

	cached, ok := eng.Cached("BTC-USD")
	require.True(t, ok)
	assert.Equal(t, *m, cached)
}

func TestRefresh(t *testing.T) {
	reg, store, eng := newFixture(t)
	seedBook(t, reg, store)

	eng.Refresh([]string{"BTC-USD", "ETH-USD"})

	_, ok := eng.Cached("BTC-USD")
	assert.True(t, ok)
	_, ok = eng.Cached("ETH-USD")
	assert.False(t, ok, "instrument without a snapshot stays uncached")
}
