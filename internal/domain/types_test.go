package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiquiditySourceSupports(t *testing.T) {
	tests := []struct {
		name        string
		instruments []string
		query       string
		want        bool
	}{
		{"listed instrument", []string{"BTC-USD", "ETH-USD"}, "BTC-USD", true},
		{"unlisted instrument", []string{"BTC-USD"}, "ETH-USD", false},
		{"empty list quotes everything", nil, "SOL-USD", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := LiquiditySource{ID: "x", Instruments: tt.instruments}
			assert.Equal(t, tt.want, src.Supports(tt.query))
		})
	}
}

func TestLiquiditySourceCloneIsIndependent(t *testing.T) {
	src := LiquiditySource{ID: "a", Instruments: []string{"BTC-USD"}}
	cp := src.Clone()
	cp.Instruments[0] = "ETH-USD"
	assert.Equal(t, "BTC-USD", src.Instruments[0])
}

func TestOrderBookRecalculate(t *testing.T) {
	book := OrderBook{
		Bids: []OrderBookLevel{{Price: 100, Size: 5}},
		Asks: []OrderBookLevel{{Price: 101, Size: 5}},
	}
	book.Recalculate()
	assert.InDelta(t, 1.0, book.Spread, 1e-9)
	assert.InDelta(t, 100.5, book.MidPrice, 1e-9)
}

func TestOrderBookRecalculateOneSided(t *testing.T) {
	book := OrderBook{Bids: []OrderBookLevel{{Price: 100, Size: 5}}}
	book.Recalculate()
	assert.Zero(t, book.Spread)
	assert.Zero(t, book.MidPrice)
}

func TestOrderBookValidate(t *testing.T) {
	tests := []struct {
		name    string
		bids    []OrderBookLevel
		asks    []OrderBookLevel
		wantErr bool
	}{
		{
			name: "well formed",
			bids: []OrderBookLevel{{Price: 100}, {Price: 99.5}},
			asks: []OrderBookLevel{{Price: 101}, {Price: 101.5}},
		},
		{
			name:    "bids not descending",
			bids:    []OrderBookLevel{{Price: 100}, {Price: 100}},
			wantErr: true,
		},
		{
			name:    "asks not ascending",
			asks:    []OrderBookLevel{{Price: 101}, {Price: 100.5}},
			wantErr: true,
		},
		{name: "empty book is valid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := OrderBook{Bids: tt.bids, Asks: tt.asks}
			err := book.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestOrderBookCloneIsIndependent(t *testing.T) {
	book := OrderBook{
		Timestamp: time.Now(),
		Bids:      []OrderBookLevel{{Price: 100, Size: 5}},
		Asks:      []OrderBookLevel{{Price: 101, Size: 5}},
	}
	cp := book.Clone()
	cp.Bids[0].Price = 1
	assert.Equal(t, 100.0, book.Bids[0].Price)
}

func TestSmartRoutePartial(t *testing.T) {
	full := SmartRoute{RequestedSize: 1, FilledSize: 1}
	partial := SmartRoute{RequestedSize: 1, FilledSize: 0.4}
	assert.False(t, full.Partial())
	assert.True(t, partial.Partial())
}
