package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/events"
	"github.com/tradeforge/crossbook/internal/liqmetrics"
	"github.com/tradeforge/crossbook/internal/registry"
	"github.com/tradeforge/crossbook/internal/telemetry"
)

func counterValue(t *testing.T, m *telemetry.Metrics, family string) float64 {
	t.Helper()
	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != family {
			continue
		}
		for _, metric := range mf.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func TestTelemetryPumpCountsBusEvents(t *testing.T) {
	bus := events.NewBus()
	metrics := telemetry.NewMetrics()
	reg := registry.New(nil)
	store := books.NewStore(nil, nil)
	agg := aggregate.New(reg, store)
	liq := liqmetrics.NewEngine(agg)

	rt := NewRuntime(nil, agg, liq, bus, metrics, []string{"BTC-USD"}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()

	// Give the pump a moment to subscribe before publishing.
	require.Eventually(t, func() bool { return bus.Subscribers() > 0 },
		time.Second, time.Millisecond)

	bus.Publish(events.Event{Type: events.TypeBookUpdated, SourceID: "alpha"})
	bus.Publish(events.Event{Type: events.TypeBookUpdated, SourceID: "alpha"})
	bus.Publish(events.Event{Type: events.TypeBookRejected, SourceID: "beta"})
	bus.Publish(events.Event{Type: events.TypeRouteGenerated, Instrument: "BTC-USD"})

	require.Eventually(t, func() bool {
		return counterValue(t, metrics, "crossbook_book_updates_total") == 2 &&
			counterValue(t, metrics, "crossbook_book_errors_total") == 1 &&
			counterValue(t, metrics, "crossbook_route_requests_total") == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestMetricsLoopRefreshesLiquidity(t *testing.T) {
	bus := events.NewBus()
	reg := registry.New(nil)
	store := books.NewStore(nil, nil)
	agg := aggregate.New(reg, store)
	liq := liqmetrics.NewEngine(agg)

	reg.Add(domain.LiquiditySource{ID: "alpha", Active: true, Reliability: 1})
	require.NoError(t, store.Update("alpha", "BTC-USD", domain.OrderBook{
		Timestamp: time.Now(),
		Bids:      []domain.OrderBookLevel{{Price: 100, Size: 5}},
		Asks:      []domain.OrderBookLevel{{Price: 101, Size: 5}},
	}))

	rt := NewRuntime(nil, agg, liq, bus, telemetry.NewMetrics(), []string{"BTC-USD"}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := liq.Cached("BTC-USD")
		return ok
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
