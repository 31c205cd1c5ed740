// Package engine wires the ingestion, aggregation, and metrics loops
// together. Book refresh and metrics computation run on their own timers,
// independent of the orchestrator session.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/events"
	"github.com/tradeforge/crossbook/internal/feed"
	"github.com/tradeforge/crossbook/internal/liqmetrics"
	"github.com/tradeforge/crossbook/internal/telemetry"
)

// Runtime owns the background loops around the liquidity core.
type Runtime struct {
	feed        feed.Feed
	agg         *aggregate.Aggregator
	liq         *liqmetrics.Engine
	bus         *events.Bus
	metrics     *telemetry.Metrics
	instruments []string

	metricsInterval time.Duration
}

// NewRuntime assembles the loops. metrics may be nil.
func NewRuntime(f feed.Feed, agg *aggregate.Aggregator, liq *liqmetrics.Engine,
	bus *events.Bus, metrics *telemetry.Metrics, instruments []string,
	metricsInterval time.Duration) *Runtime {
	if metricsInterval <= 0 {
		metricsInterval = 5 * time.Second
	}
	return &Runtime{
		feed:            f,
		agg:             agg,
		liq:             liq,
		bus:             bus,
		metrics:         metrics,
		instruments:     instruments,
		metricsInterval: metricsInterval,
	}
}

// Run starts the feed, the metrics refresh loop, and the telemetry pump, and
// blocks until ctx is cancelled.
func (r *Runtime) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	if r.feed != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.feed.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("feed stopped")
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		r.metricsLoop(ctx)
	}()

	if r.metrics != nil && r.bus != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.telemetryPump(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return ctx.Err()
}

// metricsLoop recomputes liquidity metrics on the slow cadence and refreshes
// the per-instrument snapshot gauges.
func (r *Runtime) metricsLoop(ctx context.Context) {
	ticker := time.NewTicker(r.metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.liq.Refresh(r.instruments)
			if r.metrics != nil {
				for _, in := range r.instruments {
					count := 0
					if snap := r.agg.Snapshot(in); snap != nil {
						count = snap.Aggregated.SourceCount
					}
					r.metrics.SnapshotSources.WithLabelValues(in).Set(float64(count))
				}
			}
		}
	}
}

// telemetryPump counts bus events into Prometheus collectors.
func (r *Runtime) telemetryPump(ctx context.Context) {
	ch, cancel := r.bus.Subscribe(512)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			switch evt.Type {
			case events.TypeBookUpdated:
				r.metrics.BookUpdates.WithLabelValues(evt.SourceID).Inc()
			case events.TypeBookRejected:
				r.metrics.BookErrors.WithLabelValues(evt.SourceID).Inc()
			case events.TypeRouteGenerated:
				r.metrics.RouteRequests.WithLabelValues(evt.Instrument, "ok").Inc()
			}
		}
	}
}
