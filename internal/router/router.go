// Package router allocates a requested order size across venues to minimize
// estimated execution cost while bounding per-venue market impact.
package router

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/events"
)

// DefaultMaxBookUtilization caps how much of a source's visible top-of-book
// size a single route may consume.
const DefaultMaxBookUtilization = 0.10

// Config tunes routing behavior.
type Config struct {
	// MaxBookUtilization is the fraction of visible top-of-book size a
	// segment may take from one source. Defaults to 0.10.
	MaxBookUtilization float64 `yaml:"max_book_utilization"`
}

// Router produces smart routes from live snapshots.
type Router struct {
	agg *aggregate.Aggregator
	bus *events.Bus
	cfg Config
	now func() time.Time
}

// New creates a router. bus may be nil.
func New(agg *aggregate.Aggregator, bus *events.Bus, cfg Config) *Router {
	if cfg.MaxBookUtilization <= 0 || cfg.MaxBookUtilization > 1 {
		cfg.MaxBookUtilization = DefaultMaxBookUtilization
	}
	return &Router{agg: agg, bus: bus, cfg: cfg, now: time.Now}
}

// SetClock overrides the time source. Test hook.
func (r *Router) SetClock(now func() time.Time) {
	r.now = now
}

// QualityScore ranks a source for routing: high reliability, low latency,
// tight spread.
func QualityScore(q domain.SourceQuote) float64 {
	return q.Reliability * 1 / (1 + q.LatencyMs/1000) * 1 / (1 + q.SpreadPct/100)
}

// EstimateSlippage models per-segment slippage as a convex function of book
// utilization: (spreadPct/100) × utilization². Small clips stay cheap;
// consuming most of the visible book is heavily penalized.
func EstimateSlippage(spreadPct, allocatedSize, availableSize float64) float64 {
	if availableSize <= 0 {
		return 0
	}
	utilization := allocatedSize / availableSize
	return (spreadPct / 100) * utilization * utilization
}

// Route allocates size across venues for (instrument, side). Returns nil when
// no snapshot is available. A route whose FilledSize is below the request is
// partial; the remainder is simply unallocated.
func (r *Router) Route(instrument string, side domain.Side, size float64) *domain.SmartRoute {
	if size <= 0 {
		return nil
	}
	snap := r.agg.Snapshot(instrument)
	if snap == nil {
		log.Debug().Str("instrument", instrument).Msg("no snapshot, route unavailable")
		return nil
	}

	// Stable sort keeps insertion order on equal scores.
	quotes := append([]domain.SourceQuote(nil), snap.Sources...)
	sort.SliceStable(quotes, func(i, j int) bool {
		return QualityScore(quotes[i]) > QualityScore(quotes[j])
	})

	route := &domain.SmartRoute{
		ID:            uuid.NewString(),
		Instrument:    instrument,
		Side:          side,
		RequestedSize: size,
		Confidence:    1,
		CreatedAt:     r.now().UTC(),
	}

	remaining := size
	for _, q := range quotes {
		if remaining <= 0 {
			break
		}

		price, available := q.BestAsk, q.AskSize
		if side == domain.SideSell {
			price, available = q.BestBid, q.BidSize
		}

		alloc := available * r.cfg.MaxBookUtilization
		if alloc > remaining {
			alloc = remaining
		}
		if alloc <= 0 {
			continue
		}

		seg := domain.RouteSegment{
			SourceID:    q.SourceID,
			Size:        alloc,
			Price:       price,
			FeeUSD:      alloc * price * q.TakerFee,
			EstSlippage: EstimateSlippage(q.SpreadPct, alloc, available),
			LatencyMs:   q.LatencyMs,
			Priority:    q.Priority,
		}
		route.Segments = append(route.Segments, seg)

		route.FilledSize += alloc
		route.TotalCostUSD += alloc * price
		route.TotalFeesUSD += seg.FeeUSD
		route.EstSlippage += seg.EstSlippage
		route.Confidence *= q.Reliability
		if risk := 1 - q.Reliability; risk > route.RiskScore {
			route.RiskScore = risk
		}
		if q.LatencyMs > route.ExecTimeMs {
			route.ExecTimeMs = q.LatencyMs
		}

		remaining -= alloc
	}

	if len(route.Segments) == 0 {
		log.Debug().Str("instrument", instrument).Msg("no allocatable liquidity, route unavailable")
		return nil
	}
	route.TotalCostUSD += route.TotalFeesUSD

	log.Debug().
		Str("route", route.ID).
		Str("instrument", instrument).
		Str("side", string(side)).
		Float64("requested", size).
		Float64("filled", route.FilledSize).
		Int("segments", len(route.Segments)).
		Msg("route generated")
	if r.bus != nil {
		r.bus.Publish(events.Event{
			Type:       events.TypeRouteGenerated,
			Instrument: instrument,
			Payload:    *route,
		})
	}
	return route
}
