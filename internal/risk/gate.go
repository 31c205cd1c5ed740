// Package risk gates the orchestrator on an external kill-switch and equity
// provider. Accessor failures are swallowed: only an explicit kill-switch
// verdict halts a session.
package risk

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// EquityProvider reports current account equity in USD.
type EquityProvider interface {
	GetEquityUSD(ctx context.Context) (float64, error)
}

// KillSwitch decides whether trading must stop at the given equity.
type KillSwitch interface {
	ShouldStop(equityUSD float64) bool
}

// DefaultCheckTimeout bounds each equity accessor call.
const DefaultCheckTimeout = 2 * time.Second

// Gate wraps the two external capabilities behind a circuit breaker so a
// flapping equity backend cannot stall the scheduler loop.
type Gate struct {
	equity  EquityProvider
	ks      KillSwitch
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

// NewGate builds a gate. timeout <= 0 falls back to DefaultCheckTimeout.
func NewGate(equity EquityProvider, ks KillSwitch, timeout time.Duration) *Gate {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	st := gobreaker.Settings{Name: "equity-provider"}
	st.Interval = 60 * time.Second
	st.Timeout = 30 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return &Gate{
		equity:  equity,
		ks:      ks,
		breaker: gobreaker.NewCircuitBreaker(st),
		timeout: timeout,
	}
}

// Equity fetches current equity through the breaker with a bounded timeout.
func (g *Gate) Equity(ctx context.Context) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	v, err := g.breaker.Execute(func() (any, error) {
		return g.equity.GetEquityUSD(ctx)
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

// Check evaluates the kill-switch against current equity. Returns true only
// on an explicit stop verdict. An equity failure (including an open breaker)
// is logged and treated as no signal this cycle.
func (g *Gate) Check(ctx context.Context) bool {
	if g.equity == nil || g.ks == nil {
		return false
	}
	equity, err := g.Equity(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("equity check failed, treating as no risk signal")
		return false
	}
	if g.ks.ShouldStop(equity) {
		log.Warn().Float64("equity_usd", equity).Msg("kill switch triggered")
		return true
	}
	return false
}
