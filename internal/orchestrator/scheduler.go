// Package orchestrator drives registered strategy modules on a fixed cadence
// inside a bounded session, gated by a risk check and a daily profit target.
package orchestrator

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/crossbook/internal/risk"
)

// Module is the strategy contract the scheduler ticks. Implementations must
// return promptly from RunTick; long-running work belongs on the module's own
// goroutines.
type Module interface {
	Name() string
	Initialize() error
	RunTick() error
}

// StatsProvider is optionally implemented by modules that expose counters.
type StatsProvider interface {
	Stats() map[string]any
}

// RiskChecker reports whether the session must halt. Satisfied by *risk.Gate.
type RiskChecker interface {
	Check(ctx context.Context) bool
}

// State is the session's lifecycle position. Both halt states are terminal.
type State int

const (
	StateRunning State = iota
	StateHaltedByRisk
	StateCompletedOnTarget
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateHaltedByRisk:
		return "halted_by_risk"
	case StateCompletedOnTarget:
		return "completed_on_target"
	default:
		return "unknown"
	}
}

// TickHook observes every module tick with its duration and outcome. Used to
// feed telemetry; must return promptly.
type TickHook func(module string, elapsed time.Duration, err error)

// Config holds session parameters.
type Config struct {
	DailyTargetUSD   float64         `yaml:"daily_target_usd"`
	StartEquityUSD   float64         `yaml:"start_equity_usd"`
	MinTickInterval  time.Duration   `yaml:"min_tick_interval"`
	ProgressInterval time.Duration   `yaml:"progress_interval"`
	LoopSleep        time.Duration   `yaml:"loop_sleep"`
	Instruments      []string        `yaml:"instruments"`
	EnabledModules   map[string]bool `yaml:"enabled_modules"`
}

// Scheduler runs the cooperative single-threaded session loop. lastTick and
// lastProgress are owned exclusively by Run.
type Scheduler struct {
	cfg     Config
	riskChk RiskChecker
	equity  risk.EquityProvider
	modules []Module

	state        State
	lastTick     time.Time
	lastProgress time.Time

	tickHook TickHook

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewScheduler creates a scheduler. riskChk and equity may be nil; the
// corresponding loop steps are then skipped.
func NewScheduler(cfg Config, riskChk RiskChecker, equity risk.EquityProvider) *Scheduler {
	if cfg.LoopSleep <= 0 {
		cfg.LoopSleep = 200 * time.Millisecond
	}
	return &Scheduler{
		cfg:     cfg,
		riskChk: riskChk,
		equity:  equity,
		now:     time.Now,
		sleep:   ctxSleep,
	}
}

func ctxSleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Register adds a module in tick order. A module disabled through
// EnabledModules is skipped with a log line.
func (s *Scheduler) Register(m Module) {
	if s.cfg.EnabledModules != nil {
		if enabled, ok := s.cfg.EnabledModules[m.Name()]; ok && !enabled {
			log.Info().Str("module", m.Name()).Msg("module disabled by config")
			return
		}
	}
	s.modules = append(s.modules, m)
}

// SetTickHook installs an observer for module ticks.
func (s *Scheduler) SetTickHook(h TickHook) {
	s.tickHook = h
}

// Modules returns the registered module names in tick order.
func (s *Scheduler) Modules() []string {
	names := make([]string, len(s.modules))
	for i, m := range s.modules {
		names[i] = m.Name()
	}
	return names
}

// ModuleStats collects counters from every registered module that implements
// StatsProvider, keyed by module name.
func (s *Scheduler) ModuleStats() map[string]map[string]any {
	out := make(map[string]map[string]any)
	for _, m := range s.modules {
		if sp, ok := m.(StatsProvider); ok {
			out[m.Name()] = sp.Stats()
		}
	}
	return out
}

// State returns the session state.
func (s *Scheduler) State() State {
	return s.state
}

// Initialize runs each module's initializer. Failures are logged and the
// module stays registered; initialization is best-effort.
func (s *Scheduler) Initialize() {
	for _, m := range s.modules {
		if err := m.Initialize(); err != nil {
			log.Error().Err(err).Str("module", m.Name()).Msg("module initialization failed")
			continue
		}
		log.Info().Str("module", m.Name()).Msg("module initialized")
	}
}

// Run executes the session loop until the duration elapses or a terminal
// transition fires, and returns the final state. Cancellation is cooperative,
// checked once per iteration.
func (s *Scheduler) Run(ctx context.Context, maxDuration time.Duration) State {
	ctx, cancel := context.WithTimeout(ctx, maxDuration)
	defer cancel()

	s.state = StateRunning
	log.Info().
		Dur("max_duration", maxDuration).
		Int("modules", len(s.modules)).
		Float64("daily_target_usd", s.cfg.DailyTargetUSD).
		Msg("session started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("state", s.state.String()).Msg("session duration elapsed")
			return s.state
		default:
		}

		if s.riskChk != nil && s.riskChk.Check(ctx) {
			s.state = StateHaltedByRisk
			log.Warn().Msg("session halted by risk gate")
			return s.state
		}

		now := s.now()
		if now.Sub(s.lastTick) >= s.cfg.MinTickInterval {
			s.tickAll()
			s.lastTick = now
		}

		if s.equity != nil && now.Sub(s.lastProgress) >= s.cfg.ProgressInterval {
			if s.checkProgress(ctx) {
				s.state = StateCompletedOnTarget
				log.Info().Msg("daily target reached, session complete")
				return s.state
			}
			s.lastProgress = now
		}

		s.sleep(ctx, s.cfg.LoopSleep)
	}
}

// tickAll runs every module in registration order. A failed tick is logged
// and neither the session nor the remaining modules are aborted.
func (s *Scheduler) tickAll() {
	for _, m := range s.modules {
		start := s.now()
		err := m.RunTick()
		elapsed := s.now().Sub(start)
		if s.tickHook != nil {
			s.tickHook(m.Name(), elapsed, err)
		}
		if err != nil {
			log.Error().Err(err).Str("module", m.Name()).Msg("module tick failed")
			continue
		}
		log.Debug().
			Str("module", m.Name()).
			Dur("elapsed", elapsed).
			Msg("module ticked")
	}
}

// checkProgress logs realized PnL against the daily target and reports
// whether the target is met. Equity accessor errors are no signal.
func (s *Scheduler) checkProgress(ctx context.Context) bool {
	equity, err := s.equity.GetEquityUSD(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("progress check failed, skipping this cycle")
		return false
	}

	realized := math.Max(0, equity-s.cfg.StartEquityUSD)
	remaining := math.Max(0, s.cfg.DailyTargetUSD-realized)
	log.Info().
		Float64("equity_usd", equity).
		Float64("realized_usd", realized).
		Float64("remaining_usd", remaining).
		Float64("target_usd", s.cfg.DailyTargetUSD).
		Msg("session progress")

	return s.cfg.DailyTargetUSD > 0 && realized >= s.cfg.DailyTargetUSD
}
