package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradeforge/crossbook/internal/engine"
	"github.com/tradeforge/crossbook/internal/events"
	"github.com/tradeforge/crossbook/internal/feed"
	"github.com/tradeforge/crossbook/internal/orchestrator"
	"github.com/tradeforge/crossbook/internal/risk"
)

func newRunCmd() *cobra.Command {
	var (
		duration    time.Duration
		maxDrawdown float64
		seed        int64
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a full risk-gated session with the simulated feed",
		Long: `Starts the simulated market feed, the aggregation and metrics loops, and
the orchestrator session. The session ends when the configured duration
elapses, the daily target is met, or the drawdown kill switch trips.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			return runSession(cmd.Context(), app, duration, maxDrawdown, seed)
		},
	}

	cmd.Flags().DurationVar(&duration, "duration", 0, "Session duration (0 = use config)")
	cmd.Flags().Float64Var(&maxDrawdown, "max-drawdown", 0.05, "Kill-switch drawdown fraction from start equity")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Feed random seed")
	return cmd
}

func runSession(parent context.Context, app *app, duration time.Duration, maxDrawdown float64, seed int64) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ocfg := app.cfg.Orchestrator
	if duration <= 0 {
		duration = ocfg.SessionDuration()
	}

	simFeed := feed.NewSimFeed(app.registry, app.store, app.cfg.Instruments,
		time.Duration(app.cfg.Feed.RefreshIntervalMs)*time.Millisecond, seed)
	runtime := engine.NewRuntime(simFeed, app.agg, app.liq, app.bus, app.metrics,
		app.cfg.Instruments, time.Duration(app.cfg.Metrics.RefreshIntervalMs)*time.Millisecond)
	go runtime.Run(ctx)

	if app.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: app.cfg.Redis.Addr})
		pub := events.NewRedisPublisher(client, app.bus, app.cfg.Redis.Channel)
		go pub.Run(ctx)
		log.Info().Str("addr", app.cfg.Redis.Addr).Str("channel", app.cfg.Redis.Channel).
			Msg("redis event publisher enabled")
	}

	equity := newPaperEquity(ocfg.StartEquityUSD)
	gate := risk.NewGate(equity, risk.NewDrawdownSwitch(ocfg.StartEquityUSD, maxDrawdown), 0)

	sched := orchestrator.NewScheduler(orchestrator.Config{
		DailyTargetUSD:   ocfg.DailyTargetUSD,
		StartEquityUSD:   ocfg.StartEquityUSD,
		MinTickInterval:  ocfg.MinTickInterval(),
		ProgressInterval: ocfg.ProgressInterval(),
		Instruments:      app.cfg.Instruments,
		EnabledModules:   ocfg.EnabledModules,
	}, gate, equity)
	sched.Register(newRouteProbe(app, equity))
	sched.SetTickHook(func(module string, elapsed time.Duration, err error) {
		status := "ok"
		if err != nil {
			status = "error"
		}
		app.metrics.ModuleTicks.WithLabelValues(module, status).Inc()
		app.metrics.TickDuration.WithLabelValues(module).Observe(elapsed.Seconds())
	})
	sched.Initialize()

	app.metrics.SessionState.Set(float64(orchestrator.StateRunning))
	final := sched.Run(ctx, duration)
	app.metrics.SessionState.Set(float64(final))
	cancel()

	for name, stats := range sched.ModuleStats() {
		log.Info().Str("module", name).Fields(stats).Msg("module stats")
	}
	log.Info().Str("state", final.String()).Msg("session finished")
	return nil
}
