package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradeforge/crossbook/internal/aggregate"
	"github.com/tradeforge/crossbook/internal/books"
	"github.com/tradeforge/crossbook/internal/config"
	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/events"
	"github.com/tradeforge/crossbook/internal/liqmetrics"
	"github.com/tradeforge/crossbook/internal/registry"
	"github.com/tradeforge/crossbook/internal/router"
	"github.com/tradeforge/crossbook/internal/telemetry"
)

// app bundles the wired liquidity core shared by all subcommands.
type app struct {
	cfg      config.Config
	bus      *events.Bus
	registry *registry.Registry
	store    *books.Store
	agg      *aggregate.Aggregator
	router   *router.Router
	liq      *liqmetrics.Engine
	metrics  *telemetry.Metrics
}

// buildApp loads config and assembles the core. With no config file and no
// declared sources, a three-venue demo registry is installed so run/route
// work out of the box.
func buildApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")

	cfg := config.Default()
	if path != "" {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") {
		level = cfg.LogLevel
	}
	setLogLevel(level)

	bus := events.NewBus()
	reg := registry.New(bus)
	for _, sc := range cfg.Sources {
		reg.Add(sc.ToDomain())
	}
	if reg.Len() == 0 {
		for _, src := range demoSources(cfg.Instruments) {
			reg.Add(src)
		}
		log.Info().Int("sources", reg.Len()).Msg("no sources configured, using demo registry")
	}

	store := books.NewStore(reg, bus)
	agg := aggregate.New(reg, store)

	return &app{
		cfg:      cfg,
		bus:      bus,
		registry: reg,
		store:    store,
		agg:      agg,
		router:   router.New(agg, bus, router.Config{MaxBookUtilization: cfg.Router.MaxBookUtilization}),
		liq:      liqmetrics.NewEngine(agg),
		metrics:  telemetry.NewMetrics(),
	}, nil
}

func demoSources(instruments []string) []domain.LiquiditySource {
	return []domain.LiquiditySource{
		{
			ID: "alpha", Name: "Alpha Exchange", Kind: domain.SourceExchange,
			Active: true, Priority: 1,
			Fees:            domain.FeeSchedule{Maker: 0.0008, Taker: 0.001},
			RateLimitPerSec: 10, Instruments: instruments, Reliability: 0.98,
		},
		{
			ID: "beta", Name: "Beta Markets", Kind: domain.SourceExchange,
			Active: true, Priority: 2,
			Fees:            domain.FeeSchedule{Maker: 0.001, Taker: 0.0015},
			RateLimitPerSec: 5, Instruments: instruments, Reliability: 0.93,
		},
		{
			ID: "gammaswap", Name: "GammaSwap", Kind: domain.SourceDEX,
			Active: true, Priority: 3,
			Fees:            domain.FeeSchedule{Taker: 0.003},
			RateLimitPerSec: 2, Instruments: instruments, Reliability: 0.85,
		},
	}
}
