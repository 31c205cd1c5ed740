package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tradeforge/crossbook/internal/engine"
	"github.com/tradeforge/crossbook/internal/events"
	"github.com/tradeforge/crossbook/internal/feed"
	"github.com/tradeforge/crossbook/internal/httpapi"
	"github.com/tradeforge/crossbook/internal/stream"
)

func newServeCmd() *cobra.Command {
	var (
		addr string
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP monitoring API over a live simulated feed",
		Long: `Runs the simulated feed and aggregation loops and exposes the monitoring
surface: /health, /sources, /snapshot/{instrument}, /metrics/{instrument},
/route, /metrics (Prometheus), and /ws (event stream).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = app.cfg.HTTP.ListenAddr
			}
			return serve(cmd.Context(), app, addr, seed)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to config)")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Feed random seed")
	return cmd
}

func serve(parent context.Context, app *app, addr string, seed int64) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	simFeed := feed.NewSimFeed(app.registry, app.store, app.cfg.Instruments,
		time.Duration(app.cfg.Feed.RefreshIntervalMs)*time.Millisecond, seed)
	runtime := engine.NewRuntime(simFeed, app.agg, app.liq, app.bus, app.metrics,
		app.cfg.Instruments, time.Duration(app.cfg.Metrics.RefreshIntervalMs)*time.Millisecond)
	go runtime.Run(ctx)

	hub := stream.NewHub(app.bus)
	go hub.Run(ctx)

	if app.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{Addr: app.cfg.Redis.Addr})
		pub := events.NewRedisPublisher(client, app.bus, app.cfg.Redis.Channel)
		go pub.Run(ctx)
		log.Info().Str("addr", app.cfg.Redis.Addr).Str("channel", app.cfg.Redis.Channel).
			Msg("redis event publisher enabled")
	}

	srv := httpapi.NewServer(addr, app.registry, app.agg, app.router, app.liq, app.metrics, hub)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
