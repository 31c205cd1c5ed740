package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tradeforge/crossbook/internal/domain"
	"github.com/tradeforge/crossbook/internal/feed"
)

func newRouteCmd() *cobra.Command {
	var (
		instrument string
		side       string
		size       float64
		seed       int64
	)

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Generate one smart route against a fresh simulated snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}

			s := domain.Side(side)
			if s != domain.SideBuy && s != domain.SideSell {
				return fmt.Errorf("invalid side %q: want buy or sell", side)
			}
			if size <= 0 {
				return fmt.Errorf("size must be positive, got %v", size)
			}
			if instrument == "" {
				instrument = app.cfg.Instruments[0]
			}

			simFeed := feed.NewSimFeed(app.registry, app.store, app.cfg.Instruments, time.Second, seed)
			simFeed.Refresh(cmd.Context())

			route := app.router.Route(instrument, s, size)
			if route == nil {
				return fmt.Errorf("no route available for %s", instrument)
			}

			out, err := json.MarshalIndent(route, "", "  ")
			if err != nil {
				return fmt.Errorf("encode route: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&instrument, "instrument", "", "Instrument (defaults to first configured)")
	cmd.Flags().StringVar(&side, "side", "buy", "Order side (buy|sell)")
	cmd.Flags().Float64Var(&size, "size", 1, "Order size in base units")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "Feed random seed")
	return cmd
}
