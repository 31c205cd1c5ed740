package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newSourcesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List the configured liquidity sources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := buildApp(cmd)
			if err != nil {
				return err
			}
			sources := app.registry.List()

			if asJSON {
				out, err := json.MarshalIndent(sources, "", "  ")
				if err != nil {
					return fmt.Errorf("encode sources: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%-12s %-18s %-10s %-8s %-4s %-6s %s\n",
				"ID", "NAME", "KIND", "ACTIVE", "PRI", "REL", "INSTRUMENTS")
			for _, src := range sources {
				fmt.Fprintf(w, "%-12s %-18s %-10s %-8t %-4d %-6.2f %v\n",
					src.ID, src.Name, src.Kind, src.Active, src.Priority, src.Reliability, src.Instruments)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
