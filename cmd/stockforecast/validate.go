package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"StockForecast/internal/collector"
	"StockForecast/internal/registry"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate TICKER...",
		Short: "Check that the data provider knows each ticker",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := collector.NewLoader(a.fetcher, nil, a.log)
			w := cmd.OutOrStdout()
			bad := 0
			for _, arg := range args {
				t := registry.Normalize(arg)
				switch {
				case !registry.WellFormed(t):
					fmt.Fprintf(w, "%-10s malformed\n", t)
					bad++
				case !loader.Validate(cmd.Context(), t):
					fmt.Fprintf(w, "%-10s invalid\n", t)
					bad++
				default:
					fmt.Fprintf(w, "%-10s ok\n", t)
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d tickers failed validation", bad, len(args))
			}
			return nil
		},
	}
}
