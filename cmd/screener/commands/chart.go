package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SurgeScreener/internal/calculator"
	"SurgeScreener/internal/chart"
	"SurgeScreener/internal/model"
)

var (
	chartCompare string
	chartWindow  int
	chartOut     string
)

var chartCmd = &cobra.Command{
	Use:   "chart SYMBOL",
	Short: "Fetch one symbol and write candlestick, rolling mean and variance chart data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fetcher := newFetcher(cfg)
		window := calculator.LookbackWindow(time.Now(), cfg.Screener.LookbackDays)

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*cfg.Screener.UnitTimeout)
		defer cancel()

		symbol := model.Ticker(args[0])
		series, err := fetcher.FetchSeries(ctx, symbol, cfg.DataSource.Country, window)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", symbol, err)
		}

		var other *model.Series
		if chartCompare != "" {
			s, err := fetcher.FetchSeries(ctx, model.Ticker(chartCompare), cfg.DataSource.Country, window)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", chartCompare, err)
			}
			other = &s
		}

		out := chartOut
		if out == "" {
			out = filepath.Join("charts", string(symbol)+".json")
		}
		charts := []chart.Chart{
			chart.Candlestick(series, string(symbol)),
			chart.RollingMeans(series, string(symbol), chartWindow),
			chart.VarianceIndicators(series, other),
		}
		if err := chart.Save(out, charts...); err != nil {
			return err
		}
		log.Info().Str("symbol", string(symbol)).Int("bars", series.Len()).Str("path", out).Msg("chart written")
		return nil
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartCompare, "compare", "", "second symbol for the variance comparison")
	chartCmd.Flags().IntVar(&chartWindow, "window", chart.DefaultRollingWindow, "rolling mean window")
	chartCmd.Flags().StringVarP(&chartOut, "output", "o", "", "output path (default charts/SYMBOL.json)")
	rootCmd.AddCommand(chartCmd)
}
