package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SurgeScreener/internal/model"
	"SurgeScreener/internal/notifier"
	"SurgeScreener/internal/recorder"
	"SurgeScreener/internal/screener"
	"SurgeScreener/internal/strategy"
)

var (
	runLayer    string
	runWorkers  int
	runOutput   string
	runNoNotify bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Screen the universe once and write the filtered CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("layer") {
			cfg.Screener.Layer = runLayer
		}
		if cmd.Flags().Changed("workers") {
			cfg.Screener.Workers = workersFlag(runWorkers)
		}
		if runOutput != "" {
			cfg.Universe.Output = runOutput
		}

		rec := openRecorder(cfg)
		defer rec.Close()

		runner, err := newRunner(cfg, rec, nil)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		snap, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, snap, cfg.Universe.Output)

		if tn := newNotifier(cfg); tn != nil && !runNoNotify {
			if err := tn.SendWithRetry(ctx, notifier.FormatScreenReport(snap), 3); err != nil {
				log.Error().Err(err).Msg("send notification")
			}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runLayer, "layer", strategy.DefaultLayer, "filter layer ("+strings.Join(strategy.LayerNames(), "|")+")")
	runCmd.Flags().IntVar(&runWorkers, "workers", screener.DefaultWorkers, "concurrent fetches; 0 for the default, negative for one per ticker")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "override universe.output")
	runCmd.Flags().BoolVar(&runNoNotify, "no-notify", false, "skip the Telegram report")
	rootCmd.AddCommand(runCmd)
}

// workersFlag maps --workers onto the pool width: 0 is the default pool,
// negative values run one goroutine per ticker.
func workersFlag(n int) int {
	if n == 0 {
		return screener.DefaultWorkers
	}
	return n
}

func printSummary(w io.Writer, snap *recorder.RunSnapshot, output string) {
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	fmt.Fprintf(w, "Run %s (%s, %s → %s)\n", snap.RunID, snap.Layer,
		snap.WindowStart.Format("2006-01-02"), snap.WindowEnd.Format("2006-01-02"))
	fmt.Fprintf(w, "  retained:          %s / %d\n", green(snap.Counts[model.ReasonRetained]), snap.Total)
	fmt.Fprintf(w, "  rejected:          %s\n", yellow(snap.Counts[model.ReasonRejected]))
	fmt.Fprintf(w, "  fetch_failed:      %s\n", red(snap.Counts[model.ReasonFetchFailed]))
	fmt.Fprintf(w, "  insufficient_data: %s\n", red(snap.Counts[model.ReasonInsufficientData]))
	fmt.Fprintf(w, "  timeout:           %s\n", red(snap.Counts[model.ReasonTimeout]))
	fmt.Fprintf(w, "  internal_error:    %s\n", red(snap.Counts[model.ReasonInternal]))

	for _, p := range snap.Passes {
		fmt.Fprintf(w, "  %s %-12s close %.2f (%+.2f%%) volume x%.1f range %.2f%%\n",
			green("✔"), p.Ticker, p.DayClose, p.PriceChangePct, p.VolumeRatio(), p.DayRangePct)
	}
	fmt.Fprintf(w, "Wrote %s in %.2fs\n", output, snap.Duration.Seconds())
}
