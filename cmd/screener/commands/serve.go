package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"SurgeScreener/internal/api"
	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled screening with the Telegram bot and HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log.Info().Msg("SurgeScreener starting")

		rec := openRecorder(cfg)
		defer rec.Close()

		m := metrics.New()
		runner, err := newRunner(cfg, rec, m)
		if err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		tn := newNotifier(cfg)
		sched := scheduler.NewScheduler(ctx, runner, tn)
		if err := sched.RegisterAll(cfg.Schedule.ScreenCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if tn != nil {
			go tn.StartPolling(ctx, sched.HandleCommand)
			log.Info().Msg("telegram polling started")
		}

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info().Msg("RUN_ON_START enabled, screening now")
			go sched.RunNow()
		}

		err = api.NewServer(runner, m).ListenAndServe(ctx, cfg.Server.Addr)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info().Msg("SurgeScreener stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
