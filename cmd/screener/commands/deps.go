package commands

import (
	"time"

	"github.com/rs/zerolog/log"

	"SurgeScreener/internal/collector"
	"SurgeScreener/internal/config"
	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/notifier"
	"SurgeScreener/internal/pipeline"
	"SurgeScreener/internal/recorder"
)

// newFetcher builds the configured provider wrapped in the rate limit and
// circuit breaker.
func newFetcher(cfg *config.Config) collector.Fetcher {
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "vstrader":
		fetcher = collector.NewVsTraderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{Generate: true}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("provider", fetcher.Name()).Str("country", cfg.DataSource.Country).Msg("data source")

	return collector.NewGuardedFetcher(fetcher, collector.GuardOptions{
		RequestsPerSecond: cfg.Screener.RateLimit,
		Burst:             cfg.Screener.RateBurst,
		BreakerFailures:   cfg.Screener.BreakerFailures,
		BreakerTimeout:    time.Minute,
	})
}

// openRecorder opens SQLite history, falling back to a no-op recorder.
func openRecorder(cfg *config.Config) recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newNotifier(cfg *config.Config) *notifier.TelegramNotifier {
	if !cfg.TelegramEnabled() {
		return nil
	}
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
}

func newRunner(cfg *config.Config, rec recorder.Recorder, m *metrics.Metrics) (*pipeline.Runner, error) {
	return pipeline.NewRunner(newFetcher(cfg), rec, m, pipeline.Options{
		Layer:        cfg.Screener.Layer,
		Country:      cfg.DataSource.Country,
		LookbackDays: cfg.Screener.LookbackDays,
		Workers:      cfg.Screener.Workers,
		UnitTimeout:  cfg.Screener.UnitTimeout,
		UniversePath: cfg.Universe.Input,
		OutputPath:   cfg.Universe.Output,
	})
}
