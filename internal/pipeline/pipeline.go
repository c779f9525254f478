package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"SurgeScreener/internal/calculator"
	"SurgeScreener/internal/collector"
	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/model"
	"SurgeScreener/internal/recorder"
	"SurgeScreener/internal/screener"
	"SurgeScreener/internal/strategy"
	"SurgeScreener/internal/universe"
)

// ErrRunInProgress is returned when a run is requested while another is active.
var ErrRunInProgress = errors.New("screening run already in progress")

// Options configures one screening run.
type Options struct {
	Layer        string
	Country      string
	LookbackDays int
	Workers      int
	UnitTimeout  time.Duration
	UniversePath string
	// OutputPath of "" skips writing the filtered CSV.
	OutputPath string
}

// Runner executes complete screening runs. At most one run is active at a time.
type Runner struct {
	fetcher  collector.Fetcher
	recorder recorder.Recorder
	metrics  *metrics.Metrics
	layer    strategy.Layer
	opts     Options

	mu  sync.Mutex
	now func() time.Time
}

// NewRunner resolves the configured layer and builds a Runner.
func NewRunner(fetcher collector.Fetcher, rec recorder.Recorder, m *metrics.Metrics, opts Options) (*Runner, error) {
	if opts.Layer == "" {
		opts.Layer = strategy.DefaultLayer
	}
	layer, err := strategy.LayerByName(opts.Layer)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Runner{
		fetcher:  fetcher,
		recorder: rec,
		metrics:  m,
		layer:    layer,
		opts:     opts,
		now:      time.Now,
	}, nil
}

// Recorder returns the history store runs are written to.
func (r *Runner) Recorder() recorder.Recorder { return r.recorder }

// Run screens the universe once and returns the recorded snapshot.
func (r *Runner) Run(ctx context.Context) (*recorder.RunSnapshot, error) {
	if !r.mu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer r.mu.Unlock()

	u, err := universe.Load(r.opts.UniversePath)
	if err != nil {
		return nil, err
	}

	startedAt := r.now()
	window := calculator.LookbackWindow(startedAt, r.opts.LookbackDays)
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Str("layer", r.opts.Layer).Logger()
	logger.Info().
		Int("universe", len(u.Records)).
		Time("from", window.Start).
		Time("to", window.End).
		Msg("screening run started")

	stats := make(map[model.Ticker]*model.DerivedStats)
	sc := screener.New(r.fetcher, screener.Options{
		Layer:       r.layer,
		Country:     r.opts.Country,
		Workers:     r.opts.Workers,
		UnitTimeout: r.opts.UnitTimeout,
		Metrics:     r.metrics,
		OnOutcome: func(o model.Outcome) {
			if o.Retained() {
				stats[o.Ticker] = o.Stats
			}
		},
	})
	result, summary := sc.Screen(ctx, u.Tickers(), window)

	// A cancelled run is incomplete; keep the previous output and history.
	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Msg("screening run cancelled")
		return nil, fmt.Errorf("screening run cancelled: %w", err)
	}

	if r.opts.OutputPath != "" {
		if err := universe.WriteFiltered(r.opts.OutputPath, u, result); err != nil {
			return nil, fmt.Errorf("write filtered universe: %w", err)
		}
	}

	snap := &recorder.RunSnapshot{
		RunID:       runID,
		StartedAt:   startedAt,
		Layer:       r.opts.Layer,
		Provider:    r.fetcher.Name(),
		WindowStart: window.Start,
		WindowEnd:   window.End,
		Total:       summary.Total,
		Counts:      summary.Counts,
		Duration:    summary.Duration,
		Passes:      passes(u, result, stats),
	}

	if err := r.recorder.RecordRun(snap); err != nil {
		logger.Error().Err(err).Msg("record run")
	}
	logger.Info().
		Int("retained", summary.Passed()).
		Dur("elapsed", summary.Duration).
		Msg("screening run finished")
	return snap, nil
}

// passes summarises every retained ticker in ticker order.
func passes(u *universe.Universe, result model.ScreenResult, stats map[model.Ticker]*model.DerivedStats) []recorder.PassRecord {
	out := make([]recorder.PassRecord, 0, len(result))
	for _, t := range universe.SortedTickers(result) {
		ticker := model.Ticker(t)
		st := stats[ticker]
		if st == nil {
			log.Warn().Str("ticker", t).Msg("retained ticker has no stats")
			continue
		}
		p := passRecord(st)
		p.Ticker = t
		p.Name, _ = u.Column(ticker, "name")
		out = append(out, p)
	}
	return out
}

func passRecord(stats *model.DerivedStats) recorder.PassRecord {
	p := recorder.PassRecord{
		DayClose:         stats.DayClose,
		PrevClose:        stats.PrevClose,
		DayVolume:        stats.DayVolume,
		AvgVolume:        stats.AvgVolume,
		DayValue:         stats.DayValue(),
		DayRangePct:      calculator.Volatility(model.OHLCV{High: stats.DayHigh, Low: stats.DayLow}),
		WindowVolatility: stats.WindowVolatility,
		TradedValue:      stats.TradedValue,
	}
	if stats.PrevClose > 0 {
		p.PriceChangePct = (stats.DayClose - stats.PrevClose) / stats.PrevClose * 100
	}
	return p
}
