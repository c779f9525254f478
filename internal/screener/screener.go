package screener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"SurgeScreener/internal/calculator"
	"SurgeScreener/internal/collector"
	"SurgeScreener/internal/metrics"
	"SurgeScreener/internal/model"
	"SurgeScreener/internal/strategy"
)

const (
	DefaultWorkers     = 10
	DefaultUnitTimeout = 30 * time.Second
)

// Options configures a Screener.
type Options struct {
	Layer   strategy.Layer
	Country string
	// Workers bounds concurrent units; 0 or less runs one goroutine per ticker.
	Workers int
	// UnitTimeout bounds one ticker's fetch; 0 disables the deadline.
	UnitTimeout time.Duration
	Metrics     *metrics.Metrics
	// OnOutcome, if set, sees every unit's outcome. It is only called from
	// the aggregator goroutine.
	OnOutcome func(model.Outcome)
}

// Screener fans a ticker universe out over fetch, derive and evaluate units
// and collects the tickers the layer retains.
type Screener struct {
	fetcher collector.Fetcher
	opts    Options
}

// New creates a Screener. A nil layer defaults to strategy.Layer2.
func New(fetcher collector.Fetcher, opts Options) *Screener {
	if opts.Layer == nil {
		opts.Layer = strategy.Layer2
	}
	return &Screener{fetcher: fetcher, opts: opts}
}

// Screen evaluates every distinct ticker and returns the retained ones.
// Per-ticker failures are counted in the summary and never abort the batch.
// It returns only after every unit has finished.
func (s *Screener) Screen(ctx context.Context, tickers []model.Ticker, window model.DateWindow) (model.ScreenResult, model.ScreenSummary) {
	start := time.Now()
	unique := dedupe(tickers)

	result := make(model.ScreenResult)
	summary := model.ScreenSummary{Total: len(unique), Counts: make(map[model.DropReason]int)}

	// The aggregator is the only writer of result and summary.
	outcomes := make(chan model.Outcome, len(unique))
	done := make(chan struct{})
	go func() {
		defer close(done)
		for o := range outcomes {
			summary.Counts[o.Reason]++
			s.opts.Metrics.ObserveUnit(o.Reason)
			if s.opts.OnOutcome != nil {
				s.opts.OnOutcome(o)
			}
			if o.Retained() {
				result[o.Ticker] = o.Series
				continue
			}
			if o.Err != nil {
				log.Debug().Str("ticker", string(o.Ticker)).Str("reason", string(o.Reason)).Err(o.Err).Msg("ticker dropped")
			}
		}
	}()

	var g errgroup.Group
	if s.opts.Workers > 0 {
		g.SetLimit(s.opts.Workers)
	}
	for _, t := range unique {
		if err := ctx.Err(); err != nil {
			outcomes <- model.Outcome{Ticker: t, Reason: model.ReasonFetchFailed, Err: err}
			continue
		}
		g.Go(func() error {
			outcomes <- s.Evaluate(ctx, t, window)
			return nil
		})
	}
	_ = g.Wait()
	close(outcomes)
	<-done

	summary.Duration = time.Since(start)
	s.opts.Metrics.ObserveRun(summary)
	log.Info().
		Int("tickers", summary.Total).
		Int("retained", summary.Passed()).
		Int("rejected", summary.Counts[model.ReasonRejected]).
		Int("fetch_failed", summary.Counts[model.ReasonFetchFailed]).
		Int("timeout", summary.Counts[model.ReasonTimeout]).
		Int("insufficient", summary.Counts[model.ReasonInsufficientData]).
		Dur("elapsed", summary.Duration).
		Msg("screen completed")
	return result, summary
}

type fetchResult struct {
	series model.Series
	err    error
}

// Evaluate runs one unit of work: fetch, derive, then apply the layer.
// Every failure is reported in the returned Outcome.
func (s *Screener) Evaluate(ctx context.Context, ticker model.Ticker, window model.DateWindow) (out model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = model.Outcome{Ticker: ticker, Reason: model.ReasonInternal, Err: fmt.Errorf("unit panic: %v", r)}
		}
	}()

	unitCtx := ctx
	if s.opts.UnitTimeout > 0 {
		var cancel context.CancelFunc
		unitCtx, cancel = context.WithTimeout(ctx, s.opts.UnitTimeout)
		defer cancel()
	}

	series, err := s.fetch(unitCtx, ticker, window)
	if err != nil {
		reason := model.ReasonFetchFailed
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			reason = model.ReasonTimeout
		}
		return model.Outcome{Ticker: ticker, Reason: reason, Err: err}
	}
	if series.Symbol == "" {
		series.Symbol = ticker
	}

	if err := series.Validate(); err != nil {
		return model.Outcome{Ticker: ticker, Reason: model.ReasonInsufficientData, Err: err}
	}
	stats, err := calculator.Derive(series)
	if err != nil {
		return model.Outcome{Ticker: ticker, Reason: model.ReasonInsufficientData, Err: err}
	}

	kept, ok := strategy.Apply(s.opts.Layer, series, stats)
	if !ok {
		return model.Outcome{Ticker: ticker, Stats: stats, Reason: model.ReasonRejected}
	}
	return model.Outcome{Ticker: ticker, Series: kept, Stats: stats, Reason: model.ReasonRetained}
}

// fetch calls the fetcher on its own goroutine so a provider that ignores
// ctx still cannot hold the unit past its deadline.
func (s *Screener) fetch(ctx context.Context, ticker model.Ticker, window model.DateWindow) (model.Series, error) {
	start := time.Now()
	defer func() { s.opts.Metrics.ObserveFetch(time.Since(start)) }()

	ch := make(chan fetchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- fetchResult{err: fmt.Errorf("fetcher panic: %v", r)}
			}
		}()
		series, err := s.fetcher.FetchSeries(ctx, ticker, s.opts.Country, window)
		ch <- fetchResult{series: series, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return model.Series{}, fmt.Errorf("fetch %s: %w", ticker, r.err)
		}
		return r.series, nil
	case <-ctx.Done():
		return model.Series{}, fmt.Errorf("fetch %s: %w", ticker, ctx.Err())
	}
}

func dedupe(tickers []model.Ticker) []model.Ticker {
	seen := make(map[model.Ticker]struct{}, len(tickers))
	out := make([]model.Ticker, 0, len(tickers))
	for _, t := range tickers {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
