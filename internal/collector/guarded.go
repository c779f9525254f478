package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"SurgeScreener/internal/model"
)

// GuardOptions configures GuardedFetcher.
type GuardOptions struct {
	// RequestsPerSecond of 0 disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	// BreakerFailures is the number of consecutive provider failures that
	// opens the breaker. 0 disables the breaker.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// GuardedFetcher wraps a Fetcher with a token-bucket rate limit and a circuit
// breaker. It never retries; a rejected call is just another fetch failure.
type GuardedFetcher struct {
	next    Fetcher
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedFetcher decorates next according to opts.
func NewGuardedFetcher(next Fetcher, opts GuardOptions) *GuardedFetcher {
	g := &GuardedFetcher{next: next}
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	if opts.BreakerFailures > 0 {
		st := gobreaker.Settings{Name: next.Name()}
		st.Interval = 60 * time.Second
		st.Timeout = opts.BreakerTimeout
		if st.Timeout <= 0 {
			st.Timeout = 60 * time.Second
		}
		threshold := opts.BreakerFailures
		st.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		}
		// Missing symbols and cancelled units say nothing about provider health.
		st.IsSuccessful = func(err error) bool {
			return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
		}
		g.breaker = gobreaker.NewCircuitBreaker(st)
	}
	return g
}

func (g *GuardedFetcher) Name() string { return g.next.Name() }

// BreakerState reports the breaker state, or "disabled".
func (g *GuardedFetcher) BreakerState() string {
	if g.breaker == nil {
		return "disabled"
	}
	return g.breaker.State().String()
}

func (g *GuardedFetcher) FetchSeries(ctx context.Context, symbol model.Ticker, country string, window model.DateWindow) (model.Series, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return model.Series{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if g.breaker == nil {
		return g.next.FetchSeries(ctx, symbol, country, window)
	}
	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.FetchSeries(ctx, symbol, country, window)
	})
	if err != nil {
		return model.Series{}, fmt.Errorf("%s: %w", g.next.Name(), err)
	}
	return out.(model.Series), nil
}
