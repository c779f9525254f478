package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SurgeScreener/internal/model"
)

var testWindow = model.DateWindow{
	Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
}

func TestYahooFetcher_FetchSeries(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `{"chart":{"result":[{
			"timestamp":[1704326400,1704240000,1704153600],
			"indicators":{"quote":[{
				"open":[103,101,null],
				"high":[106,104,null],
				"low":[100,99,null],
				"close":[105,102,null],
				"volume":[2000,1500,null]}]}}],"error":null}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL

	series, err := f.FetchSeries(context.Background(), "RELIANCE", "india", testWindow)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/RELIANCE.NS", gotPath)
	assert.Contains(t, gotQuery, fmt.Sprintf("period1=%d", testWindow.Start.Unix()))
	assert.Contains(t, gotQuery, fmt.Sprintf("period2=%d", testWindow.End.AddDate(0, 0, 1).Unix()))

	assert.Equal(t, model.Ticker("RELIANCE"), series.Symbol)
	require.Len(t, series.Bars, 2, "null bars are skipped")
	assert.True(t, series.Bars[0].Time.Before(series.Bars[1].Time))
	assert.Equal(t, 102.0, series.Bars[0].Close)
	assert.Equal(t, 2000.0, series.Bars[1].Volume)
	assert.NoError(t, series.Validate())
}

func TestYahooFetcher_NoData(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"api error", http.StatusOK, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"not found", http.StatusNotFound, `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			f := NewYahooFetcher("")
			f.BaseURL = srv.URL
			_, err := f.FetchSeries(context.Background(), "GONE", "india", testWindow)
			assert.ErrorIs(t, err, ErrNoData)
		})
	}
}

func TestYahooFetcher_SymbolMapping(t *testing.T) {
	f := NewYahooFetcher("")
	assert.Equal(t, "TCS.NS", f.yahooSymbol("TCS", "India"))
	assert.Equal(t, "AAPL", f.yahooSymbol("AAPL", "united states"))
	assert.Equal(t, "BARC.L", f.yahooSymbol("BARC.L", "united kingdom"))
	assert.Equal(t, "XYZ", f.yahooSymbol("XYZ", "atlantis"))
}

func TestVsTraderFetcher_FetchSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "INFY", r.URL.Query().Get("symbol"))
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("from"))
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("to"))
		if r.URL.Query().Get("symbol") != "INFY" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `[
			{"timestamp":1704240000,"open":2,"high":3,"low":1,"close":2.5,"volume":10},
			{"timestamp":1704153600,"open":1,"high":2,"low":1,"close":1.5,"volume":20}]`)
	}))
	defer srv.Close()

	f := NewVsTraderFetcher(srv.URL, "secret", "")
	series, err := f.FetchSeries(context.Background(), "INFY", "india", testWindow)
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)
	assert.Equal(t, 1.5, series.Bars[0].Close)
	assert.Equal(t, 2.5, series.Bars[1].Close)
}

func TestVsTraderFetcher_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	_, err := NewVsTraderFetcher(srv.URL, "", "").FetchSeries(context.Background(), "X", "india", testWindow)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMockFetcher(t *testing.T) {
	boom := errors.New("boom")
	m := &MockFetcher{
		Series: map[model.Ticker]model.Series{"A": {Symbol: "A"}},
		Errors: map[model.Ticker]error{"B": boom},
	}

	s, err := m.FetchSeries(context.Background(), "A", "", testWindow)
	require.NoError(t, err)
	assert.Equal(t, model.Ticker("A"), s.Symbol)

	_, err = m.FetchSeries(context.Background(), "B", "", testWindow)
	assert.ErrorIs(t, err, boom)

	_, err = m.FetchSeries(context.Background(), "C", "", testWindow)
	assert.ErrorIs(t, err, ErrNoData)

	m.Generate = true
	s, err = m.FetchSeries(context.Background(), "C", "", testWindow)
	require.NoError(t, err)
	assert.Len(t, s.Bars, testWindow.Days()+1)
	assert.NoError(t, s.Validate())
	assert.Equal(t, 2, m.Calls("C"))
}

func TestMockFetcher_DelayHonoursContext(t *testing.T) {
	m := &MockFetcher{Delay: map[model.Ticker]time.Duration{"SLOW": time.Second}, Generate: true}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.FetchSeries(ctx, "SLOW", "", testWindow)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (c *countingFetcher) Name() string { return "counting" }

func (c *countingFetcher) FetchSeries(_ context.Context, symbol model.Ticker, _ string, _ model.DateWindow) (model.Series, error) {
	c.calls.Add(1)
	return model.Series{Symbol: symbol}, c.err
}

func TestGuardedFetcher_BreakerOpens(t *testing.T) {
	next := &countingFetcher{err: errors.New("provider down")}
	g := NewGuardedFetcher(next, GuardOptions{BreakerFailures: 3, BreakerTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := g.FetchSeries(context.Background(), "A", "", testWindow)
		require.Error(t, err)
	}
	assert.Equal(t, "open", g.BreakerState())

	_, err := g.FetchSeries(context.Background(), "A", "", testWindow)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "open"))
	assert.Equal(t, int32(3), next.calls.Load(), "open breaker short-circuits the provider")
}

func TestGuardedFetcher_NoDataKeepsBreakerClosed(t *testing.T) {
	next := &countingFetcher{err: ErrNoData}
	g := NewGuardedFetcher(next, GuardOptions{BreakerFailures: 2})

	for i := 0; i < 5; i++ {
		_, err := g.FetchSeries(context.Background(), "GONE", "", testWindow)
		assert.ErrorIs(t, err, ErrNoData)
	}
	assert.Equal(t, "closed", g.BreakerState())
	assert.Equal(t, int32(5), next.calls.Load())
}

func TestGuardedFetcher_RateLimitRespectsContext(t *testing.T) {
	next := &countingFetcher{}
	g := NewGuardedFetcher(next, GuardOptions{RequestsPerSecond: 0.001, Burst: 1})

	_, err := g.FetchSeries(context.Background(), "A", "", testWindow)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = g.FetchSeries(ctx, "B", "", testWindow)
	assert.Error(t, err)
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Equal(t, "disabled", g.BreakerState())
}

func TestGuardedFetcher_PassThrough(t *testing.T) {
	next := &countingFetcher{}
	g := NewGuardedFetcher(next, GuardOptions{})
	s, err := g.FetchSeries(context.Background(), "A", "", testWindow)
	require.NoError(t, err)
	assert.Equal(t, model.Ticker("A"), s.Symbol)
	assert.Equal(t, "counting", g.Name())
}
