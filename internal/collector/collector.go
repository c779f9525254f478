package collector

import (
	"context"
	"sync"
	"time"

	"SurgeScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without an entry in Series or Errors get generated bars when
// Generate is set, and ErrNoData otherwise.
type MockFetcher struct {
	Series   map[model.Ticker]model.Series
	Errors   map[model.Ticker]error
	Delay    map[model.Ticker]time.Duration
	Generate bool
	Price    float64

	mu    sync.Mutex
	calls map[model.Ticker]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(ctx context.Context, symbol model.Ticker, _ string, window model.DateWindow) (model.Series, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[model.Ticker]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if d := m.Delay[symbol]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return model.Series{}, ctx.Err()
		}
	}
	if err, ok := m.Errors[symbol]; ok {
		return model.Series{}, err
	}
	if s, ok := m.Series[symbol]; ok {
		return s, nil
	}
	if m.Generate {
		return model.Series{Symbol: symbol, Bars: generateMockBars(m.Price, window)}, nil
	}
	return model.Series{}, ErrNoData
}

// Calls returns how many times symbol was fetched.
func (m *MockFetcher) Calls(symbol model.Ticker) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

func generateMockBars(basePrice float64, window model.DateWindow) []model.OHLCV {
	if basePrice <= 0 {
		basePrice = 100
	}
	count := window.Days() + 1
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   window.Start.AddDate(0, 0, i),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
