package model

import (
	"errors"
	"time"
)

var (
	ErrInsufficientData = errors.New("series needs at least 2 bars")
	ErrUnorderedSeries  = errors.New("series dates must be strictly increasing")
)

// Ticker is an opaque symbol used as the key of every per-ticker map.
type Ticker string

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// DateWindow is the calendar range a series is fetched for.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered by the window.
func (w DateWindow) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

// Series holds the daily bars of one ticker, oldest first.
type Series struct {
	Symbol Ticker
	Bars   []OHLCV
}

// Len returns the number of bars.
func (s Series) Len() int { return len(s.Bars) }

// Validate checks the series is long enough for day-over-day comparisons
// and that bar dates strictly increase.
func (s Series) Validate() error {
	if len(s.Bars) < 2 {
		return ErrInsufficientData
	}
	for i := 1; i < len(s.Bars); i++ {
		if !s.Bars[i].Time.After(s.Bars[i-1].Time) {
			return ErrUnorderedSeries
		}
	}
	return nil
}
