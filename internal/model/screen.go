package model

import "time"

// DropReason tells why a ticker did or did not make it into a ScreenResult.
type DropReason string

const (
	ReasonRetained         DropReason = "retained"
	ReasonRejected         DropReason = "rejected"
	ReasonFetchFailed      DropReason = "fetch_failed"
	ReasonInsufficientData DropReason = "insufficient_data"
	ReasonTimeout          DropReason = "timeout"
	ReasonInternal         DropReason = "internal_error"
)

// Outcome is what a single evaluation unit reports back to the screener.
type Outcome struct {
	Ticker Ticker
	Series Series
	Stats  *DerivedStats
	Reason DropReason
	Err    error
}

// Retained reports whether the ticker passed the active layer.
func (o Outcome) Retained() bool { return o.Reason == ReasonRetained }

// ScreenResult maps every retained ticker to the series it was screened on.
type ScreenResult map[Ticker]Series

// Tickers returns the result keys in no particular order.
func (r ScreenResult) Tickers() []Ticker {
	out := make([]Ticker, 0, len(r))
	for t := range r {
		out = append(out, t)
	}
	return out
}

// ScreenSummary counts unit outcomes for one run.
type ScreenSummary struct {
	Total    int
	Counts   map[DropReason]int
	Duration time.Duration
}

// Passed is the number of retained tickers.
func (s ScreenSummary) Passed() int { return s.Counts[ReasonRetained] }
