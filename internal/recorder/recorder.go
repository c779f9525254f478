package recorder

import (
	"errors"
	"time"

	"SurgeScreener/internal/model"
)

var ErrNoRuns = errors.New("no screening runs recorded")

// PassRecord is the day snapshot of one retained ticker.
type PassRecord struct {
	Ticker           string  `json:"ticker"`
	Name             string  `json:"name,omitempty"`
	DayClose         float64 `json:"day_close"`
	PrevClose        float64 `json:"prev_close"`
	DayVolume        float64 `json:"day_volume"`
	AvgVolume        float64 `json:"avg_volume"`
	DayValue         float64 `json:"day_value"`
	DayRangePct      float64 `json:"day_range_pct"`
	PriceChangePct   float64 `json:"price_change_pct"`
	WindowVolatility float64 `json:"window_volatility"`
	TradedValue      float64 `json:"traded_value"`
}

// VolumeRatio is the day volume as a multiple of the window average.
func (p PassRecord) VolumeRatio() float64 {
	if p.AvgVolume == 0 {
		return 0
	}
	return p.DayVolume / p.AvgVolume
}

// RunSnapshot holds everything recorded about one screening run.
type RunSnapshot struct {
	RunID       string                   `json:"run_id"`
	StartedAt   time.Time                `json:"started_at"`
	Layer       string                   `json:"layer"`
	Provider    string                   `json:"provider"`
	WindowStart time.Time                `json:"window_start"`
	WindowEnd   time.Time                `json:"window_end"`
	Total       int                      `json:"total"`
	Counts      map[model.DropReason]int `json:"counts"`
	Duration    time.Duration            `json:"duration_ns"`
	Passes      []PassRecord             `json:"passes"`
}

// Recorder persists screening history.
type Recorder interface {
	RecordRun(snap *RunSnapshot) error
	LatestRun() (*RunSnapshot, error)
	Close() error
}
