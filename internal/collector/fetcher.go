package collector

import (
	"context"
	"errors"

	"SurgeScreener/internal/model"
)

// ErrNoData is returned when a provider has no bars for the symbol and range,
// e.g. unlisted or delisted symbols.
var ErrNoData = errors.New("no data for symbol in range")

// Fetcher retrieves the daily bars of one symbol over a date window.
// Any error means the ticker is skipped for this run.
type Fetcher interface {
	FetchSeries(ctx context.Context, symbol model.Ticker, country string, window model.DateWindow) (model.Series, error)
	Name() string
}
