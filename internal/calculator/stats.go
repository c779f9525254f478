package calculator

import (
	"math"

	"SurgeScreener/internal/model"
)

// Derive computes the day-level and window-level statistics of a series.
// Series shorter than 2 bars return model.ErrInsufficientData.
func Derive(series model.Series) (*model.DerivedStats, error) {
	day, prev, err := DayBars(series)
	if err != nil {
		return nil, err
	}
	return &model.DerivedStats{
		AvgVolume:        AverageVolume(series.Bars),
		DayVolume:        day.Volume,
		DayClose:         day.Close,
		DayHigh:          day.High,
		DayLow:           day.Low,
		PrevClose:        prev.Close,
		WindowVolatility: WindowVolatility(series.Bars),
		TradedValue:      TradedValue(series.Bars),
		PriceChanges:     PriceMovement(series.Bars),
	}, nil
}

// DayBars returns the last and second-to-last bars of the series.
func DayBars(series model.Series) (day, prev model.OHLCV, err error) {
	if series.Len() < 2 {
		return day, prev, model.ErrInsufficientData
	}
	n := series.Len()
	return series.Bars[n-1], series.Bars[n-2], nil
}

// AverageVolume is the mean volume over all bars.
func AverageVolume(bars []model.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}

// Volatility returns the intraday range of a bar as a percentage of its low.
// A non-positive low yields NaN.
func Volatility(bar model.OHLCV) float64 {
	if bar.Low <= 0 {
		return math.NaN()
	}
	return (bar.High - bar.Low) / bar.Low * 100
}

// WindowVolatility is the mean of Volatility over the bars, skipping bars
// whose volatility is undefined.
func WindowVolatility(bars []model.OHLCV) float64 {
	sum, n := 0.0, 0
	for _, b := range bars {
		v := Volatility(b)
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TradedValue is the mean of volume*close over the bars.
func TradedValue(bars []model.OHLCV) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume * b.Close
	}
	return sum / float64(len(bars))
}

// PriceMovement returns the day-over-day close change in percent, rounded to
// two decimals. The first value is 0 since it has no prior bar.
func PriceMovement(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		if prev == 0 {
			continue
		}
		out[i] = math.Round((bars[i].Close-prev)/prev*100*100) / 100
	}
	return out
}
