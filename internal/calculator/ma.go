package calculator

import (
	"errors"
	"math"

	"SurgeScreener/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// RollingMean returns the period-wide moving average at every index.
// Indexes before the first full window are NaN.
func RollingMean(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if period <= 0 || i+1 < period {
			out[i] = math.NaN()
			continue
		}
		out[i], _ = CalculateSMA(prices[:i+1], period)
	}
	return out
}

// RollingStd returns the sample standard deviation over each period-wide
// window. Indexes before the first full window are NaN.
func RollingStd(prices []float64, period int) []float64 {
	out := make([]float64, len(prices))
	for i := range prices {
		if period < 2 || i+1 < period {
			out[i] = math.NaN()
			continue
		}
		window := prices[i+1-period : i+1]
		mean, _ := CalculateSMA(window, period)
		ss := 0.0
		for _, p := range window {
			ss += (p - mean) * (p - mean)
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

// ExtractCloses returns the close of every bar.
func ExtractCloses(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
