package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"SurgeScreener/internal/calculator"
	"SurgeScreener/internal/model"
)

// DefaultRollingWindow is the rolling mean window used when none is given.
const DefaultRollingWindow = 10

// Line is one named series of points aligned with Chart.Dates.
// Undefined points (before a rolling window fills) are nil.
type Line struct {
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

// Candle is one bar of a candlestick chart.
type Candle struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
	Up     bool      `json:"up"`
}

// Panel is one axis of a chart.
type Panel struct {
	YLabel string `json:"y_label"`
	Lines  []Line `json:"lines"`
}

// Chart is a renderer-agnostic description of a figure.
type Chart struct {
	Title   string      `json:"title"`
	Dates   []time.Time `json:"dates"`
	Candles []Candle    `json:"candles,omitempty"`
	Panels  []Panel     `json:"panels,omitempty"`
}

// Candlestick lays out the series as candles with volume.
func Candlestick(series model.Series, title string) Chart {
	if title == "" {
		title = "Candlestick chart"
	}
	c := Chart{Title: title, Dates: dates(series)}
	for _, b := range series.Bars {
		c.Candles = append(c.Candles, Candle{
			Date:   b.Time,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
			Up:     b.Close >= b.Open,
		})
	}
	return c
}

// RollingMeans plots the close with its rolling mean and a band two rolling
// standard deviations either side.
func RollingMeans(series model.Series, name string, window int) Chart {
	if window <= 0 {
		window = DefaultRollingWindow
	}
	if name == "" {
		name = "price"
	}
	closes := calculator.ExtractCloses(series.Bars)
	mean := calculator.RollingMean(closes, window)
	std := calculator.RollingStd(closes, window)

	upper := make([]float64, len(closes))
	lower := make([]float64, len(closes))
	for i := range closes {
		upper[i] = mean[i] + 2*std[i]
		lower[i] = mean[i] - 2*std[i]
	}

	return Chart{
		Title: "Rolling means",
		Dates: dates(series),
		Panels: []Panel{{
			YLabel: "Price",
			Lines: []Line{
				line(name, closes),
				line("roll means", mean),
				line("upper band", upper),
				line("lower band", lower),
			},
		}},
	}
}

// VarianceIndicators plots the per-bar percentage close change and its
// cumulative sum. When other is non-nil its lines are added for comparison.
func VarianceIndicators(series model.Series, other *model.Series) Chart {
	dev, cum := deviation(series)
	deviationPanel := Panel{YLabel: "Price-deviation", Lines: []Line{line(labelOf(series, "df1"), dev)}}
	cumulativePanel := Panel{YLabel: "Price-deviation-cumulative", Lines: []Line{line(labelOf(series, "df1"), cum)}}

	if other != nil {
		dev2, cum2 := deviation(*other)
		deviationPanel.Lines = append(deviationPanel.Lines, line(labelOf(*other, "df2"), dev2))
		cumulativePanel.Lines = append(cumulativePanel.Lines, line(labelOf(*other, "df2"), cum2))
	}

	return Chart{
		Title:  "Variance",
		Dates:  dates(series),
		Panels: []Panel{deviationPanel, cumulativePanel},
	}
}

// Save writes charts as indented JSON to path.
func Save(path string, charts ...Chart) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	data, err := json.MarshalIndent(charts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal charts: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func deviation(series model.Series) (dev, cum []float64) {
	dev = make([]float64, series.Len())
	cum = make([]float64, series.Len())
	for i := range series.Bars {
		if i > 0 && series.Bars[i-1].Close != 0 {
			dev[i] = (series.Bars[i].Close/series.Bars[i-1].Close - 1) * 100
		}
		cum[i] = dev[i]
		if i > 0 {
			cum[i] += cum[i-1]
		}
	}
	return dev, cum
}

func line(label string, vals []float64) Line {
	l := Line{Label: label, Values: make([]*float64, len(vals))}
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		l.Values[i] = &v
	}
	return l
}

func labelOf(s model.Series, fallback string) string {
	if s.Symbol != "" {
		return string(s.Symbol)
	}
	return fallback
}

func dates(series model.Series) []time.Time {
	out := make([]time.Time, series.Len())
	for i, b := range series.Bars {
		out[i] = b.Time
	}
	return out
}
