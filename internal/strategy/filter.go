package strategy

import (
	"math"

	"SurgeScreener/internal/model"
)

// Evaluator exposes the surge predicates over one ticker's statistics.
// Every predicate answers false when its inputs are missing or unusable, so
// absent data can never produce a match.
type Evaluator struct {
	stats *model.DerivedStats
}

// NewEvaluator wraps stats. A nil stats value is allowed and fails every predicate.
func NewEvaluator(stats *model.DerivedStats) Evaluator {
	return Evaluator{stats: stats}
}

// Stats returns the wrapped statistics, possibly nil.
func (e Evaluator) Stats() *model.DerivedStats { return e.stats }

// VolumeSurge reports whether the day volume is at least multiplier times the
// window average.
func (e Evaluator) VolumeSurge(multiplier float64) bool {
	if e.stats == nil || !finite(e.stats.DayVolume, e.stats.AvgVolume, multiplier) {
		return false
	}
	return e.stats.DayVolume >= e.stats.AvgVolume*multiplier
}

// ValueSurge reports whether the day's traded value reaches threshold.
func (e Evaluator) ValueSurge(threshold float64) bool {
	if e.stats == nil || !finite(e.stats.DayClose, e.stats.DayVolume, threshold) {
		return false
	}
	return e.stats.DayValue() >= threshold
}

// VolatilitySurge reports whether the day's high-low range, as a percentage
// of the low, reaches thresholdPct.
func (e Evaluator) VolatilitySurge(thresholdPct float64) bool {
	if e.stats == nil || !finite(e.stats.DayHigh, e.stats.DayLow, thresholdPct) || e.stats.DayLow <= 0 {
		return false
	}
	return (e.stats.DayHigh-e.stats.DayLow)/e.stats.DayLow*100 >= thresholdPct
}

// PriceChangeSurge reports whether the absolute close-to-close move reaches
// thresholdPct. Gaps up and down count the same.
func (e Evaluator) PriceChangeSurge(thresholdPct float64) bool {
	if e.stats == nil || !finite(e.stats.DayClose, e.stats.PrevClose, thresholdPct) || e.stats.PrevClose <= 0 {
		return false
	}
	return math.Abs(e.stats.DayClose-e.stats.PrevClose)/e.stats.PrevClose*100 >= thresholdPct
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
