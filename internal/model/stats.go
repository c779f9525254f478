package model

// DerivedStats is the scalar bundle the filters evaluate. It is built once
// per ticker per run and never modified afterwards.
type DerivedStats struct {
	AvgVolume float64
	DayVolume float64
	DayClose  float64
	DayHigh   float64
	DayLow    float64
	PrevClose float64

	// Diagnostics, not used by the layer policies.
	WindowVolatility float64
	TradedValue      float64
	PriceChanges     []float64
}

// DayValue is the traded value of the most recent bar.
func (s DerivedStats) DayValue() float64 {
	return s.DayClose * s.DayVolume
}
