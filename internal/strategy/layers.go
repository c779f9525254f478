package strategy

import (
	"errors"
	"fmt"
	"sort"

	"SurgeScreener/internal/model"
)

var ErrUnknownLayer = errors.New("unknown layer")

// Layer is a retain/reject decision over one ticker's predicates.
type Layer func(Evaluator) bool

// DefaultLayer is the layer used when none is configured.
const DefaultLayer = "layer2"

var layers = map[string]Layer{
	"layer1": Layer1,
	"layer2": Layer2,
}

// LayerByName looks up a registered layer.
func LayerByName(name string) (Layer, error) {
	l, ok := layers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return l, nil
}

// LayerNames lists the registered layers in sorted order.
func LayerNames() []string {
	names := make([]string, 0, len(layers))
	for n := range layers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Layer1 requires a 2x volume surge, 3% intraday range and 2e9 traded value.
func Layer1(e Evaluator) bool {
	return e.VolumeSurge(2) && e.VolatilitySurge(3) && e.ValueSurge(2e9)
}

// valueTier sets the volume and volatility bar for tickers trading at least MinValue.
type valueTier struct {
	MinValue         float64
	VolumeMultiplier float64
	VolatilityPct    float64
}

// Layer2Floor is the day value below which Layer2 rejects outright.
const Layer2Floor = 2e8

// Layer2Tiers is ordered from the highest value tier down; the last entry
// catches everything at or above Layer2Floor.
var Layer2Tiers = []valueTier{
	{MinValue: 5e9, VolumeMultiplier: 1.5, VolatilityPct: 2.5},
	{MinValue: 1e9, VolumeMultiplier: 2.0, VolatilityPct: 3.33},
	{MinValue: Layer2Floor, VolumeMultiplier: 2.5, VolatilityPct: 4.0},
}

// Layer2Branch returns which Layer2 branch applies: 0 for the floor
// rejection, otherwise 1 + the index into Layer2Tiers.
func Layer2Branch(e Evaluator) int {
	if !e.ValueSurge(Layer2Floor) {
		return 0
	}
	for i, t := range Layer2Tiers[:len(Layer2Tiers)-1] {
		if e.ValueSurge(t.MinValue) {
			return i + 1
		}
	}
	return len(Layer2Tiers)
}

// Layer2 applies progressively looser volume and volatility bars to more
// heavily traded tickers.
func Layer2(e Evaluator) bool {
	branch := Layer2Branch(e)
	if branch == 0 {
		return false
	}
	t := Layer2Tiers[branch-1]
	return e.VolumeSurge(t.VolumeMultiplier) && e.VolatilitySurge(t.VolatilityPct)
}

// Apply runs layer over stats and hands back the series when it is retained.
func Apply(layer Layer, series model.Series, stats *model.DerivedStats) (model.Series, bool) {
	if layer == nil || !layer(NewEvaluator(stats)) {
		return model.Series{}, false
	}
	return series, true
}
