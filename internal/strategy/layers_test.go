package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SurgeScreener/internal/model"
)

func valueStats(dayValue, volumeMultiple, rangePct float64) *model.DerivedStats {
	const close = 100.0
	dayVolume := dayValue / close
	return &model.DerivedStats{
		AvgVolume: dayVolume / volumeMultiple,
		DayVolume: dayVolume,
		DayClose:  close,
		DayLow:    100,
		DayHigh:   100 + rangePct,
		PrevClose: 99,
	}
}

func TestLayer1_Scenarios(t *testing.T) {
	a := tickerA()
	assert.False(t, Layer1(NewEvaluator(a)), "2.7e8 traded value is below the 2e9 bar")

	b := tickerA()
	b.DayVolume = 20_000_000
	assert.True(t, Layer1(NewEvaluator(b)))

	assert.False(t, Layer1(NewEvaluator(nil)))
}

func TestLayer2Branch(t *testing.T) {
	tests := []struct {
		name     string
		dayValue float64
		want     int
	}{
		{"below floor", 1e8, 0},
		{"floor tier", 3e8, 3},
		{"mid tier", 2e9, 2},
		{"mid tier boundary", 1e9, 2},
		{"top tier", 6e9, 1},
		{"top tier boundary", 5e9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Layer2Branch(NewEvaluator(valueStats(tt.dayValue, 1, 1))))
		})
	}
}

func TestLayer2Branch_ExclusiveAndExhaustive(t *testing.T) {
	for _, v := range []float64{0, 1e7, 1.99e8, 2e8, 5e8, 9.99e8, 1e9, 4e9, 5e9, 1e11} {
		e := NewEvaluator(valueStats(v, 1, 1))
		branch := Layer2Branch(e)
		require.GreaterOrEqual(t, branch, 0)
		require.LessOrEqual(t, branch, len(Layer2Tiers))

		// exactly one of the four branch conditions holds
		matches := 0
		if !e.ValueSurge(2e8) {
			matches++
		}
		if e.ValueSurge(2e8) && e.ValueSurge(5e9) {
			matches++
		}
		if e.ValueSurge(2e8) && !e.ValueSurge(5e9) && e.ValueSurge(1e9) {
			matches++
		}
		if e.ValueSurge(2e8) && !e.ValueSurge(5e9) && !e.ValueSurge(1e9) {
			matches++
		}
		assert.Equal(t, 1, matches, "value %.0f", v)
	}
}

func TestLayer2_Tiers(t *testing.T) {
	tests := []struct {
		name   string
		stats  *model.DerivedStats
		retain bool
	}{
		{"below floor never passes", valueStats(1e8, 10, 20), false},
		{"top tier passes loose bars", valueStats(6e9, 1.6, 3), true},
		{"top tier needs 1.5x volume", valueStats(6e9, 1.4, 3), false},
		{"top tier needs 2.5% range", valueStats(6e9, 1.6, 2), false},
		{"mid tier passes", valueStats(2e9, 2.1, 3.5), true},
		{"mid tier needs 3.33% range", valueStats(2e9, 2.1, 3.3), false},
		{"mid tier needs 2x volume", valueStats(2e9, 1.9, 3.5), false},
		{"floor tier passes", valueStats(3e8, 2.6, 4.5), true},
		{"floor tier needs 2.5x volume", valueStats(3e8, 2.4, 4.5), false},
		{"floor tier needs 4% range", valueStats(3e8, 2.6, 3.9), false},
		{"missing stats", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retain, Layer2(NewEvaluator(tt.stats)))
		})
	}
}

func TestLayer2_TickerA(t *testing.T) {
	assert.Equal(t, 3, Layer2Branch(NewEvaluator(tickerA())))
	assert.True(t, Layer2(NewEvaluator(tickerA())))
}

func TestApply(t *testing.T) {
	series := model.Series{
		Symbol: "B",
		Bars: []model.OHLCV{
			{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Close: 100},
			{Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Close: 108},
		},
	}
	b := tickerA()
	b.DayVolume = 20_000_000

	got, ok := Apply(Layer1, series, b)
	require.True(t, ok)
	assert.Equal(t, series, got)

	got, ok = Apply(Layer1, series, tickerA())
	assert.False(t, ok)
	assert.Empty(t, got.Bars)

	_, ok = Apply(nil, series, b)
	assert.False(t, ok)
}

func TestLayerByName(t *testing.T) {
	l, err := LayerByName("layer1")
	require.NoError(t, err)
	assert.NotNil(t, l)

	_, err = LayerByName("layer9")
	assert.ErrorIs(t, err, ErrUnknownLayer)

	assert.Equal(t, []string{"layer1", "layer2"}, LayerNames())
}
