package confluence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/cycle"
	"github.com/tradecore/engine/internal/patterns"
)

func TestComputeGeneratesStrongLongSignal(t *testing.T) {
	entryPattern := patterns.DetectedPattern{Type: patterns.LECandle, Signal: patterns.Bullish, Strength: 0.9}
	htfBOS := Long

	contexts := []TimeframeContext{
		{
			Timeframe: candle.TF5m, TrendDirection: Long, TrendStrength: 0.8,
			Patterns: []patterns.DetectedPattern{entryPattern},
			MarketCycle: cycle.Drive, CycleConfidence: 0.85,
			InSupportZone: true, ZoneStrength: 0.8,
			RecentBOS: &htfBOS,
		},
		{Timeframe: candle.TF15m, TrendDirection: Long, TrendStrength: 0.75},
		{Timeframe: candle.TF1h, TrendDirection: Long, TrendStrength: 0.9},
	}

	s := Compute(contexts, candle.TF5m, nil, DefaultParams())
	require.True(t, s.GeneratesSignal)
	require.Equal(t, Long, s.EntryBias)
	require.GreaterOrEqual(t, s.Total, 0.80)
}

func TestComputeNoPatternsYieldsNoSignal(t *testing.T) {
	contexts := []TimeframeContext{
		{Timeframe: candle.TF5m, TrendDirection: Long, TrendStrength: 0.5},
	}
	s := Compute(contexts, candle.TF5m, nil, DefaultParams())
	require.False(t, s.GeneratesSignal)
	require.Equal(t, None, s.EntryBias)
}

func TestTimeframeAlignmentSingleContextIsNeutral(t *testing.T) {
	require.Equal(t, 0.5, timeframeAlignmentScore([]TimeframeContext{{TrendDirection: Long}}, Long))
}

func TestHTFConflictEmitsWarning(t *testing.T) {
	contexts := []TimeframeContext{
		{Timeframe: candle.TF5m, TrendDirection: Long, Patterns: []patterns.DetectedPattern{
			{Type: patterns.LECandle, Signal: patterns.Bullish, Strength: 0.9},
		}},
		{Timeframe: candle.TF1h, TrendDirection: Short, TrendStrength: 0.8},
	}
	s := Compute(contexts, candle.TF5m, nil, DefaultParams())
	require.NotEmpty(t, s.Warnings)
}

func TestComputePure(t *testing.T) {
	contexts := []TimeframeContext{
		{Timeframe: candle.TF5m, TrendDirection: Long, Patterns: []patterns.DetectedPattern{
			{Type: patterns.LECandle, Signal: patterns.Bullish, Strength: 0.9},
		}},
	}
	a := Compute(contexts, candle.TF5m, nil, DefaultParams())
	b := Compute(contexts, candle.TF5m, nil, DefaultParams())
	require.Equal(t, a, b)
}
