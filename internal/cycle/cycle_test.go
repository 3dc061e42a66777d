package cycle

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
)

func trendingCandles(n int, step float64) []candle.Candle {
	cs := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		close := price + step
		cs[i] = candle.Candle{Open: open, Close: close, High: close + 0.1, Low: open - 0.1, Volume: 10}
		price = close
	}
	return cs
}

func oscillatingCandles(n int) []candle.Candle {
	cs := make([]candle.Candle, n)
	price := 100.0
	for i := 0; i < n; i++ {
		step := 0.5
		if i%2 == 1 {
			step = -0.5
		}
		open := price
		close := price + step
		cs[i] = candle.Candle{Open: open, Close: close, High: close + 0.05, Low: open - 0.05, Volume: 10}
		price = close
	}
	return cs
}

func TestClassifyDrive(t *testing.T) {
	cs := trendingCandles(30, 1.0)
	p := DefaultParams()
	m := ComputeMetrics(cs, p)
	require.Equal(t, Drive, Classify(m, p))
}

func TestClassifyRange(t *testing.T) {
	cs := oscillatingCandles(30)
	p := DefaultParams()
	m := ComputeMetrics(cs, p)
	require.Equal(t, Range, Classify(m, p))
}

func TestHistoryDurationAndTransitions(t *testing.T) {
	h := NewHistory(10)
	h.Push(Entry{Index: 0, Classification: Drive})
	h.Push(Entry{Index: 1, Classification: Drive})
	h.Push(Entry{Index: 2, Classification: Range})
	h.Push(Entry{Index: 3, Classification: Range})

	require.Equal(t, 2, h.CycleDurationCandles())
	require.InDelta(t, 1.0/3.0, h.TransitionProbability(), 1e-9)
}

func TestGetRecommendationDrive(t *testing.T) {
	rec := GetRecommendation(Drive)
	require.NotEmpty(t, rec.PreferredPatterns)
	require.Greater(t, rec.ConfidenceAdjustment, 0.0)
}

func TestComputeMetricsEmptyWindow(t *testing.T) {
	m := ComputeMetrics(nil, DefaultParams())
	require.Equal(t, Metrics{}, m)
}

func TestConfidenceRisesWithMarginPastDriveThreshold(t *testing.T) {
	p := DefaultParams()
	barelyOverThreshold := Metrics{MomentumScore: p.DriveThreshold, DirectionalStrength: 0.6}
	wellOverThreshold := Metrics{MomentumScore: 1.0, DirectionalStrength: 1.0}

	require.Equal(t, Drive, Classify(barelyOverThreshold, p))
	require.Equal(t, Drive, Classify(wellOverThreshold, p))
	require.Less(t, Confidence(barelyOverThreshold, p), Confidence(wellOverThreshold, p))
}

func TestConfidenceWithinUnitRange(t *testing.T) {
	p := DefaultParams()
	for _, cs := range [][]candle.Candle{trendingCandles(30, 1.0), oscillatingCandles(30)} {
		m := ComputeMetrics(cs, p)
		c := Confidence(m, p)
		require.GreaterOrEqual(t, c, 0.0)
		require.LessOrEqual(t, c, 1.0)
	}
}
