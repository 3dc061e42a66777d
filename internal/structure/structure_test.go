package structure

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
)

func flatCandles(prices []float64) []candle.Candle {
	cs := make([]candle.Candle, len(prices))
	for i, p := range prices {
		cs[i] = candle.Candle{Open: p, High: p + 0.5, Low: p - 0.5, Close: p}
	}
	return cs
}

func TestFindSwingsDetectsCenterHigh(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10, 20, 10, 10, 10, 10, 10}
	cs := flatCandles(prices)
	cs[5].High = 25
	cs[5].Open = 22
	cs[5].Close = 20

	p := DefaultParams()
	swings := FindSwings(cs, p)

	var found bool
	for _, s := range swings {
		if s.Index == 5 && s.Type == SwingHigh {
			found = true
		}
	}
	require.True(t, found)
}

func TestFindSwingsRequiresFullWindow(t *testing.T) {
	cs := flatCandles([]float64{10, 10, 10})
	require.Empty(t, FindSwings(cs, DefaultParams()))
}

func TestDetectBreaksClassifiesBOSAndCHoCH(t *testing.T) {
	swings := []SwingPoint{
		{Index: 0, Type: SwingHigh, Price: 100},
		{Index: 1, Type: SwingLow, Price: 90},
	}
	cs := []candle.Candle{
		{Open: 95, High: 100, Low: 90, Close: 95},
		{Open: 95, High: 96, Low: 90, Close: 91},
		{Open: 91, High: 105, Low: 91, Close: 104}, // closes above swing high -> break
		{Open: 104, High: 106, Low: 85, Close: 86}, // closes below swing low -> break
	}
	breaks, _ := DetectBreaks(cs, swings)
	require.Len(t, breaks, 2)
	require.Equal(t, BOS, breaks[0].Kind)
	require.Equal(t, CHoCH, breaks[1].Kind)
}

func TestDetectOrderBlocksBullish(t *testing.T) {
	cs := []candle.Candle{
		{Open: 105, High: 106, Low: 99, Close: 100}, // bearish candle -> order block
		{Open: 100, High: 103, Low: 99, Close: 102},
		{Open: 102, High: 105, Low: 101, Close: 104},
		{Open: 104, High: 108, Low: 103, Close: 107},
		{Open: 107, High: 112, Low: 106, Close: 111},
		{Open: 111, High: 116, Low: 110, Close: 115},
	}
	obs := DetectOrderBlocks(cs, DefaultParams())
	require.NotEmpty(t, obs)
	require.True(t, obs[0].IsBullish)
	require.Equal(t, 0, obs[0].CandleIndex)
}

func TestDetectFVGsBullishGap(t *testing.T) {
	cs := []candle.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100},
		{Open: 100, High: 103, Low: 100, Close: 102},
		{Open: 104, High: 106, Low: 103.5, Close: 105},
	}
	fvgs := DetectFVGs(cs, DefaultParams())
	require.Len(t, fvgs, 1)
	require.Equal(t, BullishGap, fvgs[0].Type)
	require.Equal(t, 0, fvgs[0].FirstIndex)
	require.Equal(t, 2, fvgs[0].LastIndex)
}

func TestDetectFVGsRejectsSmallGap(t *testing.T) {
	cs := []candle.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100},
		{Open: 100, High: 101.01, Low: 100, Close: 100.5},
		{Open: 101.005, High: 102, Low: 101.005, Close: 101.5},
	}
	fvgs := DetectFVGs(cs, DefaultParams())
	require.Empty(t, fvgs)
}

func TestAnalyzeRollsUpSummary(t *testing.T) {
	prices := []float64{10, 10, 10, 10, 10, 20, 10, 10, 10, 10, 10}
	cs := flatCandles(prices)
	cs[5].High = 25

	s := Analyze(cs, DefaultParams())
	require.GreaterOrEqual(t, s.SwingsCount, 1)
	require.NotEmpty(t, string(s.CurrentTrend))
}
