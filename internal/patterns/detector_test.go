package patterns

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
)

func TestLECandleDetection(t *testing.T) {
	d := NewDetector()
	cs := []candle.Candle{
		{Open: 100, High: 110.5, Low: 99.5, Close: 110},
	}
	found := d.DetectSingle(cs, 0)

	var le *DetectedPattern
	for i := range found {
		if found[i].Type == LECandle {
			le = &found[i]
		}
	}
	require.NotNil(t, le)
	require.Equal(t, Bullish, le.Signal)
	require.Greater(t, le.Strength, 0.8)
}

func TestBullishEngulfing(t *testing.T) {
	d := NewDetector()
	cs := []candle.Candle{
		{Open: 105, High: 106, Low: 100, Close: 101},
		{Open: 100, High: 110, Low: 99, Close: 109},
	}
	p := d.DetectEngulfing(cs, 1)
	require.NotNil(t, p)
	require.Equal(t, BullishEngulfing, p.Type)
	require.Equal(t, Bullish, p.Signal)
	require.Equal(t, 1, p.CandleIndex)
}

func TestInsideOutsideBar(t *testing.T) {
	d := NewDetector()
	cs := []candle.Candle{
		{Open: 100, High: 110, Low: 90, Close: 105},
		{Open: 102, High: 108, Low: 95, Close: 103}, // inside
		{Open: 103, High: 115, Low: 85, Close: 90},  // outside
	}
	inside := d.DetectSingle(cs, 1)
	require.True(t, containsType(inside, InsideBar))

	outside := d.DetectSingle(cs, 2)
	require.True(t, containsType(outside, OutsideBar))
}

func containsType(ps []DetectedPattern, t Type) bool {
	for _, p := range ps {
		if p.Type == t {
			return true
		}
	}
	return false
}

func TestDojiDetection(t *testing.T) {
	d := NewDetector()
	cs := []candle.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100.05},
	}
	found := d.DetectSingle(cs, 0)
	require.True(t, containsType(found, DojiPattern))
}

func TestZeroRangeCandleSkipped(t *testing.T) {
	d := NewDetector()
	cs := []candle.Candle{{Open: 100, High: 100, Low: 100, Close: 100}}
	require.Empty(t, d.DetectSingle(cs, 0))
}
