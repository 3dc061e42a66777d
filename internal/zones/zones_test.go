package zones

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/structure"
)

func TestDetectSupportZoneCountsTouchesAndBounces(t *testing.T) {
	cs := []candle.Candle{
		{Open: 100, High: 101, Low: 100, Close: 100.5, Volume: 10},
		{Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 10},
		{Open: 101.5, High: 103, Low: 100.2, Close: 102.5, Volume: 10},
		{Open: 102.5, High: 104, Low: 100.1, Close: 103.5, Volume: 10},
		{Open: 103.5, High: 105, Low: 100, Close: 104.5, Volume: 10},
	}
	swings := []structure.SwingPoint{
		{Index: 0, Type: structure.SwingLow, Price: 100},
		{Index: 2, Type: structure.SwingLow, Price: 100.2},
		{Index: 4, Type: structure.SwingLow, Price: 100},
	}
	p := DefaultParams()
	p.MinTouches = 2
	zs := Detect(cs, swings, p)
	require.NotEmpty(t, zs)
	require.Equal(t, Support, zs[0].Type)
	require.GreaterOrEqual(t, zs[0].Touches, 2)
}

func TestDetectFiltersBelowMinTouches(t *testing.T) {
	cs := []candle.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
	}
	swings := []structure.SwingPoint{{Index: 0, Type: structure.SwingHigh, Price: 101}}
	p := DefaultParams()
	zs := Detect(cs, swings, p)
	require.Empty(t, zs)
}

func TestFindNearestAndActiveZones(t *testing.T) {
	zs := []Zone{
		{Type: Support, Top: 101, Bottom: 99, Touches: 3},
		{Type: Resistance, Top: 151, Bottom: 149, Touches: 3},
	}
	nearest, ok := FindNearest(zs, 100, 0.05)
	require.True(t, ok)
	require.Equal(t, Support, nearest.Type)

	active := ActiveZones(zs, 100)
	require.Len(t, active, 1)
	require.Equal(t, Support, active[0].Type)
}

func TestClassifyStrength(t *testing.T) {
	z := Zone{Touches: 8, Bounces: 8, AvgVolume: 20}
	require.Equal(t, Major, classify(z, 10))

	weak := Zone{Touches: 1, Bounces: 0, AvgVolume: 1}
	require.Equal(t, Weak, classify(weak, 10))
}
