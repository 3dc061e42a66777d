package position

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestUpdateFromFillSameSideAverages(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 1, Price: 100, Timestamp: time.Now()})
	pos := tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 1, Price: 110, Timestamp: time.Now()})

	require.Equal(t, 2.0, pos.Quantity)
	require.InDelta(t, 105.0, pos.AvgEntry, 1e-9)
}

func TestUpdateFromFillOppositePartialClose(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 2, Price: 100})
	pos := tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideSell, Quantity: 1, Price: 120, Fee: 1})

	require.Equal(t, 1.0, pos.Quantity)
	require.InDelta(t, 19.0, pos.RealizedPnL, 1e-9) // (120-100)*1 - 1
	require.InDelta(t, 100.0, pos.AvgEntry, 1e-9)
}

func TestUpdateFromFillOppositeFullCloseClearsAvg(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 1, Price: 100})
	pos := tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideSell, Quantity: 1, Price: 130})

	require.True(t, pos.IsFlat())
	require.InDelta(t, 30.0, pos.RealizedPnL, 1e-9)
	require.Equal(t, 0.0, pos.AvgEntry)
}

func TestUpdateFromFillOppositeFlipsSide(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 1, Price: 100})
	pos := tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideSell, Quantity: 3, Price: 110})

	require.Equal(t, SideSell, pos.Side)
	require.Equal(t, 2.0, pos.Quantity)
	require.InDelta(t, 110.0, pos.AvgEntry, 1e-9)
	require.InDelta(t, 10.0, pos.RealizedPnL, 1e-9) // closed 1 unit long at +10
}

func TestUpdatePriceRecomputesUnrealized(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "ETHUSDT", Side: SideBuy, Quantity: 2, Price: 1000})
	tr.UpdatePrice("ETHUSDT", 1050)

	pos, ok := tr.Get("ETHUSDT")
	require.True(t, ok)
	require.InDelta(t, 100.0, pos.UnrealizedPnL, 1e-9)
}

func TestTotalExposureAndPnLAggregateAcrossSymbols(t *testing.T) {
	tr := New(zerolog.Nop())
	tr.UpdateFromFill(Fill{Symbol: "BTCUSDT", Side: SideBuy, Quantity: 1, Price: 100})
	tr.UpdateFromFill(Fill{Symbol: "ETHUSDT", Side: SideSell, Quantity: 2, Price: 50})
	tr.UpdatePrice("BTCUSDT", 110)
	tr.UpdatePrice("ETHUSDT", 40)

	require.InDelta(t, 100+100, tr.TotalExposure(), 1e-9)
	require.InDelta(t, 10+20, tr.TotalPnL(), 1e-9)
	require.Len(t, tr.Open(), 2)
}
