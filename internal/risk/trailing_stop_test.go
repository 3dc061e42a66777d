package risk

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/internal/position"
)

func testTrailingManager() *TrailingStopManager {
	return NewTrailingStopManager(TrailingConfig{Enabled: true, TrailingPercent: 0.02, ActivationPercent: 0.01}, zerolog.Nop())
}

func TestTrailingStopActivatesAfterProfitThreshold(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("BTC-USD", position.SideBuy, 100, 95)

	require.Nil(t, tsm.UpdatePrice("BTC-USD", 100.5))
	pos, ok := tsm.GetPosition("BTC-USD")
	require.True(t, ok)
	require.False(t, pos.IsActivated)

	update := tsm.UpdatePrice("BTC-USD", 102)
	require.NotNil(t, update)
	pos, _ = tsm.GetPosition("BTC-USD")
	require.True(t, pos.IsActivated)
	require.Greater(t, pos.CurrentStopLoss, 95.0)
}

func TestTrailingStopNeverMovesDownForLong(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("BTC-USD", position.SideBuy, 100, 95)
	tsm.UpdatePrice("BTC-USD", 110)
	stopAfterRise, _ := tsm.CurrentStopLoss("BTC-USD")

	update := tsm.UpdatePrice("BTC-USD", 109)
	require.Nil(t, update)
	stopAfterPullback, _ := tsm.CurrentStopLoss("BTC-USD")
	require.Equal(t, stopAfterRise, stopAfterPullback)
}

func TestTrailingStopTriggersOnBreach(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("BTC-USD", position.SideBuy, 100, 95)

	update := tsm.UpdatePrice("BTC-USD", 94)
	require.NotNil(t, update)
	require.True(t, update.IsTriggered)
}

func TestTrailingStopShortSidePullsStopDown(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("ETH-USD", position.SideSell, 100, 105)

	tsm.UpdatePrice("ETH-USD", 98)
	stop, _ := tsm.CurrentStopLoss("ETH-USD")
	require.Less(t, stop, 105.0)
}

func TestMoveToBreakevenPinsStopToEntry(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("BTC-USD", position.SideBuy, 100, 95)
	tsm.MoveToBreakeven("BTC-USD")

	stop, ok := tsm.CurrentStopLoss("BTC-USD")
	require.True(t, ok)
	require.Equal(t, 100.0, stop)
}

func TestRemovePositionStopsTracking(t *testing.T) {
	tsm := testTrailingManager()
	tsm.AddPosition("BTC-USD", position.SideBuy, 100, 95)
	tsm.RemovePosition("BTC-USD")

	_, ok := tsm.GetPosition("BTC-USD")
	require.False(t, ok)
}
