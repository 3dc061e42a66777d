package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/signal"
)

func mkCandle(ts time.Time, o, h, l, c float64) candle.Candle {
	return candle.Candle{
		Symbol: "BTCUSDT", Timeframe: candle.TF1h, Source: "test",
		Timestamp: ts, Open: o, High: h, Low: l, Close: c, Volume: 100,
	}
}

func TestEngineOpensAndHitsAllTargets(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candle.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Hour), 100, 102, 99, 101), // entry candle
		mkCandle(base.Add(2*time.Hour), 101, 106, 100, 105), // TP1 (105)
		mkCandle(base.Add(3*time.Hour), 105, 111, 104, 110), // TP2 (110)
		mkCandle(base.Add(4*time.Hour), 110, 116, 109, 115), // TP3 (115)
	}

	emitted := false
	generated := false
	generator := func(c candle.Candle, index int) *signal.Signal {
		if generated || index != 1 {
			return nil
		}
		generated = true
		return &signal.Signal{
			Symbol: "BTCUSDT", Side: signal.SideLong, Entry: 101, Stop: 98,
			TP1: 105, TP2: 110, TP3: 115,
		}
	}

	cfg := DefaultConfig()
	cfg.EmitInterval = 1
	e := New(cfg, generator)
	e.OnSnapshot(func(s State) { emitted = true })

	state := e.Run(candles)

	require.Equal(t, StatusCompleted, state.Status)
	require.True(t, emitted)
	require.Empty(t, state.OpenTrades)
	require.NotEmpty(t, state.ClosedTrades)
	require.Greater(t, state.CurrentCapital, cfg.InitialCapital) // net winning sequence
}

func TestEngineClosesFullyAtLastConfiguredTargetWhenTP3Unset(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candle.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Hour), 100, 102, 99, 101), // entry candle
		mkCandle(base.Add(2*time.Hour), 101, 106, 100, 105), // TP1 (105)
		mkCandle(base.Add(3*time.Hour), 105, 111, 104, 110), // TP2 (110), no TP3
		mkCandle(base.Add(4*time.Hour), 110, 112, 109, 111),
	}

	generated := false
	generator := func(c candle.Candle, index int) *signal.Signal {
		if generated || index != 1 {
			return nil
		}
		generated = true
		return &signal.Signal{
			Symbol: "BTCUSDT", Side: signal.SideLong, Entry: 101, Stop: 98,
			TP1: 105, TP2: 110,
		}
	}

	e := New(DefaultConfig(), generator)
	state := e.Run(candles)

	require.Equal(t, StatusCompleted, state.Status)
	require.Empty(t, state.OpenTrades)
	require.Len(t, state.ClosedTrades, 1)
	require.Equal(t, TradeTP2Hit, state.ClosedTrades[0].Status)
	require.InDelta(t, 0, state.ClosedTrades[0].RemainingQty, 1e-9)
}

func TestEngineStopLossCloses(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candle.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Hour), 100, 102, 99, 101),
		mkCandle(base.Add(2*time.Hour), 101, 102, 96, 97), // stop hit (98)
	}

	generated := false
	generator := func(c candle.Candle, index int) *signal.Signal {
		if generated || index != 1 {
			return nil
		}
		generated = true
		return &signal.Signal{Symbol: "BTCUSDT", Side: signal.SideLong, Entry: 101, Stop: 98, TP1: 120}
	}

	e := New(DefaultConfig(), generator)
	state := e.Run(candles)

	require.Equal(t, StatusCompleted, state.Status)
	require.Len(t, state.ClosedTrades, 1)
	require.Equal(t, TradeStopped, state.ClosedTrades[0].Status)
	require.Less(t, state.ClosedTrades[0].RealizedPnL, 0.0)
}

func TestEnginePessimisticOrderingPicksStopWhenCloser(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candle.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Hour), 100, 102, 99, 101),
		// open (99) is closer to stop (98) than to TP1 (120): stop wins.
		mkCandle(base.Add(2*time.Hour), 99, 121, 90, 95),
	}

	generated := false
	generator := func(c candle.Candle, index int) *signal.Signal {
		if generated || index != 1 {
			return nil
		}
		generated = true
		return &signal.Signal{Symbol: "BTCUSDT", Side: signal.SideLong, Entry: 101, Stop: 98, TP1: 120}
	}

	e := New(DefaultConfig(), generator)
	state := e.Run(candles)

	require.Len(t, state.ClosedTrades, 1)
	require.Equal(t, TradeStopped, state.ClosedTrades[0].Status)
}

func TestEngineStopBeforeRunAborts(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := []candle.Candle{
		mkCandle(base, 100, 101, 99, 100),
		mkCandle(base.Add(time.Hour), 100, 102, 99, 101),
		mkCandle(base.Add(2*time.Hour), 101, 103, 100, 102),
	}

	e := New(DefaultConfig(), nil)
	e.Stop()
	state := e.Run(candles)
	require.Equal(t, StatusAborted, state.Status)
}

func TestEnginePauseResumeIsIdempotent(t *testing.T) {
	e := New(DefaultConfig(), nil)
	e.Pause() // no-op: engine is idle, not running
	require.Equal(t, StatusIdle, e.status)
	e.Resume() // no-op: engine was never paused
	require.Equal(t, StatusIdle, e.status)
}
