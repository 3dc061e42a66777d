package backtest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/internal/signal"
)

func tradeWithPnL(pnl, risk float64, day time.Time) Trade {
	return Trade{
		Signal:          &signal.Signal{Entry: 100, Stop: 100 - risk},
		InitialQuantity: 1,
		RealizedPnL:     pnl,
		ExitTime:        day,
	}
}

func TestComputeMetricsWinRateAndProfitFactor(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []Trade{
		tradeWithPnL(100, 50, day),
		tradeWithPnL(-50, 50, day.Add(24*time.Hour)),
		tradeWithPnL(200, 50, day.Add(48*time.Hour)),
	}
	curve := []EquityPoint{
		{Timestamp: day, Equity: 10100},
		{Timestamp: day.Add(24 * time.Hour), Equity: 10050},
		{Timestamp: day.Add(48 * time.Hour), Equity: 10250},
	}

	m := ComputeMetrics(trades, curve, 10000)
	require.Equal(t, 3, m.TotalTrades)
	require.Equal(t, 2, m.WinningTrades)
	require.Equal(t, 1, m.LosingTrades)
	require.InDelta(t, 2.0/3.0, m.WinRate, 1e-9)
	require.InDelta(t, 300.0/50.0, m.ProfitFactor, 1e-9)
	require.InDelta(t, 250.0, m.TotalPnL, 1e-9)
}

func TestComputeMetricsEmptyTrades(t *testing.T) {
	m := ComputeMetrics(nil, nil, 10000)
	require.Equal(t, 0, m.TotalTrades)
	require.Equal(t, 0.0, m.WinRate)
}

func TestComputeMetricsMaxDrawdown(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := []EquityPoint{
		{Timestamp: day, Equity: 10000, Drawdown: 0, DrawdownPct: 0},
		{Timestamp: day.Add(time.Hour), Equity: 9000, Drawdown: 1000, DrawdownPct: 0.1},
		{Timestamp: day.Add(2 * time.Hour), Equity: 9500, Drawdown: 500, DrawdownPct: 0.05},
	}
	m := ComputeMetrics([]Trade{tradeWithPnL(-500, 50, day)}, curve, 10000)
	require.InDelta(t, 1000.0, m.MaxDrawdown, 1e-9)
	require.InDelta(t, 0.1, m.MaxDrawdownPercent, 1e-9)
}

func TestComputeMetricsConsecutiveStreaks(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []Trade{
		tradeWithPnL(10, 10, day), tradeWithPnL(10, 10, day), tradeWithPnL(10, 10, day),
		tradeWithPnL(-5, 10, day), tradeWithPnL(-5, 10, day),
	}
	m := ComputeMetrics(trades, nil, 10000)
	require.Equal(t, 3, m.MaxConsecutiveWins)
	require.Equal(t, 2, m.MaxConsecutiveLosses)
}

func TestComputeMetricsRMultiples(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []Trade{
		tradeWithPnL(100, 50, day),  // R = 2.0
		tradeWithPnL(-50, 50, day),  // R = -1.0
	}
	m := ComputeMetrics(trades, nil, 10000)
	require.InDelta(t, 0.5, m.AvgRMultiple, 1e-9)
	require.InDelta(t, 2.0, m.BestRMultiple, 1e-9)
	require.InDelta(t, -1.0, m.WorstRMultiple, 1e-9)
}
