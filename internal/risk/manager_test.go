package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	c := DefaultConfig()
	c.MaxOrderNotional = 10000
	c.MaxPositionSizeUSD = 20000
	c.MaxPositionSizePercent = 0.5
	c.MaxTotalExposure = 50000
	c.MaxExposurePercent = 0.9
	c.MaxPositions = 3
	c.MaxOpenOrders = 5
	c.MaxDailyLoss = 1000
	c.MaxDailyLossPercent = 0.1
	c.MaxConsecutiveLosses = 2
	c.MaxConsecutiveErrors = 2
	c.MaxPriceDeviation = 0.01
	c.CircuitBreakerCooldown = 50 * time.Millisecond
	return c
}

func TestCheckOrderApprovesWithinLimits(t *testing.T) {
	m := NewManager(testConfig())
	approved, reason := m.CheckOrder(CheckRequest{
		Symbol: "BTCUSDT", NotionalUSD: 1000, IsMarket: true,
		AccountBalance: 50000, OpenPositionCount: 0, OpenOrderCount: 0,
	})
	require.True(t, approved)
	require.Empty(t, reason)
}

func TestCheckOrderRejectsNotionalOverLimit(t *testing.T) {
	m := NewManager(testConfig())
	approved, reason := m.CheckOrder(CheckRequest{NotionalUSD: 20000, IsMarket: true, AccountBalance: 50000})
	require.False(t, approved)
	require.Contains(t, reason, "notional")
}

func TestCheckOrderRejectsPositionCount(t *testing.T) {
	m := NewManager(testConfig())
	approved, reason := m.CheckOrder(CheckRequest{
		NotionalUSD: 100, IsMarket: true, AccountBalance: 50000, OpenPositionCount: 3,
	})
	require.False(t, approved)
	require.Contains(t, reason, "position count")
}

func TestCheckOrderPriceSanitySkippedForMarket(t *testing.T) {
	m := NewManager(testConfig())
	approved, _ := m.CheckOrder(CheckRequest{
		NotionalUSD: 100, IsMarket: true, AccountBalance: 50000, MarketPrice: 0,
	})
	require.True(t, approved)
}

func TestCheckOrderRejectsPriceDeviationForLimit(t *testing.T) {
	m := NewManager(testConfig())
	approved, reason := m.CheckOrder(CheckRequest{
		NotionalUSD: 100, IsMarket: false, LimitPrice: 110, MarketPrice: 100, AccountBalance: 50000,
	})
	require.False(t, approved)
	require.Contains(t, reason, "deviates")
}

func TestCheckOrderRejectsMissingMarketPriceForLimit(t *testing.T) {
	m := NewManager(testConfig())
	approved, reason := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: false, AccountBalance: 50000})
	require.False(t, approved)
	require.Contains(t, reason, "unavailable")
}

func TestRecordTradeTripsBreakerOnConsecutiveLosses(t *testing.T) {
	m := NewManager(testConfig())
	m.RecordTrade(-100)
	m.RecordTrade(-100)

	approved, reason := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.False(t, approved)
	require.Contains(t, reason, "circuit breaker")
}

func TestBreakerAutoResetsAfterCooldown(t *testing.T) {
	m := NewManager(testConfig())
	m.RecordTrade(-100)
	m.RecordTrade(-100)

	time.Sleep(60 * time.Millisecond)
	approved, _ := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.True(t, approved)
}

func TestRecordErrorTripsBreakerAndSuccessResets(t *testing.T) {
	m := NewManager(testConfig())
	m.RecordError(errors.New("boom"))
	m.RecordSuccess()
	m.RecordError(errors.New("boom"))

	approved, _ := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.True(t, approved) // RecordSuccess reset the counter before the second error

	m.RecordError(errors.New("boom"))
	approved, reason := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.False(t, approved)
	require.Contains(t, reason, "circuit breaker")
}

func TestDailyLossLimitRejectsOrder(t *testing.T) {
	m := NewManager(testConfig())
	m.RecordTrade(-1500)

	approved, reason := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.False(t, approved)
	require.Contains(t, reason, "daily loss")
}

func TestManualTripAndReset(t *testing.T) {
	m := NewManager(testConfig())
	m.TripCircuitBreaker("manual halt")

	approved, _ := m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.False(t, approved)

	m.ResetCircuitBreaker()
	approved, _ = m.CheckOrder(CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000})
	require.True(t, approved)
}
