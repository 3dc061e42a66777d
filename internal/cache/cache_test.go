package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/internal/candle"
)

// newUnhealthyCache builds a Cache without dialing Redis, for exercising the
// circuit-breaker bookkeeping in isolation.
func newUnhealthyCache() *Cache {
	return &Cache{maxFailures: 3, checkInterval: 30 * time.Second}
}

func TestRecordFailureTripsAfterMaxFailures(t *testing.T) {
	c := newUnhealthyCache()
	c.healthy = true
	c.recordFailure()
	c.recordFailure()
	require.True(t, c.IsHealthy())
	c.recordFailure()
	require.False(t, c.IsHealthy())
}

func TestRecordSuccessResetsFailureCount(t *testing.T) {
	c := newUnhealthyCache()
	c.recordFailure()
	c.recordFailure()
	c.recordSuccess()
	require.True(t, c.IsHealthy())
	require.Equal(t, 0, c.failureCount)
}

func TestMaybeRecoverSkipsBeforeCheckInterval(t *testing.T) {
	c := newUnhealthyCache()
	c.healthy = false
	c.lastCheck = time.Now()
	c.maybeRecover(nil)
	// still unhealthy immediately after a failure; no recovery goroutine fired yet
	require.False(t, c.IsHealthy())
}

func TestKeyFormattingIsStable(t *testing.T) {
	key := fmt.Sprintf(prefixSyncing, "BTC-USD", candle.TF1h, "hyperliquid")
	require.Equal(t, "sync:BTC-USD:1h:hyperliquid:syncing", key)
}
