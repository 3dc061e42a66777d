package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/confluence"
)

const (
	prefixSyncing    = "sync:%s:%s:%s:syncing"   // symbol, timeframe, source
	prefixRateGrant  = "ratelimit:%s:grants"      // limiter name
	prefixConfluence = "confluence:%s:%s:%s"      // symbol, entry tf, htf
)

// syncingTTL bounds how long a stale "syncing" flag can survive a crashed
// fetcher before the next BeginSync call is allowed to proceed again.
const syncingTTL = 10 * time.Minute

// IsSyncing is the fast path ahead of the Postgres sync_state row: a hit
// means a sync is very likely already in progress for this cursor.
func (c *Cache) IsSyncing(ctx context.Context, symbol string, tf candle.Timeframe, source string) (bool, error) {
	_, err := c.Get(ctx, fmt.Sprintf(prefixSyncing, symbol, tf, source))
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSyncing sets the fast-path syncing flag.
func (c *Cache) MarkSyncing(ctx context.Context, symbol string, tf candle.Timeframe, source string) error {
	return c.Set(ctx, fmt.Sprintf(prefixSyncing, symbol, tf, source), "1", syncingTTL)
}

// ClearSyncing removes the fast-path syncing flag once a sync completes.
func (c *Cache) ClearSyncing(ctx context.Context, symbol string, tf candle.Timeframe, source string) error {
	return c.Delete(ctx, fmt.Sprintf(prefixSyncing, symbol, tf, source))
}

// RecordRateLimitGrant mirrors one rate-limiter grant into Redis so a
// distributed deployment can observe aggregate usage across processes
// without making Redis the limiter's source of truth (internal/ratelimit
// stays the authoritative in-process limiter per spec §4.9).
func (c *Cache) RecordRateLimitGrant(ctx context.Context, limiterName string, window time.Duration) (int64, error) {
	return c.Incr(ctx, fmt.Sprintf(prefixRateGrant, limiterName), window)
}

// ConfluenceScoreTTL bounds how long a memoized score is trusted before the
// caller must recompute it from fresh candles.
const ConfluenceScoreTTL = 2 * time.Minute

// GetConfluenceScore returns a memoized score for (symbol, entryTF, htfTF),
// if present and unexpired.
func (c *Cache) GetConfluenceScore(ctx context.Context, symbol string, entryTF, htfTF candle.Timeframe) (confluence.Score, bool, error) {
	var score confluence.Score
	err := c.GetJSON(ctx, fmt.Sprintf(prefixConfluence, symbol, entryTF, htfTF), &score)
	if err == redis.Nil {
		return confluence.Score{}, false, nil
	}
	if err != nil {
		return confluence.Score{}, false, err
	}
	return score, true, nil
}

// SetConfluenceScore memoizes a freshly computed score.
func (c *Cache) SetConfluenceScore(ctx context.Context, symbol string, entryTF, htfTF candle.Timeframe, score confluence.Score) error {
	return c.Set(ctx, fmt.Sprintf(prefixConfluence, symbol, entryTF, htfTF), score, ConfluenceScoreTTL)
}
