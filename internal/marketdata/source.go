// Package marketdata implements the paginated historical fetcher, CSV
// importer and sync-state cursor of spec §4.2. Grounded on the teacher's
// internal/binance/client.go (kline decoding shape) and rate_limiter.go
// (windowed pagination), reworked onto retryablehttp for the spec's
// exact backoff/429/fatal-4xx contract.
package marketdata

import (
	"context"
	"time"

	"github.com/tradecore/engine/internal/candle"
)

// KlineSource fetches one page of candles for a symbol/timeframe window.
// Implementations own transport-level retry semantics.
type KlineSource interface {
	FetchKlines(ctx context.Context, symbol string, tf candle.Timeframe, startMs, endMs int64, limit int) ([]candle.Candle, error)
}

// ProgressCallback is invoked after each successful batch during a fetch_all run.
type ProgressCallback func(fetched int, batches int, oldest, newest time.Time)

// FetchCheckpoint tracks progress of an in-flight or interrupted backfill,
// independent of the sync-state cursor, so a crashed run can resume
// mid-page rather than restarting from the sync cursor's last confirmed point.
type FetchCheckpoint struct {
	Symbol        string
	Timeframe     candle.Timeframe
	Source        string
	LastWindowEnd time.Time
}
