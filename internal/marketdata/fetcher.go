package marketdata

import (
	"context"
	"sort"
	"time"

	"github.com/tradecore/engine/internal/candle"
)

const maxBatchSize = 500

// Fetcher drives a KlineSource through the spec's backward-windowing
// pagination, deduplicating by timestamp and reporting progress per batch.
type Fetcher struct {
	Source    KlineSource
	BatchSize int
}

// NewFetcher builds a Fetcher with the spec's default batch size.
func NewFetcher(source KlineSource) *Fetcher {
	return &Fetcher{Source: source, BatchSize: maxBatchSize}
}

// FetchAll windows backward from end (default now) toward start (default
// unbounded), advancing until start is reached or a short batch signals
// end-of-history. Duplicates are removed by timestamp.
func (f *Fetcher) FetchAll(ctx context.Context, symbol string, tf candle.Timeframe, start, end *time.Time, onProgress ProgressCallback) ([]candle.Candle, error) {
	batch := f.BatchSize
	if batch <= 0 || batch > maxBatchSize {
		batch = maxBatchSize
	}
	d := candle.Duration(tf)

	windowEnd := time.Now().UTC()
	if end != nil {
		windowEnd = *end
	}

	seen := make(map[int64]candle.Candle)
	batches := 0

	for {
		windowStart := windowEnd.Add(-time.Duration(batch) * d)
		if start != nil && windowStart.Before(*start) {
			windowStart = *start
		}
		if !windowStart.Before(windowEnd) {
			break
		}

		got, err := f.Source.FetchKlines(ctx, symbol, tf, windowStart.UnixMilli(), windowEnd.UnixMilli(), batch)
		if err != nil {
			return nil, err
		}

		for _, c := range got {
			seen[c.Timestamp.UnixMilli()] = c
		}
		batches++

		if onProgress != nil {
			oldest, newest := windowBounds(got)
			onProgress(len(got), batches, oldest, newest)
		}

		if start != nil && !windowStart.After(*start) {
			break
		}
		if len(got) < batch {
			break
		}
		windowEnd = windowStart
	}

	out := make([]candle.Candle, 0, len(seen))
	for _, c := range seen {
		out = append(out, c)
	}
	candle.SortByTimestamp(out)
	return out, nil
}

func windowBounds(cs []candle.Candle) (oldest, newest time.Time) {
	if len(cs) == 0 {
		return
	}
	sorted := append([]candle.Candle(nil), cs...)
	sort.Sort(candle.ByTimestamp(sorted))
	return sorted[0].Timestamp, sorted[len(sorted)-1].Timestamp
}
