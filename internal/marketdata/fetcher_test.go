package marketdata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tradecore/engine/internal/candle"
)

type stubSource struct {
	pages [][]candle.Candle
	calls int
}

func (s *stubSource) FetchKlines(ctx context.Context, symbol string, tf candle.Timeframe, startMs, endMs int64, limit int) ([]candle.Candle, error) {
	if s.calls >= len(s.pages) {
		return nil, nil
	}
	p := s.pages[s.calls]
	s.calls++
	return p, nil
}

func mkCandle(ts time.Time) candle.Candle {
	return candle.Candle{Symbol: "BTC", Timeframe: candle.TF1h, Timestamp: ts, Open: 1, High: 2, Low: 1, Close: 1.5}
}

func TestFetchAllStopsOnShortBatch(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &stubSource{
		pages: [][]candle.Candle{
			{mkCandle(base)},
		},
	}
	f := &Fetcher{Source: src, BatchSize: 5}
	end := base.Add(time.Hour)
	out, err := f.FetchAll(context.Background(), "BTC", candle.TF1h, nil, &end, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestFetchAllDedupesByTimestamp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dupe := []candle.Candle{mkCandle(base), mkCandle(base)}
	src := &stubSource{pages: [][]candle.Candle{dupe}}
	f := &Fetcher{Source: src, BatchSize: 2}
	end := base.Add(time.Hour)
	out, err := f.FetchAll(context.Background(), "BTC", candle.TF1h, nil, &end, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestFetchAllStopsAtStartBound(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &stubSource{pages: [][]candle.Candle{
		{mkCandle(base.Add(10 * time.Hour))},
		{mkCandle(base.Add(9 * time.Hour))},
	}}
	f := &Fetcher{Source: src, BatchSize: 1}
	start := base.Add(9 * time.Hour)
	end := base.Add(11 * time.Hour)
	out, err := f.FetchAll(context.Background(), "BTC", candle.TF1h, &start, &end, nil)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}
