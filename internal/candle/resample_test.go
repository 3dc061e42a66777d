package candle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResample12x5mTo1h(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	var cs []Candle
	for i := 0; i < 12; i++ {
		cs = append(cs, Candle{
			Symbol:    "BTCUSD",
			Timeframe: TF5m,
			Timestamp: start.Add(time.Duration(i) * 5 * time.Minute),
			Open:      100 + float64(i),
			High:      105 + float64(i),
			Low:       95 + float64(i),
			Close:     102 + float64(i),
			Volume:    1000 + 10*float64(i),
		})
	}

	out, err := Resample(cs, TF5m, TF1h)
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	require.True(t, got.Timestamp.Equal(start))
	require.Equal(t, 100.0, got.Open)
	require.Equal(t, 113.0, got.Close)
	require.Equal(t, 116.0, got.High)
	require.Equal(t, 95.0, got.Low)
	require.Equal(t, 12660.0, got.Volume)
}

func TestResampleRejectsFinerDestination(t *testing.T) {
	_, err := Resample(nil, TF1h, TF5m)
	require.Error(t, err)
}

func TestResampleRejectsNonMultiple(t *testing.T) {
	_, err := Resample(nil, TF1w, TF1M) // 1M=30d is not a multiple of 1w=7d
	require.Error(t, err)
	_, err = Resample(nil, TF3m, TF1h) // 1h=3600s, 3m=180s, divisible, accepted
	require.NoError(t, err)
}

func TestResampleEmptyInput(t *testing.T) {
	out, err := Resample(nil, TF5m, TF1h)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestResampleOutOfOrderInput(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cs := []Candle{
		{Timestamp: start.Add(10 * time.Minute), Open: 3, Close: 4, High: 5, Low: 1, Volume: 1},
		{Timestamp: start, Open: 1, Close: 2, High: 3, Low: 0.5, Volume: 1},
		{Timestamp: start.Add(5 * time.Minute), Open: 2, Close: 3, High: 4, Low: 1, Volume: 1},
	}
	out, err := Resample(cs, TF5m, TF15m)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 1.0, out[0].Open)
	require.Equal(t, 4.0, out[0].Close)
}

func TestAssociativeResample(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var cs []Candle
	for i := 0; i < 24; i++ {
		cs = append(cs, Candle{
			Timestamp: start.Add(time.Duration(i) * 15 * time.Minute),
			Open:      float64(i), High: float64(i) + 2, Low: float64(i) - 1, Close: float64(i) + 1,
			Volume: 1,
		})
	}
	direct, err := Resample(cs, TF15m, TF4h)
	require.NoError(t, err)

	viaHour, err := Resample(cs, TF15m, TF1h)
	require.NoError(t, err)
	chained, err := Resample(viaHour, TF1h, TF4h)
	require.NoError(t, err)

	require.Equal(t, direct, chained)
}

func TestAlignIdempotent(t *testing.T) {
	ts := time.Date(2024, 3, 5, 13, 47, 22, 0, time.UTC)
	once := Align(ts, TF15m)
	twice := Align(once, TF15m)
	require.True(t, once.Equal(twice))
}
