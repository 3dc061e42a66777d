package signal

import (
	"github.com/cinar/indicator"
	"github.com/tradecore/engine/internal/candle"
)

// AverageTrueRange computes the ATR series over cs using period n, via the
// cinar/indicator library.
func AverageTrueRange(cs []candle.Candle, n int) []float64 {
	if len(cs) == 0 {
		return nil
	}
	highs := make([]float64, len(cs))
	lows := make([]float64, len(cs))
	closings := make([]float64, len(cs))
	for i, c := range cs {
		highs[i] = c.High
		lows[i] = c.Low
		closings[i] = c.Close
	}
	_, atr := indicator.Atr(n, highs, lows, closings)
	return atr
}
