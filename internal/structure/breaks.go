package structure

import "github.com/tradecore/engine/internal/candle"

// BreakKind distinguishes trend-continuation breaks from trend-flip breaks.
type BreakKind string

const (
	BOS   BreakKind = "bos"
	CHoCH BreakKind = "choch"
)

// Trend tracks the prevailing directional bias.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// StructureBreak is a confirmed break of a tracked swing.
type StructureBreak struct {
	CandleIndex   int
	Kind          BreakKind
	BrokenSwing   SwingPoint
	BreakPrice    float64
	Significance  float64
}

// initialTrend derives a starting bias from the first and last high swings
// in chronological order, per spec §4.4.
func initialTrend(swings []SwingPoint) Trend {
	var firstHigh, lastHigh *SwingPoint
	for i := range swings {
		if swings[i].Type != SwingHigh {
			continue
		}
		if firstHigh == nil {
			firstHigh = &swings[i]
		}
		lastHigh = &swings[i]
	}
	if firstHigh == nil || lastHigh == nil || firstHigh == lastHigh {
		return TrendNeutral
	}
	if firstHigh.Price < lastHigh.Price {
		return TrendBullish
	}
	return TrendBearish
}

// DetectBreaks walks candles after each swing looking for a close that
// crosses the swing's price, classifying BOS (continuation) vs CHoCH
// (trend flip) against the currently tracked trend.
func DetectBreaks(cs []candle.Candle, swings []SwingPoint) ([]StructureBreak, Trend) {
	trend := initialTrend(swings)
	if trend == TrendNeutral {
		trend = TrendBullish
	}

	var breaks []StructureBreak
swingLoop:
	for _, s := range swings {
		for i := s.Index + 1; i < len(cs); i++ {
			c := cs[i]
			switch s.Type {
			case SwingHigh:
				if c.Close > s.Price {
					kind := BOS
					if trend == TrendBearish {
						kind = CHoCH
						trend = TrendBullish
					}
					breaks = append(breaks, StructureBreak{
						CandleIndex: i, Kind: kind, BrokenSwing: s, BreakPrice: c.Close,
						Significance: significance(c.Close, s.Price),
					})
					continue swingLoop
				}
			case SwingLow:
				if c.Close < s.Price {
					kind := BOS
					if trend == TrendBullish {
						kind = CHoCH
						trend = TrendBearish
					}
					breaks = append(breaks, StructureBreak{
						CandleIndex: i, Kind: kind, BrokenSwing: s, BreakPrice: c.Close,
						Significance: significance(c.Close, s.Price),
					})
					continue swingLoop
				}
			}
		}
	}
	return breaks, trend
}

func significance(close, swingPrice float64) float64 {
	if swingPrice == 0 {
		return 0
	}
	diff := close - swingPrice
	if diff < 0 {
		diff = -diff
	}
	ratio := diff / swingPrice
	if ratio > 0.02 {
		ratio = 0.02
	}
	return ratio / 0.02
}
