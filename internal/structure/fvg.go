package structure

import "github.com/tradecore/engine/internal/candle"

// GapType distinguishes bullish from bearish fair value gaps.
type GapType string

const (
	BullishGap GapType = "bullish"
	BearishGap GapType = "bearish"
)

// FairValueGap is a three-candle gap per spec §3.1/§4.4.
type FairValueGap struct {
	FirstIndex     int
	MiddleIndex    int
	LastIndex      int
	Type           GapType
	Top            float64
	Bottom         float64
	FillPercentage float64
}

// DetectFVGs scans consecutive triplets (p, m, n) and emits bullish FVGs
// where n.Low > p.High and bearish where n.High < p.Low, each gated on the
// gap's size relative to the middle candle's close. Fill percentage is the
// deepest wick penetration into the gap by any candle after it formed.
func DetectFVGs(cs []candle.Candle, p Params) []FairValueGap {
	minGap := p.MinGapPct
	if minGap <= 0 {
		minGap = 0.002
	}

	var out []FairValueGap
	for i := 0; i+2 < len(cs); i++ {
		first, mid, last := cs[i], cs[i+1], cs[i+2]

		if last.Low > first.High {
			gapPct := (last.Low - first.High) / mid.Close
			if gapPct >= minGap {
				fvg := FairValueGap{
					FirstIndex: i, MiddleIndex: i + 1, LastIndex: i + 2,
					Type: BullishGap, Top: last.Low, Bottom: first.High,
				}
				fvg.FillPercentage = fillPercentage(cs[i+3:], fvg)
				out = append(out, fvg)
			}
		}
		if last.High < first.Low {
			gapPct := (first.Low - last.High) / mid.Close
			if gapPct >= minGap {
				fvg := FairValueGap{
					FirstIndex: i, MiddleIndex: i + 1, LastIndex: i + 2,
					Type: BearishGap, Top: first.Low, Bottom: last.High,
				}
				fvg.FillPercentage = fillPercentage(cs[i+3:], fvg)
				out = append(out, fvg)
			}
		}
	}
	return out
}

// fillPercentage measures how far subsequent price has retraced into the
// gap: 0 means untouched, 1 means fully traded through.
func fillPercentage(after []candle.Candle, fvg FairValueGap) float64 {
	width := fvg.Top - fvg.Bottom
	if width <= 0 {
		return 0
	}
	deepest := 0.0
	for _, c := range after {
		var penetration float64
		switch fvg.Type {
		case BullishGap:
			if c.Low < fvg.Top {
				penetration = (fvg.Top - maxf(c.Low, fvg.Bottom)) / width
			}
		case BearishGap:
			if c.High > fvg.Bottom {
				penetration = (minf(c.High, fvg.Top) - fvg.Bottom) / width
			}
		}
		if penetration > deepest {
			deepest = penetration
		}
	}
	if deepest > 1 {
		return 1
	}
	return deepest
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
