package structure

import "github.com/tradecore/engine/internal/candle"

// OrderBlock is the last opposite-colored candle before a strong
// same-direction move, per spec §4.4.
type OrderBlock struct {
	CandleIndex int
	IsBullish   bool
	Top         float64
	Bottom      float64
	Volume      float64
	Strength    float64
	Tested      int
}

// DetectOrderBlocks scans for the last bearish candle before >=4-of-5
// bullish follow-through whose subsequent high clears close*(1+minMove), and
// symmetrically for bearish order blocks.
func DetectOrderBlocks(cs []candle.Candle, p Params) []OrderBlock {
	var out []OrderBlock
	minMove := p.MinMovePct
	if minMove <= 0 {
		minMove = 0.01
	}
	n := len(cs)
	for i := 0; i+5 < n; i++ {
		c := cs[i]
		window := cs[i+1 : i+6]

		bullCount := 0
		maxHigh := 0.0
		for _, w := range window {
			if w.IsBullish() {
				bullCount++
			}
			if w.High > maxHigh {
				maxHigh = w.High
			}
		}

		if c.IsBearish() && bullCount >= 4 && maxHigh >= c.Close*(1+minMove) {
			movePct := (maxHigh - c.Close) / c.Close
			out = append(out, OrderBlock{
				CandleIndex: i, IsBullish: true,
				Top: c.High, Bottom: c.Low, Volume: c.Volume,
				Strength: clampMove(movePct),
				Tested:   countTests(cs[i+1:], c.Low, c.High),
			})
		}

		bearCount := 0
		minLow := window[0].Low
		for _, w := range window {
			if w.IsBearish() {
				bearCount++
			}
			if w.Low < minLow {
				minLow = w.Low
			}
		}
		if c.IsBullish() && bearCount >= 4 && minLow <= c.Close*(1-minMove) {
			movePct := (c.Close - minLow) / c.Close
			out = append(out, OrderBlock{
				CandleIndex: i, IsBullish: false,
				Top: c.High, Bottom: c.Low, Volume: c.Volume,
				Strength: clampMove(movePct),
				Tested:   countTests(cs[i+1:], c.Low, c.High),
			})
		}
	}
	return out
}

func clampMove(movePct float64) float64 {
	v := movePct / 0.05
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func countTests(after []candle.Candle, bottom, top float64) int {
	n := 0
	for _, c := range after {
		if c.Close >= bottom && c.Close <= top {
			n++
		}
	}
	return n
}
