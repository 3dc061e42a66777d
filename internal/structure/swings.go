// Package structure implements §4.4: swing points, BOS/CHoCH breaks, order
// blocks and fair value gaps. Grounded on the teacher's
// internal/analysis/trend.go (swing scanning, trend tracking) and
// internal/analysis/fvg.go (three-candle gap scan), reworked to the spec's
// exact lookback-window and trend-flip rules.
package structure

import "github.com/tradecore/engine/internal/candle"

// SwingType is high or low.
type SwingType string

const (
	SwingHigh SwingType = "high"
	SwingLow  SwingType = "low"
)

// SwingPoint is a confirmed local extremum.
type SwingPoint struct {
	Index    int
	Type     SwingType
	Price    float64
	Strength float64
}

// Params tunes the structure analyzer; zero value is invalid, use DefaultParams.
type Params struct {
	Lookback    int     // L
	MinBodyPct  float64 // theta_body
	MinMovePct  float64 // theta_move for order blocks
	MinGapPct   float64 // theta_gap for FVGs
}

// DefaultParams matches spec §4.4's documented defaults.
func DefaultParams() Params {
	return Params{Lookback: 5, MinBodyPct: 0.3, MinMovePct: 0.01, MinGapPct: 0.002}
}

// FindSwings scans indices [L, n-L) for a strict local extremum over the
// 2L+1 window, additionally requiring the candle pass a body-or-doji noise
// filter (body/range >= MinBodyPct, or the candle is a doji: body/range < 0.1).
func FindSwings(cs []candle.Candle, p Params) []SwingPoint {
	L := p.Lookback
	n := len(cs)
	if L <= 0 || n < 2*L+1 {
		return nil
	}

	var out []SwingPoint
	for i := L; i < n-L; i++ {
		c := cs[i]
		isHigh, isLow := true, true
		for j := i - L; j <= i+L; j++ {
			if j == i {
				continue
			}
			if cs[j].High >= c.High {
				isHigh = false
			}
			if cs[j].Low <= c.Low {
				isLow = false
			}
		}
		if !isHigh && !isLow {
			continue
		}
		rng := c.Range()
		bodyPct := 0.0
		if rng > 0 {
			bodyPct = c.Body() / rng
		}
		isDoji := bodyPct < 0.10
		if bodyPct < p.MinBodyPct && !isDoji {
			continue
		}

		if isHigh {
			out = append(out, SwingPoint{Index: i, Type: SwingHigh, Price: c.High, Strength: strengthOf(bodyPct)})
		}
		if isLow {
			out = append(out, SwingPoint{Index: i, Type: SwingLow, Price: c.Low, Strength: strengthOf(bodyPct)})
		}
	}
	return out
}

func strengthOf(bodyPct float64) float64 {
	if bodyPct > 1 {
		return 1
	}
	return bodyPct
}
