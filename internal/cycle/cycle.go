// Package cycle classifies a trailing candle window into a market regime
// (Drive, Range, Liquidity), per spec §4.6. Grounded on the teacher's
// internal/analysis/trend.go momentum/volatility scan, reworked to the
// spec's metric set and classification thresholds.
package cycle

import (
	"math"

	"github.com/tradecore/engine/internal/candle"
)

// Classification is the market regime label.
type Classification string

const (
	Drive     Classification = "drive"
	Range     Classification = "range"
	Liquidity Classification = "liquidity"
)

// Metrics is the computed CycleMetrics over a trailing window, per spec §4.6.
type Metrics struct {
	MomentumScore        float64
	DirectionalStrength  float64
	NormalizedVolatility float64
	WickDominance        float64
	PriceOscillations    int
	SweepCount           int
}

// Params tunes the classifier; zero value is invalid, use DefaultParams.
type Params struct {
	Window          int
	DriveThreshold  float64 // theta_drive
	RangeThreshold  float64 // theta_range
	ReferenceStdDev float64 // normalizes volatility to [0,1]
}

// DefaultParams matches spec §4.6's documented defaults.
func DefaultParams() Params {
	return Params{Window: 45, DriveThreshold: 0.5, RangeThreshold: 0.35, ReferenceStdDev: 0.02}
}

// ComputeMetrics derives CycleMetrics from the trailing window of cs
// (the full slice is treated as the window; callers pass cs[len(cs)-W:]).
func ComputeMetrics(cs []candle.Candle, p Params) Metrics {
	if len(cs) < 2 {
		return Metrics{}
	}

	var signedBodySum, absBodySum float64
	var wickRatioSum, rangeSum float64
	for _, c := range cs {
		signed := c.Close - c.Open
		signedBodySum += signed
		absBodySum += math.Abs(signed)
		rng := c.Range()
		rangeSum += rng
		if rng > 0 {
			wickRatioSum += (c.UpperWick() + c.LowerWick()) / rng
		}
	}

	n := float64(len(cs))
	momentum := 0.0
	if rangeSum > 0 {
		momentum = clamp(signedBodySum/rangeSum, -1, 1)
	}

	directional := 0.0
	if absBodySum > 0 {
		directional = math.Abs(signedBodySum) / absBodySum
	}

	returns := make([]float64, 0, len(cs)-1)
	for i := 1; i < len(cs); i++ {
		if cs[i-1].Close == 0 {
			continue
		}
		returns = append(returns, (cs[i].Close-cs[i-1].Close)/cs[i-1].Close)
	}
	volatility := clamp(stddev(returns)/p.ReferenceStdDev, 0, 1)

	wickDominance := wickRatioSum / n

	oscillations := 0
	for i := 2; i < len(cs); i++ {
		d1 := cs[i-1].Close - cs[i-2].Close
		d2 := cs[i].Close - cs[i-1].Close
		if (d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0) {
			oscillations++
		}
	}

	sweeps := countSweeps(cs)

	return Metrics{
		MomentumScore:        momentum,
		DirectionalStrength:  directional,
		NormalizedVolatility: volatility,
		WickDominance:        wickDominance,
		PriceOscillations:    oscillations,
		SweepCount:           sweeps,
	}
}

// countSweeps counts candles whose wick extends beyond the running
// trailing swing extreme then closes back through it.
func countSweeps(cs []candle.Candle) int {
	count := 0
	runningHigh, runningLow := cs[0].High, cs[0].Low
	for i := 1; i < len(cs); i++ {
		c := cs[i]
		if c.High > runningHigh && c.Close < runningHigh {
			count++
		}
		if c.Low < runningLow && c.Close > runningLow {
			count++
		}
		if c.High > runningHigh {
			runningHigh = c.High
		}
		if c.Low < runningLow {
			runningLow = c.Low
		}
	}
	return count
}

// Classify maps Metrics to a Classification per spec §4.6's thresholds.
func Classify(m Metrics, p Params) Classification {
	if math.Abs(m.MomentumScore) >= p.DriveThreshold && m.DirectionalStrength >= 0.6 {
		return Drive
	}
	if m.NormalizedVolatility < p.RangeThreshold && m.PriceOscillations >= 3 && math.Abs(m.MomentumScore) < 0.5 {
		return Range
	}
	return Liquidity
}

// Confidence scores how strongly Metrics sits inside the regime Classify
// would assign it, per spec §4.7's cycle_score = base * cycle_confidence
// term. It reads as membership strength: a window that just crosses a
// regime's threshold scores near the regime's baseline, one that clears it
// by a wide margin scores close to 1.
func Confidence(m Metrics, p Params) float64 {
	switch Classify(m, p) {
	case Drive:
		momentumMargin := safeRatio(math.Abs(m.MomentumScore)-p.DriveThreshold, 1-p.DriveThreshold)
		directionalMargin := safeRatio(m.DirectionalStrength-0.6, 0.4)
		return clamp(0.5+0.25*momentumMargin+0.25*directionalMargin, 0, 1)
	case Range:
		volatilityMargin := safeRatio(p.RangeThreshold-m.NormalizedVolatility, p.RangeThreshold)
		oscillationMargin := safeRatio(float64(m.PriceOscillations-3), 5)
		calmMargin := safeRatio(0.5-math.Abs(m.MomentumScore), 0.5)
		return clamp(0.4+0.2*volatilityMargin+0.2*oscillationMargin+0.2*calmMargin, 0, 1)
	default: // Liquidity is the catch-all regime; confidence rises with sweep/wick evidence.
		sweepMargin := safeRatio(float64(m.SweepCount), 3)
		wickMargin := clamp(m.WickDominance, 0, 1)
		return clamp(0.3+0.35*sweepMargin+0.35*wickMargin, 0, 1)
	}
}

// safeRatio clamps numerator/denominator to [0,1], treating a non-positive
// denominator as no margin available.
func safeRatio(numerator, denominator float64) float64 {
	if denominator <= 0 {
		return 0
	}
	return clamp(numerator/denominator, 0, 1)
}

func avgPrice(cs []candle.Candle) float64 {
	var sum float64
	for _, c := range cs {
		sum += c.Close
	}
	if len(cs) == 0 {
		return 1
	}
	avg := sum / float64(len(cs))
	if avg == 0 {
		return 1
	}
	return avg
}

func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var variance float64
	for _, x := range xs {
		variance += (x - mean) * (x - mean)
	}
	variance /= float64(len(xs))
	return math.Sqrt(variance)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
