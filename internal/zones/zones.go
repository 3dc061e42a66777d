// Package zones clusters swing extrema into support/resistance bands, per
// spec §4.5. Grounded on the teacher's internal/analysis/volume.go touch and
// threshold conventions, reworked to the spec's band/merge/strength rules.
package zones

import (
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/structure"
)

// Type distinguishes support from resistance zones.
type Type string

const (
	Support    Type = "support"
	Resistance Type = "resistance"
)

// StrengthClass buckets a zone's combined touch/bounce/volume weight.
type StrengthClass string

const (
	Weak     StrengthClass = "weak"
	Moderate StrengthClass = "moderate"
	Strong   StrengthClass = "strong"
	Major    StrengthClass = "major"
)

// Zone is a support or resistance band, per spec §3.1.
type Zone struct {
	Type          Type
	Top           float64
	Bottom        float64
	StrengthClass StrengthClass
	Touches       int
	Bounces       int
	FirstTouch    int
	LastTouch     int
	AvgVolume     float64
	Broken        bool
}

// Mid returns the zone's midpoint price.
func (z Zone) Mid() float64 {
	return (z.Top + z.Bottom) / 2
}

// Width returns the zone's total band width.
func (z Zone) Width() float64 {
	return z.Top - z.Bottom
}

// Params tunes the zone detector; zero value is invalid, use DefaultParams.
type Params struct {
	BandPct       float64 // theta_band
	BandFloor     float64 // absolute floor on half-width
	MergePct      float64 // theta_merge
	MinTouches    int
	BounceLookahead int // k
}

// DefaultParams matches spec §4.5's documented defaults.
func DefaultParams() Params {
	return Params{BandPct: 0.002, BandFloor: 0.01, MergePct: 0.01, MinTouches: 2, BounceLookahead: 3}
}

// Detect clusters support/resistance zones from swing points and candles.
func Detect(cs []candle.Candle, swings []structure.SwingPoint, p Params) []Zone {
	var candidates []Zone
	for _, s := range swings {
		halfWidth := s.Price * p.BandPct
		if halfWidth < p.BandFloor {
			halfWidth = p.BandFloor
		}
		typ := Support
		if s.Type == structure.SwingHigh {
			typ = Resistance
		}
		candidates = append(candidates, Zone{
			Type: typ, Top: s.Price + halfWidth, Bottom: s.Price - halfWidth,
			FirstTouch: s.Index, LastTouch: s.Index,
		})
	}

	for i := range candidates {
		countTouches(cs, &candidates[i], p)
	}

	merged := merge(candidates, p)

	var out []Zone
	avgVol := averageVolume(cs)
	for _, z := range merged {
		if z.Touches < p.MinTouches {
			continue
		}
		z.StrengthClass = classify(z, avgVol)
		out = append(out, z)
	}
	return out
}

func countTouches(cs []candle.Candle, z *Zone, p Params) {
	var volSum float64
	for i, c := range cs {
		var touched bool
		switch z.Type {
		case Resistance:
			touched = c.High >= z.Bottom && c.High <= z.Top
		case Support:
			touched = c.Low <= z.Top && c.Low >= z.Bottom
		}
		if !touched {
			continue
		}
		z.Touches++
		volSum += c.Volume
		if i < z.FirstTouch {
			z.FirstTouch = i
		}
		if i > z.LastTouch {
			z.LastTouch = i
		}
		if isBounce(cs, i, *z, p.BounceLookahead) {
			z.Bounces++
		}
	}
	if z.Touches > 0 {
		z.AvgVolume = volSum / float64(z.Touches)
	}
}

func isBounce(cs []candle.Candle, i int, z Zone, k int) bool {
	width := z.Width()
	if width <= 0 {
		return false
	}
	end := i + k
	if end >= len(cs) {
		end = len(cs) - 1
	}
	for j := i + 1; j <= end; j++ {
		switch z.Type {
		case Resistance:
			if z.Top-cs[j].Close > width {
				return true
			}
		case Support:
			if cs[j].Close-z.Bottom > width {
				return true
			}
		}
	}
	return false
}

func merge(zs []Zone, p Params) []Zone {
	if len(zs) == 0 {
		return nil
	}
	merged := make([]Zone, 0, len(zs))
	used := make([]bool, len(zs))

	for i := range zs {
		if used[i] {
			continue
		}
		cur := zs[i]
		used[i] = true
		for j := i + 1; j < len(zs); j++ {
			if used[j] || zs[j].Type != cur.Type {
				continue
			}
			relDist := absf(cur.Mid()-zs[j].Mid()) / cur.Mid()
			if relDist <= p.MergePct {
				cur = mergeTwo(cur, zs[j])
				used[j] = true
			}
		}
		merged = append(merged, cur)
	}
	return merged
}

func mergeTwo(a, b Zone) Zone {
	if b.Top > a.Top {
		a.Top = b.Top
	}
	if b.Bottom < a.Bottom {
		a.Bottom = b.Bottom
	}
	a.Touches += b.Touches
	a.Bounces += b.Bounces
	if b.FirstTouch < a.FirstTouch {
		a.FirstTouch = b.FirstTouch
	}
	if b.LastTouch > a.LastTouch {
		a.LastTouch = b.LastTouch
	}
	totalTouches := a.Touches
	if totalTouches > 0 {
		a.AvgVolume = (a.AvgVolume*float64(totalTouches-b.Touches) + b.AvgVolume*float64(b.Touches)) / float64(totalTouches)
	}
	return a
}

func classify(z Zone, avgMarketVolume float64) StrengthClass {
	bounceRate := 0.0
	if z.Touches > 0 {
		bounceRate = float64(z.Bounces) / float64(z.Touches)
	}
	volRatio := 1.0
	if avgMarketVolume > 0 {
		volRatio = z.AvgVolume / avgMarketVolume
	}
	score := 0.4*minf(float64(z.Touches)/8, 1) + 0.35*bounceRate + 0.25*minf(volRatio/1.5, 1)

	switch {
	case score >= 0.8:
		return Major
	case score >= 0.6:
		return Strong
	case score >= 0.4:
		return Moderate
	default:
		return Weak
	}
}

func averageVolume(cs []candle.Candle) float64 {
	if len(cs) == 0 {
		return 0
	}
	var sum float64
	for _, c := range cs {
		sum += c.Volume
	}
	return sum / float64(len(cs))
}

// FindNearest returns the closest active zone to currentPrice within
// maxDistancePct, or false if none qualifies.
func FindNearest(zones []Zone, currentPrice, maxDistancePct float64) (Zone, bool) {
	var best Zone
	found := false
	bestDist := maxDistancePct
	for _, z := range zones {
		if z.Broken {
			continue
		}
		dist := absf(currentPrice-z.Mid()) / currentPrice
		if dist <= maxDistancePct && dist < bestDist {
			best, bestDist, found = z, dist, true
		}
	}
	return best, found
}

// ActiveZones returns unbroken zones within 10% of currentPrice.
func ActiveZones(zones []Zone, currentPrice float64) []Zone {
	var out []Zone
	for _, z := range zones {
		if z.Broken {
			continue
		}
		if absf(currentPrice-z.Mid())/currentPrice <= 0.10 {
			out = append(out, z)
		}
	}
	return out
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
