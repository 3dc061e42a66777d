package signal

import (
	"time"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/confluence"
	"github.com/tradecore/engine/internal/structure"
	"github.com/tradecore/engine/internal/zones"
)

// GenerateParams tunes entry/stop/target calculation, per spec §4.8.
type GenerateParams struct {
	ATRPeriod         int
	ATRMultiplier     float64
	RRLadder          []float64 // default [1.5, 2.5, 3.5]; a 2-element ladder omits TP3
	MinRR             float64
	MaxSLPct          float64
	AllowZoneCrossing bool
}

// DefaultGenerateParams matches spec §4.8's documented defaults.
func DefaultGenerateParams() GenerateParams {
	return GenerateParams{
		ATRPeriod: 14, ATRMultiplier: 2.0,
		RRLadder: []float64{1.5, 2.5, 3.5},
		MinRR:    2.0, MaxSLPct: 0.05,
	}
}

// Generate builds a Signal from a confluence score that elected to generate
// one, per spec §4.8. Returns (nil, nil) when score.GeneratesSignal is false.
func Generate(score confluence.Score, symbol string, primaryCandles []candle.Candle, swings []structure.SwingPoint, zoneList []zones.Zone, now time.Time, p GenerateParams) (*Signal, error) {
	if !score.GeneratesSignal || len(primaryCandles) == 0 {
		return nil, nil
	}

	entry := primaryCandles[len(primaryCandles)-1].Close
	side := SideLong
	if score.EntryBias == confluence.Short {
		side = SideShort
	}

	distance := stopDistance(primaryCandles, swings, entry, side, p)
	maxDistance := entry * p.MaxSLPct
	if distance > maxDistance {
		distance = maxDistance
	}

	var stop float64
	if side == SideLong {
		stop = entry - distance
	} else {
		stop = entry + distance
	}

	tps := targets(entry, distance, side, p.RRLadder)
	tps = clipToZones(entry, tps, side, zoneList, p.AllowZoneCrossing)

	sig := Signal{
		ID: NewID(), Timestamp: now, Symbol: symbol, Side: side,
		EntryTimeframe: score.EntryTimeframe, Entry: entry, Stop: stop,
		Confluence: score, Patterns: nil, SetupType: string(score.Quality),
		HTFBias: score.EntryBias,
	}
	if len(tps) > 0 {
		sig.TP1 = tps[0]
	}
	if len(tps) > 1 {
		sig.TP2 = tps[1]
	}
	if len(tps) > 2 {
		sig.TP3 = tps[2]
	}

	if err := sig.Validate(p.MinRR, p.MaxSLPct); err != nil {
		return nil, err
	}

	sig.Reasoning = RuleBasedReasoning(sig)
	return &sig, nil
}

func stopDistance(cs []candle.Candle, swings []structure.SwingPoint, entry float64, side Side, p GenerateParams) float64 {
	period := p.ATRPeriod
	if period <= 0 {
		period = 14
	}
	mult := p.ATRMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	atrSeries := AverageTrueRange(cs, period)
	atrDistance := 0.0
	if len(atrSeries) > 0 {
		atrDistance = mult * atrSeries[len(atrSeries)-1]
	}

	structDistance := 0.0
	if side == SideLong {
		if sw, ok := nearestSwing(swings, structure.SwingLow, entry, true); ok {
			structDistance = entry - sw.Price
		}
	} else {
		if sw, ok := nearestSwing(swings, structure.SwingHigh, entry, false); ok {
			structDistance = sw.Price - entry
		}
	}

	if structDistance > atrDistance {
		return structDistance
	}
	return atrDistance
}

// nearestSwing finds the swing of the given type closest to entry, on the
// side indicated by below (true: swing price < entry; false: swing price > entry).
func nearestSwing(swings []structure.SwingPoint, typ structure.SwingType, entry float64, below bool) (structure.SwingPoint, bool) {
	var best structure.SwingPoint
	found := false
	bestDist := 0.0
	for _, s := range swings {
		if s.Type != typ {
			continue
		}
		if below && s.Price >= entry {
			continue
		}
		if !below && s.Price <= entry {
			continue
		}
		dist := absf(entry - s.Price)
		if !found || dist < bestDist {
			best, bestDist, found = s, dist, true
		}
	}
	return best, found
}

func targets(entry, risk float64, side Side, ladder []float64) []float64 {
	out := make([]float64, 0, len(ladder))
	for _, rr := range ladder {
		if side == SideLong {
			out = append(out, entry+risk*rr)
		} else {
			out = append(out, entry-risk*rr)
		}
	}
	return out
}

func clipToZones(entry float64, tps []float64, side Side, zoneList []zones.Zone, allowCrossing bool) []float64 {
	if allowCrossing {
		return tps
	}
	out := make([]float64, len(tps))
	copy(out, tps)
	for i, tp := range out {
		for _, z := range zoneList {
			if z.Broken {
				continue
			}
			if side == SideLong && z.Type == zones.Resistance && z.Bottom > entry && tp > z.Bottom {
				out[i] = z.Bottom
			}
			if side == SideShort && z.Type == zones.Support && z.Top < entry && tp < z.Top {
				out[i] = z.Top
			}
		}
	}
	return out
}
