package confluence

import (
	"fmt"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/cycle"
	"github.com/tradecore/engine/internal/patterns"
)

// Compute produces a ConfluenceScore from per-timeframe contexts, per spec
// §4.7. It is pure: the same inputs always produce the same output.
func Compute(contexts []TimeframeContext, entryTF candle.Timeframe, htfOverride *candle.Timeframe, p Params) Score {
	score := Score{EntryTimeframe: entryTF}

	entryCtx, ok := findContext(contexts, entryTF)
	if !ok {
		score.Warnings = append(score.Warnings, "no context supplied for entry timeframe")
		return score
	}

	topPattern, bias := topPatternAndBias(entryCtx.Patterns)
	score.EntryBias = bias

	htfCtx, htfTF, htfFound := resolveHTF(contexts, entryTF, htfOverride)
	score.HTFTimeframe = htfTF

	patternScore := 0.0
	if topPattern != nil {
		patternScore = topPattern.Strength
		agreeing := countAgreeing(entryCtx.Patterns, topPattern.Signal)
		if agreeing >= 2 {
			patternScore = clamp01(patternScore + minf(0.10, 0.05*float64(agreeing-1)))
		}
		score.Factors = append(score.Factors, fmt.Sprintf("primary-TF pattern %s (strength %.2f)", topPattern.Type, topPattern.Strength))
	}
	score.Pattern = clamp01(patternScore)

	structureScore := 0.0
	if bias != None && htfFound {
		if htfCtx.TrendDirection == bias {
			structureScore += 0.5 * htfCtx.TrendStrength
			score.Factors = append(score.Factors, "HTF trend aligns with entry bias")
		} else if htfCtx.TrendDirection != None {
			structureScore -= 0.3
			score.Warnings = append(score.Warnings, "HTF trend conflicts with entry bias")
		}
	}
	if bias != None && entryCtx.RecentBOS != nil && *entryCtx.RecentBOS == bias {
		structureScore += 0.3
		score.Factors = append(score.Factors, "recent BOS on entry timeframe matches bias")
	}
	score.Structure = clamp01(structureScore)

	cycleScore := 0.0
	if bias != None && topPattern != nil {
		rec := cycle.GetRecommendation(entryCtx.MarketCycle)
		base := 0.4
		if containsString(rec.PreferredPatterns, string(topPattern.Type)) {
			base = 0.7
			score.Factors = append(score.Factors, fmt.Sprintf("%s cycle favors this pattern", entryCtx.MarketCycle))
		}
		cycleScore = base * entryCtx.CycleConfidence
	}
	score.Cycle = clamp01(cycleScore)

	score.TimeframeAlignment = timeframeAlignmentScore(contexts, bias)

	zoneScore := 0.0
	if bias == Long {
		if entryCtx.InSupportZone {
			zoneScore += entryCtx.ZoneStrength
			score.Factors = append(score.Factors, "near support zone")
		}
		if entryCtx.InResistanceZone {
			zoneScore -= entryCtx.ZoneStrength
			score.Warnings = append(score.Warnings, "long bias but price near resistance")
		}
	} else if bias == Short {
		if entryCtx.InResistanceZone {
			zoneScore += entryCtx.ZoneStrength
			score.Factors = append(score.Factors, "near resistance zone")
		}
		if entryCtx.InSupportZone {
			zoneScore -= entryCtx.ZoneStrength
			score.Warnings = append(score.Warnings, "short bias but price near support")
		}
	}
	score.Zone = clamp01(zoneScore)

	w := p.Weights
	score.Total = clamp01(w.Pattern*score.Pattern + w.Structure*score.Structure + w.Cycle*score.Cycle + w.Timeframe*score.TimeframeAlignment + w.Zone*score.Zone)
	score.Quality = qualityOf(score.Total)
	score.GeneratesSignal = score.Total >= p.MinTotal && score.Pattern >= p.MinPattern && bias != None

	if len(contexts) < 2 {
		score.Warnings = append(score.Warnings, "low-data: fewer than two timeframes supplied")
	}

	return score
}

func findContext(contexts []TimeframeContext, tf candle.Timeframe) (TimeframeContext, bool) {
	for _, c := range contexts {
		if c.Timeframe == tf {
			return c, true
		}
	}
	return TimeframeContext{}, false
}

// resolveHTF auto-detects the higher timeframe as the largest-duration
// context whose duration is >= 4x the entry timeframe's, unless overridden.
func resolveHTF(contexts []TimeframeContext, entryTF candle.Timeframe, override *candle.Timeframe) (TimeframeContext, candle.Timeframe, bool) {
	if override != nil {
		if c, ok := findContext(contexts, *override); ok {
			return c, *override, true
		}
	}
	entryDur := candle.Duration(entryTF)
	var best *TimeframeContext
	var bestDur int64
	for i := range contexts {
		d := candle.Duration(contexts[i].Timeframe)
		if int64(d) >= 4*int64(entryDur) && int64(d) > bestDur {
			best = &contexts[i]
			bestDur = int64(d)
		}
	}
	if best == nil {
		return TimeframeContext{}, "", false
	}
	return *best, best.Timeframe, true
}

func topPatternAndBias(ps []patterns.DetectedPattern) (*patterns.DetectedPattern, Bias) {
	if len(ps) == 0 {
		return nil, None
	}
	top := ps[0]
	for _, p := range ps[1:] {
		if p.Strength > top.Strength {
			top = p
		}
	}
	bias := None
	switch top.Signal {
	case patterns.Bullish:
		bias = Long
	case patterns.Bearish:
		bias = Short
	}
	return &top, bias
}

func countAgreeing(ps []patterns.DetectedPattern, signal patterns.Signal) int {
	n := 0
	for _, p := range ps {
		if p.Signal == signal {
			n++
		}
	}
	return n
}

func timeframeAlignmentScore(contexts []TimeframeContext, bias Bias) float64 {
	if bias == None {
		return 0
	}
	if len(contexts) <= 1 {
		return 0.5
	}
	agree := 0
	for _, c := range contexts {
		if c.TrendDirection == bias {
			agree++
		}
	}
	ratio := float64(agree) / float64(len(contexts))
	switch {
	case ratio == 1.0:
		return 1.0
	case ratio > 0.5:
		return 0.5
	default:
		return 0.2
	}
}

func qualityOf(total float64) Quality {
	switch {
	case total >= 0.85:
		return Exceptional
	case total >= 0.75:
		return Excellent
	case total >= 0.65:
		return Strong
	case total >= 0.40:
		return Medium
	default:
		return Low
	}
}

func containsString(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
