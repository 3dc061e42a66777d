// Package patterns detects single- and multi-candle patterns per spec §4.3,
// grounded on the teacher's internal/patterns/detector.go shape (a
// PatternDetector with tunable thresholds scanning a candle slice) but
// reworked to the spec's exact ratio-based predicate table.
package patterns

import "github.com/tradecore/engine/internal/candle"

// Signal is the directional bias a detected pattern carries.
type Signal string

const (
	Bullish Signal = "bullish"
	Bearish Signal = "bearish"
	Neutral Signal = "neutral"
)

// Type enumerates the patterns from spec §4.3's predicate table.
type Type string

const (
	LECandle        Type = "le_candle"
	SmallWick       Type = "small_wick"
	SteeperWick     Type = "steeper_wick"
	Celery          Type = "celery"
	DojiPattern     Type = "doji"
	Hammer          Type = "hammer"
	ShootingStar    Type = "shooting_star"
	InvertedHammer  Type = "inverted_hammer"
	PinBarBullish   Type = "pin_bar_bullish"
	PinBarBearish   Type = "pin_bar_bearish"
	StrongBullish   Type = "strong_bullish"
	StrongBearish   Type = "strong_bearish"
	BullishEngulfing Type = "bullish_engulfing"
	BearishEngulfing Type = "bearish_engulfing"
	InsideBar       Type = "inside_bar"
	OutsideBar      Type = "outside_bar"
)

// DetectedPattern is one pattern match, single-candle or multi-candle.
type DetectedPattern struct {
	Type        Type
	Signal      Signal
	Strength    float64 // [0,1]
	CandleIndex int     // ending index for multi-candle patterns
	Description string
	Metadata    map[string]float64
}

// Detector holds tunable noise thresholds; zero-value Detector uses spec defaults.
type Detector struct {
	MinBodyRatioForTrend float64 // body/range threshold used by strong bullish/bearish
}

// NewDetector returns a Detector with spec-documented defaults.
func NewDetector() *Detector {
	return &Detector{MinBodyRatioForTrend: 0.70}
}

// ratios bundles the body/range/wick ratios a candle's predicates are defined over.
type ratios struct {
	body, rng, upper, lower float64
}

func ratiosOf(c candle.Candle) (ratios, bool) {
	r := c.Range()
	if r <= 0 {
		return ratios{}, false
	}
	return ratios{
		body:  c.Body() / r,
		rng:   r,
		upper: c.UpperWick() / r,
		lower: c.LowerWick() / r,
	}, true
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// DetectSingle runs every single-candle predicate against candles[i] and
// returns every pattern that fires (order follows the spec's precedence
// note: pin-bar before hammer/shooting-star when both match the same candle).
func (d *Detector) DetectSingle(cs []candle.Candle, i int) []DetectedPattern {
	if i < 0 || i >= len(cs) {
		return nil
	}
	c := cs[i]
	r, ok := ratiosOf(c)
	if !ok {
		return nil
	}

	var out []DetectedPattern
	bodyDir := Bullish
	if c.IsBearish() {
		bodyDir = Bearish
	}

	// LE candle: large body, both wicks tiny.
	if r.body >= 0.80 && r.upper <= 0.10 && r.lower <= 0.10 {
		out = append(out, DetectedPattern{
			Type: LECandle, Signal: bodyDir, CandleIndex: i,
			Strength:    clamp01(r.body),
			Description: "large-effort candle: body dominates range with negligible wicks",
		})
	}

	// Small wick: one wick <=2%, body >=70%, signal from body direction.
	if r.body >= 0.70 && (r.upper <= 0.02 || r.lower <= 0.02) {
		out = append(out, DetectedPattern{
			Type: SmallWick, Signal: bodyDir, CandleIndex: i,
			Strength:    clamp01(r.body),
			Description: "small wick on one side with a dominant body",
		})
	}

	// Steeper wick: one wick >=60%, opposite side small; signal opposite the long wick.
	if r.upper >= 0.60 && r.lower <= 0.10 {
		out = append(out, DetectedPattern{
			Type: SteeperWick, Signal: Bearish, CandleIndex: i,
			Strength:    clamp01(r.upper),
			Description: "steep upper wick with a small lower wick",
		})
	}
	if r.lower >= 0.60 && r.upper <= 0.10 {
		out = append(out, DetectedPattern{
			Type: SteeperWick, Signal: Bullish, CandleIndex: i,
			Strength:    clamp01(r.lower),
			Description: "steep lower wick with a small upper wick",
		})
	}

	// Celery: tiny body, both wicks sizeable.
	if r.body < 0.20 && r.upper >= 0.30 && r.lower >= 0.30 {
		out = append(out, DetectedPattern{
			Type: Celery, Signal: Neutral, CandleIndex: i,
			Strength:    clamp01(1 - r.body),
			Description: "indecisive candle with two substantial wicks",
		})
	}

	// Doji.
	if r.body < 0.10 {
		out = append(out, DetectedPattern{
			Type: DojiPattern, Signal: Neutral, CandleIndex: i,
			Strength:    clamp01(1 - r.body*10),
			Description: "body negligible relative to range",
		})
	}

	// Pin bars supersede hammer/shooting-star in listing order when both fire.
	if r.lower >= 0.65 && r.body <= 0.40 {
		out = append(out, DetectedPattern{
			Type: PinBarBullish, Signal: Bullish, CandleIndex: i,
			Strength:    clamp01(r.lower),
			Description: "long lower wick rejection, strict pin-bar variant of hammer",
		})
	}
	if r.upper >= 0.65 && r.body <= 0.40 {
		out = append(out, DetectedPattern{
			Type: PinBarBearish, Signal: Bearish, CandleIndex: i,
			Strength:    clamp01(r.upper),
			Description: "long upper wick rejection, strict pin-bar variant of shooting star",
		})
	}

	// Hammer / shooting star.
	if r.lower >= 0.55 && r.body <= 0.40 {
		out = append(out, DetectedPattern{
			Type: Hammer, Signal: Bullish, CandleIndex: i,
			Strength:    clamp01(r.lower),
			Description: "lower wick rejection with a small body",
		})
	}
	if r.upper >= 0.60 && r.body <= 0.40 {
		out = append(out, DetectedPattern{
			Type: ShootingStar, Signal: Bearish, CandleIndex: i,
			Strength:    clamp01(r.upper),
			Description: "upper wick rejection with a small body",
		})
	}

	// Inverted hammer: upper wick in [0.50,0.60], lower small.
	if r.upper >= 0.50 && r.upper <= 0.60 && r.lower <= 0.15 {
		out = append(out, DetectedPattern{
			Type: InvertedHammer, Signal: Bullish, CandleIndex: i,
			Strength:    clamp01(r.upper),
			Description: "contextual bullish reversal candidate, confirm against prevailing trend",
		})
	}

	// Strong bullish / bearish.
	minBody := d.MinBodyRatioForTrend
	if minBody <= 0 {
		minBody = 0.70
	}
	if r.body > minBody {
		sig := Bullish
		typ := StrongBullish
		if c.IsBearish() {
			sig = Bearish
			typ = StrongBearish
		}
		out = append(out, DetectedPattern{
			Type: typ, Signal: sig, CandleIndex: i,
			Strength:    clamp01(r.body),
			Description: "directional candle with body well beyond the noise threshold",
		})
	}

	// Inside / outside bar need the prior candle.
	if i > 0 {
		prev := cs[i-1]
		if c.High <= prev.High && c.Low >= prev.Low {
			out = append(out, DetectedPattern{
				Type: InsideBar, Signal: Neutral, CandleIndex: i,
				Strength:    0.5,
				Description: "range contained within the prior candle's range",
			})
		}
		if c.High > prev.High && c.Low < prev.Low {
			out = append(out, DetectedPattern{
				Type: OutsideBar, Signal: bodyDir, CandleIndex: i,
				Strength:    0.5,
				Description: "range exceeds the prior candle's range on both sides",
			})
		}
	}

	return out
}

// DetectEngulfing checks the bullish/bearish engulfing predicate ending at i:
// the prior candle is of the opposite direction and the current candle's
// body strictly encloses the prior candle's body.
func (d *Detector) DetectEngulfing(cs []candle.Candle, i int) *DetectedPattern {
	if i <= 0 || i >= len(cs) {
		return nil
	}
	prev, cur := cs[i-1], cs[i]

	prevLow, prevHigh := bodyBounds(prev)
	curLow, curHigh := bodyBounds(cur)

	if prev.IsBearish() && cur.IsBullish() && curLow < prevLow && curHigh > prevHigh {
		return &DetectedPattern{
			Type: BullishEngulfing, Signal: Bullish, CandleIndex: i,
			Strength:    clamp01((curHigh - curLow) / max(prevHigh-prevLow, 1e-9) / 3),
			Description: "bullish body strictly encloses the prior bearish body",
		}
	}
	if prev.IsBullish() && cur.IsBearish() && curLow < prevLow && curHigh > prevHigh {
		return &DetectedPattern{
			Type: BearishEngulfing, Signal: Bearish, CandleIndex: i,
			Strength:    clamp01((curHigh - curLow) / max(prevHigh-prevLow, 1e-9) / 3),
			Description: "bearish body strictly encloses the prior bullish body",
		}
	}
	return nil
}

func bodyBounds(c candle.Candle) (low, high float64) {
	if c.Open < c.Close {
		return c.Open, c.Close
	}
	return c.Close, c.Open
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// DetectAll scans the whole slice, single-candle patterns per candle plus
// multi-candle engulfing, returning them in detection order.
func (d *Detector) DetectAll(cs []candle.Candle) []DetectedPattern {
	var out []DetectedPattern
	for i := range cs {
		out = append(out, d.DetectSingle(cs, i)...)
		if p := d.DetectEngulfing(cs, i); p != nil {
			out = append(out, *p)
		}
	}
	return out
}
