package outcome

import "math"

// LearningInsight is an aggregated observation that a context-filtered
// subset of trades performs differently from baseline, per spec §4.15's
// periodic aggregation step.
type LearningInsight struct {
	ContextDescription string
	SampleSize         int
	WinRate            float64
	BaselineWinRate    float64
	EffectSize         float64 // WinRate - BaselineWinRate
	Confidence         float64
	Active             bool
}

// AggregationParams tunes the periodic aggregation thresholds, per spec §4.15.
type AggregationParams struct {
	Delta          float64 // minimum |effect size| to surface an insight
	MinSampleSize  int
	MinConfidence  float64
	DeactivateBelow float64
}

// DefaultAggregationParams returns the spec's documented defaults.
func DefaultAggregationParams() AggregationParams {
	return AggregationParams{Delta: 0.1, MinSampleSize: 3, MinConfidence: 0.6, DeactivateBelow: 0.3}
}

// ContextSample is one context-filtered bucket's trade outcomes, already
// aggregated by the caller (e.g. "setup_type=LE + cycle=drive").
type ContextSample struct {
	Description string
	Wins        int
	Total       int
}

// Aggregate scans samples against baselineWinRate and emits a
// LearningInsight for every bucket whose empirical win rate differs from
// baseline by more than Delta, with sample_size and confidence thresholds
// met, per spec §4.15.
func Aggregate(samples []ContextSample, baselineWinRate float64, p AggregationParams) []LearningInsight {
	var insights []LearningInsight
	for _, s := range samples {
		if s.Total < p.MinSampleSize {
			continue
		}
		winRate := float64(s.Wins) / float64(s.Total)
		effect := winRate - baselineWinRate
		if math.Abs(effect) <= p.Delta {
			continue
		}

		confidence := sampleConfidence(s.Total, effect)
		if confidence < p.MinConfidence {
			continue
		}

		insights = append(insights, LearningInsight{
			ContextDescription: s.Description, SampleSize: s.Total,
			WinRate: winRate, BaselineWinRate: baselineWinRate, EffectSize: effect,
			Confidence: confidence, Active: confidence >= p.DeactivateBelow,
		})
	}
	return insights
}

// sampleConfidence grows with both sample size and effect size, saturating
// toward 1.0; it is a monotone heuristic, not a formal statistical test.
func sampleConfidence(sampleSize int, effect float64) float64 {
	sizeFactor := math.Min(float64(sampleSize)/30, 1.0)
	effectFactor := math.Min(math.Abs(effect)/0.3, 1.0)
	return 0.5*sizeFactor + 0.5*effectFactor
}

// Deactivate reports whether a previously-persisted insight should be
// turned off by a maintenance job, per spec §4.15.
func Deactivate(i LearningInsight, p AggregationParams) bool {
	return i.Confidence < p.DeactivateBelow
}
