package signal

import "github.com/tradecore/engine/internal/candle"

// Operator is a condition comparison operator, per spec §3.1.
type Operator string

const (
	OpEq       Operator = "eq"
	OpNe       Operator = "ne"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
	OpIn       Operator = "in"
	OpContains Operator = "contains"
)

// Condition is a declarative field/operator/value tuple.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
}

// RiskParams overrides the global risk defaults for trades opened under a rule.
type RiskParams struct {
	MaxSLPct    float64
	MinRR       float64
	RiskPerTrade float64
}

// StrategyRule is the declarative trade setup definition, per spec §3.1.
type StrategyRule struct {
	ID                 string
	Name               string
	EntryType          string
	Conditions         []Condition
	ConfluenceRequired []string
	Timeframes         []candle.Timeframe
	RiskParams         RiskParams
	Confidence         float64
	TradeCount         int
	WinRate            *float64
	AvgRMultiple       *float64
	Enabled            bool
}

// MatchContext is the evidence a rule is matched against.
type MatchContext struct {
	SetupType        string
	Timeframe        candle.Timeframe
	ConfluenceFactors []string
	Fields           map[string]interface{}
}

// MatchRule reports whether rule applies to ctx: entry_type, timeframes and
// confluence_required must all be satisfied, per spec §4.8 step 5.
func MatchRule(rule StrategyRule, ctx MatchContext) bool {
	if !rule.Enabled {
		return false
	}
	if rule.EntryType != "" && rule.EntryType != ctx.SetupType {
		return false
	}
	if len(rule.Timeframes) > 0 && !containsTF(rule.Timeframes, ctx.Timeframe) {
		return false
	}
	for _, req := range rule.ConfluenceRequired {
		if !containsStr(ctx.ConfluenceFactors, req) {
			return false
		}
	}
	for _, cond := range rule.Conditions {
		if !evalCondition(cond, ctx.Fields) {
			return false
		}
	}
	return true
}

// FirstMatch returns the first enabled rule matching ctx, or false if none
// match — the signal is still emitted but with no matched strategy.
func FirstMatch(rules []StrategyRule, ctx MatchContext) (StrategyRule, bool) {
	for _, r := range rules {
		if MatchRule(r, ctx) {
			return r, true
		}
	}
	return StrategyRule{}, false
}

func containsTF(tfs []candle.Timeframe, tf candle.Timeframe) bool {
	for _, t := range tfs {
		if t == tf {
			return true
		}
	}
	return false
}

func containsStr(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}

func evalCondition(c Condition, fields map[string]interface{}) bool {
	actual, ok := fields[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEq:
		return actual == c.Value
	case OpNe:
		return actual != c.Value
	case OpIn:
		vs, ok := c.Value.([]interface{})
		if !ok {
			return false
		}
		for _, v := range vs {
			if v == actual {
				return true
			}
		}
		return false
	case OpContains:
		s, ok := actual.(string)
		sub, ok2 := c.Value.(string)
		if !ok || !ok2 {
			return false
		}
		return containsSubstr(s, sub)
	case OpGt, OpGte, OpLt, OpLte:
		af, aok := toFloat(actual)
		vf, vok := toFloat(c.Value)
		if !aok || !vok {
			return false
		}
		switch c.Operator {
		case OpGt:
			return af > vf
		case OpGte:
			return af >= vf
		case OpLt:
			return af < vf
		case OpLte:
			return af <= vf
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func containsSubstr(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
