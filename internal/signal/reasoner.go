package signal

import (
	"context"
	"fmt"
	"strings"
)

// OutcomeReasoner is the optional LLM-assisted reasoning interface, per
// spec §4.8 step 6. On any error the caller falls back to RuleBasedReasoning.
type OutcomeReasoner interface {
	Reason(ctx context.Context, sig Signal) (string, error)
}

// RuleBasedReasoning formats a multi-line explanation citing confluence
// factors, HTF bias, cycle and R:R, the deterministic fallback text.
func RuleBasedReasoning(sig Signal) string {
	var b strings.Builder

	risk := absf(sig.Entry - sig.Stop)
	finalTP := sig.TP1
	if sig.TP3 != 0 {
		finalTP = sig.TP3
	} else if sig.TP2 != 0 {
		finalTP = sig.TP2
	}
	rr := 0.0
	if risk > 0 {
		rr = absf(sig.Entry-finalTP) / risk
	}

	fmt.Fprintf(&b, "%s setup on %s at %.4f (stop %.4f, R:R %.2f)\n", strings.ToUpper(string(sig.Side)), sig.EntryTimeframe, sig.Entry, sig.Stop, rr)
	fmt.Fprintf(&b, "confluence: %.2f (%s), HTF bias %s\n", sig.Confluence.Total, sig.Confluence.Quality, sig.HTFBias)

	if len(sig.Confluence.Factors) > 0 {
		b.WriteString("factors: " + strings.Join(sig.Confluence.Factors, "; ") + "\n")
	}
	if len(sig.Confluence.Warnings) > 0 {
		b.WriteString("risks: " + strings.Join(sig.Confluence.Warnings, "; ") + "\n")
	}
	return strings.TrimSpace(b.String())
}

// ReasonWithFallback prefers an LLM-assisted reasoner when supplied,
// falling back to the rule-based text on any error or nil reasoner.
func ReasonWithFallback(ctx context.Context, sig Signal, reasoner OutcomeReasoner) string {
	if reasoner == nil {
		return RuleBasedReasoning(sig)
	}
	text, err := reasoner.Reason(ctx, sig)
	if err != nil || strings.TrimSpace(text) == "" {
		return RuleBasedReasoning(sig)
	}
	return text
}
