// Package signal turns a confluence score into a concrete trade signal with
// entry/stop/target levels, strategy matching and reasoning text, per
// spec §4.8. Grounded on the teacher's internal/strategy/strategy.go rule
// shape and internal/ai/llm/client.go optional-reasoning interface.
package signal

import (
	"time"

	"github.com/google/uuid"
	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/confluence"
	"github.com/tradecore/engine/internal/patterns"
)

// Side is the trade direction.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Signal is the full output of the generator, per spec §3.1.
type Signal struct {
	ID             string
	Timestamp      time.Time
	Symbol         string
	Side           Side
	EntryTimeframe candle.Timeframe
	Entry          float64
	Stop           float64
	TP1            float64
	TP2            float64
	TP3            float64 // zero if not set
	Confluence     confluence.Score
	Patterns       []patterns.DetectedPattern
	SetupType      string
	MarketPhase    string
	HTFBias        confluence.Bias
	Reasoning      string
	MatchedStrategyID string // empty if no strategy rule matched
}

// Validate enforces the Signal invariants of spec §3.1.
func (s Signal) Validate(minRR, maxSLPct float64) error {
	switch s.Side {
	case SideLong:
		if !(s.Stop < s.Entry && s.Entry < s.TP1) {
			return errInvalidOrdering
		}
		if s.TP2 != 0 && s.TP1 > s.TP2 {
			return errInvalidOrdering
		}
		if s.TP3 != 0 && s.TP2 > s.TP3 {
			return errInvalidOrdering
		}
	case SideShort:
		if !(s.Stop > s.Entry && s.Entry > s.TP1) {
			return errInvalidOrdering
		}
		if s.TP2 != 0 && s.TP1 < s.TP2 {
			return errInvalidOrdering
		}
		if s.TP3 != 0 && s.TP2 < s.TP3 {
			return errInvalidOrdering
		}
	}

	finalTP := s.TP1
	if s.TP3 != 0 {
		finalTP = s.TP3
	} else if s.TP2 != 0 {
		finalTP = s.TP2
	}
	risk := absf(s.Entry - s.Stop)
	if risk == 0 {
		return errZeroRisk
	}
	reward := absf(s.Entry - finalTP)
	if reward/risk < minRR {
		return errInsufficientRR
	}
	if risk/s.Entry > maxSLPct {
		return errStopTooWide
	}
	return nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// NewID generates a fresh signal identifier.
func NewID() string {
	return uuid.NewString()
}
