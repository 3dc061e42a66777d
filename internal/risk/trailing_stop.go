package risk

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tradecore/engine/internal/position"
)

// TrailingConfig tunes TrailingStopManager, grounded on the teacher's
// internal/risk/trailing_stop.go TrailingConfig shape.
type TrailingConfig struct {
	Enabled           bool
	TrailingPercent   float64 // distance from the high/low water mark, as a fraction
	ActivationPercent float64 // unrealized profit fraction required to start trailing
}

// TrailingPosition is one symbol's trailing-stop bookkeeping.
type TrailingPosition struct {
	Symbol           string
	Side             position.Side
	EntryPrice       float64
	CurrentStopLoss  float64
	OriginalStopLoss float64
	HighWaterMark    float64
	LowWaterMark     float64
	IsActivated      bool
	LastUpdate       time.Time
}

// StopUpdate reports a trailing-stop adjustment or trigger.
type StopUpdate struct {
	Symbol       string
	OldStopLoss  float64
	NewStopLoss  float64
	IsTriggered  bool
	TriggerPrice float64
}

// TrailingStopManager tracks per-symbol trailing stops for live (non-
// backtest) positions, complementing Manager's pre-trade checks and
// Breaker's loss-driven circuit breaking. Grounded on the teacher's
// internal/risk/trailing_stop.go high/low water mark shape, reworked onto
// position.Side and this engine's zerolog logger instead of log.Printf.
type TrailingStopManager struct {
	mu        sync.RWMutex
	positions map[string]*TrailingPosition
	config    TrailingConfig
	logger    zerolog.Logger
}

// NewTrailingStopManager builds a TrailingStopManager.
func NewTrailingStopManager(config TrailingConfig, logger zerolog.Logger) *TrailingStopManager {
	return &TrailingStopManager{positions: make(map[string]*TrailingPosition), config: config, logger: logger}
}

// AddPosition begins tracking a newly opened position's stop loss.
func (tsm *TrailingStopManager) AddPosition(symbol string, side position.Side, entryPrice, stopLoss float64) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	tsm.positions[symbol] = &TrailingPosition{
		Symbol: symbol, Side: side, EntryPrice: entryPrice,
		CurrentStopLoss: stopLoss, OriginalStopLoss: stopLoss,
		HighWaterMark: entryPrice, LowWaterMark: entryPrice,
		LastUpdate: time.Now(),
	}
	tsm.logger.Debug().Str("symbol", symbol).Float64("entry", entryPrice).Float64("stop", stopLoss).Msg("trailing stop tracking started")
}

// RemovePosition stops tracking symbol, typically once it closes.
func (tsm *TrailingStopManager) RemovePosition(symbol string) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()
	delete(tsm.positions, symbol)
}

// UpdatePrice feeds a fresh mark price and returns a stop adjustment or
// trigger, or nil if nothing changed.
func (tsm *TrailingStopManager) UpdatePrice(symbol string, currentPrice float64) *StopUpdate {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()

	pos, ok := tsm.positions[symbol]
	if !ok {
		return nil
	}

	var update *StopUpdate
	if pos.Side == position.SideBuy {
		update = tsm.updateLong(pos, currentPrice)
	} else {
		update = tsm.updateShort(pos, currentPrice)
	}
	pos.LastUpdate = time.Now()
	return update
}

func (tsm *TrailingStopManager) updateLong(pos *TrailingPosition, currentPrice float64) *StopUpdate {
	if currentPrice <= pos.CurrentStopLoss {
		return &StopUpdate{Symbol: pos.Symbol, OldStopLoss: pos.CurrentStopLoss, NewStopLoss: pos.CurrentStopLoss, IsTriggered: true, TriggerPrice: currentPrice}
	}
	if currentPrice > pos.HighWaterMark {
		pos.HighWaterMark = currentPrice
	}

	profit := (currentPrice - pos.EntryPrice) / pos.EntryPrice
	if !pos.IsActivated && profit >= tsm.config.ActivationPercent {
		pos.IsActivated = true
		tsm.logger.Info().Str("symbol", pos.Symbol).Float64("profit_pct", profit*100).Msg("trailing stop activated")
	}

	if pos.IsActivated && tsm.config.Enabled {
		newStop := pos.HighWaterMark * (1 - tsm.config.TrailingPercent)
		if newStop > pos.CurrentStopLoss {
			old := pos.CurrentStopLoss
			pos.CurrentStopLoss = newStop
			return &StopUpdate{Symbol: pos.Symbol, OldStopLoss: old, NewStopLoss: newStop}
		}
	}
	return nil
}

func (tsm *TrailingStopManager) updateShort(pos *TrailingPosition, currentPrice float64) *StopUpdate {
	if currentPrice >= pos.CurrentStopLoss {
		return &StopUpdate{Symbol: pos.Symbol, OldStopLoss: pos.CurrentStopLoss, NewStopLoss: pos.CurrentStopLoss, IsTriggered: true, TriggerPrice: currentPrice}
	}
	if currentPrice < pos.LowWaterMark {
		pos.LowWaterMark = currentPrice
	}

	profit := (pos.EntryPrice - currentPrice) / pos.EntryPrice
	if !pos.IsActivated && profit >= tsm.config.ActivationPercent {
		pos.IsActivated = true
		tsm.logger.Info().Str("symbol", pos.Symbol).Float64("profit_pct", profit*100).Msg("trailing stop activated")
	}

	if pos.IsActivated && tsm.config.Enabled {
		newStop := pos.LowWaterMark * (1 + tsm.config.TrailingPercent)
		if newStop < pos.CurrentStopLoss {
			old := pos.CurrentStopLoss
			pos.CurrentStopLoss = newStop
			return &StopUpdate{Symbol: pos.Symbol, OldStopLoss: old, NewStopLoss: newStop}
		}
	}
	return nil
}

// MoveToBreakeven pins a position's stop to its entry price, called once a
// TP1-style partial exit locks in a risk-free remainder per spec §4.14.
func (tsm *TrailingStopManager) MoveToBreakeven(symbol string) {
	tsm.mu.Lock()
	defer tsm.mu.Unlock()
	if pos, ok := tsm.positions[symbol]; ok {
		pos.CurrentStopLoss = pos.EntryPrice
		pos.OriginalStopLoss = pos.EntryPrice
	}
}

// GetPosition returns a copy of symbol's trailing-stop state.
func (tsm *TrailingStopManager) GetPosition(symbol string) (TrailingPosition, bool) {
	tsm.mu.RLock()
	defer tsm.mu.RUnlock()
	pos, ok := tsm.positions[symbol]
	if !ok {
		return TrailingPosition{}, false
	}
	return *pos, true
}

// CurrentStopLoss returns symbol's live stop-loss price.
func (tsm *TrailingStopManager) CurrentStopLoss(symbol string) (float64, bool) {
	tsm.mu.RLock()
	defer tsm.mu.RUnlock()
	pos, ok := tsm.positions[symbol]
	if !ok {
		return 0, false
	}
	return pos.CurrentStopLoss, true
}
