// Package backtest implements the deterministic candle-replay engine from
// spec §4.14. Grounded on the teacher's internal/backtest/engine.go
// linear candle loop (open-trade/equity-curve/pattern-stats shape),
// reworked from the teacher's single-target BUY-only strategy onto the
// spec's pessimistic TP/SL ordering, partial TP ladder with breakeven
// stop, and pause/resume/stop control.
package backtest

import (
	"sync"
	"time"

	"github.com/tradecore/engine/internal/candle"
	"github.com/tradecore/engine/internal/signal"
)

// Status is the engine's run state, per spec §4.14.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusAborted   Status = "aborted"
)

// TradeStatus tracks a trade's progress through its TP ladder.
type TradeStatus string

const (
	TradeOpen     TradeStatus = "open"
	TradeTP1Hit   TradeStatus = "tp1_hit"
	TradeTP2Hit   TradeStatus = "tp2_hit"
	TradeTP3Hit   TradeStatus = "tp3_hit"
	TradeStopped  TradeStatus = "stopped"
	TradeClosed   TradeStatus = "closed"
)

// Trade is an open or closed backtest position.
type Trade struct {
	Signal          *signal.Signal
	Side            signal.Side
	EntryTime       time.Time
	EntryPrice      float64
	InitialQuantity float64
	RemainingQty    float64
	Stop            float64
	Status          TradeStatus
	RealizedPnL     float64
	Commission      float64
	Slippage        float64
	ExitTime        time.Time
	ExitReason      string
}

func (t *Trade) sideSign() float64 {
	if t.Side == signal.SideShort {
		return -1
	}
	return 1
}

// EquityPoint is one point of the equity curve, per spec §4.14.
type EquityPoint struct {
	Timestamp    time.Time
	Equity       float64
	Drawdown     float64
	DrawdownPct  float64
}

// Config holds the tunables from spec §4.14.
type Config struct {
	InitialCapital             float64
	PositionSizePercent        float64
	MaxOpenTrades              int
	CommissionPercent          float64
	SlippagePercent            float64
	PartialExitEnabled         bool
	TP1ExitPercent             float64
	TP2ExitPercent             float64
	TPExitFractionRemainder    float64 // has no effect: the last set target always closes the whole remainder
	EmitInterval               int
}

// DefaultConfig returns the spec's worked-example defaults.
func DefaultConfig() Config {
	return Config{
		InitialCapital:          10_000,
		PositionSizePercent:     0.02,
		MaxOpenTrades:           5,
		CommissionPercent:       0.0004,
		SlippagePercent:         0.0005,
		PartialExitEnabled:      true,
		TP1ExitPercent:          0.5,
		TP2ExitPercent:          0.3,
		TPExitFractionRemainder: 1.0,
		EmitInterval:            50,
	}
}

// SignalGenerator produces a new signal for the candle just closed, or nil.
type SignalGenerator func(c candle.Candle, index int) *signal.Signal

// State is a snapshot of the engine's progress, emitted every EmitInterval
// candles and available at any time via Engine.Snapshot.
type State struct {
	Status              Status
	CurrentCandleIndex  int
	ProgressPercent     float64
	CurrentCapital      float64
	PeakCapital         float64
	EquityCurve         []EquityPoint
	OpenTrades          []Trade
	ClosedTrades        []Trade
	Signals             []*signal.Signal
}

// Engine replays an ordered candle stream deterministically against a
// signal generator, per spec §4.14.
type Engine struct {
	config    Config
	generator SignalGenerator

	status       Status
	candleIndex  int
	total        int
	capital      float64
	peakCapital  float64
	equityCurve  []EquityPoint
	openTrades   []*Trade
	closedTrades []Trade
	signals      []*signal.Signal

	stopped bool

	mu   sync.Mutex
	cond *sync.Cond

	onSnapshot func(State)
}

// New builds an Engine with the given config and signal generator.
func New(config Config, generator SignalGenerator) *Engine {
	e := &Engine{
		config: config, generator: generator,
		status: StatusIdle, capital: config.InitialCapital, peakCapital: config.InitialCapital,
	}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// OnSnapshot registers a callback invoked every EmitInterval candles and
// once at completion.
func (e *Engine) OnSnapshot(cb func(State)) { e.onSnapshot = cb }

// Pause idempotently requests the run loop to block before the next candle.
// Safe to call from another goroutine while Run is executing.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		e.status = StatusPaused
	}
}

// Resume idempotently un-pauses a paused run.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusPaused {
		e.status = StatusRunning
		e.cond.Broadcast()
	}
}

// Stop idempotently requests the run loop to abort before the next candle.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusCompleted && e.status != StatusAborted {
		e.stopped = true
		e.cond.Broadcast()
	}
}

// Run replays candles (ascending by timestamp) to completion, applying the
// per-candle procedure from spec §4.14.
func (e *Engine) Run(candles []candle.Candle) State {
	e.mu.Lock()
	e.status = StatusRunning
	e.mu.Unlock()
	e.total = len(candles)

	for i, c := range candles {
		e.mu.Lock()
		for e.status == StatusPaused && !e.stopped {
			e.cond.Wait()
		}
		stopped := e.stopped
		e.mu.Unlock()
		if stopped {
			e.status = StatusAborted
			break
		}

		e.candleIndex = i
		e.updateOpenTrades(c)
		e.maybeOpenTrade(c, i)
		e.recordEquityPoint(c.Timestamp)

		if e.config.EmitInterval > 0 && i%e.config.EmitInterval == 0 {
			e.emit()
		}
	}

	if !e.stopped {
		if len(candles) > 0 {
			e.forceCloseAll(candles[len(candles)-1])
		}
		e.status = StatusCompleted
	}

	e.emit()
	return e.Snapshot()
}

// updateOpenTrades applies pessimistic TP/SL-same-candle ordering and
// partial-exit bookkeeping, per spec §4.14 step 2.
func (e *Engine) updateOpenTrades(c candle.Candle) {
	var stillOpen []*Trade
	for _, t := range e.openTrades {
		e.processCandleForTrade(t, c)
		if t.RemainingQty > 1e-12 {
			stillOpen = append(stillOpen, t)
		} else {
			e.closedTrades = append(e.closedTrades, *t)
		}
	}
	e.openTrades = stillOpen
}

func (e *Engine) processCandleForTrade(t *Trade, c candle.Candle) {
	sign := t.sideSign()
	targets := []struct {
		price   float64
		frac    float64
		next    TradeStatus
		isFinal bool
	}{
		{t.Signal.TP1, e.config.TP1ExitPercent, TradeTP1Hit, false},
		{t.Signal.TP2, e.config.TP2ExitPercent, TradeTP2Hit, false},
		{t.Signal.TP3, e.config.TPExitFractionRemainder, TradeTP3Hit, false},
	}
	for i := len(targets) - 1; i >= 0; i-- {
		if targets[i].price != 0 {
			targets[i].isFinal = true
			break
		}
	}

	stopHit := hitLevel(sign, t.Stop, c)
	var nextTarget *struct {
		price   float64
		frac    float64
		next    TradeStatus
		isFinal bool
	}
	for i := range targets {
		if targets[i].next == nextPendingStatus(t.Status) && hitLevel(sign, targets[i].price, c) {
			nextTarget = &struct {
				price   float64
				frac    float64
				next    TradeStatus
				isFinal bool
			}{targets[i].price, targets[i].frac, targets[i].next, targets[i].isFinal}
			break
		}
	}

	if stopHit && nextTarget != nil {
		// Both fall within the candle's range: pessimistic ordering.
		if closerToStop(c.Open, t.Stop, nextTarget.price) {
			e.closeAtStop(t, c)
			return
		}
		e.hitTarget(t, c, *nextTarget)
		return
	}
	if stopHit {
		e.closeAtStop(t, c)
		return
	}
	if nextTarget != nil {
		e.hitTarget(t, c, *nextTarget)
	}
}

func nextPendingStatus(current TradeStatus) TradeStatus {
	switch current {
	case TradeOpen:
		return TradeTP1Hit
	case TradeTP1Hit:
		return TradeTP2Hit
	case TradeTP2Hit:
		return TradeTP3Hit
	default:
		return ""
	}
}

func hitLevel(sign, level float64, c candle.Candle) bool {
	if level == 0 {
		return false
	}
	if sign > 0 {
		return c.High >= level
	}
	return c.Low <= level
}

// closerToStop reports whether the candle's open is nearer the stop than
// the target, the deterministic pessimistic tiebreak from spec §4.14.
func closerToStop(open, stop, target float64) bool {
	return absf(open-stop) <= absf(open-target)
}

func (e *Engine) hitTarget(t *Trade, c candle.Candle, target struct {
	price   float64
	frac    float64
	next    TradeStatus
	isFinal bool
}) {
	sign := t.sideSign()
	exitQty := t.RemainingQty * target.frac
	if target.isFinal {
		exitQty = t.RemainingQty
	}

	fillPrice := target.price * (1 - e.config.SlippagePercent*sign)
	commission := fillPrice * exitQty * e.config.CommissionPercent
	pnl := sign*(fillPrice-t.EntryPrice)*exitQty - commission

	t.RemainingQty -= exitQty
	t.RealizedPnL += pnl
	t.Commission += commission
	t.Slippage += absf(target.price-fillPrice) * exitQty
	t.Status = target.next
	t.ExitTime = c.Timestamp
	t.ExitReason = string(target.next)

	e.capital += pnl
	if target.next == TradeTP1Hit && e.config.PartialExitEnabled {
		t.Stop = t.EntryPrice // breakeven move
	}
}

func (e *Engine) closeAtStop(t *Trade, c candle.Candle) {
	sign := t.sideSign()
	fillPrice := t.Stop * (1 - e.config.SlippagePercent*sign)
	commission := fillPrice * t.RemainingQty * e.config.CommissionPercent
	pnl := sign*(fillPrice-t.EntryPrice)*t.RemainingQty - commission

	t.RealizedPnL += pnl
	t.Commission += commission
	t.Slippage += absf(t.Stop-fillPrice) * t.RemainingQty
	t.RemainingQty = 0
	t.Status = TradeStopped
	t.ExitTime = c.Timestamp
	t.ExitReason = "stopped"

	e.capital += pnl
}

// maybeOpenTrade calls the injected signal generator and opens a
// risk-sized trade if capacity and sizing allow, per spec §4.14 step 3.
func (e *Engine) maybeOpenTrade(c candle.Candle, index int) {
	if e.generator == nil || len(e.openTrades) >= e.config.MaxOpenTrades {
		return
	}
	sig := e.generator(c, index)
	if sig == nil {
		return
	}
	e.signals = append(e.signals, sig)

	riskPerUnit := absf(sig.Entry - sig.Stop)
	if riskPerUnit <= 0 {
		return
	}
	quantity := (e.capital * e.config.PositionSizePercent) / riskPerUnit
	if quantity <= 0 {
		return
	}

	sign := 1.0
	if sig.Side == signal.SideShort {
		sign = -1
	}
	fillPrice := sig.Entry * (1 + e.config.SlippagePercent*sign)
	commission := fillPrice * quantity * e.config.CommissionPercent
	e.capital -= commission

	t := &Trade{
		Signal: sig, Side: sig.Side, EntryTime: c.Timestamp, EntryPrice: fillPrice,
		InitialQuantity: quantity, RemainingQty: quantity, Stop: sig.Stop,
		Status: TradeOpen, Commission: commission,
	}
	e.openTrades = append(e.openTrades, t)
}

func (e *Engine) forceCloseAll(last candle.Candle) {
	for _, t := range e.openTrades {
		sign := t.sideSign()
		fillPrice := last.Close * (1 - e.config.SlippagePercent*sign)
		commission := fillPrice * t.RemainingQty * e.config.CommissionPercent
		pnl := sign*(fillPrice-t.EntryPrice)*t.RemainingQty - commission

		t.RealizedPnL += pnl
		t.Commission += commission
		t.RemainingQty = 0
		t.Status = TradeClosed
		t.ExitTime = last.Timestamp
		t.ExitReason = "backtest_end"
		e.capital += pnl
		e.closedTrades = append(e.closedTrades, *t)
	}
	e.openTrades = nil
}

func (e *Engine) recordEquityPoint(ts time.Time) {
	if e.capital > e.peakCapital {
		e.peakCapital = e.capital
	}
	drawdown := e.peakCapital - e.capital
	drawdownPct := 0.0
	if e.peakCapital > 0 {
		drawdownPct = drawdown / e.peakCapital
	}
	e.equityCurve = append(e.equityCurve, EquityPoint{
		Timestamp: ts, Equity: e.capital, Drawdown: drawdown, DrawdownPct: drawdownPct,
	})
}

func (e *Engine) emit() {
	if e.onSnapshot != nil {
		e.onSnapshot(e.Snapshot())
	}
}

// Snapshot returns the current engine state.
func (e *Engine) Snapshot() State {
	progress := 0.0
	if e.total > 0 {
		progress = float64(e.candleIndex+1) / float64(e.total) * 100
	}
	open := make([]Trade, 0, len(e.openTrades))
	for _, t := range e.openTrades {
		open = append(open, *t)
	}
	return State{
		Status: e.status, CurrentCandleIndex: e.candleIndex, ProgressPercent: progress,
		CurrentCapital: e.capital, PeakCapital: e.peakCapital,
		EquityCurve: append([]EquityPoint(nil), e.equityCurve...),
		OpenTrades: open, ClosedTrades: append([]Trade(nil), e.closedTrades...),
		Signals: append([]*signal.Signal(nil), e.signals...),
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
