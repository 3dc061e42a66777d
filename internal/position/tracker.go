// Package position tracks per-symbol average entry price and realized/
// unrealized PnL from a stream of fills, per spec §4.11. Grounded on the
// teacher's internal/orders/position_tracker.go mutex-guarded in-memory
// cache shape, reworked from the teacher's chain-based TP/SL bookkeeping
// onto the spec's weighted-average-entry model.
package position

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Side is the direction of a fill or an open position.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

func sideSign(s Side) float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

func opposite(s Side) Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Fill is the only mutation source for a position, per spec §4.11.
type Fill struct {
	Symbol    string
	Side      Side
	Quantity  float64
	Price     float64
	Timestamp time.Time
	OrderID   string
	Fee       float64
}

// Position is the current state for one symbol.
type Position struct {
	Symbol        string
	Side          Side
	Quantity      float64
	AvgEntry      float64
	CurrentPrice  float64
	RealizedPnL   float64
	UnrealizedPnL float64
}

// IsFlat reports whether the position carries no quantity.
func (p Position) IsFlat() bool {
	return p.Quantity == 0
}

// Tracker maintains one Position per symbol, applying fills serially.
// Per spec §5, fills against the tracker must be serialized per symbol;
// a single mutex over the whole map is sufficient at this scale.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]*Position
	logger    zerolog.Logger
}

// New builds an empty Tracker.
func New(logger zerolog.Logger) *Tracker {
	return &Tracker{
		positions: make(map[string]*Position),
		logger:    logger.With().Str("component", "position.Tracker").Logger(),
	}
}

// UpdateFromFill applies a fill to the symbol's position per spec §4.11's
// three cases: same-side averaging, opposite-side partial close, and
// opposite-side flip (close then open on the new side).
func (t *Tracker) UpdateFromFill(f Fill) Position {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[f.Symbol]
	if !ok || pos.IsFlat() {
		pos = &Position{Symbol: f.Symbol, Side: f.Side, Quantity: f.Quantity, AvgEntry: f.Price}
		t.positions[f.Symbol] = pos
		t.logger.Debug().Str("symbol", f.Symbol).Str("side", string(f.Side)).
			Float64("qty", f.Quantity).Float64("price", f.Price).Msg("opened position")
		return *pos
	}

	if f.Side == pos.Side {
		totalQty := pos.Quantity + f.Quantity
		pos.AvgEntry = (pos.AvgEntry*pos.Quantity + f.Price*f.Quantity) / totalQty
		pos.Quantity = totalQty
		return *pos
	}

	sign := sideSign(pos.Side)
	if f.Quantity <= pos.Quantity {
		pos.RealizedPnL += sign*(f.Price-pos.AvgEntry)*f.Quantity - f.Fee
		pos.Quantity -= f.Quantity
		if pos.Quantity == 0 {
			pos.AvgEntry = 0
		}
		return *pos
	}

	// Flip: close the existing position, then open a new one on the
	// opposite side with the leftover quantity.
	closedQty := pos.Quantity
	pos.RealizedPnL += sign*(f.Price-pos.AvgEntry)*closedQty - f.Fee
	leftover := f.Quantity - closedQty
	pos.Side = opposite(pos.Side)
	pos.Quantity = leftover
	pos.AvgEntry = f.Price

	t.logger.Info().Str("symbol", f.Symbol).Float64("closed_qty", closedQty).
		Float64("leftover_qty", leftover).Msg("position flipped")

	return *pos
}

// UpdatePrice sets the mark price for symbol and recomputes unrealized PnL.
func (t *Tracker) UpdatePrice(symbol string, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[symbol]
	if !ok {
		return
	}
	pos.CurrentPrice = price
	if pos.IsFlat() {
		pos.UnrealizedPnL = 0
		return
	}
	pos.UnrealizedPnL = sideSign(pos.Side) * (price - pos.AvgEntry) * pos.Quantity
}

// Get returns a snapshot of the position for symbol.
func (t *Tracker) Get(symbol string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	pos, ok := t.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Open returns a snapshot of every non-flat position.
func (t *Tracker) Open() []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Position, 0, len(t.positions))
	for _, p := range t.positions {
		if !p.IsFlat() {
			out = append(out, *p)
		}
	}
	return out
}

// TotalExposure returns Σ|avg·qty| across all open positions.
func (t *Tracker) TotalExposure() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, p := range t.positions {
		total += abs(p.AvgEntry * p.Quantity)
	}
	return total
}

// TotalPnL returns the sum of realized and unrealized PnL across all symbols.
func (t *Tracker) TotalPnL() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var total float64
	for _, p := range t.positions {
		total += p.RealizedPnL + p.UnrealizedPnL
	}
	return total
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
