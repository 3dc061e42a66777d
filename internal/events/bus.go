// Package events implements an in-process publish/subscribe bus, grounded
// on the teacher's internal/events/bus.go EventBus shape. The teacher's
// per-user WebSocket broadcast callbacks are dropped — dashboards and
// end-user delivery are non-goals here — leaving the core typed pub/sub
// mechanism, rewired to this engine's own domain events.
package events

import (
	"sync"
	"time"
)

// Type identifies a domain event kind.
type Type string

const (
	TypeTradeOpened         Type = "trade_opened"
	TypeTradeClosed         Type = "trade_closed"
	TypeOrderSubmitted      Type = "order_submitted"
	TypeOrderFilled         Type = "order_filled"
	TypeOrderRejected       Type = "order_rejected"
	TypeSignalGenerated     Type = "signal_generated"
	TypePositionUpdate      Type = "position_update"
	TypeCircuitBreakerState Type = "circuit_breaker_state"
	TypeBacktestProgress    Type = "backtest_progress"
	TypeSyncError           Type = "sync_error"
)

// Event is one bus message.
type Event struct {
	Type      Type
	Timestamp time.Time
	Data      map[string]interface{}
}

// Subscriber handles one event. It runs in its own goroutine, so it must
// not assume delivery order relative to other subscribers.
type Subscriber func(Event)

// Bus fans out published events to subscribers of a specific type and to
// subscribers of everything.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Type][]Subscriber
	allSubs     []Subscriber
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Type][]Subscriber)}
}

// Subscribe registers fn for events of the given type.
func (b *Bus) Subscribe(t Type, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], fn)
}

// SubscribeAll registers fn for every event published on the bus.
func (b *Bus) SubscribeAll(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.allSubs = append(b.allSubs, fn)
}

// Publish dispatches event to all matching subscribers, each in its own
// goroutine so a slow subscriber never blocks the publisher.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[event.Type] {
		go sub(event)
	}
	for _, sub := range b.allSubs {
		go sub(event)
	}
}

// PublishTradeOpened publishes a trade-opened event.
func (b *Bus) PublishTradeOpened(symbol, side string, entryPrice, quantity float64) {
	b.Publish(Event{Type: TypeTradeOpened, Data: map[string]interface{}{
		"symbol": symbol, "side": side, "entry_price": entryPrice, "quantity": quantity,
	}})
}

// PublishTradeClosed publishes a trade-closed event.
func (b *Bus) PublishTradeClosed(symbol string, realizedPnL, rMultiple float64, exitReason string) {
	b.Publish(Event{Type: TypeTradeClosed, Data: map[string]interface{}{
		"symbol": symbol, "realized_pnl": realizedPnL, "r_multiple": rMultiple, "exit_reason": exitReason,
	}})
}

// PublishSignalGenerated publishes a signal-generated event.
func (b *Bus) PublishSignalGenerated(symbol, side, setupType string, confluence float64) {
	b.Publish(Event{Type: TypeSignalGenerated, Data: map[string]interface{}{
		"symbol": symbol, "side": side, "setup_type": setupType, "confluence": confluence,
	}})
}

// PublishOrderFilled publishes an order-filled event.
func (b *Bus) PublishOrderFilled(orderID, symbol string, fillQty, fillPrice float64) {
	b.Publish(Event{Type: TypeOrderFilled, Data: map[string]interface{}{
		"order_id": orderID, "symbol": symbol, "fill_quantity": fillQty, "fill_price": fillPrice,
	}})
}

// PublishCircuitBreakerState publishes a circuit-breaker trip/reset event.
func (b *Bus) PublishCircuitBreakerState(tripped bool, reason string) {
	b.Publish(Event{Type: TypeCircuitBreakerState, Data: map[string]interface{}{
		"tripped": tripped, "reason": reason,
	}})
}

// PublishBacktestProgress publishes a backtest progress snapshot.
func (b *Bus) PublishBacktestProgress(progressPercent float64, openTrades, closedTrades int) {
	b.Publish(Event{Type: TypeBacktestProgress, Data: map[string]interface{}{
		"progress_percent": progressPercent, "open_trades": openTrades, "closed_trades": closedTrades,
	}})
}
