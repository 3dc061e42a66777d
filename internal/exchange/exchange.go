// Package exchange defines the capability contract the core depends on for
// order placement, account queries and market data, per spec §4.10.
// Grounded on the teacher's internal/binance/{interface.go,client.go},
// generalized from Binance-specific method names to the spec's contract.
package exchange

import (
	"context"
	"time"
)

// SymbolInfo carries the tick/lot constraints an exchange enforces for a symbol.
type SymbolInfo struct {
	Symbol   string
	TickSize float64
	LotSize  float64
	MinQty   float64
	MaxQty   float64
}

// Side is the order direction.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderKind mirrors the Order entity's kind enum, per spec §3.1.
type OrderKind string

const (
	Market     OrderKind = "market"
	Limit      OrderKind = "limit"
	StopLoss   OrderKind = "stop_loss"
	TakeProfit OrderKind = "take_profit"
)

// OrderRequest is the caller-supplied intent before exchange rounding/signing.
type OrderRequest struct {
	Symbol     string
	Side       Side
	Kind       OrderKind
	Quantity   float64
	Price      float64 // zero for market orders
	StopPrice  float64 // zero unless Kind is a stop variant
	ClientTag  string
}

// OrderStatus mirrors the Order entity's status enum, per spec §3.1.
type OrderStatus string

const (
	Pending         OrderStatus = "pending"
	RiskRejected    OrderStatus = "risk_rejected"
	Submitted       OrderStatus = "submitted"
	Open            OrderStatus = "open"
	PartiallyFilled OrderStatus = "partially_filled"
	Filled          OrderStatus = "filled"
	Cancelled       OrderStatus = "cancelled"
	Rejected        OrderStatus = "rejected"
	Expired         OrderStatus = "expired"
	Failed          OrderStatus = "failed"
)

// TerminalStatuses is the set of Order statuses that admit no further transitions.
var TerminalStatuses = map[OrderStatus]bool{
	Filled: true, Cancelled: true, Rejected: true, Expired: true, Failed: true, RiskRejected: true,
}

// Order is the exchange-confirmed order record.
type Order struct {
	ID         string
	ExchangeID string
	Symbol     string
	Side       Side
	Kind       OrderKind
	Quantity   float64
	Price      float64
	StopPrice  float64
	Status     OrderStatus
	CreatedAt  time.Time
}

// Position is the exchange's view of a held position.
type Position struct {
	Symbol         string
	Side           Side
	Quantity       float64
	AvgEntryPrice  float64
	UnrealizedPnL  float64
}

// AccountState is the exchange's reported account snapshot.
type AccountState struct {
	EquityUSD   float64
	AvailableUSD float64
	Positions   []Position
}

// UserEvent is a message delivered over the user-event subscription, per
// spec §6: {channel, data}.
type UserEvent struct {
	Channel string
	Data    map[string]interface{}
}

// Session represents an active user-event subscription.
type Session interface {
	Close() error
}

// Client is the capability contract the core depends on, per spec §4.10.
// Every call is expected to be serialized through the rate limiter and to
// retry transient errors with exponential backoff up to max_retries.
type Client interface {
	LoadSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error)
	RoundPrice(symbol string, price float64) float64
	RoundQuantity(symbol string, qty float64) float64
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, id string) error
	CancelAllOrders(ctx context.Context, symbol string) ([]string, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)
	GetPositions(ctx context.Context) ([]Position, error)
	GetAccountBalance(ctx context.Context) (AccountState, error)
	GetMarketPrice(ctx context.Context, symbol string) (float64, error)
	Healthcheck(ctx context.Context) bool
	SubscribeUserEvents(ctx context.Context, callback func(UserEvent)) (Session, error)
}

// AuditEvent is emitted for every state-changing operation, per spec §4.10.
type AuditEvent struct {
	Kind    string
	Payload map[string]interface{}
	At      time.Time
}

// AuditSink receives audit events from state-changing exchange operations.
type AuditSink interface {
	Record(event AuditEvent)
}
