package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockClient is an in-memory Client implementation for tests and backtests,
// grounded on the teacher's internal/binance/mock_client.go simulated
// market shape.
type MockClient struct {
	mu       sync.RWMutex
	prices   map[string]float64
	symbols  map[string]SymbolInfo
	orders   map[string]Order
	openByID map[string][]string // symbol -> order IDs
	audit    AuditSink
}

// NewMockClient builds a MockClient seeded with prices and symbol info.
func NewMockClient(prices map[string]float64, audit AuditSink) *MockClient {
	symbols := make(map[string]SymbolInfo, len(prices))
	for sym := range prices {
		symbols[sym] = SymbolInfo{Symbol: sym, TickSize: 0.01, LotSize: 0.0001, MinQty: 0.0001, MaxQty: 1_000_000}
	}
	return &MockClient{
		prices: prices, symbols: symbols,
		orders: make(map[string]Order), openByID: make(map[string][]string),
		audit: audit,
	}
}

func (m *MockClient) LoadSymbolInfo(ctx context.Context, symbol string) (SymbolInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.symbols[symbol]
	if !ok {
		return SymbolInfo{}, fmt.Errorf("unknown symbol %s", symbol)
	}
	return info, nil
}

func (m *MockClient) RoundPrice(symbol string, price float64) float64 {
	info, err := m.LoadSymbolInfo(context.Background(), symbol)
	if err != nil || info.TickSize <= 0 {
		return price
	}
	return roundTo(price, info.TickSize)
}

func (m *MockClient) RoundQuantity(symbol string, qty float64) float64 {
	info, err := m.LoadSymbolInfo(context.Background(), symbol)
	if err != nil || info.LotSize <= 0 {
		return qty
	}
	return roundTo(qty, info.LotSize)
}

func roundTo(v, step float64) float64 {
	return float64(int64(v/step+0.5)) * step
}

func (m *MockClient) emit(kind string, payload map[string]interface{}) {
	if m.audit == nil {
		return
	}
	m.audit.Record(AuditEvent{Kind: kind, Payload: payload, At: time.Now().UTC()})
}

func (m *MockClient) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	price := req.Price
	if req.Kind == Market {
		price = m.prices[req.Symbol]
	}
	order := Order{
		ID: uuid.NewString(), ExchangeID: uuid.NewString(), Symbol: req.Symbol,
		Side: req.Side, Kind: req.Kind, Quantity: m.RoundQuantity(req.Symbol, req.Quantity),
		Price: m.RoundPrice(req.Symbol, price), StopPrice: req.StopPrice,
		Status: Open, CreatedAt: time.Now().UTC(),
	}
	m.orders[order.ID] = order
	m.openByID[req.Symbol] = append(m.openByID[req.Symbol], order.ID)
	m.emit("place_order", map[string]interface{}{"order_id": order.ID, "symbol": req.Symbol})
	return order, nil
}

func (m *MockClient) CancelOrder(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return fmt.Errorf("order %s not found", id)
	}
	if TerminalStatuses[order.Status] {
		return nil
	}
	order.Status = Cancelled
	m.orders[id] = order
	m.emit("cancel_order", map[string]interface{}{"order_id": id})
	return nil
}

func (m *MockClient) CancelAllOrders(ctx context.Context, symbol string) ([]string, error) {
	m.mu.Lock()
	ids := append([]string(nil), m.openByID[symbol]...)
	m.mu.Unlock()

	cancelled := make([]string, 0, len(ids))
	for _, id := range ids {
		if err := m.CancelOrder(ctx, id); err != nil {
			continue
		}
		cancelled = append(cancelled, id)
	}
	m.emit("cancel_all_orders", map[string]interface{}{"symbol": symbol, "count": len(cancelled)})
	return cancelled, nil
}

func (m *MockClient) GetOrder(ctx context.Context, id string) (Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return Order{}, fmt.Errorf("order %s not found", id)
	}
	return order, nil
}

func (m *MockClient) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Order
	for _, id := range m.openByID[symbol] {
		if o, ok := m.orders[id]; ok && !TerminalStatuses[o.Status] {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MockClient) GetPositions(ctx context.Context) ([]Position, error) {
	return nil, nil
}

func (m *MockClient) GetAccountBalance(ctx context.Context) (AccountState, error) {
	return AccountState{EquityUSD: 100000, AvailableUSD: 100000}, nil
}

func (m *MockClient) GetMarketPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("unknown symbol %s", symbol)
	}
	return p, nil
}

func (m *MockClient) SetPrice(symbol string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prices[symbol] = price
}

func (m *MockClient) Healthcheck(ctx context.Context) bool { return true }

// SubscribeUserEvents on MockClient delivers no live events; it returns a
// session whose Close is a no-op, since the mock has no backing transport.
// A real deployment wires exchange.DialUserEventStream instead.
func (m *MockClient) SubscribeUserEvents(ctx context.Context, callback func(UserEvent)) (Session, error) {
	return noopSession{}, nil
}

type noopSession struct{}

func (noopSession) Close() error { return nil }

var _ Client = (*MockClient)(nil)
