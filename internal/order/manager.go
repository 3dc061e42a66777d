// Package order implements the order state machine from spec §4.13.
// Grounded on the teacher's internal/order/manager.go active-orders-map
// shape (mutex-guarded map plus history slice), reworked from the
// teacher's trailing-stop/rule-modification loop onto the spec's
// submit/fill/cancel lifecycle driven by internal/risk and
// internal/exchange.
package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/risk"
)

// Status is the ManagedOrder lifecycle state, per spec §3.
type Status string

const (
	StatusPending         Status = "pending"
	StatusRiskRejected    Status = "risk_rejected"
	StatusSubmitted       Status = "submitted"
	StatusOpen            Status = "open"
	StatusPartiallyFilled Status = "partially_filled"
	StatusFilled          Status = "filled"
	StatusCancelled       Status = "cancelled"
	StatusFailed          Status = "failed"
)

var terminal = map[Status]bool{
	StatusRiskRejected: true, StatusFilled: true, StatusCancelled: true, StatusFailed: true,
}

// ManagedOrder is the internally tracked order record.
type ManagedOrder struct {
	ID              string
	Request         exchange.OrderRequest
	ExchangeID      string
	Status          Status
	FilledQuantity  float64
	AvgFillPrice    float64
	RejectReason    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Submitter places an order with the exchange; typically exchange.Client.PlaceOrder.
type Submitter func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error)

// Manager owns the ManagedOrder state machine, consulting risk.Manager
// before submission and feeding fills to position.Tracker, per spec §4.13.
type Manager struct {
	mu     sync.Mutex
	orders map[string]*ManagedOrder
	byID   map[string][]string // symbol -> IDs of every order submitted for it

	risk     *risk.Manager
	tracker  *position.Tracker
	logger   zerolog.Logger
}

// New builds a Manager wired to risk and a position tracker.
func New(riskManager *risk.Manager, tracker *position.Tracker, logger zerolog.Logger) *Manager {
	return &Manager{
		orders: make(map[string]*ManagedOrder),
		byID:   make(map[string][]string),
		risk:   riskManager, tracker: tracker,
		logger: logger.With().Str("component", "order.Manager").Logger(),
	}
}

// SubmitOrder runs the §4.13 pipeline: create pending -> risk check ->
// submitter call -> terminal/open transition.
func (m *Manager) SubmitOrder(ctx context.Context, req exchange.OrderRequest, check risk.CheckRequest, submit Submitter) (*ManagedOrder, error) {
	mo := &ManagedOrder{
		ID: uuid.NewString(), Request: req, Status: StatusPending,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}

	m.mu.Lock()
	m.orders[mo.ID] = mo
	m.byID[req.Symbol] = append(m.byID[req.Symbol], mo.ID)
	m.mu.Unlock()

	if approved, reason := m.risk.CheckOrder(check); !approved {
		m.mu.Lock()
		mo.Status = StatusRiskRejected
		mo.RejectReason = reason
		mo.UpdatedAt = time.Now().UTC()
		m.mu.Unlock()
		m.logger.Warn().Str("order_id", mo.ID).Str("reason", reason).Msg("order risk-rejected")
		return mo, nil
	}

	result, err := submit(ctx, req)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		mo.Status = StatusFailed
		mo.RejectReason = err.Error()
		mo.UpdatedAt = time.Now().UTC()
		m.risk.RecordError(err)
		m.logger.Error().Err(err).Str("order_id", mo.ID).Msg("order submission failed")
		return mo, fmt.Errorf("submit order: %w", err)
	}

	mo.Status = StatusSubmitted
	mo.ExchangeID = result.ExchangeID
	mo.UpdatedAt = time.Now().UTC()
	m.risk.RecordSuccess()
	return mo, nil
}

// ProcessFill adds a fill to an order's running size-weighted average
// price, transitions its status, and feeds the position tracker, per
// spec §4.13.
func (m *Manager) ProcessFill(orderID string, fillQty, fillPrice float64, ts time.Time, fee float64) (*ManagedOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s not found", orderID)
	}

	totalFilled := mo.FilledQuantity + fillQty
	if totalFilled > 0 {
		mo.AvgFillPrice = (mo.AvgFillPrice*mo.FilledQuantity + fillPrice*fillQty) / totalFilled
	}
	mo.FilledQuantity = totalFilled
	mo.UpdatedAt = ts

	if mo.FilledQuantity >= mo.Request.Quantity {
		mo.Status = StatusFilled
	} else {
		mo.Status = StatusPartiallyFilled
	}

	if m.tracker != nil {
		side := position.SideBuy
		if mo.Request.Side == exchange.Sell {
			side = position.SideSell
		}
		m.tracker.UpdateFromFill(position.Fill{
			Symbol: mo.Request.Symbol, Side: side, Quantity: fillQty,
			Price: fillPrice, Timestamp: ts, OrderID: orderID, Fee: fee,
		})
	}

	return mo, nil
}

// CancelOrder is idempotent on terminal orders. cancel is the
// exchange-facing cancel call (typically exchange.Client.CancelOrder).
func (m *Manager) CancelOrder(ctx context.Context, orderID string, cancel func(context.Context, string) error) error {
	m.mu.Lock()
	mo, ok := m.orders[orderID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("order %s not found", orderID)
	}
	if terminal[mo.Status] {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := cancel(ctx, orderID); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	m.mu.Lock()
	mo.Status = StatusCancelled
	mo.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()
	return nil
}

// CancelAllOrders cancels every non-terminal order for symbol.
func (m *Manager) CancelAllOrders(ctx context.Context, symbol, reason string, cancel func(context.Context, string) error) ([]string, error) {
	m.mu.Lock()
	ids := append([]string(nil), m.byID[symbol]...)
	m.mu.Unlock()

	var cancelled []string
	for _, id := range ids {
		if err := m.CancelOrder(ctx, id, cancel); err != nil {
			continue
		}
		cancelled = append(cancelled, id)
	}
	m.logger.Info().Str("symbol", symbol).Str("reason", reason).Int("count", len(cancelled)).Msg("cancelled all orders")
	return cancelled, nil
}

// UpdateOrderStatus maps an exchange-reported status onto the internal
// state machine.
func (m *Manager) UpdateOrderStatus(orderID string, exchangeStatus exchange.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mo, ok := m.orders[orderID]
	if !ok {
		return fmt.Errorf("order %s not found", orderID)
	}

	switch exchangeStatus {
	case exchange.Open:
		mo.Status = StatusOpen
	case exchange.PartiallyFilled:
		mo.Status = StatusPartiallyFilled
	case exchange.Filled:
		mo.Status = StatusFilled
	case exchange.Cancelled:
		mo.Status = StatusCancelled
	case exchange.Rejected, exchange.Expired, exchange.Failed:
		mo.Status = StatusFailed
	}
	mo.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a snapshot of the managed order.
func (m *Manager) Get(orderID string) (ManagedOrder, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mo, ok := m.orders[orderID]
	if !ok {
		return ManagedOrder{}, false
	}
	return *mo, true
}
