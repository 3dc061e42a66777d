package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tradecore/engine/internal/exchange"
	"github.com/tradecore/engine/internal/position"
	"github.com/tradecore/engine/internal/risk"
)

func newTestManager() *Manager {
	rm := risk.NewManager(risk.DefaultConfig())
	tr := position.New(zerolog.Nop())
	return New(rm, tr, zerolog.Nop())
}

func approvedCheck() risk.CheckRequest {
	return risk.CheckRequest{NotionalUSD: 100, IsMarket: true, AccountBalance: 50000}
}

func TestSubmitOrderSucceeds(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		return exchange.Order{ExchangeID: "ex-1", Status: exchange.Open}, nil
	}

	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: exchange.Buy, Quantity: 1}, approvedCheck(), submit)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, mo.Status)
	require.Equal(t, "ex-1", mo.ExchangeID)
}

func TestSubmitOrderRiskRejected(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		t.Fatal("submitter should not be called on risk rejection")
		return exchange.Order{}, nil
	}

	check := risk.CheckRequest{NotionalUSD: 1_000_000, IsMarket: true, AccountBalance: 50000}
	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: exchange.Buy, Quantity: 1}, check, submit)
	require.NoError(t, err)
	require.Equal(t, StatusRiskRejected, mo.Status)
	require.NotEmpty(t, mo.RejectReason)
}

func TestSubmitOrderSubmitterFailure(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		return exchange.Order{}, errors.New("exchange unavailable")
	}

	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: exchange.Buy, Quantity: 1}, approvedCheck(), submit)
	require.Error(t, err)
	require.Equal(t, StatusFailed, mo.Status)
}

func TestProcessFillTransitionsToFilledAndUpdatesPosition(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		return exchange.Order{ExchangeID: "ex-2", Status: exchange.Open}, nil
	}

	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: exchange.Buy, Quantity: 2}, approvedCheck(), submit)
	require.NoError(t, err)

	updated, err := m.ProcessFill(mo.ID, 1, 100, time.Now(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusPartiallyFilled, updated.Status)

	updated, err = m.ProcessFill(mo.ID, 1, 110, time.Now(), 0)
	require.NoError(t, err)
	require.Equal(t, StatusFilled, updated.Status)
	require.InDelta(t, 105.0, updated.AvgFillPrice, 1e-9)

	pos, ok := m.tracker.Get("BTCUSDT")
	require.True(t, ok)
	require.Equal(t, 2.0, pos.Quantity)
}

func TestCancelOrderIsIdempotentOnTerminal(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		return exchange.Order{ExchangeID: "ex-3", Status: exchange.Open}, nil
	}
	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "ETHUSDT", Side: exchange.Sell, Quantity: 1}, approvedCheck(), submit)
	require.NoError(t, err)

	calls := 0
	cancel := func(ctx context.Context, id string) error { calls++; return nil }

	require.NoError(t, m.CancelOrder(context.Background(), mo.ID, cancel))
	require.NoError(t, m.CancelOrder(context.Background(), mo.ID, cancel))
	require.Equal(t, 1, calls) // second call is a no-op, order already terminal

	got, ok := m.Get(mo.ID)
	require.True(t, ok)
	require.Equal(t, StatusCancelled, got.Status)
}

func TestUpdateOrderStatusMapsExchangeStates(t *testing.T) {
	m := newTestManager()
	submit := func(ctx context.Context, req exchange.OrderRequest) (exchange.Order, error) {
		return exchange.Order{ExchangeID: "ex-4", Status: exchange.Open}, nil
	}
	mo, err := m.SubmitOrder(context.Background(), exchange.OrderRequest{Symbol: "BTCUSDT", Side: exchange.Buy, Quantity: 1}, approvedCheck(), submit)
	require.NoError(t, err)

	require.NoError(t, m.UpdateOrderStatus(mo.ID, exchange.Filled))
	got, _ := m.Get(mo.ID)
	require.Equal(t, StatusFilled, got.Status)
}
