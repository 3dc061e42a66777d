package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClientRoundsPriceAndQuantity(t *testing.T) {
	audit := NewMemoryAuditSink()
	client := NewMockClient(map[string]float64{"BTCUSDT": 50000}, audit)

	rounded := client.RoundPrice("BTCUSDT", 50000.017)
	require.InDelta(t, 50000.02, rounded, 0.001)

	qty := client.RoundQuantity("BTCUSDT", 0.12347)
	require.InDelta(t, 0.1235, qty, 0.00001)
}

func TestMockClientPlaceAndCancelOrder(t *testing.T) {
	audit := NewMemoryAuditSink()
	client := NewMockClient(map[string]float64{"BTCUSDT": 50000}, audit)
	ctx := context.Background()

	order, err := client.PlaceOrder(ctx, OrderRequest{Symbol: "BTCUSDT", Side: Buy, Kind: Market, Quantity: 0.5})
	require.NoError(t, err)
	require.Equal(t, Open, order.Status)

	open, err := client.GetOpenOrders(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.Len(t, open, 1)

	require.NoError(t, client.CancelOrder(ctx, order.ID))
	got, err := client.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, Cancelled, got.Status)

	// cancelling an already-terminal order is idempotent.
	require.NoError(t, client.CancelOrder(ctx, order.ID))

	events := audit.Events()
	require.GreaterOrEqual(t, len(events), 2)
	require.Equal(t, "place_order", events[0].Kind)
}

func TestMockClientCancelAllOrders(t *testing.T) {
	audit := NewMemoryAuditSink()
	client := NewMockClient(map[string]float64{"ETHUSDT": 3000}, audit)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.PlaceOrder(ctx, OrderRequest{Symbol: "ETHUSDT", Side: Sell, Kind: Limit, Quantity: 1, Price: 3100})
		require.NoError(t, err)
	}

	cancelled, err := client.CancelAllOrders(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, cancelled, 3)

	open, err := client.GetOpenOrders(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Empty(t, open)
}

func TestMockClientUnknownSymbolErrors(t *testing.T) {
	client := NewMockClient(map[string]float64{"BTCUSDT": 50000}, nil)
	_, err := client.GetMarketPrice(context.Background(), "DOGEUSDT")
	require.Error(t, err)
}

func TestMockClientHealthcheckAndBalance(t *testing.T) {
	client := NewMockClient(map[string]float64{"BTCUSDT": 50000}, nil)
	require.True(t, client.Healthcheck(context.Background()))

	balance, err := client.GetAccountBalance(context.Background())
	require.NoError(t, err)
	require.Greater(t, balance.EquityUSD, 0.0)
}
