package binance

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifutures/internal/adapters/exchanges"
)

// fakeVenue emulates the futures REST surface the adapter talks to.
// Routing matches on path fragments so SDK endpoint version bumps do
// not break the tests.
type fakeVenue struct {
	mu              sync.Mutex
	orders          []url.Values
	leverageCalls   []url.Values
	positionQueries []url.Values
	modeCalls       int

	price       string
	minNotional string
	dual        bool
	failWith    string // non-empty: every call answers 400 with this code/msg pair
	delay       time.Duration
}

func newFakeVenue() *fakeVenue {
	return &fakeVenue{price: "50000", minNotional: "100"}
}

func (v *fakeVenue) placedOrders() []url.Values {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make([]url.Values, len(v.orders))
	copy(out, v.orders)
	return out
}

func (v *fakeVenue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if v.delay > 0 {
		time.Sleep(v.delay)
	}
	if v.failWith != "" {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, v.failWith)
		return
	}

	_ = r.ParseForm()
	form := url.Values{}
	for k, vals := range r.Form {
		form[k] = append([]string(nil), vals...)
	}

	path := r.URL.Path
	switch {
	case strings.Contains(path, "exchangeInfo"):
		fmt.Fprintf(w, `{"symbols":[{
			"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT",
			"contractType":"PERPETUAL","pricePrecision":2,"quantityPrecision":3,
			"filters":[
				{"filterType":"LOT_SIZE","minQty":"0.001","maxQty":"1000","stepSize":"0.001"},
				{"filterType":"PRICE_FILTER","tickSize":"0.10"},
				{"filterType":"MIN_NOTIONAL","notional":%q}
			]}]}`, v.minNotional)

	case strings.Contains(path, "ticker/price"):
		fmt.Fprintf(w, `[{"symbol":"BTCUSDT","price":%q}]`, v.price)

	case strings.Contains(path, "positionSide/dual"):
		v.mu.Lock()
		v.modeCalls++
		dual := v.dual
		v.mu.Unlock()
		fmt.Fprintf(w, `{"dualSidePosition":%t}`, dual)

	case strings.Contains(path, "leverageBracket"):
		io.WriteString(w, `[{"symbol":"BTCUSDT","brackets":[{"bracket":1,"initialLeverage":125},{"bracket":2,"initialLeverage":50}]}]`)

	case strings.Contains(path, "positionRisk"):
		v.mu.Lock()
		v.positionQueries = append(v.positionQueries, form)
		v.mu.Unlock()
		io.WriteString(w, `[
			{"symbol":"BTCUSDT","positionAmt":"0.500","entryPrice":"48000","markPrice":"50000","liquidationPrice":"30000","leverage":"10","unRealizedProfit":"1000","marginType":"cross","positionSide":"BOTH"},
			{"symbol":"ETHUSDT","positionAmt":"-2","entryPrice":"3000","markPrice":"2900","liquidationPrice":"4100","leverage":"5","unRealizedProfit":"200","marginType":"isolated","positionSide":"BOTH"},
			{"symbol":"SOLUSDT","positionAmt":"0","entryPrice":"0","markPrice":"150","liquidationPrice":"0","leverage":"20","unRealizedProfit":"0","marginType":"cross","positionSide":"BOTH"}
		]`)

	case strings.Contains(path, "openOrders"):
		io.WriteString(w, `[]`)

	case strings.Contains(path, "balance"):
		io.WriteString(w, `[{"asset":"USDT","balance":"1000.50","availableBalance":"900.25","crossUnPnl":"12.5"}]`)

	case strings.Contains(path, "order") && r.Method == http.MethodPost:
		v.mu.Lock()
		v.orders = append(v.orders, form)
		n := len(v.orders)
		v.mu.Unlock()
		fmt.Fprintf(w, `{"orderId":%d,"clientOrderId":"cli-%d","symbol":"BTCUSDT","status":"NEW","price":"0","origQty":%q,"executedQty":"0","avgPrice":"0"}`,
			n, n, form.Get("quantity"))

	case strings.Contains(path, "leverage") && r.Method == http.MethodPost:
		v.mu.Lock()
		v.leverageCalls = append(v.leverageCalls, form)
		v.mu.Unlock()
		io.WriteString(w, `{"leverage":10,"maxNotionalValue":"1000000","symbol":"BTCUSDT"}`)

	default:
		io.WriteString(w, `{}`)
	}
}

func newTestClient(t *testing.T, venue *fakeVenue, httpClient *http.Client) exchanges.FuturesTrader {
	t.Helper()

	srv := httptest.NewServer(venue)
	t.Cleanup(srv.Close)

	trader, err := NewClient(Config{
		APIKey:     "test-key",
		SecretKey:  "test-secret",
		BaseURL:    srv.URL,
		HTTPClient: httpClient,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = trader.Close() })

	return trader
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, exchanges.ErrMissingCredentials)

	_, err = NewClient(Config{APIKey: "key"})
	assert.ErrorIs(t, err, exchanges.ErrMissingCredentials)
}

func TestCalculateQuantityFromUSDT(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		amount   string
		leverage int
		opts     []exchanges.QuantityOption
		want     string
		wantErr  error
	}{
		{
			name:     "margin times leverage divided by price",
			amount:   "50",
			leverage: 10,
			want:     "0.01",
		},
		{
			name:     "floors to step size",
			amount:   "457",
			leverage: 1,
			want:     "0.009",
		},
		{
			name:     "bumps undersized order to min notional",
			amount:   "50",
			leverage: 1,
			want:     "0.002",
		},
		{
			name:     "skip adjust rejects undersized order",
			amount:   "50",
			leverage: 1,
			opts:     []exchanges.QuantityOption{exchanges.WithoutMinNotionalAdjust()},
			wantErr:  exchanges.ErrOrderTooSmall,
		},
		{
			name:     "take profit split scales the minimum",
			amount:   "50",
			leverage: 1,
			opts:     []exchanges.QuantityOption{exchanges.WithTakeProfitSplit(3)},
			want:     "0.006",
		},
		{
			name:     "caps at max quantity",
			amount:   "10000000",
			leverage: 10,
			want:     "1000",
		},
		{
			name:     "zero amount is invalid",
			amount:   "0",
			leverage: 10,
			wantErr:  exchanges.ErrInvalidRequest,
		},
		{
			name:     "zero leverage is invalid",
			amount:   "50",
			leverage: 0,
			wantErr:  exchanges.ErrInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty, err := trader.CalculateQuantityFromUSDT(ctx, "BTCUSDT", decimal.RequireFromString(tt.amount), tt.leverage, tt.opts...)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, qty.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", qty, tt.want)
		})
	}
}

func TestCreateOrder_Market(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	order, err := trader.CreateOrder(context.Background(), &exchanges.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     exchanges.OrderSideBuy,
		Type:     exchanges.OrderTypeMarket,
		Quantity: decimal.RequireFromString("0.01"),
	})
	require.NoError(t, err)

	assert.Equal(t, "1", order.ID)
	assert.Equal(t, exchanges.OrderStatusNew, order.Status)
	assert.Equal(t, exchanges.OrderSideBuy, order.Side)
	assert.True(t, order.Quantity.Equal(decimal.RequireFromString("0.01")))

	placed := venue.placedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "BUY", placed[0].Get("side"))
	assert.Equal(t, "MARKET", placed[0].Get("type"))
	assert.Equal(t, "0.01", placed[0].Get("quantity"))
	// One-way mode entries carry neither positionSide nor reduceOnly.
	assert.Empty(t, placed[0].Get("positionSide"))
	assert.Empty(t, placed[0].Get("reduceOnly"))
}

func TestCreateOrder_LimitRequiresPrice(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.CreateOrder(context.Background(), &exchanges.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     exchanges.OrderSideBuy,
		Type:     exchanges.OrderTypeLimit,
		Quantity: decimal.RequireFromString("0.01"),
	})
	require.ErrorIs(t, err, exchanges.ErrInvalidRequest)
	assert.Empty(t, venue.placedOrders(), "invalid request must not reach the venue")
}

func TestCreateOrder_LimitCarriesPriceAndTIF(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.CreateOrder(context.Background(), &exchanges.OrderRequest{
		Symbol:      "BTCUSDT",
		Side:        exchanges.OrderSideSell,
		Type:        exchanges.OrderTypeLimit,
		Quantity:    decimal.RequireFromString("0.01"),
		Price:       decimal.RequireFromString("52000"),
		TimeInForce: exchanges.TimeInForceIOC,
	})
	require.NoError(t, err)

	placed := venue.placedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "SELL", placed[0].Get("side"))
	assert.Equal(t, "LIMIT", placed[0].Get("type"))
	assert.Equal(t, "52000", placed[0].Get("price"))
	assert.Equal(t, "IOC", placed[0].Get("timeInForce"))
}

func TestCreateOrder_SetsLeverageFirst(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.CreateOrder(context.Background(), &exchanges.OrderRequest{
		Symbol:   "BTCUSDT",
		Side:     exchanges.OrderSideBuy,
		Type:     exchanges.OrderTypeMarket,
		Quantity: decimal.RequireFromString("0.01"),
		Leverage: 10,
	})
	require.NoError(t, err)

	require.Len(t, venue.leverageCalls, 1)
	assert.Equal(t, "10", venue.leverageCalls[0].Get("leverage"))
	assert.Equal(t, "BTCUSDT", venue.leverageCalls[0].Get("symbol"))
}

func TestCreateStopLoss_WholePositionClose(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	order, err := trader.CreateStopLoss(context.Background(), &exchanges.StopLossRequest{
		Symbol:       "BTCUSDT",
		PositionSide: exchanges.PositionSideLong,
		StopPrice:    decimal.RequireFromString("45000"),
	})
	require.NoError(t, err)

	assert.Equal(t, exchanges.OrderTypeStopMarket, order.Type)
	assert.Equal(t, exchanges.OrderSideSell, order.Side)
	assert.True(t, order.ReduceOnly)

	placed := venue.placedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "STOP_MARKET", placed[0].Get("type"))
	assert.Equal(t, "45000", placed[0].Get("stopPrice"))
	assert.Equal(t, "MARK_PRICE", placed[0].Get("workingType"))
	assert.Equal(t, "true", placed[0].Get("closePosition"))
	assert.Empty(t, placed[0].Get("quantity"), "whole position stop must not carry a size")
}

func TestCreateStopLoss_PartialQuantity(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.CreateStopLoss(context.Background(), &exchanges.StopLossRequest{
		Symbol:       "BTCUSDT",
		PositionSide: exchanges.PositionSideShort,
		StopPrice:    decimal.RequireFromString("55000"),
		Quantity:     decimal.RequireFromString("0.005"),
	})
	require.NoError(t, err)

	placed := venue.placedOrders()
	require.Len(t, placed, 1)
	assert.Equal(t, "BUY", placed[0].Get("side"), "short protection exits with a buy")
	assert.Equal(t, "0.005", placed[0].Get("quantity"))
	assert.Equal(t, "true", placed[0].Get("reduceOnly"))
	assert.Empty(t, placed[0].Get("closePosition"))
}

func TestCreateStopLoss_InvalidRequest(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)
	ctx := context.Background()

	_, err := trader.CreateStopLoss(ctx, nil)
	assert.ErrorIs(t, err, exchanges.ErrInvalidRequest)

	_, err = trader.CreateStopLoss(ctx, &exchanges.StopLossRequest{
		Symbol:       "BTCUSDT",
		PositionSide: exchanges.PositionSideBoth,
		StopPrice:    decimal.RequireFromString("45000"),
	})
	assert.ErrorIs(t, err, exchanges.ErrInvalidRequest)

	assert.Empty(t, venue.placedOrders())
}

func TestCreateTakeProfits_SplitsQuantity(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	orders, err := trader.CreateTakeProfits(context.Background(), &exchanges.TakeProfitRequest{
		Symbol:       "BTCUSDT",
		PositionSide: exchanges.PositionSideLong,
		Quantity:     decimal.RequireFromString("0.01"),
		Prices: []decimal.Decimal{
			decimal.RequireFromString("51000"),
			decimal.RequireFromString("52000"),
		},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)

	placed := venue.placedOrders()
	require.Len(t, placed, 2)

	assert.Equal(t, "TAKE_PROFIT_MARKET", placed[0].Get("type"))
	assert.Equal(t, "SELL", placed[0].Get("side"))
	assert.Equal(t, "0.005", placed[0].Get("quantity"))
	assert.Equal(t, "51000", placed[0].Get("stopPrice"))

	// The final target closes the remainder of the position.
	assert.Equal(t, "true", placed[1].Get("closePosition"))
	assert.Empty(t, placed[1].Get("quantity"))
	assert.Equal(t, "52000", placed[1].Get("stopPrice"))
	assert.True(t, orders[1].Quantity.IsZero())
}

func TestCreateTakeProfits_ChunkBelowStep(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.CreateTakeProfits(context.Background(), &exchanges.TakeProfitRequest{
		Symbol:       "BTCUSDT",
		PositionSide: exchanges.PositionSideLong,
		Quantity:     decimal.RequireFromString("0.001"),
		Prices: []decimal.Decimal{
			decimal.RequireFromString("51000"),
			decimal.RequireFromString("52000"),
		},
	})
	require.ErrorIs(t, err, exchanges.ErrOrderTooSmall)
	assert.Empty(t, venue.placedOrders())
}

func TestGetPositionMode_Cached(t *testing.T) {
	venue := newFakeVenue()
	venue.dual = true
	trader := newTestClient(t, venue, nil)
	ctx := context.Background()

	mode, err := trader.GetPositionMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, exchanges.PositionModeHedge, mode)

	// A flipped venue answer is not observed while the cache holds.
	venue.mu.Lock()
	venue.dual = false
	venue.mu.Unlock()

	mode, err = trader.GetPositionMode(ctx)
	require.NoError(t, err)
	assert.Equal(t, exchanges.PositionModeHedge, mode)

	venue.mu.Lock()
	calls := venue.modeCalls
	venue.mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestGetOpenPositions_SkipsFlat(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)

	positions, err := trader.GetOpenPositions(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, "BTCUSDT", positions[0].Symbol)
	assert.Equal(t, exchanges.PositionSideLong, positions[0].Side)
	assert.True(t, positions[0].Size.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, exchanges.MarginCross, positions[0].MarginMode)

	assert.Equal(t, "ETHUSDT", positions[1].Symbol)
	assert.Equal(t, exchanges.PositionSideShort, positions[1].Side)
	assert.True(t, positions[1].Size.Equal(decimal.RequireFromString("2")))
	assert.Equal(t, exchanges.MarginIsolated, positions[1].MarginMode)
}

func TestGetOpenPositions_SymbolScopesQuery(t *testing.T) {
	venue := newFakeVenue()
	trader := newTestClient(t, venue, nil)

	_, err := trader.GetOpenPositions(context.Background(), "btc-usdt")
	require.NoError(t, err)

	venue.mu.Lock()
	defer venue.mu.Unlock()
	require.Len(t, venue.positionQueries, 1)
	assert.Equal(t, "BTCUSDT", venue.positionQueries[0].Get("symbol"))
}

func TestGetFuturesBalance(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)

	balance, err := trader.GetFuturesBalance(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "USDT", balance.Asset)
	assert.True(t, balance.Total.Equal(decimal.RequireFromString("1000.50")))
	assert.True(t, balance.Available.Equal(decimal.RequireFromString("900.25")))
	assert.True(t, balance.UnrealizedPnL.Equal(decimal.RequireFromString("12.5")))
}

func TestGetMaxLeverage_PicksHighestBracket(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)

	leverage, err := trader.GetMaxLeverage(context.Background(), "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 125, leverage)
}

func TestGetOrderHistory_RequiresSymbol(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)

	_, err := trader.GetOrderHistory(context.Background(), "", 10)
	assert.ErrorIs(t, err, exchanges.ErrInvalidRequest)
}

func TestVenueRejectionIsExchangeError(t *testing.T) {
	venue := newFakeVenue()
	venue.failWith = `{"code":-2019,"msg":"Margin is insufficient."}`
	trader := newTestClient(t, venue, nil)

	_, err := trader.GetFuturesBalance(context.Background())
	require.Error(t, err)

	ee, ok := exchanges.AsExchangeError(err)
	require.True(t, ok, "expected an exchange error, got %v", err)
	assert.Equal(t, "binance", ee.Exchange)
	assert.Equal(t, "-2019", ee.Code)
	assert.False(t, exchanges.IsCommunicationError(err))
}

func TestTimeoutIsCommunicationError(t *testing.T) {
	venue := newFakeVenue()
	venue.delay = 200 * time.Millisecond
	trader := newTestClient(t, venue, &http.Client{Timeout: 20 * time.Millisecond})

	_, err := trader.GetCurrentPrice(context.Background(), "BTCUSDT")
	require.Error(t, err)
	assert.True(t, exchanges.IsCommunicationError(err), "timeout should classify as communication error, got %v", err)
}

func TestClose_Idempotent(t *testing.T) {
	trader := newTestClient(t, newFakeVenue(), nil)

	require.NoError(t, trader.Close())
	require.NoError(t, trader.Close())
}
