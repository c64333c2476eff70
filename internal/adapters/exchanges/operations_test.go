package exchanges

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "unifutures/pkg/errors"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// stubTrader satisfies FuturesTrader with overridable behavior for the
// calls the position helpers make.
type stubTrader struct {
	quantityFn    func(ctx context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...QuantityOption) (decimal.Decimal, error)
	createOrderFn func(ctx context.Context, req *OrderRequest) (*Order, error)
	stopLossFn    func(ctx context.Context, req *StopLossRequest) (*Order, error)
	takeProfitFn  func(ctx context.Context, req *TakeProfitRequest) ([]Order, error)
	positionsFn   func(ctx context.Context, symbol string) ([]Position, error)
}

func (s *stubTrader) Name() string { return "stub" }

func (s *stubTrader) GetAccountInfo(ctx context.Context) (*AccountInfo, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetFuturesBalance(ctx context.Context) (*Balance, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetFreeMargin(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, ErrNotSupported
}

func (s *stubTrader) GetTradingSymbols(ctx context.Context) ([]string, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetInstrument(ctx context.Context, symbol string) (*Instrument, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, ErrNotSupported
}

func (s *stubTrader) GetMaxLeverage(ctx context.Context, symbol string) (int, error) {
	return 0, ErrNotSupported
}

func (s *stubTrader) GetPositionMode(ctx context.Context) (PositionMode, error) {
	return PositionModeOneWay, nil
}

func (s *stubTrader) ChangeLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}

func (s *stubTrader) CalculateQuantityFromUSDT(ctx context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...QuantityOption) (decimal.Decimal, error) {
	if s.quantityFn != nil {
		return s.quantityFn(ctx, symbol, amount, leverage, opts...)
	}
	return decimal.Zero, ErrNotSupported
}

func (s *stubTrader) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	if s.createOrderFn != nil {
		return s.createOrderFn(ctx, req)
	}
	return nil, ErrNotSupported
}

func (s *stubTrader) CancelOrder(ctx context.Context, symbol, orderID string) error {
	return ErrNotSupported
}

func (s *stubTrader) GetOpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]Order, error) {
	return nil, ErrNotSupported
}

func (s *stubTrader) GetOpenPositions(ctx context.Context, symbol string) ([]Position, error) {
	if s.positionsFn != nil {
		return s.positionsFn(ctx, symbol)
	}
	return nil, ErrNotSupported
}

func (s *stubTrader) CreateStopLoss(ctx context.Context, req *StopLossRequest) (*Order, error) {
	if s.stopLossFn != nil {
		return s.stopLossFn(ctx, req)
	}
	return nil, ErrNotSupported
}

func (s *stubTrader) CreateTakeProfits(ctx context.Context, req *TakeProfitRequest) ([]Order, error) {
	if s.takeProfitFn != nil {
		return s.takeProfitFn(ctx, req)
	}
	return nil, ErrNotSupported
}

func (s *stubTrader) CancelStopLossOrders(ctx context.Context, symbol string) error {
	return nil
}

func (s *stubTrader) CancelTakeProfitOrders(ctx context.Context, symbol string) error {
	return nil
}

func (s *stubTrader) Close() error { return nil }

func TestOpenPosition_PlacesEntryAndProtection(t *testing.T) {
	var (
		gotSplit  int
		orderReq  *OrderRequest
		stopReq   *StopLossRequest
		profitReq *TakeProfitRequest
	)

	trader := &stubTrader{
		quantityFn: func(_ context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...QuantityOption) (decimal.Decimal, error) {
			assert.Equal(t, "BTCUSDT", symbol)
			assert.True(t, amount.Equal(d("100")))
			assert.Equal(t, 5, leverage)
			gotSplit = NewQuantityOptions(opts...).TakeProfitSplit
			return d("0.5"), nil
		},
		createOrderFn: func(_ context.Context, req *OrderRequest) (*Order, error) {
			orderReq = req
			return &Order{ID: "e1", Symbol: req.Symbol, Status: OrderStatusNew}, nil
		},
		stopLossFn: func(_ context.Context, req *StopLossRequest) (*Order, error) {
			stopReq = req
			return &Order{ID: "sl1", Type: OrderTypeStopMarket}, nil
		},
		takeProfitFn: func(_ context.Context, req *TakeProfitRequest) ([]Order, error) {
			profitReq = req
			return []Order{{ID: "tp1"}, {ID: "tp2"}, {ID: "tp3"}}, nil
		},
	}

	result, err := OpenPosition(context.Background(), trader, OpenPositionRequest{
		Symbol:           "BTCUSDT",
		Side:             OrderSideBuy,
		AmountUSDT:       d("100"),
		Leverage:         5,
		StopLossPrice:    d("45000"),
		TakeProfitPrices: []decimal.Decimal{d("55000"), d("60000"), d("65000")},
	})
	require.NoError(t, err)

	// Sizing has to know the order will be split three ways.
	assert.Equal(t, 3, gotSplit)

	require.NotNil(t, orderReq)
	assert.Equal(t, OrderTypeMarket, orderReq.Type)
	assert.Equal(t, OrderSideBuy, orderReq.Side)
	assert.Equal(t, 5, orderReq.Leverage)
	assert.True(t, orderReq.Quantity.Equal(d("0.5")))

	require.NotNil(t, stopReq)
	assert.Equal(t, PositionSideLong, stopReq.PositionSide)
	assert.True(t, stopReq.StopPrice.Equal(d("45000")))
	assert.True(t, stopReq.Quantity.Equal(d("0.5")))

	require.NotNil(t, profitReq)
	assert.Equal(t, PositionSideLong, profitReq.PositionSide)
	assert.Len(t, profitReq.Prices, 3)
	assert.True(t, profitReq.Quantity.Equal(d("0.5")))

	assert.True(t, result.Quantity.Equal(d("0.5")))
	require.NotNil(t, result.Entry)
	assert.Equal(t, "e1", result.Entry.ID)
	require.NotNil(t, result.StopLoss)
	assert.Len(t, result.TakeProfits, 3)
}

func TestOpenPosition_ShortProtectsShortSide(t *testing.T) {
	var (
		gotSplit int
		stopReq  *StopLossRequest
	)

	trader := &stubTrader{
		quantityFn: func(_ context.Context, _ string, _ decimal.Decimal, _ int, opts ...QuantityOption) (decimal.Decimal, error) {
			gotSplit = NewQuantityOptions(opts...).TakeProfitSplit
			return d("2"), nil
		},
		createOrderFn: func(_ context.Context, req *OrderRequest) (*Order, error) {
			return &Order{ID: "e1"}, nil
		},
		stopLossFn: func(_ context.Context, req *StopLossRequest) (*Order, error) {
			stopReq = req
			return &Order{ID: "sl1"}, nil
		},
	}

	_, err := OpenPosition(context.Background(), trader, OpenPositionRequest{
		Symbol:        "ETHUSDT",
		Side:          OrderSideSell,
		AmountUSDT:    d("100"),
		Leverage:      3,
		StopLossPrice: d("3500"),
	})
	require.NoError(t, err)

	// A single-target (or absent) take profit never scales the minimum.
	assert.Equal(t, 1, gotSplit)
	require.NotNil(t, stopReq)
	assert.Equal(t, PositionSideShort, stopReq.PositionSide)
}

func TestOpenPosition_InvalidRequest(t *testing.T) {
	called := false
	trader := &stubTrader{
		quantityFn: func(_ context.Context, _ string, _ decimal.Decimal, _ int, _ ...QuantityOption) (decimal.Decimal, error) {
			called = true
			return decimal.Zero, nil
		},
	}
	ctx := context.Background()

	tests := []struct {
		name string
		req  OpenPositionRequest
	}{
		{name: "missing symbol", req: OpenPositionRequest{Side: OrderSideBuy, AmountUSDT: d("100"), Leverage: 5}},
		{name: "non-positive amount", req: OpenPositionRequest{Symbol: "BTCUSDT", Side: OrderSideBuy, Leverage: 5}},
		{name: "non-positive leverage", req: OpenPositionRequest{Symbol: "BTCUSDT", Side: OrderSideBuy, AmountUSDT: d("100")}},
		{name: "missing side", req: OpenPositionRequest{Symbol: "BTCUSDT", AmountUSDT: d("100"), Leverage: 5}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := OpenPosition(ctx, trader, tc.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
	assert.False(t, called)
}

func TestOpenPosition_SizingErrorAbortsEntry(t *testing.T) {
	entered := false
	trader := &stubTrader{
		quantityFn: func(_ context.Context, _ string, _ decimal.Decimal, _ int, _ ...QuantityOption) (decimal.Decimal, error) {
			return decimal.Zero, ErrOrderTooSmall
		},
		createOrderFn: func(_ context.Context, _ *OrderRequest) (*Order, error) {
			entered = true
			return &Order{}, nil
		},
	}

	result, err := OpenPosition(context.Background(), trader, OpenPositionRequest{
		Symbol:     "BTCUSDT",
		Side:       OrderSideBuy,
		AmountUSDT: d("1"),
		Leverage:   1,
	})
	assert.ErrorIs(t, err, ErrOrderTooSmall)
	assert.Nil(t, result)
	assert.False(t, entered)
}

func TestOpenPosition_ProtectionFailureReturnsPartialResult(t *testing.T) {
	tpCalled := false
	trader := &stubTrader{
		quantityFn: func(_ context.Context, _ string, _ decimal.Decimal, _ int, _ ...QuantityOption) (decimal.Decimal, error) {
			return d("0.5"), nil
		},
		createOrderFn: func(_ context.Context, req *OrderRequest) (*Order, error) {
			return &Order{ID: "e1"}, nil
		},
		stopLossFn: func(_ context.Context, _ *StopLossRequest) (*Order, error) {
			return nil, NewExchangeError("stub", "40301", "trigger price too close")
		},
		takeProfitFn: func(_ context.Context, _ *TakeProfitRequest) ([]Order, error) {
			tpCalled = true
			return nil, nil
		},
	}

	result, err := OpenPosition(context.Background(), trader, OpenPositionRequest{
		Symbol:           "BTCUSDT",
		Side:             OrderSideBuy,
		AmountUSDT:       d("100"),
		Leverage:         5,
		StopLossPrice:    d("49999"),
		TakeProfitPrices: []decimal.Decimal{d("55000")},
	})
	require.Error(t, err)

	// The entry is live on the venue; the caller must learn about it.
	require.NotNil(t, result)
	require.NotNil(t, result.Entry)
	assert.Equal(t, "e1", result.Entry.ID)
	assert.Nil(t, result.StopLoss)
	assert.False(t, tpCalled)
}

func TestOpenPosition_SkipsAbsentProtection(t *testing.T) {
	slCalled, tpCalled := false, false
	trader := &stubTrader{
		quantityFn: func(_ context.Context, _ string, _ decimal.Decimal, _ int, _ ...QuantityOption) (decimal.Decimal, error) {
			return d("0.5"), nil
		},
		createOrderFn: func(_ context.Context, _ *OrderRequest) (*Order, error) {
			return &Order{ID: "e1"}, nil
		},
		stopLossFn: func(_ context.Context, _ *StopLossRequest) (*Order, error) {
			slCalled = true
			return nil, nil
		},
		takeProfitFn: func(_ context.Context, _ *TakeProfitRequest) ([]Order, error) {
			tpCalled = true
			return nil, nil
		},
	}

	result, err := OpenPosition(context.Background(), trader, OpenPositionRequest{
		Symbol:     "BTCUSDT",
		Side:       OrderSideBuy,
		AmountUSDT: d("100"),
		Leverage:   5,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Entry)
	assert.False(t, slCalled)
	assert.False(t, tpCalled)
}

func TestClosePosition_FlattensMatchingSide(t *testing.T) {
	var (
		queried  string
		orderReq *OrderRequest
	)
	trader := &stubTrader{
		positionsFn: func(_ context.Context, symbol string) ([]Position, error) {
			queried = symbol
			return []Position{
				{Symbol: "BTCUSDT", Side: PositionSideLong, Size: d("0.5")},
				{Symbol: "BTCUSDT", Side: PositionSideShort, Size: d("0.2")},
			}, nil
		},
		createOrderFn: func(_ context.Context, req *OrderRequest) (*Order, error) {
			orderReq = req
			return &Order{ID: "c1"}, nil
		},
	}

	order, err := ClosePosition(context.Background(), trader, "BTCUSDT", PositionSideShort)
	require.NoError(t, err)
	assert.Equal(t, "c1", order.ID)
	assert.Equal(t, "BTCUSDT", queried, "position lookup must be scoped to the symbol")

	require.NotNil(t, orderReq)
	assert.Equal(t, OrderSideBuy, orderReq.Side, "closing a short buys it back")
	assert.Equal(t, OrderTypeMarket, orderReq.Type)
	assert.True(t, orderReq.ReduceOnly)
	assert.True(t, orderReq.Quantity.Equal(d("0.2")))
}

func TestClosePosition_AnySideMatchesFirst(t *testing.T) {
	var orderReq *OrderRequest
	trader := &stubTrader{
		positionsFn: func(_ context.Context, _ string) ([]Position, error) {
			return []Position{
				{Symbol: "BTCUSDT", Side: PositionSideLong, Size: d("0.5")},
				{Symbol: "BTCUSDT", Side: PositionSideShort, Size: d("0.2")},
			}, nil
		},
		createOrderFn: func(_ context.Context, req *OrderRequest) (*Order, error) {
			orderReq = req
			return &Order{ID: "c1"}, nil
		},
	}

	_, err := ClosePosition(context.Background(), trader, "BTCUSDT", "")
	require.NoError(t, err)

	require.NotNil(t, orderReq)
	assert.Equal(t, OrderSideSell, orderReq.Side)
	assert.True(t, orderReq.Quantity.Equal(d("0.5")))
}

func TestClosePosition_NoOpenPosition(t *testing.T) {
	trader := &stubTrader{
		positionsFn: func(_ context.Context, _ string) ([]Position, error) {
			return nil, nil
		},
	}

	_, err := ClosePosition(context.Background(), trader, "BTCUSDT", PositionSideLong)
	assert.ErrorIs(t, err, pkgerrors.ErrNotFound)
}

func TestClosePosition_RequiresSymbol(t *testing.T) {
	trader := &stubTrader{}

	_, err := ClosePosition(context.Background(), trader, "", PositionSideLong)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}
