package exchanges

import (
	"context"

	"github.com/shopspring/decimal"
)

// FuturesTrader defines the unified contract each USDT-margined
// perpetual futures adapter must satisfy. Methods a venue cannot
// meaningfully support return ErrNotSupported instead of silently
// doing nothing.
type FuturesTrader interface {
	Name() string

	// Account
	GetAccountInfo(ctx context.Context) (*AccountInfo, error)
	GetFuturesBalance(ctx context.Context) (*Balance, error)
	GetFreeMargin(ctx context.Context) (decimal.Decimal, error)

	// Instruments and market data
	GetTradingSymbols(ctx context.Context) ([]string, error)
	GetInstrument(ctx context.Context, symbol string) (*Instrument, error)
	GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetMaxLeverage(ctx context.Context, symbol string) (int, error)

	// Account configuration
	GetPositionMode(ctx context.Context) (PositionMode, error)
	ChangeLeverage(ctx context.Context, symbol string, leverage int) error

	// Sizing
	CalculateQuantityFromUSDT(ctx context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...QuantityOption) (decimal.Decimal, error)

	// Trading
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	GetOpenOrders(ctx context.Context, symbol string) ([]Order, error)
	GetOrderHistory(ctx context.Context, symbol string, limit int) ([]Order, error)
	// GetOpenPositions returns non-zero positions, filtered to one
	// symbol when given ("" lists every open position).
	GetOpenPositions(ctx context.Context, symbol string) ([]Position, error)

	// Position protection
	CreateStopLoss(ctx context.Context, req *StopLossRequest) (*Order, error)
	CreateTakeProfits(ctx context.Context, req *TakeProfitRequest) ([]Order, error)
	CancelStopLossOrders(ctx context.Context, symbol string) error
	CancelTakeProfitOrders(ctx context.Context, symbol string) error

	// Close releases any resources held by the adapter. Safe to call
	// more than once.
	Close() error
}
