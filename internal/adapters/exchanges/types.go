package exchanges

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide defines buy or sell direction.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// PositionSide helps differentiate hedged positions.
type PositionSide string

const (
	PositionSideLong  PositionSide = "long"
	PositionSideShort PositionSide = "short"
	PositionSideBoth  PositionSide = "both"
)

// PositionMode describes how the account books directional exposure.
type PositionMode string

const (
	PositionModeOneWay PositionMode = "oneway"
	PositionModeHedge  PositionMode = "hedge"
)

// OrderType defines supported order execution types.
type OrderType string

const (
	OrderTypeMarket           OrderType = "market"
	OrderTypeLimit            OrderType = "limit"
	OrderTypeStopMarket       OrderType = "stop_market"
	OrderTypeTakeProfitMarket OrderType = "take_profit_market"
)

// OrderStatus enumerates exchange level order lifecycle.
type OrderStatus string

const (
	OrderStatusNew      OrderStatus = "new"
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusPartial  OrderStatus = "partial"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusRejected OrderStatus = "rejected"
	OrderStatusExpired  OrderStatus = "expired"
	OrderStatusUnknown  OrderStatus = "unknown"
)

// TimeInForce enumerates supported order time policies.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
	TimeInForceFOK TimeInForce = "FOK"
)

// MarginMode defines futures margin configuration.
type MarginMode string

const (
	MarginCross    MarginMode = "cross"
	MarginIsolated MarginMode = "isolated"
)

// OrderRequest is the unified payload for order placement.
type OrderRequest struct {
	Symbol        string
	Side          OrderSide
	Type          OrderType
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Leverage      int
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
	Tag           string
}

// Order represents a normalized exchange order.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Type          OrderType
	Side          OrderSide
	PositionSide  PositionSide
	Status        OrderStatus
	Price         decimal.Decimal
	StopPrice     decimal.Decimal
	Quantity      decimal.Decimal
	Filled        decimal.Decimal
	AvgFillPrice  decimal.Decimal
	ReduceOnly    bool
	TimeInForce   TimeInForce
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// StopLossRequest places a protective stop against an open position.
// A zero Quantity closes the whole position when the stop triggers.
type StopLossRequest struct {
	Symbol       string
	PositionSide PositionSide
	StopPrice    decimal.Decimal
	Quantity     decimal.Decimal
}

// TakeProfitRequest places one or more take-profit orders against an
// open position. Quantity is the total size distributed across Prices.
type TakeProfitRequest struct {
	Symbol       string
	PositionSide PositionSide
	Prices       []decimal.Decimal
	Quantity     decimal.Decimal
}

// AccountInfo summarizes the futures account state.
type AccountInfo struct {
	TotalEquity      decimal.Decimal
	AvailableBalance decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	CanTrade         bool
	Assets           []AssetBalance
	UpdatedAt        time.Time
}

// AssetBalance holds per-asset margin balances.
type AssetBalance struct {
	Asset         string
	Balance       decimal.Decimal
	Available     decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

// Balance describes the futures wallet balance in the settlement asset.
type Balance struct {
	Asset         string
	Total         decimal.Decimal
	Available     decimal.Decimal
	UnrealizedPnL decimal.Decimal
}

// Instrument carries the contract metadata needed for order sizing.
// Quantities are expressed in the venue's native sizing unit: base asset
// units on most venues, contracts on venues that publish a ContractSize.
type Instrument struct {
	Symbol            string
	BaseAsset         string
	QuoteAsset        string
	PricePrecision    int
	QuantityPrecision int
	TickSize          decimal.Decimal
	StepSize          decimal.Decimal
	MinQuantity       decimal.Decimal
	MaxQuantity       decimal.Decimal
	MinNotional       decimal.Decimal
	MaxLeverage       int

	// ContractSize is the base-asset value of one contract on venues
	// that size orders in contracts. Zero means quantities are already
	// base-asset units.
	ContractSize decimal.Decimal

	Active bool
}

// Position represents a futures position.
type Position struct {
	Symbol           string
	Side             PositionSide
	Size             decimal.Decimal
	EntryPrice       decimal.Decimal
	MarkPrice        decimal.Decimal
	LiquidationPrice decimal.Decimal
	MarginMode       MarginMode
	Leverage         decimal.Decimal
	UnrealizedPnL    decimal.Decimal
	RealizedPnL      decimal.Decimal
	UpdatedAt        time.Time
}
