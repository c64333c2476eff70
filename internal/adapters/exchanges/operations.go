package exchanges

import (
	"context"

	"github.com/shopspring/decimal"

	"unifutures/pkg/errors"
)

// OpenPositionRequest sizes and protects a new position from a USDT
// margin amount.
type OpenPositionRequest struct {
	Symbol           string
	Side             OrderSide
	AmountUSDT       decimal.Decimal
	Leverage         int
	StopLossPrice    decimal.Decimal
	TakeProfitPrices []decimal.Decimal
	QuantityOpts     []QuantityOption
}

// OpenPositionResult summarizes the orders created for an entry.
type OpenPositionResult struct {
	Quantity    decimal.Decimal
	Entry       *Order
	StopLoss    *Order
	TakeProfits []Order
}

// OpenPosition sizes a market entry from a USDT amount, places it, then
// attaches stop-loss and take-profit legs (best effort). When a
// protective leg fails after the entry filled, the partial result is
// returned together with the error so the caller still knows what is
// live on the venue.
func OpenPosition(ctx context.Context, trader FuturesTrader, req OpenPositionRequest) (*OpenPositionResult, error) {
	if req.Symbol == "" || req.AmountUSDT.LessThanOrEqual(decimal.Zero) || req.Leverage <= 0 {
		return nil, ErrInvalidRequest
	}
	if req.Side != OrderSideBuy && req.Side != OrderSideSell {
		return nil, ErrInvalidRequest
	}

	opts := req.QuantityOpts
	if n := len(req.TakeProfitPrices); n > 1 {
		opts = append(opts, WithTakeProfitSplit(n))
	}

	quantity, err := trader.CalculateQuantityFromUSDT(ctx, req.Symbol, req.AmountUSDT, req.Leverage, opts...)
	if err != nil {
		return nil, err
	}

	entry, err := trader.CreateOrder(ctx, &OrderRequest{
		Symbol:   req.Symbol,
		Side:     req.Side,
		Type:     OrderTypeMarket,
		Quantity: quantity,
		Leverage: req.Leverage,
	})
	if err != nil {
		return nil, err
	}

	result := &OpenPositionResult{
		Quantity: quantity,
		Entry:    entry,
	}

	positionSide := PositionSideLong
	if req.Side == OrderSideSell {
		positionSide = PositionSideShort
	}

	if !req.StopLossPrice.IsZero() {
		stop, err := trader.CreateStopLoss(ctx, &StopLossRequest{
			Symbol:       req.Symbol,
			PositionSide: positionSide,
			StopPrice:    req.StopLossPrice,
			Quantity:     quantity,
		})
		if err != nil {
			return result, err
		}
		result.StopLoss = stop
	}

	if len(req.TakeProfitPrices) > 0 {
		takeProfits, err := trader.CreateTakeProfits(ctx, &TakeProfitRequest{
			Symbol:       req.Symbol,
			PositionSide: positionSide,
			Prices:       req.TakeProfitPrices,
			Quantity:     quantity,
		})
		if err != nil {
			return result, err
		}
		result.TakeProfits = takeProfits
	}

	return result, nil
}

// ClosePosition submits a reduce-only market order sized to flatten the
// matching open position. An empty side matches either direction.
func ClosePosition(ctx context.Context, trader FuturesTrader, symbol string, side PositionSide) (*Order, error) {
	if symbol == "" {
		return nil, ErrInvalidRequest
	}

	positions, err := trader.GetOpenPositions(ctx, symbol)
	if err != nil {
		return nil, err
	}

	for _, pos := range positions {
		if side != "" && pos.Side != side {
			continue
		}
		orderSide := oppositeSide(positionSideToOrderSide(pos.Side))
		return trader.CreateOrder(ctx, &OrderRequest{
			Symbol:     symbol,
			Side:       orderSide,
			Type:       OrderTypeMarket,
			Quantity:   pos.Size,
			ReduceOnly: true,
		})
	}

	return nil, errors.Wrapf(errors.ErrNotFound, "no open position for %s", symbol)
}

func oppositeSide(side OrderSide) OrderSide {
	if side == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

func positionSideToOrderSide(side PositionSide) OrderSide {
	if side == PositionSideShort {
		return OrderSideSell
	}
	return OrderSideBuy
}
