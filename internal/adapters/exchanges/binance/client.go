package binance

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"

	"unifutures/internal/adapters/exchanges"
	pkgerrors "unifutures/pkg/errors"
)

const (
	exchangeName      = "binance"
	futuresTestnetURL = "https://testnet.binancefuture.com"
	settlementAsset   = "USDT"

	// Binance hides leverage brackets from some API key tiers; fall back
	// to the venue wide default rather than failing the caller.
	defaultMaxLeverage = 20

	instrumentCacheTTL = 5 * time.Minute
)

// Config configures the Binance USDT-M futures adapter.
type Config struct {
	APIKey    string
	SecretKey string
	Testnet   bool

	// BaseURL overrides the futures REST endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new Binance futures adapter.
func NewClient(cfg Config) (exchanges.FuturesTrader, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, exchanges.ErrMissingCredentials
	}

	fc := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		fc.BaseURL = futuresTestnetURL
	}
	if cfg.BaseURL != "" {
		fc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		fc.HTTPClient = cfg.HTTPClient
	}

	return &client{
		fc:          fc,
		instruments: make(map[string]instrumentEntry),
	}, nil
}

type instrumentEntry struct {
	info      *exchanges.Instrument
	fetchedAt time.Time
}

type client struct {
	fc *futures.Client

	mu           sync.RWMutex
	instruments  map[string]instrumentEntry
	positionMode exchanges.PositionMode
}

func (c *client) Name() string {
	return exchangeName
}

func (c *client) GetAccountInfo(ctx context.Context) (*exchanges.AccountInfo, error) {
	account, err := c.fc.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetAccountInfo", err)
	}

	wallet := dec(account.TotalWalletBalance)
	unrealized := dec(account.TotalUnrealizedProfit)

	info := &exchanges.AccountInfo{
		TotalEquity:      wallet.Add(unrealized),
		AvailableBalance: dec(account.AvailableBalance),
		UnrealizedPnL:    unrealized,
		CanTrade:         account.CanTrade,
		UpdatedAt:        time.Now(),
	}

	for _, asset := range account.Assets {
		balance := dec(asset.WalletBalance)
		if balance.IsZero() {
			continue
		}
		info.Assets = append(info.Assets, exchanges.AssetBalance{
			Asset:         asset.Asset,
			Balance:       balance,
			Available:     dec(asset.MaxWithdrawAmount),
			UnrealizedPnL: dec(asset.UnrealizedProfit),
		})
	}

	return info, nil
}

func (c *client) GetFuturesBalance(ctx context.Context) (*exchanges.Balance, error) {
	balances, err := c.fc.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetFuturesBalance", err)
	}

	for _, b := range balances {
		if b.Asset != settlementAsset {
			continue
		}
		return &exchanges.Balance{
			Asset:         b.Asset,
			Total:         dec(b.Balance),
			Available:     dec(b.AvailableBalance),
			UnrealizedPnL: dec(b.CrossUnPnl),
		}, nil
	}

	return &exchanges.Balance{Asset: settlementAsset}, nil
}

func (c *client) GetFreeMargin(ctx context.Context) (decimal.Decimal, error) {
	balance, err := c.GetFuturesBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Available, nil
}

func (c *client) GetTradingSymbols(ctx context.Context) ([]string, error) {
	info, err := c.fc.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetTradingSymbols", err)
	}

	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" || s.QuoteAsset != settlementAsset || s.ContractType != "PERPETUAL" {
			continue
		}
		symbols = append(symbols, s.Symbol)
	}
	return symbols, nil
}

func (c *client) GetInstrument(ctx context.Context, symbol string) (*exchanges.Instrument, error) {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		return nil, exchanges.ErrInvalidInstrument
	}

	c.mu.RLock()
	if entry, ok := c.instruments[symbol]; ok && time.Since(entry.fetchedAt) < instrumentCacheTTL {
		c.mu.RUnlock()
		return entry.info, nil
	}
	c.mu.RUnlock()

	info, err := c.fc.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetInstrument", err)
	}

	for _, s := range info.Symbols {
		if s.Symbol != symbol {
			continue
		}

		inst := &exchanges.Instrument{
			Symbol:            s.Symbol,
			BaseAsset:         s.BaseAsset,
			QuoteAsset:        s.QuoteAsset,
			PricePrecision:    s.PricePrecision,
			QuantityPrecision: s.QuantityPrecision,
			Active:            s.Status == "TRADING",
		}

		for _, filter := range s.Filters {
			switch filter["filterType"] {
			case "LOT_SIZE":
				if v, ok := filter["minQty"].(string); ok {
					inst.MinQuantity = dec(v)
				}
				if v, ok := filter["maxQty"].(string); ok {
					inst.MaxQuantity = dec(v)
				}
				if v, ok := filter["stepSize"].(string); ok {
					inst.StepSize = dec(v)
				}
			case "PRICE_FILTER":
				if v, ok := filter["tickSize"].(string); ok {
					inst.TickSize = dec(v)
				}
			case "MIN_NOTIONAL":
				if v, ok := filter["notional"].(string); ok {
					inst.MinNotional = dec(v)
				}
			}
		}

		c.mu.Lock()
		c.instruments[symbol] = instrumentEntry{info: inst, fetchedAt: time.Now()}
		c.mu.Unlock()

		return inst, nil
	}

	return nil, exchanges.ErrInvalidInstrument
}

func (c *client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := c.fc.NewListPricesService().Symbol(normalizeSymbol(symbol)).Do(ctx)
	if err != nil {
		return decimal.Zero, c.wrapErr("GetCurrentPrice", err)
	}
	if len(prices) == 0 {
		return decimal.Zero, exchanges.ErrInvalidInstrument
	}
	return dec(prices[0].Price), nil
}

func (c *client) GetMaxLeverage(ctx context.Context, symbol string) (int, error) {
	brackets, err := c.fc.NewGetLeverageBracketService().Symbol(normalizeSymbol(symbol)).Do(ctx)
	if err != nil {
		return 0, c.wrapErr("GetMaxLeverage", err)
	}
	if len(brackets) == 0 || len(brackets[0].Brackets) == 0 {
		return defaultMaxLeverage, nil
	}

	maxLev := 0
	for _, b := range brackets[0].Brackets {
		if b.InitialLeverage > maxLev {
			maxLev = b.InitialLeverage
		}
	}
	if maxLev == 0 {
		maxLev = defaultMaxLeverage
	}
	return maxLev, nil
}

func (c *client) GetPositionMode(ctx context.Context) (exchanges.PositionMode, error) {
	c.mu.RLock()
	if c.positionMode != "" {
		mode := c.positionMode
		c.mu.RUnlock()
		return mode, nil
	}
	c.mu.RUnlock()

	res, err := c.fc.NewGetPositionModeService().Do(ctx)
	if err != nil {
		return "", c.wrapErr("GetPositionMode", err)
	}

	mode := exchanges.PositionModeOneWay
	if res.DualSidePosition {
		mode = exchanges.PositionModeHedge
	}

	c.mu.Lock()
	c.positionMode = mode
	c.mu.Unlock()

	return mode, nil
}

func (c *client) ChangeLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return exchanges.ErrInvalidRequest
	}
	_, err := c.fc.NewChangeLeverageService().
		Symbol(normalizeSymbol(symbol)).
		Leverage(leverage).
		Do(ctx)
	return c.wrapErr("ChangeLeverage", err)
}

func (c *client) CalculateQuantityFromUSDT(ctx context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...exchanges.QuantityOption) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) || leverage <= 0 {
		return decimal.Zero, exchanges.ErrInvalidRequest
	}
	options := exchanges.NewQuantityOptions(opts...)

	inst, err := c.GetInstrument(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := c.GetCurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if price.LessThanOrEqual(decimal.Zero) || inst.StepSize.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, exchanges.ErrInvalidInstrument
	}

	quantity := amount.Mul(decimal.NewFromInt(int64(leverage))).Div(price)
	quantity = quantity.Div(inst.StepSize).Floor().Mul(inst.StepSize)

	// Binance rejects orders whose notional is below the symbol minimum;
	// when the order will be split into several take-profit chunks every
	// chunk must clear the minimum on its own.
	minNotional := inst.MinNotional
	if options.TakeProfitSplit > 1 {
		minNotional = minNotional.Mul(decimal.NewFromInt(int64(options.TakeProfitSplit)))
	}
	if minNotional.GreaterThan(decimal.Zero) && quantity.Mul(price).LessThan(minNotional) {
		if options.SkipMinNotionalAdjust {
			return decimal.Zero, exchanges.ErrOrderTooSmall
		}
		quantity = minNotional.Div(price).Div(inst.StepSize).Ceil().Mul(inst.StepSize)
	}

	if inst.MaxQuantity.GreaterThan(decimal.Zero) && quantity.GreaterThan(inst.MaxQuantity) {
		quantity = inst.MaxQuantity.Div(inst.StepSize).Floor().Mul(inst.StepSize)
	}
	if quantity.LessThanOrEqual(decimal.Zero) || quantity.LessThan(inst.MinQuantity) {
		return decimal.Zero, exchanges.ErrOrderTooSmall
	}

	return quantity, nil
}

func (c *client) CreateOrder(ctx context.Context, req *exchanges.OrderRequest) (*exchanges.Order, error) {
	if err := validateOrderRequest(req); err != nil {
		return nil, err
	}

	if req.Leverage > 0 {
		if err := c.ChangeLeverage(ctx, req.Symbol, req.Leverage); err != nil {
			return nil, err
		}
	}

	mode, err := c.GetPositionMode(ctx)
	if err != nil {
		return nil, err
	}
	positionSide := entryPositionSide(mode, req.Side, req.ReduceOnly)

	symbol := normalizeSymbol(req.Symbol)
	svc := c.fc.NewCreateOrderService().
		Symbol(symbol).
		Side(orderSideToAPI(req.Side)).
		Type(orderTypeToAPI(req.Type)).
		Quantity(req.Quantity.String())

	if req.Type == exchanges.OrderTypeLimit {
		svc = svc.Price(req.Price.String()).
			TimeInForce(tifToAPI(req.TimeInForce))
	}
	if mode == exchanges.PositionModeHedge {
		svc = svc.PositionSide(positionSide)
	} else if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	} else if req.Tag != "" {
		svc = svc.NewClientOrderID(req.Tag)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.wrapErr("CreateOrder", err)
	}

	now := time.Now()
	return &exchanges.Order{
		ID:            strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Symbol:        res.Symbol,
		Type:          req.Type,
		Side:          req.Side,
		PositionSide:  positionSideFromAPI(string(positionSide)),
		Status:        orderStatusFromAPI(string(res.Status)),
		Price:         dec(res.Price),
		Quantity:      dec(res.OrigQuantity),
		Filled:        dec(res.ExecutedQuantity),
		AvgFillPrice:  dec(res.AvgPrice),
		ReduceOnly:    req.ReduceOnly,
		TimeInForce:   req.TimeInForce,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (c *client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return exchanges.ErrInvalidRequest
	}
	_, err = c.fc.NewCancelOrderService().
		Symbol(normalizeSymbol(symbol)).
		OrderID(id).
		Do(ctx)
	return c.wrapErr("CancelOrder", err)
}

func (c *client) GetOpenOrders(ctx context.Context, symbol string) ([]exchanges.Order, error) {
	svc := c.fc.NewListOpenOrdersService()
	if symbol != "" {
		svc = svc.Symbol(normalizeSymbol(symbol))
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetOpenOrders", err)
	}

	orders := make([]exchanges.Order, 0, len(res))
	for _, o := range res {
		orders = append(orders, mapOrder(o))
	}
	return orders, nil
}

func (c *client) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]exchanges.Order, error) {
	if symbol == "" {
		return nil, exchanges.ErrInvalidRequest
	}
	if limit <= 0 {
		limit = 50
	}
	res, err := c.fc.NewListOrdersService().
		Symbol(normalizeSymbol(symbol)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetOrderHistory", err)
	}

	orders := make([]exchanges.Order, 0, len(res))
	for _, o := range res {
		orders = append(orders, mapOrder(o))
	}
	return orders, nil
}

func (c *client) GetOpenPositions(ctx context.Context, symbol string) ([]exchanges.Position, error) {
	svc := c.fc.NewGetPositionRiskService()
	if symbol != "" {
		svc = svc.Symbol(normalizeSymbol(symbol))
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.wrapErr("GetOpenPositions", err)
	}

	positions := make([]exchanges.Position, 0, len(res))
	for _, p := range res {
		size := dec(p.PositionAmt)
		if size.IsZero() {
			continue
		}

		side := positionSideFromAPI(p.PositionSide)
		if side == exchanges.PositionSideBoth {
			side = exchanges.PositionSideLong
			if size.IsNegative() {
				side = exchanges.PositionSideShort
			}
		}

		positions = append(positions, exchanges.Position{
			Symbol:           p.Symbol,
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       dec(p.EntryPrice),
			MarkPrice:        dec(p.MarkPrice),
			LiquidationPrice: dec(p.LiquidationPrice),
			MarginMode:       marginModeFromAPI(p.MarginType),
			Leverage:         dec(p.Leverage),
			UnrealizedPnL:    dec(p.UnRealizedProfit),
			UpdatedAt:        time.Now(),
		})
	}
	return positions, nil
}

func (c *client) CreateStopLoss(ctx context.Context, req *exchanges.StopLossRequest) (*exchanges.Order, error) {
	if req == nil || req.Symbol == "" || req.StopPrice.LessThanOrEqual(decimal.Zero) {
		return nil, exchanges.ErrInvalidRequest
	}
	if req.PositionSide != exchanges.PositionSideLong && req.PositionSide != exchanges.PositionSideShort {
		return nil, exchanges.ErrInvalidRequest
	}

	// New protection replaces whatever stop is already working.
	if err := c.CancelStopLossOrders(ctx, req.Symbol); err != nil {
		return nil, err
	}

	mode, err := c.GetPositionMode(ctx)
	if err != nil {
		return nil, err
	}

	side := exitSide(req.PositionSide)
	positionSide := exitPositionSide(mode, req.PositionSide)

	svc := c.fc.NewCreateOrderService().
		Symbol(normalizeSymbol(req.Symbol)).
		Side(orderSideToAPI(side)).
		Type(futures.OrderTypeStopMarket).
		StopPrice(req.StopPrice.String()).
		WorkingType(futures.WorkingTypeMarkPrice)

	if mode == exchanges.PositionModeHedge {
		svc = svc.PositionSide(positionSide)
	}
	if req.Quantity.GreaterThan(decimal.Zero) {
		svc = svc.Quantity(req.Quantity.String())
		if mode != exchanges.PositionModeHedge {
			svc = svc.ReduceOnly(true)
		}
	} else {
		svc = svc.ClosePosition(true)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.wrapErr("CreateStopLoss", err)
	}

	now := time.Now()
	return &exchanges.Order{
		ID:            strconv.FormatInt(res.OrderID, 10),
		ClientOrderID: res.ClientOrderID,
		Symbol:        normalizeSymbol(req.Symbol),
		Type:          exchanges.OrderTypeStopMarket,
		Side:          side,
		PositionSide:  req.PositionSide,
		Status:        orderStatusFromAPI(string(res.Status)),
		StopPrice:     req.StopPrice,
		Quantity:      req.Quantity,
		ReduceOnly:    true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (c *client) CreateTakeProfits(ctx context.Context, req *exchanges.TakeProfitRequest) ([]exchanges.Order, error) {
	if req == nil || req.Symbol == "" || len(req.Prices) == 0 || req.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, exchanges.ErrInvalidRequest
	}
	if req.PositionSide != exchanges.PositionSideLong && req.PositionSide != exchanges.PositionSideShort {
		return nil, exchanges.ErrInvalidRequest
	}
	for _, price := range req.Prices {
		if price.LessThanOrEqual(decimal.Zero) {
			return nil, exchanges.ErrInvalidRequest
		}
	}

	if err := c.CancelTakeProfitOrders(ctx, req.Symbol); err != nil {
		return nil, err
	}

	inst, err := c.GetInstrument(ctx, req.Symbol)
	if err != nil {
		return nil, err
	}
	if inst.StepSize.LessThanOrEqual(decimal.Zero) {
		return nil, exchanges.ErrInvalidInstrument
	}

	parts := decimal.NewFromInt(int64(len(req.Prices)))
	chunk := req.Quantity.Div(parts).Div(inst.StepSize).Floor().Mul(inst.StepSize)
	if chunk.LessThanOrEqual(decimal.Zero) {
		return nil, exchanges.ErrOrderTooSmall
	}

	mode, err := c.GetPositionMode(ctx)
	if err != nil {
		return nil, err
	}

	side := exitSide(req.PositionSide)
	positionSide := exitPositionSide(mode, req.PositionSide)

	orders := make([]exchanges.Order, 0, len(req.Prices))
	for i, price := range req.Prices {
		svc := c.fc.NewCreateOrderService().
			Symbol(normalizeSymbol(req.Symbol)).
			Side(orderSideToAPI(side)).
			Type(futures.OrderTypeTakeProfitMarket).
			StopPrice(price.String()).
			WorkingType(futures.WorkingTypeMarkPrice)

		if mode == exchanges.PositionModeHedge {
			svc = svc.PositionSide(positionSide)
		}

		// The final target closes whatever remains so step rounding
		// never strands dust on the position.
		last := i == len(req.Prices)-1
		if last {
			svc = svc.ClosePosition(true)
		} else {
			svc = svc.Quantity(chunk.String())
			if mode != exchanges.PositionModeHedge {
				svc = svc.ReduceOnly(true)
			}
		}

		res, err := svc.Do(ctx)
		if err != nil {
			return orders, c.wrapErr("CreateTakeProfits", err)
		}

		now := time.Now()
		quantity := chunk
		if last {
			quantity = decimal.Zero
		}
		orders = append(orders, exchanges.Order{
			ID:            strconv.FormatInt(res.OrderID, 10),
			ClientOrderID: res.ClientOrderID,
			Symbol:        normalizeSymbol(req.Symbol),
			Type:          exchanges.OrderTypeTakeProfitMarket,
			Side:          side,
			PositionSide:  req.PositionSide,
			Status:        orderStatusFromAPI(string(res.Status)),
			StopPrice:     price,
			Quantity:      quantity,
			ReduceOnly:    true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	return orders, nil
}

func (c *client) CancelStopLossOrders(ctx context.Context, symbol string) error {
	return c.cancelOrdersOfType(ctx, symbol, exchanges.OrderTypeStopMarket)
}

func (c *client) CancelTakeProfitOrders(ctx context.Context, symbol string) error {
	return c.cancelOrdersOfType(ctx, symbol, exchanges.OrderTypeTakeProfitMarket)
}

func (c *client) Close() error {
	if c.fc.HTTPClient != nil {
		c.fc.HTTPClient.CloseIdleConnections()
	}
	return nil
}

func (c *client) cancelOrdersOfType(ctx context.Context, symbol string, orderType exchanges.OrderType) error {
	if symbol == "" {
		return exchanges.ErrInvalidRequest
	}

	orders, err := c.GetOpenOrders(ctx, symbol)
	if err != nil {
		return err
	}

	var merr pkgerrors.MultiError
	for _, order := range orders {
		if order.Type != orderType {
			continue
		}
		merr.Add(c.CancelOrder(ctx, symbol, order.ID))
	}
	return merr.ToError()
}

func (c *client) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return exchanges.NewExchangeError(exchangeName, strconv.FormatInt(apiErr.Code, 10), apiErr.Message)
	}
	return exchanges.NewCommunicationError(exchangeName, op, err)
}

func validateOrderRequest(req *exchanges.OrderRequest) error {
	if req == nil || req.Symbol == "" || req.Quantity.LessThanOrEqual(decimal.Zero) {
		return exchanges.ErrInvalidRequest
	}
	if req.Side != exchanges.OrderSideBuy && req.Side != exchanges.OrderSideSell {
		return exchanges.ErrInvalidRequest
	}
	switch req.Type {
	case exchanges.OrderTypeMarket:
	case exchanges.OrderTypeLimit:
		if req.Price.LessThanOrEqual(decimal.Zero) {
			return exchanges.ErrInvalidRequest
		}
	default:
		return exchanges.ErrInvalidRequest
	}
	return nil
}

func entryPositionSide(mode exchanges.PositionMode, side exchanges.OrderSide, reduceOnly bool) futures.PositionSideType {
	if mode != exchanges.PositionModeHedge {
		return futures.PositionSideTypeBoth
	}
	long := side == exchanges.OrderSideBuy
	if reduceOnly {
		long = !long
	}
	if long {
		return futures.PositionSideTypeLong
	}
	return futures.PositionSideTypeShort
}

func exitPositionSide(mode exchanges.PositionMode, side exchanges.PositionSide) futures.PositionSideType {
	if mode != exchanges.PositionModeHedge {
		return futures.PositionSideTypeBoth
	}
	if side == exchanges.PositionSideShort {
		return futures.PositionSideTypeShort
	}
	return futures.PositionSideTypeLong
}

func exitSide(side exchanges.PositionSide) exchanges.OrderSide {
	if side == exchanges.PositionSideShort {
		return exchanges.OrderSideBuy
	}
	return exchanges.OrderSideSell
}

func mapOrder(o *futures.Order) exchanges.Order {
	return exchanges.Order{
		ID:            strconv.FormatInt(o.OrderID, 10),
		ClientOrderID: o.ClientOrderID,
		Symbol:        o.Symbol,
		Type:          orderTypeFromAPI(string(o.Type)),
		Side:          orderSideFromAPI(string(o.Side)),
		PositionSide:  positionSideFromAPI(string(o.PositionSide)),
		Status:        orderStatusFromAPI(string(o.Status)),
		Price:         dec(o.Price),
		StopPrice:     dec(o.StopPrice),
		Quantity:      dec(o.OrigQuantity),
		Filled:        dec(o.ExecutedQuantity),
		AvgFillPrice:  dec(o.AvgPrice),
		ReduceOnly:    o.ReduceOnly,
		TimeInForce:   tifFromAPI(string(o.TimeInForce)),
		CreatedAt:     time.UnixMilli(o.Time),
		UpdatedAt:     time.UnixMilli(o.UpdateTime),
	}
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}

func orderSideToAPI(side exchanges.OrderSide) futures.SideType {
	if side == exchanges.OrderSideSell {
		return futures.SideTypeSell
	}
	return futures.SideTypeBuy
}

func orderSideFromAPI(s string) exchanges.OrderSide {
	if strings.ToUpper(s) == "SELL" {
		return exchanges.OrderSideSell
	}
	return exchanges.OrderSideBuy
}

func orderTypeToAPI(t exchanges.OrderType) futures.OrderType {
	switch t {
	case exchanges.OrderTypeMarket:
		return futures.OrderTypeMarket
	case exchanges.OrderTypeStopMarket:
		return futures.OrderTypeStopMarket
	case exchanges.OrderTypeTakeProfitMarket:
		return futures.OrderTypeTakeProfitMarket
	default:
		return futures.OrderTypeLimit
	}
}

func orderTypeFromAPI(s string) exchanges.OrderType {
	switch strings.ToUpper(s) {
	case "MARKET":
		return exchanges.OrderTypeMarket
	case "STOP_MARKET", "STOP":
		return exchanges.OrderTypeStopMarket
	case "TAKE_PROFIT_MARKET", "TAKE_PROFIT":
		return exchanges.OrderTypeTakeProfitMarket
	default:
		return exchanges.OrderTypeLimit
	}
}

func orderStatusFromAPI(s string) exchanges.OrderStatus {
	switch strings.ToUpper(s) {
	case "NEW":
		return exchanges.OrderStatusNew
	case "PARTIALLY_FILLED":
		return exchanges.OrderStatusPartial
	case "FILLED":
		return exchanges.OrderStatusFilled
	case "CANCELED":
		return exchanges.OrderStatusCanceled
	case "REJECTED":
		return exchanges.OrderStatusRejected
	case "EXPIRED":
		return exchanges.OrderStatusExpired
	default:
		return exchanges.OrderStatusUnknown
	}
}

func positionSideFromAPI(s string) exchanges.PositionSide {
	switch strings.ToUpper(s) {
	case "LONG":
		return exchanges.PositionSideLong
	case "SHORT":
		return exchanges.PositionSideShort
	default:
		return exchanges.PositionSideBoth
	}
}

func marginModeFromAPI(s string) exchanges.MarginMode {
	if strings.EqualFold(s, "isolated") {
		return exchanges.MarginIsolated
	}
	return exchanges.MarginCross
}

func tifToAPI(tif exchanges.TimeInForce) futures.TimeInForceType {
	switch tif {
	case exchanges.TimeInForceIOC:
		return futures.TimeInForceTypeIOC
	case exchanges.TimeInForceFOK:
		return futures.TimeInForceTypeFOK
	default:
		return futures.TimeInForceTypeGTC
	}
}

func tifFromAPI(s string) exchanges.TimeInForce {
	switch strings.ToUpper(s) {
	case "IOC":
		return exchanges.TimeInForceIOC
	case "FOK":
		return exchanges.TimeInForceFOK
	default:
		return exchanges.TimeInForceGTC
	}
}
