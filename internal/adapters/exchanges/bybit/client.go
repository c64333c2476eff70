package bybit

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/shopspring/decimal"

	"unifutures/internal/adapters/exchanges"
	pkgerrors "unifutures/pkg/errors"
)

const (
	exchangeName    = "bybit"
	testnetURL      = "https://api-testnet.bybit.com"
	settlementAsset = "USDT"

	defaultMaxLeverage = 20

	// Bybit answers "leverage not modified" when the requested leverage
	// already matches; callers treat that as success.
	retCodeLeverageNotModified = 110043
)

// Config configures the Bybit linear perpetuals adapter.
type Config struct {
	APIKey    string
	SecretKey string
	Testnet   bool

	// BaseURL overrides the REST endpoint, mainly for tests.
	BaseURL string

	// HTTPClient overrides the transport used by the SDK.
	HTTPClient *http.Client
}

// NewClient creates a new Bybit futures adapter backed by the V5 API.
//
// Bybit manages stop-loss and take-profit protection at position level,
// so protective quantities always apply to the whole position and only a
// single take-profit target is supported.
func NewClient(cfg Config) (exchanges.FuturesTrader, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, exchanges.ErrMissingCredentials
	}

	bb := bybit.NewClient().WithAuth(cfg.APIKey, cfg.SecretKey)
	if cfg.Testnet {
		bb = bb.WithBaseURL(testnetURL)
	}
	if cfg.BaseURL != "" {
		bb = bb.WithBaseURL(cfg.BaseURL)
	}
	if cfg.HTTPClient != nil {
		bb = bb.WithHTTPClient(cfg.HTTPClient)
	}

	return &client{bb: bb}, nil
}

type client struct {
	bb *bybit.Client
}

func (c *client) Name() string {
	return exchangeName
}

func (c *client) GetAccountInfo(ctx context.Context) (*exchanges.AccountInfo, error) {
	res, err := c.bb.V5().Account().GetWalletBalance(bybit.AccountTypeV5("UNIFIED"), nil)
	if err != nil {
		return nil, c.wrapErr("GetAccountInfo", err)
	}
	if len(res.Result.List) == 0 {
		return nil, exchanges.NewExchangeError(exchangeName, "empty", "wallet balance response has no accounts")
	}

	acct := res.Result.List[0]
	info := &exchanges.AccountInfo{
		TotalEquity:      dec(acct.TotalEquity),
		AvailableBalance: dec(acct.TotalAvailableBalance),
		UnrealizedPnL:    dec(acct.TotalPerpUPL),
		CanTrade:         true,
		UpdatedAt:        time.Now(),
	}

	for _, coin := range acct.Coin {
		balance := dec(coin.WalletBalance)
		if balance.IsZero() {
			continue
		}
		available := dec(coin.AvailableToWithdraw)
		if available.IsZero() {
			available = dec(acct.TotalAvailableBalance)
		}
		info.Assets = append(info.Assets, exchanges.AssetBalance{
			Asset:         string(coin.Coin),
			Balance:       balance,
			Available:     available,
			UnrealizedPnL: dec(coin.UnrealisedPnl),
		})
	}

	return info, nil
}

func (c *client) GetFuturesBalance(ctx context.Context) (*exchanges.Balance, error) {
	info, err := c.GetAccountInfo(ctx)
	if err != nil {
		return nil, err
	}

	for _, asset := range info.Assets {
		if asset.Asset != settlementAsset {
			continue
		}
		return &exchanges.Balance{
			Asset:         asset.Asset,
			Total:         asset.Balance,
			Available:     asset.Available,
			UnrealizedPnL: asset.UnrealizedPnL,
		}, nil
	}

	return &exchanges.Balance{Asset: settlementAsset}, nil
}

func (c *client) GetFreeMargin(ctx context.Context) (decimal.Decimal, error) {
	info, err := c.GetAccountInfo(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return info.AvailableBalance, nil
}

func (c *client) GetTradingSymbols(ctx context.Context) ([]string, error) {
	limit := 1000
	res, err := c.bb.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Linear,
		Limit:    &limit,
	})
	if err != nil {
		return nil, c.wrapErr("GetTradingSymbols", err)
	}

	var symbols []string
	for _, item := range res.Result.LinearInverse.List {
		if string(item.Status) != "Trading" {
			continue
		}
		if string(item.QuoteCoin) != settlementAsset || string(item.ContractType) != "LinearPerpetual" {
			continue
		}
		symbols = append(symbols, string(item.Symbol))
	}
	return symbols, nil
}

func (c *client) GetInstrument(ctx context.Context, symbol string) (*exchanges.Instrument, error) {
	sym := bybit.SymbolV5(normalizeSymbol(symbol))
	if sym == "" {
		return nil, exchanges.ErrInvalidInstrument
	}

	res, err := c.bb.V5().Market().GetInstrumentsInfo(bybit.V5GetInstrumentsInfoParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &sym,
	})
	if err != nil {
		return nil, c.wrapErr("GetInstrument", err)
	}

	for _, item := range res.Result.LinearInverse.List {
		if item.Symbol != sym {
			continue
		}

		tickSize := dec(item.PriceFilter.TickSize)
		qtyStep := dec(item.LotSizeFilter.QtyStep)
		maxLeverage := int(dec(item.LeverageFilter.MaxLeverage).IntPart())

		return &exchanges.Instrument{
			Symbol:            string(item.Symbol),
			BaseAsset:         string(item.BaseCoin),
			QuoteAsset:        string(item.QuoteCoin),
			PricePrecision:    precisionFromStep(tickSize),
			QuantityPrecision: precisionFromStep(qtyStep),
			TickSize:          tickSize,
			StepSize:          qtyStep,
			MinQuantity:       dec(item.LotSizeFilter.MinOrderQty),
			MaxQuantity:       dec(item.LotSizeFilter.MaxOrderQty),
			MaxLeverage:       maxLeverage,
			Active:            string(item.Status) == "Trading",
		}, nil
	}

	return nil, exchanges.ErrInvalidInstrument
}

func (c *client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := bybit.SymbolV5(normalizeSymbol(symbol))
	res, err := c.bb.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &sym,
	})
	if err != nil {
		return decimal.Zero, c.wrapErr("GetCurrentPrice", err)
	}
	if len(res.Result.LinearInverse.List) == 0 {
		return decimal.Zero, exchanges.ErrInvalidInstrument
	}
	return dec(res.Result.LinearInverse.List[0].LastPrice), nil
}

func (c *client) GetMaxLeverage(ctx context.Context, symbol string) (int, error) {
	inst, err := c.GetInstrument(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if inst.MaxLeverage <= 0 {
		return defaultMaxLeverage, nil
	}
	return inst.MaxLeverage, nil
}

// GetPositionMode infers the account mode from open positions: hedge mode
// positions carry a non-zero position index. An account without open
// positions reports one-way.
func (c *client) GetPositionMode(ctx context.Context) (exchanges.PositionMode, error) {
	settle := bybit.Coin(settlementAsset)
	res, err := c.bb.V5().Position().GetPositionInfo(bybit.V5GetPositionInfoParam{
		Category:   bybit.CategoryV5Linear,
		SettleCoin: &settle,
	})
	if err != nil {
		return "", c.wrapErr("GetPositionMode", err)
	}

	for _, item := range res.Result.List {
		if int(item.PositionIdx) != 0 {
			return exchanges.PositionModeHedge, nil
		}
	}
	return exchanges.PositionModeOneWay, nil
}

func (c *client) ChangeLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return exchanges.ErrInvalidRequest
	}

	lv := strconv.Itoa(leverage)
	_, err := c.bb.V5().Position().SetLeverage(bybit.V5SetLeverageParam{
		Category:     bybit.CategoryV5Linear,
		Symbol:       bybit.SymbolV5(normalizeSymbol(symbol)),
		BuyLeverage:  lv,
		SellLeverage: lv,
	})
	if err != nil {
		if retCodeIs(err, retCodeLeverageNotModified) {
			return nil
		}
		return c.wrapErr("ChangeLeverage", err)
	}
	return nil
}

func (c *client) CalculateQuantityFromUSDT(ctx context.Context, symbol string, amount decimal.Decimal, leverage int, opts ...exchanges.QuantityOption) (decimal.Decimal, error) {
	if amount.LessThanOrEqual(decimal.Zero) || leverage <= 0 {
		return decimal.Zero, exchanges.ErrInvalidRequest
	}

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

	param := bybit.V5CreateOrderParam{
		Category:  bybit.CategoryV5Linear,
		Symbol:    bybit.SymbolV5(normalizeSymbol(req.Symbol)),
		Side:      orderSideToAPI(req.Side),
		OrderType: orderTypeToAPI(req.Type),
		Qty:       req.Quantity.String(),
	}
	if req.Type == exchanges.OrderTypeLimit {
		price := req.Price.String()
		param.Price = &price
	}
	if req.ReduceOnly {
		reduceOnly := true
		param.ReduceOnly = &reduceOnly
	}
	if linkID := clientOrderID(req); linkID != "" {
		param.OrderLinkID = &linkID
	}

	res, err := c.bb.V5().Order().CreateOrder(param)
	if err != nil {
		return nil, c.wrapErr("CreateOrder", err)
	}

	now := time.Now()
	return &exchanges.Order{
		ID:            res.Result.OrderID,
		ClientOrderID: res.Result.OrderLinkID,
		Symbol:        normalizeSymbol(req.Symbol),
		Type:          req.Type,
		Side:          req.Side,
		Status:        exchanges.OrderStatusNew,
		Price:         req.Price,
		Quantity:      req.Quantity,
		ReduceOnly:    req.ReduceOnly,
		TimeInForce:   req.TimeInForce,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (c *client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	if symbol == "" || orderID == "" {
		return exchanges.ErrInvalidRequest
	}
	_, err := c.bb.V5().Order().CancelOrder(bybit.V5CancelOrderParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   bybit.SymbolV5(normalizeSymbol(symbol)),
		OrderID:  &orderID,
	})
	return c.wrapErr("CancelOrder", err)
}

func (c *client) GetOpenOrders(ctx context.Context, symbol string) ([]exchanges.Order, error) {
	param := bybit.V5GetOpenOrdersParam{Category: bybit.CategoryV5Linear}
	if symbol != "" {
		sym := bybit.SymbolV5(normalizeSymbol(symbol))
		param.Symbol = &sym
	} else {
		settle := bybit.Coin(settlementAsset)
		param.SettleCoin = &settle
	}

	res, err := c.bb.V5().Order().GetOpenOrders(param)
	if err != nil {
		return nil, c.wrapErr("GetOpenOrders", err)
	}

	orders := make([]exchanges.Order, 0, len(res.Result.List))
	for _, o := range res.Result.List {
		orders = append(orders, exchanges.Order{
			ID:            o.OrderID,
			ClientOrderID: o.OrderLinkID,
			Symbol:        string(o.Symbol),
			Type:          orderTypeFromAPI(string(o.OrderType)),
			Side:          orderSideFromAPI(string(o.Side)),
			Status:        orderStatusFromAPI(string(o.OrderStatus)),
			Price:         dec(o.Price),
			StopPrice:     dec(o.TriggerPrice),
			Quantity:      dec(o.Qty),
			Filled:        dec(o.CumExecQty),
			AvgFillPrice:  dec(o.AvgPrice),
			ReduceOnly:    o.ReduceOnly,
			TimeInForce:   tifFromAPI(string(o.TimeInForce)),
			CreatedAt:     millis(o.CreatedTime),
			UpdatedAt:     millis(o.UpdatedTime),
		})
	}
	return orders, nil
}

func (c *client) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]exchanges.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	param := bybit.V5GetHistoryOrdersParam{
		Category: bybit.CategoryV5Linear,
		Limit:    &limit,
	}
	if symbol != "" {
		sym := bybit.SymbolV5(normalizeSymbol(symbol))
		param.Symbol = &sym
	}

	res, err := c.bb.V5().Order().GetHistoryOrders(param)
	if err != nil {
		return nil, c.wrapErr("GetOrderHistory", err)
	}

	orders := make([]exchanges.Order, 0, len(res.Result.List))
	for _, o := range res.Result.List {
		orders = append(orders, exchanges.Order{
			ID:            o.OrderID,
			ClientOrderID: o.OrderLinkID,
			Symbol:        string(o.Symbol),
			Type:          orderTypeFromAPI(string(o.OrderType)),
			Side:          orderSideFromAPI(string(o.Side)),
			Status:        orderStatusFromAPI(string(o.OrderStatus)),
			Price:         dec(o.Price),
			StopPrice:     dec(o.TriggerPrice),
			Quantity:      dec(o.Qty),
			Filled:        dec(o.CumExecQty),
			AvgFillPrice:  dec(o.AvgPrice),
			ReduceOnly:    o.ReduceOnly,
			TimeInForce:   tifFromAPI(string(o.TimeInForce)),
			CreatedAt:     millis(o.CreatedTime),
			UpdatedAt:     millis(o.UpdatedTime),
		})
	}
	return orders, nil
}

func (c *client) GetOpenPositions(ctx context.Context, symbol string) ([]exchanges.Position, error) {
	param := bybit.V5GetPositionInfoParam{Category: bybit.CategoryV5Linear}
	if symbol != "" {
		sym := bybit.SymbolV5(normalizeSymbol(symbol))
		param.Symbol = &sym
	} else {
		settle := bybit.Coin(settlementAsset)
		param.SettleCoin = &settle
	}

	res, err := c.bb.V5().Position().GetPositionInfo(param)
	if err != nil {
		return nil, c.wrapErr("GetOpenPositions", err)
	}

	positions := make([]exchanges.Position, 0, len(res.Result.List))
	for _, p := range res.Result.List {
		size := dec(p.Size)
		if size.IsZero() {
			continue
		}

		side := exchanges.PositionSideLong
		if string(p.Side) == "Sell" {
			side = exchanges.PositionSideShort
		}

		positions = append(positions, exchanges.Position{
			Symbol:           string(p.Symbol),
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       dec(p.AvgPrice),
			MarkPrice:        dec(p.MarkPrice),
			LiquidationPrice: dec(p.LiqPrice),
			MarginMode:       exchanges.MarginCross,
			Leverage:         dec(p.Leverage),
			UnrealizedPnL:    dec(p.UnrealisedPnl),
			RealizedPnL:      dec(p.CumRealisedPnl),
			UpdatedAt:        millis(p.UpdatedTime),
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

	positionIdx, err := c.findPositionIdx(ctx, req.Symbol, req.PositionSide)
	if err != nil {
		return nil, err
	}

	stopPrice := req.StopPrice.String()
	_, err = c.bb.V5().Position().SetTradingStop(bybit.V5SetTradingStopParam{
		Category:    bybit.CategoryV5Linear,
		Symbol:      bybit.SymbolV5(normalizeSymbol(req.Symbol)),
		PositionIdx: positionIdx,
		StopLoss:    &stopPrice,
	})
	if err != nil {
		return nil, c.wrapErr("CreateStopLoss", err)
	}

	now := time.Now()
	return &exchanges.Order{
		Symbol:       normalizeSymbol(req.Symbol),
		Type:         exchanges.OrderTypeStopMarket,
		Side:         exitSide(req.PositionSide),
		PositionSide: req.PositionSide,
		Status:       exchanges.OrderStatusOpen,
		StopPrice:    req.StopPrice,
		ReduceOnly:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *client) CreateTakeProfits(ctx context.Context, req *exchanges.TakeProfitRequest) ([]exchanges.Order, error) {
	if req == nil || req.Symbol == "" || len(req.Prices) == 0 {
		return nil, exchanges.ErrInvalidRequest
	}
	if req.PositionSide != exchanges.PositionSideLong && req.PositionSide != exchanges.PositionSideShort {
		return nil, exchanges.ErrInvalidRequest
	}
	if len(req.Prices) > 1 {
		// Position-level protection admits a single target only.
		return nil, exchanges.ErrNotSupported
	}
	if req.Prices[0].LessThanOrEqual(decimal.Zero) {
		return nil, exchanges.ErrInvalidRequest
	}

	positionIdx, err := c.findPositionIdx(ctx, req.Symbol, req.PositionSide)
	if err != nil {
		return nil, err
	}

	takeProfit := req.Prices[0].String()
	_, err = c.bb.V5().Position().SetTradingStop(bybit.V5SetTradingStopParam{
		Category:    bybit.CategoryV5Linear,
		Symbol:      bybit.SymbolV5(normalizeSymbol(req.Symbol)),
		PositionIdx: positionIdx,
		TakeProfit:  &takeProfit,
	})
	if err != nil {
		return nil, c.wrapErr("CreateTakeProfits", err)
	}

	now := time.Now()
	return []exchanges.Order{{
		Symbol:       normalizeSymbol(req.Symbol),
		Type:         exchanges.OrderTypeTakeProfitMarket,
		Side:         exitSide(req.PositionSide),
		PositionSide: req.PositionSide,
		Status:       exchanges.OrderStatusOpen,
		StopPrice:    req.Prices[0],
		ReduceOnly:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}}, nil
}

// CancelStopLossOrders clears position-level stops by resetting them to
// zero, which is how Bybit V5 removes an active stop loss.
func (c *client) CancelStopLossOrders(ctx context.Context, symbol string) error {
	return c.clearTradingStop(ctx, symbol, true)
}

func (c *client) CancelTakeProfitOrders(ctx context.Context, symbol string) error {
	return c.clearTradingStop(ctx, symbol, false)
}

func (c *client) Close() error {
	return nil
}

func (c *client) clearTradingStop(ctx context.Context, symbol string, stopLoss bool) error {
	if symbol == "" {
		return exchanges.ErrInvalidRequest
	}

	sym := bybit.SymbolV5(normalizeSymbol(symbol))
	res, err := c.bb.V5().Position().GetPositionInfo(bybit.V5GetPositionInfoParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &sym,
	})
	if err != nil {
		return c.wrapErr("ClearTradingStop", err)
	}

	var merr pkgerrors.MultiError
	for _, p := range res.Result.List {
		if dec(p.Size).IsZero() {
			continue
		}

		param := bybit.V5SetTradingStopParam{
			Category:    bybit.CategoryV5Linear,
			Symbol:      sym,
			PositionIdx: bybit.PositionIdx(p.PositionIdx),
		}
		zero := "0"
		if stopLoss {
			if dec(p.StopLoss).IsZero() {
				continue
			}
			param.StopLoss = &zero
		} else {
			if dec(p.TakeProfit).IsZero() {
				continue
			}
			param.TakeProfit = &zero
		}

		if _, err := c.bb.V5().Position().SetTradingStop(param); err != nil {
			merr.Add(c.wrapErr("ClearTradingStop", err))
		}
	}
	return merr.ToError()
}

// findPositionIdx locates the position index SetTradingStop must target:
// zero in one-way mode, 1 (long) or 2 (short) in hedge mode.
func (c *client) findPositionIdx(ctx context.Context, symbol string, side exchanges.PositionSide) (bybit.PositionIdx, error) {
	sym := bybit.SymbolV5(normalizeSymbol(symbol))
	res, err := c.bb.V5().Position().GetPositionInfo(bybit.V5GetPositionInfoParam{
		Category: bybit.CategoryV5Linear,
		Symbol:   &sym,
	})
	if err != nil {
		return bybit.PositionIdx(0), c.wrapErr("GetPositionInfo", err)
	}

	want := "Buy"
	if side == exchanges.PositionSideShort {
		want = "Sell"
	}
	for _, p := range res.Result.List {
		if dec(p.Size).IsZero() {
			continue
		}
		if string(p.Side) == want {
			return bybit.PositionIdx(p.PositionIdx), nil
		}
	}
	return bybit.PositionIdx(0), nil
}

func (c *client) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isCommunicationErr(err) {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	return exchanges.NewExchangeError(exchangeName, retCodeFromError(err), err.Error())
}

func isCommunicationErr(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// retCodeFromError digs the numeric retCode out of the SDK error. The SDK
// surfaces venue rejections as *bybit.ErrorResponse; the text scan covers
// errors it chose to flatten into plain strings.
func retCodeFromError(err error) string {
	var apiErr *bybit.ErrorResponse
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.RetCode)
	}
	for _, field := range strings.Fields(err.Error()) {
		trimmed := strings.Trim(field, "(),:.")
		if trimmed == "" {
			continue
		}
		if _, convErr := strconv.Atoi(trimmed); convErr == nil {
			return trimmed
		}
	}
	return "unknown"
}

func retCodeIs(err error, code int) bool {
	var apiErr *bybit.ErrorResponse
	if errors.As(err, &apiErr) {
		return apiErr.RetCode == code
	}
	return strings.Contains(err.Error(), strconv.Itoa(code))
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

func clientOrderID(req *exchanges.OrderRequest) string {
	if req.ClientOrderID != "" {
		return req.ClientOrderID
	}
	return req.Tag
}

func exitSide(side exchanges.PositionSide) exchanges.OrderSide {
	if side == exchanges.PositionSideShort {
		return exchanges.OrderSideBuy
	}
	return exchanges.OrderSideSell
}

func dec(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func millis(v string) time.Time {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil || ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func normalizeSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	s = strings.ReplaceAll(s, "-", "")
	return strings.ReplaceAll(s, "/", "")
}

func precisionFromStep(step decimal.Decimal) int {
	if exp := step.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}

func orderSideToAPI(side exchanges.OrderSide) bybit.Side {
	if side == exchanges.OrderSideSell {
		return bybit.SideSell
	}
	return bybit.SideBuy
}

func orderSideFromAPI(s string) exchanges.OrderSide {
	if strings.EqualFold(s, "Sell") {
		return exchanges.OrderSideSell
	}
	return exchanges.OrderSideBuy
}

func orderTypeToAPI(t exchanges.OrderType) bybit.OrderType {
	if t == exchanges.OrderTypeMarket {
		return bybit.OrderTypeMarket
	}
	return bybit.OrderTypeLimit
}

func orderTypeFromAPI(s string) exchanges.OrderType {
	if strings.EqualFold(s, "Market") {
		return exchanges.OrderTypeMarket
	}
	return exchanges.OrderTypeLimit
}

func orderStatusFromAPI(s string) exchanges.OrderStatus {
	switch s {
	case "Created", "New":
		return exchanges.OrderStatusNew
	case "Untriggered", "Active", "Triggered":
		return exchanges.OrderStatusOpen
	case "PartiallyFilled":
		return exchanges.OrderStatusPartial
	case "Filled":
		return exchanges.OrderStatusFilled
	case "Cancelled", "PartiallyFilledCanceled", "Deactivated":
		return exchanges.OrderStatusCanceled
	case "Rejected":
		return exchanges.OrderStatusRejected
	default:
		return exchanges.OrderStatusUnknown
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
