package bitget

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"unifutures/internal/adapters/exchanges"
	pkgerrors "unifutures/pkg/errors"
)

const (
	exchangeName      = "bitget"
	productionBaseURL = "https://api.bitget.com"
	defaultTimeout    = 10 * time.Second

	successCode = "00000"

	// BitGet does not expose a max leverage in the contract list; the
	// per-symbol leverage endpoint answers, with this as the fallback.
	defaultMaxLeverage = 50

	// Order history lookback when the caller gives no range; the v1
	// endpoint requires explicit bounds.
	historyLookback = 30 * 24 * time.Hour
)

// Config configures the BitGet USDT-margined futures adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	Passphrase string

	// Testnet switches to the demo product type (sumcbl, settled in
	// SUSDT). Demo instruments use the venue's demo symbol names.
	Testnet bool

	// BaseURL overrides the REST endpoint, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient constructs a new BitGet adapter for USDT-margined perpetuals
// (productType umcbl).
func NewClient(cfg Config) (exchanges.FuturesTrader, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" || cfg.Passphrase == "" {
		return nil, exchanges.ErrMissingCredentials
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: defaultTimeout}
	}
	return &client{cfg: cfg}, nil
}

type client struct {
	cfg Config

	closeOnce sync.Once
}

func (c *client) Name() string {
	return exchangeName
}

type accountData struct {
	MarginCoin   string `json:"marginCoin"`
	Available    string `json:"available"`
	Locked       string `json:"locked"`
	Equity       string `json:"equity"`
	UsdtEquity   string `json:"usdtEquity"`
	UnrealizedPL string `json:"unrealizedPL"`
	MarginMode   string `json:"marginMode"`
	HoldMode     string `json:"holdMode"`
}

func (c *client) GetAccountInfo(ctx context.Context) (*exchanges.AccountInfo, error) {
	accounts, err := c.accounts(ctx, "GetAccountInfo")
	if err != nil {
		return nil, err
	}

	info := &exchanges.AccountInfo{
		CanTrade:  true,
		UpdatedAt: time.Now(),
	}
	for _, acct := range accounts {
		balance := dec(acct.Equity)
		if acct.MarginCoin == c.marginCoin() {
			equity := dec(acct.UsdtEquity)
			if equity.IsZero() {
				equity = balance
			}
			info.TotalEquity = equity
			info.AvailableBalance = dec(acct.Available)
			info.UnrealizedPnL = dec(acct.UnrealizedPL)
		}
		if balance.IsZero() {
			continue
		}
		info.Assets = append(info.Assets, exchanges.AssetBalance{
			Asset:         acct.MarginCoin,
			Balance:       balance,
			Available:     dec(acct.Available),
			UnrealizedPnL: dec(acct.UnrealizedPL),
		})
	}

	return info, nil
}

func (c *client) GetFuturesBalance(ctx context.Context) (*exchanges.Balance, error) {
	accounts, err := c.accounts(ctx, "GetFuturesBalance")
	if err != nil {
		return nil, err
	}

	for _, acct := range accounts {
		if acct.MarginCoin != c.marginCoin() {
			continue
		}
		return &exchanges.Balance{
			Asset:         acct.MarginCoin,
			Total:         dec(acct.Equity),
			Available:     dec(acct.Available),
			UnrealizedPnL: dec(acct.UnrealizedPL),
		}, nil
	}

	return &exchanges.Balance{Asset: c.marginCoin()}, nil
}

func (c *client) GetFreeMargin(ctx context.Context) (decimal.Decimal, error) {
	balance, err := c.GetFuturesBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Available, nil
}

type contractData struct {
	Symbol         string `json:"symbol"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	MinTradeNum    string `json:"minTradeNum"`
	MinTradeUSDT   string `json:"minTradeUSDT"`
	PriceEndStep   string `json:"priceEndStep"`
	PricePlace     string `json:"pricePlace"`
	VolumePlace    string `json:"volumePlace"`
	SizeMultiplier string `json:"sizeMultiplier"`
	SymbolType     string `json:"symbolType"`
	OffTime        string `json:"offTime"`
}

func (c *client) GetTradingSymbols(ctx context.Context) ([]string, error) {
	contracts, err := c.contracts(ctx, "GetTradingSymbols")
	if err != nil {
		return nil, err
	}

	var symbols []string
	for _, contract := range contracts {
		if contract.SymbolType != "" && contract.SymbolType != "perpetual" {
			continue
		}
		if contract.OffTime != "" && contract.OffTime != "-1" {
			continue
		}
		symbols = append(symbols, fromVenueSymbol(contract.Symbol))
	}
	return symbols, nil
}

func (c *client) GetInstrument(ctx context.Context, symbol string) (*exchanges.Instrument, error) {
	venueSymbol := c.toVenueSymbol(symbol)
	if venueSymbol == "" {
		return nil, exchanges.ErrInvalidInstrument
	}

	contracts, err := c.contracts(ctx, "GetInstrument")
	if err != nil {
		return nil, err
	}

	for _, contract := range contracts {
		if contract.Symbol != venueSymbol {
			continue
		}

		pricePlace := int(parseInt64(contract.PricePlace))
		volumePlace := int(parseInt64(contract.VolumePlace))
		// The tick is priceEndStep scaled into the price precision, e.g.
		// priceEndStep 5 with pricePlace 1 means a 0.5 tick.
		tickSize := dec(contract.PriceEndStep).Mul(decimal.New(1, int32(-pricePlace)))

		inst := &exchanges.Instrument{
			Symbol:            fromVenueSymbol(contract.Symbol),
			BaseAsset:         contract.BaseCoin,
			QuoteAsset:        contract.QuoteCoin,
			PricePrecision:    pricePlace,
			QuantityPrecision: volumePlace,
			TickSize:          tickSize,
			StepSize:          dec(contract.SizeMultiplier),
			MinQuantity:       dec(contract.MinTradeNum),
			MinNotional:       dec(contract.MinTradeUSDT),
			Active:            contract.OffTime == "" || contract.OffTime == "-1",
		}
		if maxLeverage, err := c.maxLeverage(ctx, venueSymbol); err == nil {
			inst.MaxLeverage = maxLeverage
		}
		return inst, nil
	}

	return nil, exchanges.ErrInvalidInstrument
}

func (c *client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{"symbol": []string{c.toVenueSymbol(symbol)}}
	var data struct {
		Symbol string `json:"symbol"`
		Last   string `json:"last"`
	}
	if err := c.public(ctx, "GetCurrentPrice", "/api/mix/v1/market/ticker", params, &data); err != nil {
		return decimal.Zero, err
	}
	price := dec(data.Last)
	if price.IsZero() {
		return decimal.Zero, exchanges.ErrInvalidInstrument
	}
	return price, nil
}

func (c *client) GetMaxLeverage(ctx context.Context, symbol string) (int, error) {
	return c.maxLeverage(ctx, c.toVenueSymbol(symbol))
}

func (c *client) maxLeverage(ctx context.Context, venueSymbol string) (int, error) {
	params := url.Values{"symbol": []string{venueSymbol}}
	var data struct {
		Symbol      string `json:"symbol"`
		MinLeverage string `json:"minLeverage"`
		MaxLeverage string `json:"maxLeverage"`
	}
	if err := c.public(ctx, "GetMaxLeverage", "/api/mix/v1/market/queryPositionLever", params, &data); err != nil {
		return 0, err
	}

	maxLeverage := int(dec(data.MaxLeverage).IntPart())
	if maxLeverage <= 0 {
		maxLeverage = defaultMaxLeverage
	}
	return maxLeverage, nil
}

// GetPositionMode reads the account hold mode: double_hold accounts book
// longs and shorts separately.
func (c *client) GetPositionMode(ctx context.Context) (exchanges.PositionMode, error) {
	accounts, err := c.accounts(ctx, "GetPositionMode")
	if err != nil {
		return "", err
	}
	for _, acct := range accounts {
		if strings.HasPrefix(acct.HoldMode, "double_hold") {
			return exchanges.PositionModeHedge, nil
		}
		if acct.HoldMode != "" {
			return exchanges.PositionModeOneWay, nil
		}
	}
	return exchanges.PositionModeOneWay, nil
}

func (c *client) ChangeLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return exchanges.ErrInvalidRequest
	}
	payload := map[string]string{
		"symbol":     c.toVenueSymbol(symbol),
		"marginCoin": c.marginCoin(),
		"leverage":   strconv.Itoa(leverage),
	}
	return c.request(ctx, "ChangeLeverage", http.MethodPost, "/api/mix/v1/account/setLeverage", nil, payload, nil)
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

	// The contract list carries minTradeUSDT; when the order will be
	// split into several take-profit chunks every chunk must clear the
	// minimum on its own.
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

	payload := map[string]string{
		"symbol":           c.toVenueSymbol(req.Symbol),
		"marginCoin":       c.marginCoin(),
		"size":             req.Quantity.String(),
		"side":             orderSideToAPI(req.Side, req.ReduceOnly),
		"orderType":        orderTypeToAPI(req.Type),
		"timeInForceValue": tifToAPI(req.TimeInForce),
	}
	if req.Type == exchanges.OrderTypeLimit {
		payload["price"] = req.Price.String()
	}
	if req.ClientOrderID != "" {
		payload["clientOid"] = req.ClientOrderID
	} else if req.Tag != "" {
		payload["clientOid"] = req.Tag
	}

	var data struct {
		OrderID   string `json:"orderId"`
		ClientOid string `json:"clientOid"`
	}
	if err := c.request(ctx, "CreateOrder", http.MethodPost, "/api/mix/v1/order/placeOrder", nil, payload, &data); err != nil {
		return nil, err
	}

	now := time.Now()
	return &exchanges.Order{
		ID:            data.OrderID,
		ClientOrderID: data.ClientOid,
		Symbol:        fromVenueSymbol(c.toVenueSymbol(req.Symbol)),
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
	payload := map[string]string{
		"symbol":     c.toVenueSymbol(symbol),
		"marginCoin": c.marginCoin(),
		"orderId":    orderID,
	}
	return c.request(ctx, "CancelOrder", http.MethodPost, "/api/mix/v1/order/cancel-order", nil, payload, nil)
}

type orderData struct {
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
	Symbol    string `json:"symbol"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	State     string `json:"state"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	FilledQty string `json:"filledQty"`
	PriceAvg  string `json:"priceAvg"`
	TIF       string `json:"timeInForce"`
	CTime     string `json:"cTime"`
	UTime     string `json:"uTime"`
}

func (c *client) GetOpenOrders(ctx context.Context, symbol string) ([]exchanges.Order, error) {
	var (
		data []orderData
		err  error
	)
	if symbol != "" {
		params := url.Values{"symbol": []string{c.toVenueSymbol(symbol)}}
		err = c.request(ctx, "GetOpenOrders", http.MethodGet, "/api/mix/v1/order/current", params, nil, &data)
	} else {
		params := url.Values{
			"productType": []string{c.productType()},
			"marginCoin":  []string{c.marginCoin()},
		}
		err = c.request(ctx, "GetOpenOrders", http.MethodGet, "/api/mix/v1/order/marginCoinCurrent", params, nil, &data)
	}
	if err != nil {
		return nil, err
	}

	orders := make([]exchanges.Order, 0, len(data))
	for _, o := range data {
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

	now := time.Now()
	params := url.Values{
		"symbol":    []string{c.toVenueSymbol(symbol)},
		"startTime": []string{strconv.FormatInt(now.Add(-historyLookback).UnixMilli(), 10)},
		"endTime":   []string{strconv.FormatInt(now.UnixMilli(), 10)},
		"pageSize":  []string{strconv.Itoa(limit)},
	}
	var data struct {
		NextFlag  bool        `json:"nextFlag"`
		OrderList []orderData `json:"orderList"`
	}
	if err := c.request(ctx, "GetOrderHistory", http.MethodGet, "/api/mix/v1/order/history", params, nil, &data); err != nil {
		return nil, err
	}

	orders := make([]exchanges.Order, 0, len(data.OrderList))
	for _, o := range data.OrderList {
		orders = append(orders, mapOrder(o))
	}
	return orders, nil
}

func (c *client) GetOpenPositions(ctx context.Context, symbol string) ([]exchanges.Position, error) {
	params := url.Values{
		"productType": []string{c.productType()},
		"marginCoin":  []string{c.marginCoin()},
	}
	var data []struct {
		Symbol           string `json:"symbol"`
		MarginCoin       string `json:"marginCoin"`
		HoldSide         string `json:"holdSide"`
		Total            string `json:"total"`
		AverageOpenPrice string `json:"averageOpenPrice"`
		MarketPrice      string `json:"marketPrice"`
		LiquidationPrice string `json:"liquidationPrice"`
		MarginMode       string `json:"marginMode"`
		Leverage         int    `json:"leverage"`
		UnrealizedPL     string `json:"unrealizedPL"`
		AchievedProfits  string `json:"achievedProfits"`
		CTime            string `json:"cTime"`
	}
	if err := c.request(ctx, "GetOpenPositions", http.MethodGet, "/api/mix/v1/position/allPosition", params, nil, &data); err != nil {
		return nil, err
	}

	// The venue lists every contract; filter locally so either symbol
	// spelling (BTCUSDT or BTCUSDT_UMCBL) matches.
	want := fromVenueSymbol(symbol)

	positions := make([]exchanges.Position, 0, len(data))
	for _, p := range data {
		size := dec(p.Total)
		if size.IsZero() {
			continue
		}
		if want != "" && fromVenueSymbol(p.Symbol) != want {
			continue
		}

		side := exchanges.PositionSideLong
		if strings.EqualFold(p.HoldSide, "short") {
			side = exchanges.PositionSideShort
		}

		positions = append(positions, exchanges.Position{
			Symbol:           fromVenueSymbol(p.Symbol),
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       dec(p.AverageOpenPrice),
			MarkPrice:        dec(p.MarketPrice),
			LiquidationPrice: dec(p.LiquidationPrice),
			MarginMode:       marginModeFromAPI(p.MarginMode),
			Leverage:         decimal.NewFromInt(int64(p.Leverage)),
			UnrealizedPnL:    dec(p.UnrealizedPL),
			RealizedPnL:      dec(p.AchievedProfits),
			UpdatedAt:        time.UnixMilli(parseInt64(p.CTime)),
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

	if err := c.CancelStopLossOrders(ctx, req.Symbol); err != nil {
		return nil, err
	}

	payload := map[string]string{
		"symbol":       c.toVenueSymbol(req.Symbol),
		"marginCoin":   c.marginCoin(),
		"planType":     "loss_plan",
		"triggerPrice": req.StopPrice.String(),
		"triggerType":  "market_price",
		"holdSide":     string(req.PositionSide),
	}
	// Omitting size applies the stop to the whole position.
	if req.Quantity.GreaterThan(decimal.Zero) {
		payload["size"] = req.Quantity.String()
	}

	orderID, err := c.placePlan(ctx, "CreateStopLoss", payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &exchanges.Order{
		ID:           orderID,
		Symbol:       fromVenueSymbol(c.toVenueSymbol(req.Symbol)),
		Type:         exchanges.OrderTypeStopMarket,
		Side:         exitSide(req.PositionSide),
		PositionSide: req.PositionSide,
		Status:       exchanges.OrderStatusOpen,
		StopPrice:    req.StopPrice,
		Quantity:     req.Quantity,
		ReduceOnly:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
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

	remainder := req.Quantity.Sub(chunk.Mul(parts.Sub(decimal.NewFromInt(1))))
	remainder = remainder.Div(inst.StepSize).Floor().Mul(inst.StepSize)
	if remainder.LessThanOrEqual(decimal.Zero) {
		remainder = chunk
	}

	orders := make([]exchanges.Order, 0, len(req.Prices))
	for i, price := range req.Prices {
		size := chunk
		if i == len(req.Prices)-1 {
			size = remainder
		}

		payload := map[string]string{
			"symbol":       c.toVenueSymbol(req.Symbol),
			"marginCoin":   c.marginCoin(),
			"planType":     "profit_plan",
			"triggerPrice": price.String(),
			"triggerType":  "market_price",
			"holdSide":     string(req.PositionSide),
			"size":         size.String(),
		}

		orderID, err := c.placePlan(ctx, "CreateTakeProfits", payload)
		if err != nil {
			return orders, err
		}

		now := time.Now()
		orders = append(orders, exchanges.Order{
			ID:           orderID,
			Symbol:       fromVenueSymbol(c.toVenueSymbol(req.Symbol)),
			Type:         exchanges.OrderTypeTakeProfitMarket,
			Side:         exitSide(req.PositionSide),
			PositionSide: req.PositionSide,
			Status:       exchanges.OrderStatusOpen,
			StopPrice:    price,
			Quantity:     size,
			ReduceOnly:   true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	return orders, nil
}

func (c *client) CancelStopLossOrders(ctx context.Context, symbol string) error {
	return c.cancelPlansOfType(ctx, symbol, "loss_plan")
}

func (c *client) CancelTakeProfitOrders(ctx context.Context, symbol string) error {
	return c.cancelPlansOfType(ctx, symbol, "profit_plan")
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.cfg.HTTPClient.CloseIdleConnections()
	})
	return nil
}

func (c *client) cancelPlansOfType(ctx context.Context, symbol, planType string) error {
	if symbol == "" {
		return exchanges.ErrInvalidRequest
	}

	venueSymbol := c.toVenueSymbol(symbol)
	params := url.Values{
		"symbol": []string{venueSymbol},
		"isPlan": []string{"profit_loss"},
	}
	var data []struct {
		OrderID  string `json:"orderId"`
		PlanType string `json:"planType"`
	}
	if err := c.request(ctx, "GetPlanOrders", http.MethodGet, "/api/mix/v1/plan/currentPlan", params, nil, &data); err != nil {
		return err
	}

	var merr pkgerrors.MultiError
	for _, plan := range data {
		if plan.PlanType != planType {
			continue
		}
		payload := map[string]string{
			"symbol":     venueSymbol,
			"marginCoin": c.marginCoin(),
			"orderId":    plan.OrderID,
			"planType":   planType,
		}
		merr.Add(c.request(ctx, "CancelPlanOrder", http.MethodPost, "/api/mix/v1/plan/cancelPlan", nil, payload, nil))
	}
	return merr.ToError()
}

func (c *client) placePlan(ctx context.Context, op string, payload map[string]string) (string, error) {
	var data struct {
		OrderID   string `json:"orderId"`
		ClientOid string `json:"clientOid"`
	}
	if err := c.request(ctx, op, http.MethodPost, "/api/mix/v1/plan/placeTPSL", nil, payload, &data); err != nil {
		return "", err
	}
	return data.OrderID, nil
}

func (c *client) accounts(ctx context.Context, op string) ([]accountData, error) {
	params := url.Values{"productType": []string{c.productType()}}
	var data []accountData
	if err := c.request(ctx, op, http.MethodGet, "/api/mix/v1/account/accounts", params, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *client) contracts(ctx context.Context, op string) ([]contractData, error) {
	params := url.Values{"productType": []string{c.productType()}}
	var data []contractData
	if err := c.public(ctx, op, "/api/mix/v1/market/contracts", params, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *client) public(ctx context.Context, op, path string, params url.Values, target interface{}) error {
	reqURL := c.baseURL() + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	return c.do(op, req, target)
}

func (c *client) request(ctx context.Context, op, method, path string, params url.Values, payload, target interface{}) error {
	if c.cfg.APIKey == "" || c.cfg.SecretKey == "" || c.cfg.Passphrase == "" {
		return exchanges.ErrMissingCredentials
	}

	var body io.Reader
	var bodyStr string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return exchanges.NewCommunicationError(exchangeName, op, err)
		}
		bodyStr = string(raw)
		body = strings.NewReader(bodyStr)
	}

	requestPath := path
	if len(params) > 0 {
		requestPath += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+requestPath, body)
	if err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("locale", "en-US")

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	prehash := timestamp + strings.ToUpper(method) + requestPath + bodyStr

	req.Header.Set("ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("ACCESS-SIGN", sign(prehash, c.cfg.SecretKey))
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-PASSPHRASE", c.cfg.Passphrase)

	return c.do(op, req, target)
}

func (c *client) do(op string, req *http.Request, target interface{}) error {
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}

	if resp.StatusCode >= 400 {
		var env envelope
		if json.Unmarshal(body, &env) == nil && env.Code != "" && env.Code != successCode {
			return exchanges.NewExchangeError(exchangeName, env.Code, env.Msg)
		}
		return exchanges.NewExchangeError(exchangeName, strconv.Itoa(resp.StatusCode), strings.TrimSpace(string(body)))
	}

	return decodeEnvelope(op, body, target)
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(op string, body []byte, target interface{}) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	if env.Code != successCode {
		return exchanges.NewExchangeError(exchangeName, env.Code, env.Msg)
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	return nil
}

func sign(payload, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *client) baseURL() string {
	if c.cfg.BaseURL != "" {
		return c.cfg.BaseURL
	}
	return productionBaseURL
}

func (c *client) productType() string {
	if c.cfg.Testnet {
		return "sumcbl"
	}
	return "umcbl"
}

func (c *client) marginCoin() string {
	if c.cfg.Testnet {
		return "SUSDT"
	}
	return "USDT"
}

func (c *client) symbolSuffix() string {
	if c.cfg.Testnet {
		return "_SUMCBL"
	}
	return "_UMCBL"
}

// toVenueSymbol converts a unified symbol like BTCUSDT into the BitGet
// contract name BTCUSDT_UMCBL. Symbols already carrying a product suffix
// pass through unchanged.
func (c *client) toVenueSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	if s == "" {
		return ""
	}
	if strings.Contains(s, "_") {
		return s
	}
	return s + c.symbolSuffix()
}

func fromVenueSymbol(symbol string) string {
	s := strings.ToUpper(symbol)
	if idx := strings.Index(s, "_"); idx >= 0 {
		return s[:idx]
	}
	return s
}

func mapOrder(o orderData) exchanges.Order {
	side, reduceOnly := orderSideFromAPI(o.Side)
	return exchanges.Order{
		ID:            o.OrderID,
		ClientOrderID: o.ClientOid,
		Symbol:        fromVenueSymbol(o.Symbol),
		Type:          orderTypeFromAPI(o.OrderType),
		Side:          side,
		Status:        orderStatusFromAPI(o.State),
		Price:         dec(o.Price),
		Quantity:      dec(o.Size),
		Filled:        dec(o.FilledQty),
		AvgFillPrice:  dec(o.PriceAvg),
		ReduceOnly:    reduceOnly,
		TimeInForce:   tifFromAPI(o.TIF),
		CreatedAt:     time.UnixMilli(parseInt64(o.CTime)),
		UpdatedAt:     time.UnixMilli(parseInt64(o.UTime)),
	}
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

func exitSide(side exchanges.PositionSide) exchanges.OrderSide {
	if side == exchanges.PositionSideShort {
		return exchanges.OrderSideBuy
	}
	return exchanges.OrderSideSell
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt64(v string) int64 {
	i, _ := strconv.ParseInt(v, 10, 64)
	return i
}

// orderSideToAPI maps a unified side onto BitGet's open/close sides: a
// reduce-only buy closes a short, a reduce-only sell closes a long.
func orderSideToAPI(side exchanges.OrderSide, reduceOnly bool) string {
	if reduceOnly {
		if side == exchanges.OrderSideBuy {
			return "close_short"
		}
		return "close_long"
	}
	if side == exchanges.OrderSideBuy {
		return "open_long"
	}
	return "open_short"
}

func orderSideFromAPI(value string) (exchanges.OrderSide, bool) {
	switch strings.ToLower(value) {
	case "open_long", "buy_single":
		return exchanges.OrderSideBuy, false
	case "open_short", "sell_single":
		return exchanges.OrderSideSell, false
	case "close_short":
		return exchanges.OrderSideBuy, true
	case "close_long":
		return exchanges.OrderSideSell, true
	default:
		return exchanges.OrderSideBuy, false
	}
}

func orderTypeToAPI(t exchanges.OrderType) string {
	if t == exchanges.OrderTypeMarket {
		return "market"
	}
	return "limit"
}

func orderTypeFromAPI(value string) exchanges.OrderType {
	if strings.EqualFold(value, "market") {
		return exchanges.OrderTypeMarket
	}
	return exchanges.OrderTypeLimit
}

func orderStatusFromAPI(state string) exchanges.OrderStatus {
	switch strings.ToLower(state) {
	case "init", "new":
		return exchanges.OrderStatusNew
	case "partially_filled":
		return exchanges.OrderStatusPartial
	case "filled":
		return exchanges.OrderStatusFilled
	case "canceled", "cancelled":
		return exchanges.OrderStatusCanceled
	default:
		return exchanges.OrderStatusUnknown
	}
}

func marginModeFromAPI(value string) exchanges.MarginMode {
	if strings.EqualFold(value, "fixed") {
		return exchanges.MarginIsolated
	}
	return exchanges.MarginCross
}

func tifToAPI(tif exchanges.TimeInForce) string {
	switch tif {
	case exchanges.TimeInForceIOC:
		return "ioc"
	case exchanges.TimeInForceFOK:
		return "fok"
	default:
		return "normal"
	}
}

func tifFromAPI(value string) exchanges.TimeInForce {
	switch strings.ToLower(value) {
	case "ioc":
		return exchanges.TimeInForceIOC
	case "fok":
		return exchanges.TimeInForceFOK
	default:
		return exchanges.TimeInForceGTC
	}
}
