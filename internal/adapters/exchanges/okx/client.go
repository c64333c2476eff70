package okx

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
	exchangeName      = "okx"
	productionBaseURL = "https://www.okx.com"
	settlementAsset   = "USDT"
	instTypeSwap      = "SWAP"
	defaultTimeout    = 10 * time.Second

	defaultMaxLeverage = 20

	// cancel-algos accepts at most ten orders per call.
	cancelAlgoBatchSize = 10
)

// Config configures the OKX USDT-settled swap adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	Testnet    bool

	// BaseURL overrides the REST endpoint, mainly for tests. Demo
	// trading shares the production domain and is selected with the
	// x-simulated-trading header instead.
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient constructs a new OKX adapter. OKX sizes swap orders in
// contracts; quantities returned by CalculateQuantityFromUSDT and carried
// on positions are contract counts, with the base-asset value of one
// contract exposed through Instrument.ContractSize.
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

	mu           sync.RWMutex
	positionMode exchanges.PositionMode

	closeOnce sync.Once
}

func (c *client) Name() string {
	return exchangeName
}

func (c *client) GetAccountInfo(ctx context.Context) (*exchanges.AccountInfo, error) {
	var data []struct {
		TotalEq string `json:"totalEq"`
		Upl     string `json:"upl"`
		Details []struct {
			Ccy      string `json:"ccy"`
			Eq       string `json:"eq"`
			CashBal  string `json:"cashBal"`
			AvailEq  string `json:"availEq"`
			AvailBal string `json:"availBal"`
			Upl      string `json:"upl"`
		} `json:"details"`
	}
	if err := c.request(ctx, "GetAccountInfo", http.MethodGet, "/api/v5/account/balance", nil, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, exchanges.NewExchangeError(exchangeName, "empty", "balance response has no accounts")
	}

	entry := data[0]
	info := &exchanges.AccountInfo{
		TotalEquity:   dec(entry.TotalEq),
		UnrealizedPnL: dec(entry.Upl),
		CanTrade:      true,
		UpdatedAt:     time.Now(),
	}

	for _, d := range entry.Details {
		balance := dec(d.CashBal)
		available := dec(d.AvailEq)
		if available.IsZero() {
			available = dec(d.AvailBal)
		}
		if d.Ccy == settlementAsset {
			info.AvailableBalance = available
		}
		if balance.IsZero() && dec(d.Eq).IsZero() {
			continue
		}
		info.Assets = append(info.Assets, exchanges.AssetBalance{
			Asset:         d.Ccy,
			Balance:       balance,
			Available:     available,
			UnrealizedPnL: dec(d.Upl),
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
	balance, err := c.GetFuturesBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return balance.Available, nil
}

func (c *client) GetTradingSymbols(ctx context.Context) ([]string, error) {
	params := url.Values{"instType": []string{instTypeSwap}}
	var data []instrumentData
	if err := c.public(ctx, "GetTradingSymbols", "/api/v5/public/instruments", params, &data); err != nil {
		return nil, err
	}

	var symbols []string
	for _, item := range data {
		if item.State != "live" || item.CtType != "linear" || item.SettleCcy != settlementAsset {
			continue
		}
		symbols = append(symbols, fromInstID(item.InstID))
	}
	return symbols, nil
}

func (c *client) GetInstrument(ctx context.Context, symbol string) (*exchanges.Instrument, error) {
	instID := toInstID(symbol)
	if instID == "" {
		return nil, exchanges.ErrInvalidInstrument
	}

	params := url.Values{
		"instType": []string{instTypeSwap},
		"instId":   []string{instID},
	}
	var data []instrumentData
	if err := c.public(ctx, "GetInstrument", "/api/v5/public/instruments", params, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, exchanges.ErrInvalidInstrument
	}

	item := data[0]
	base, quote := splitUnderlying(item.Uly)
	tickSize := dec(item.TickSz)
	lotSize := dec(item.LotSz)

	return &exchanges.Instrument{
		Symbol:            fromInstID(item.InstID),
		BaseAsset:         base,
		QuoteAsset:        quote,
		PricePrecision:    precisionFromStep(tickSize),
		QuantityPrecision: precisionFromStep(lotSize),
		TickSize:          tickSize,
		StepSize:          lotSize,
		MinQuantity:       dec(item.MinSz),
		MaxQuantity:       dec(item.MaxLmtSz),
		MaxLeverage:       int(dec(item.Lever).IntPart()),
		ContractSize:      dec(item.CtVal),
		Active:            item.State == "live",
	}, nil
}

func (c *client) GetCurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{"instId": []string{toInstID(symbol)}}
	var data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
	}
	if err := c.public(ctx, "GetCurrentPrice", "/api/v5/market/ticker", params, &data); err != nil {
		return decimal.Zero, err
	}
	if len(data) == 0 {
		return decimal.Zero, exchanges.ErrInvalidInstrument
	}
	return dec(data[0].Last), nil
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

func (c *client) GetPositionMode(ctx context.Context) (exchanges.PositionMode, error) {
	c.mu.RLock()
	if c.positionMode != "" {
		mode := c.positionMode
		c.mu.RUnlock()
		return mode, nil
	}
	c.mu.RUnlock()

	var data []struct {
		PosMode string `json:"posMode"`
		AcctLv  string `json:"acctLv"`
	}
	if err := c.request(ctx, "GetPositionMode", http.MethodGet, "/api/v5/account/config", nil, nil, &data); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", exchanges.NewExchangeError(exchangeName, "empty", "account config response is empty")
	}

	mode := exchanges.PositionModeOneWay
	if data[0].PosMode == "long_short_mode" {
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
	payload := map[string]string{
		"instId":  toInstID(symbol),
		"lever":   strconv.Itoa(leverage),
		"mgnMode": "cross",
	}
	return c.request(ctx, "ChangeLeverage", http.MethodPost, "/api/v5/account/set-leverage", nil, payload, nil)
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
	if inst.ContractSize.GreaterThan(decimal.Zero) {
		quantity = quantity.Div(inst.ContractSize)
	}
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

	mode, err := c.GetPositionMode(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{
		"instId":  toInstID(req.Symbol),
		"tdMode":  "cross",
		"side":    string(req.Side),
		"ordType": ordTypeToAPI(req.Type, req.TimeInForce),
		"sz":      req.Quantity.String(),
	}
	if req.Type == exchanges.OrderTypeLimit {
		payload["px"] = req.Price.String()
	}
	if mode == exchanges.PositionModeHedge {
		payload["posSide"] = string(entryPositionSide(req.Side, req.ReduceOnly))
	} else if req.ReduceOnly {
		payload["reduceOnly"] = "true"
	}
	if req.ClientOrderID != "" {
		payload["clOrdId"] = req.ClientOrderID
	} else if req.Tag != "" {
		payload["clOrdId"] = req.Tag
	}

	var data []struct {
		OrdID   string `json:"ordId"`
		ClOrdID string `json:"clOrdId"`
		SCode   string `json:"sCode"`
		SMsg    string `json:"sMsg"`
	}
	if err := c.request(ctx, "CreateOrder", http.MethodPost, "/api/v5/trade/order", nil, payload, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, exchanges.NewExchangeError(exchangeName, "empty", "order response is empty")
	}
	if data[0].SCode != "" && data[0].SCode != "0" {
		return nil, exchanges.NewExchangeError(exchangeName, data[0].SCode, data[0].SMsg)
	}

	now := time.Now()
	return &exchanges.Order{
		ID:            data[0].OrdID,
		ClientOrderID: data[0].ClOrdID,
		Symbol:        fromInstID(toInstID(req.Symbol)),
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
		"instId": toInstID(symbol),
		"ordId":  orderID,
	}
	return c.request(ctx, "CancelOrder", http.MethodPost, "/api/v5/trade/cancel-order", nil, payload, nil)
}

func (c *client) GetOpenOrders(ctx context.Context, symbol string) ([]exchanges.Order, error) {
	params := url.Values{"instType": []string{instTypeSwap}}
	if symbol != "" {
		params.Set("instId", toInstID(symbol))
	}

	var data []orderData
	if err := c.request(ctx, "GetOpenOrders", http.MethodGet, "/api/v5/trade/orders-pending", params, nil, &data); err != nil {
		return nil, err
	}

	orders := make([]exchanges.Order, 0, len(data))
	for _, o := range data {
		orders = append(orders, mapOrder(o))
	}
	return orders, nil
}

func (c *client) GetOrderHistory(ctx context.Context, symbol string, limit int) ([]exchanges.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	params := url.Values{
		"instType": []string{instTypeSwap},
		"limit":    []string{strconv.Itoa(limit)},
	}
	if symbol != "" {
		params.Set("instId", toInstID(symbol))
	}

	var data []orderData
	if err := c.request(ctx, "GetOrderHistory", http.MethodGet, "/api/v5/trade/orders-history", params, nil, &data); err != nil {
		return nil, err
	}

	orders := make([]exchanges.Order, 0, len(data))
	for _, o := range data {
		orders = append(orders, mapOrder(o))
	}
	return orders, nil
}

func (c *client) GetOpenPositions(ctx context.Context, symbol string) ([]exchanges.Position, error) {
	params := url.Values{"instType": []string{instTypeSwap}}
	if symbol != "" {
		params.Set("instId", toInstID(symbol))
	}
	var data []struct {
		InstID      string `json:"instId"`
		PosSide     string `json:"posSide"`
		Pos         string `json:"pos"`
		AvgPx       string `json:"avgPx"`
		MarkPx      string `json:"markPx"`
		LiqPx       string `json:"liqPx"`
		Lever       string `json:"lever"`
		MgnMode     string `json:"mgnMode"`
		Upl         string `json:"upl"`
		RealizedPnl string `json:"realizedPnl"`
		UTime       string `json:"uTime"`
	}
	if err := c.request(ctx, "GetOpenPositions", http.MethodGet, "/api/v5/account/positions", params, nil, &data); err != nil {
		return nil, err
	}

	positions := make([]exchanges.Position, 0, len(data))
	for _, p := range data {
		size := dec(p.Pos)
		if size.IsZero() {
			continue
		}

		side := positionSideFromAPI(p.PosSide)
		if side == exchanges.PositionSideBoth {
			side = exchanges.PositionSideLong
			if size.IsNegative() {
				side = exchanges.PositionSideShort
			}
		}

		positions = append(positions, exchanges.Position{
			Symbol:           fromInstID(p.InstID),
			Side:             side,
			Size:             size.Abs(),
			EntryPrice:       dec(p.AvgPx),
			MarkPrice:        dec(p.MarkPx),
			LiquidationPrice: dec(p.LiqPx),
			MarginMode:       marginModeFromAPI(p.MgnMode),
			Leverage:         dec(p.Lever),
			UnrealizedPnL:    dec(p.Upl),
			RealizedPnL:      dec(p.RealizedPnl),
			UpdatedAt:        time.UnixMilli(parseInt64(p.UTime)),
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

	size := req.Quantity
	if size.LessThanOrEqual(decimal.Zero) {
		positionSize, err := c.openPositionSize(ctx, req.Symbol, req.PositionSide)
		if err != nil {
			return nil, err
		}
		size = positionSize
	}

	payload, err := c.algoPayload(ctx, req.Symbol, req.PositionSide, size)
	if err != nil {
		return nil, err
	}
	payload["slTriggerPx"] = req.StopPrice.String()
	payload["slOrdPx"] = "-1" // trigger a market order

	algoID, err := c.placeAlgo(ctx, "CreateStopLoss", payload)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &exchanges.Order{
		ID:           algoID,
		Symbol:       fromInstID(toInstID(req.Symbol)),
		Type:         exchanges.OrderTypeStopMarket,
		Side:         exitSide(req.PositionSide),
		PositionSide: req.PositionSide,
		Status:       exchanges.OrderStatusOpen,
		StopPrice:    req.StopPrice,
		Quantity:     size,
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

	// The final target carries the remainder so rounding never drops
	// part of the requested quantity.
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

		payload, err := c.algoPayload(ctx, req.Symbol, req.PositionSide, size)
		if err != nil {
			return orders, err
		}
		payload["tpTriggerPx"] = price.String()
		payload["tpOrdPx"] = "-1" // trigger a market order

		algoID, err := c.placeAlgo(ctx, "CreateTakeProfits", payload)
		if err != nil {
			return orders, err
		}

		now := time.Now()
		orders = append(orders, exchanges.Order{
			ID:           algoID,
			Symbol:       fromInstID(toInstID(req.Symbol)),
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
	return c.cancelAlgosOfKind(ctx, symbol, true)
}

func (c *client) CancelTakeProfitOrders(ctx context.Context, symbol string) error {
	return c.cancelAlgosOfKind(ctx, symbol, false)
}

func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.cfg.HTTPClient.CloseIdleConnections()
	})
	return nil
}

type algoData struct {
	AlgoID      string `json:"algoId"`
	InstID      string `json:"instId"`
	SlTriggerPx string `json:"slTriggerPx"`
	TpTriggerPx string `json:"tpTriggerPx"`
	State       string `json:"state"`
}

func (c *client) cancelAlgosOfKind(ctx context.Context, symbol string, stopLoss bool) error {
	if symbol == "" {
		return exchanges.ErrInvalidRequest
	}

	params := url.Values{
		"instType": []string{instTypeSwap},
		"ordType":  []string{"conditional"},
		"instId":   []string{toInstID(symbol)},
	}
	var data []algoData
	if err := c.request(ctx, "GetAlgoOrders", http.MethodGet, "/api/v5/trade/orders-algo-pending", params, nil, &data); err != nil {
		return err
	}

	targets := data[:0]
	for _, algo := range data {
		isStopLoss := algo.SlTriggerPx != "" && dec(algo.SlTriggerPx).GreaterThan(decimal.Zero)
		if isStopLoss == stopLoss {
			targets = append(targets, algo)
		}
	}

	var merr pkgerrors.MultiError
	for start := 0; start < len(targets); start += cancelAlgoBatchSize {
		end := start + cancelAlgoBatchSize
		if end > len(targets) {
			end = len(targets)
		}

		payload := make([]map[string]string, 0, end-start)
		for _, algo := range targets[start:end] {
			payload = append(payload, map[string]string{
				"algoId": algo.AlgoID,
				"instId": algo.InstID,
			})
		}
		merr.Add(c.request(ctx, "CancelAlgoOrders", http.MethodPost, "/api/v5/trade/cancel-algos", nil, payload, nil))
	}
	return merr.ToError()
}

// algoPayload assembles the shared fields of a conditional algo order.
func (c *client) algoPayload(ctx context.Context, symbol string, side exchanges.PositionSide, size decimal.Decimal) (map[string]string, error) {
	mode, err := c.GetPositionMode(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]string{
		"instId":  toInstID(symbol),
		"tdMode":  "cross",
		"side":    string(exitSide(side)),
		"ordType": "conditional",
		"sz":      size.String(),
	}
	if mode == exchanges.PositionModeHedge {
		payload["posSide"] = string(side)
	} else {
		payload["reduceOnly"] = "true"
	}
	return payload, nil
}

func (c *client) placeAlgo(ctx context.Context, op string, payload map[string]string) (string, error) {
	var data []struct {
		AlgoID string `json:"algoId"`
		SCode  string `json:"sCode"`
		SMsg   string `json:"sMsg"`
	}
	if err := c.request(ctx, op, http.MethodPost, "/api/v5/trade/order-algo", nil, payload, &data); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", exchanges.NewExchangeError(exchangeName, "empty", "algo order response is empty")
	}
	if data[0].SCode != "" && data[0].SCode != "0" {
		return "", exchanges.NewExchangeError(exchangeName, data[0].SCode, data[0].SMsg)
	}
	return data[0].AlgoID, nil
}

func (c *client) openPositionSize(ctx context.Context, symbol string, side exchanges.PositionSide) (decimal.Decimal, error) {
	positions, err := c.GetOpenPositions(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	for _, p := range positions {
		if p.Side == side {
			return p.Size, nil
		}
	}
	return decimal.Zero, pkgerrors.Wrapf(pkgerrors.ErrNotFound, "no open %s position for %s", side, symbol)
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
	if c.cfg.Testnet {
		req.Header.Set("x-simulated-trading", "1")
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
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	prehash := timestamp + strings.ToUpper(method) + requestPath + bodyStr

	req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", sign(prehash, c.cfg.SecretKey))
	req.Header.Set("OK-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	if c.cfg.Testnet {
		req.Header.Set("x-simulated-trading", "1")
	}

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
		if json.Unmarshal(body, &env) == nil && env.Code != "" && env.Code != "0" {
			return envelopeError(env)
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
	if env.Code != "0" {
		return envelopeError(env)
	}
	if target == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return exchanges.NewCommunicationError(exchangeName, op, err)
	}
	return nil
}

// envelopeError prefers the per-item sCode carried by trade endpoints over
// the generic envelope code.
func envelopeError(env envelope) error {
	var items []struct {
		SCode string `json:"sCode"`
		SMsg  string `json:"sMsg"`
	}
	if len(env.Data) > 0 && json.Unmarshal(env.Data, &items) == nil {
		for _, item := range items {
			if item.SCode != "" && item.SCode != "0" {
				return exchanges.NewExchangeError(exchangeName, item.SCode, item.SMsg)
			}
		}
	}
	return exchanges.NewExchangeError(exchangeName, env.Code, env.Msg)
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
	// Demo trading shares the production domain; the paper flag travels
	// in the x-simulated-trading header.
	return productionBaseURL
}

type instrumentData struct {
	InstID    string `json:"instId"`
	Uly       string `json:"uly"`
	CtType    string `json:"ctType"`
	SettleCcy string `json:"settleCcy"`
	CtVal     string `json:"ctVal"`
	CtValCcy  string `json:"ctValCcy"`
	LotSz     string `json:"lotSz"`
	MinSz     string `json:"minSz"`
	TickSz    string `json:"tickSz"`
	MaxLmtSz  string `json:"maxLmtSz"`
	Lever     string `json:"lever"`
	State     string `json:"state"`
}

type orderData struct {
	InstID     string `json:"instId"`
	OrdID      string `json:"ordId"`
	ClOrdID    string `json:"clOrdId"`
	Side       string `json:"side"`
	PosSide    string `json:"posSide"`
	OrdType    string `json:"ordType"`
	Sz         string `json:"sz"`
	Px         string `json:"px"`
	AvgPx      string `json:"avgPx"`
	State      string `json:"state"`
	AccFillSz  string `json:"accFillSz"`
	SlTrigger  string `json:"slTriggerPx"`
	TpTrigger  string `json:"tpTriggerPx"`
	ReduceOnly string `json:"reduceOnly"`
	CTime      string `json:"cTime"`
	UTime      string `json:"uTime"`
}

func mapOrder(o orderData) exchanges.Order {
	orderType, tif := ordTypeFromAPI(o.OrdType)
	stopPrice := dec(o.SlTrigger)
	if stopPrice.IsZero() {
		stopPrice = dec(o.TpTrigger)
	}
	return exchanges.Order{
		ID:            o.OrdID,
		ClientOrderID: o.ClOrdID,
		Symbol:        fromInstID(o.InstID),
		Type:          orderType,
		Side:          orderSideFromAPI(o.Side),
		PositionSide:  positionSideFromAPI(o.PosSide),
		Status:        stateToOrderStatus(o.State),
		Price:         dec(o.Px),
		StopPrice:     stopPrice,
		Quantity:      dec(o.Sz),
		Filled:        dec(o.AccFillSz),
		AvgFillPrice:  dec(o.AvgPx),
		ReduceOnly:    o.ReduceOnly == "true",
		TimeInForce:   tif,
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

func entryPositionSide(side exchanges.OrderSide, reduceOnly bool) exchanges.PositionSide {
	long := side == exchanges.OrderSideBuy
	if reduceOnly {
		long = !long
	}
	if long {
		return exchanges.PositionSideLong
	}
	return exchanges.PositionSideShort
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

func precisionFromStep(step decimal.Decimal) int {
	if exp := step.Exponent(); exp < 0 {
		return int(-exp)
	}
	return 0
}

// toInstID converts a unified symbol like BTCUSDT into the OKX swap
// instrument id BTC-USDT-SWAP. Symbols already carrying dashes pass
// through with the -SWAP suffix appended when missing.
func toInstID(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	s = strings.ReplaceAll(s, "/", "-")
	if s == "" {
		return ""
	}
	if strings.HasSuffix(s, "-SWAP") {
		return s
	}
	if strings.Contains(s, "-") {
		return s + "-SWAP"
	}
	if base, ok := strings.CutSuffix(s, settlementAsset); ok && base != "" {
		return base + "-" + settlementAsset + "-SWAP"
	}
	return s
}

func fromInstID(instID string) string {
	s := strings.TrimSuffix(strings.ToUpper(instID), "-SWAP")
	return strings.ReplaceAll(s, "-", "")
}

func splitUnderlying(uly string) (string, string) {
	parts := strings.SplitN(uly, "-", 2)
	if len(parts) != 2 {
		return uly, ""
	}
	return parts[0], parts[1]
}

func orderSideFromAPI(value string) exchanges.OrderSide {
	if strings.EqualFold(value, "sell") {
		return exchanges.OrderSideSell
	}
	return exchanges.OrderSideBuy
}

func positionSideFromAPI(value string) exchanges.PositionSide {
	switch strings.ToLower(value) {
	case "long":
		return exchanges.PositionSideLong
	case "short":
		return exchanges.PositionSideShort
	default:
		return exchanges.PositionSideBoth
	}
}

func marginModeFromAPI(value string) exchanges.MarginMode {
	if strings.EqualFold(value, "isolated") {
		return exchanges.MarginIsolated
	}
	return exchanges.MarginCross
}

// ordTypeToAPI folds the time-in-force into the OKX order type the way the
// venue encodes it.
func ordTypeToAPI(t exchanges.OrderType, tif exchanges.TimeInForce) string {
	if t == exchanges.OrderTypeMarket {
		return "market"
	}
	switch tif {
	case exchanges.TimeInForceIOC:
		return "ioc"
	case exchanges.TimeInForceFOK:
		return "fok"
	default:
		return "limit"
	}
}

func ordTypeFromAPI(value string) (exchanges.OrderType, exchanges.TimeInForce) {
	switch strings.ToLower(value) {
	case "market":
		return exchanges.OrderTypeMarket, exchanges.TimeInForceGTC
	case "ioc", "optimal_limit_ioc":
		return exchanges.OrderTypeLimit, exchanges.TimeInForceIOC
	case "fok":
		return exchanges.OrderTypeLimit, exchanges.TimeInForceFOK
	case "conditional":
		return exchanges.OrderTypeStopMarket, exchanges.TimeInForceGTC
	default:
		return exchanges.OrderTypeLimit, exchanges.TimeInForceGTC
	}
}

func stateToOrderStatus(state string) exchanges.OrderStatus {
	switch state {
	case "live":
		return exchanges.OrderStatusOpen
	case "partially_filled":
		return exchanges.OrderStatusPartial
	case "filled":
		return exchanges.OrderStatusFilled
	case "canceled", "mmp_canceled":
		return exchanges.OrderStatusCanceled
	default:
		return exchanges.OrderStatusUnknown
	}
}
