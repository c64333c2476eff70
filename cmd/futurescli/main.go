package main

import (
	"context"
	"flag"
	"strings"

	"github.com/shopspring/decimal"

	"unifutures/internal/adapters/config"
	"unifutures/internal/adapters/exchangefactory"
	"unifutures/internal/adapters/exchanges"
	"unifutures/pkg/logger"
)

func main() {
	// Parse flags
	exchange := flag.String("exchange", "binance", "Exchange: binance, bybit, bitget, okx")
	action := flag.String("action", "balance", "Action: account, balance, symbols, price, instrument, positions, orders, mode, calc")
	symbol := flag.String("symbol", "", "Symbol for price/instrument/orders/calc, e.g. BTCUSDT")
	amount := flag.String("amount", "100", "USDT margin amount for calc")
	leverage := flag.Int("leverage", 1, "Leverage for calc")
	flag.Parse()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	factory := exchangefactory.NewFactory(
		exchangefactory.WithHTTPTimeout(cfg.Exchange.HTTPTimeout),
		exchangefactory.WithCredentials(exchanges.ExchangeBinance, exchanges.Credentials{
			APIKey:  cfg.Binance.APIKey,
			Secret:  cfg.Binance.SecretKey,
			Testnet: cfg.Binance.Testnet,
		}),
		exchangefactory.WithCredentials(exchanges.ExchangeBybit, exchanges.Credentials{
			APIKey:  cfg.Bybit.APIKey,
			Secret:  cfg.Bybit.SecretKey,
			Testnet: cfg.Bybit.Testnet,
		}),
		exchangefactory.WithCredentials(exchanges.ExchangeBitget, exchanges.Credentials{
			APIKey:     cfg.Bitget.APIKey,
			Secret:     cfg.Bitget.SecretKey,
			Passphrase: cfg.Bitget.Passphrase,
			Testnet:    cfg.Bitget.Testnet,
		}),
		exchangefactory.WithCredentials(exchanges.ExchangeOKX, exchanges.Credentials{
			APIKey:     cfg.OKX.APIKey,
			Secret:     cfg.OKX.SecretKey,
			Passphrase: cfg.OKX.Passphrase,
			Testnet:    cfg.OKX.Testnet,
		}),
	)
	defer func() { _ = factory.Close() }()

	trader, err := factory.GetTrader(exchanges.ExchangeType(strings.ToLower(*exchange)))
	if err != nil {
		log.Fatalf("Failed to create %s client: %v", *exchange, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Exchange.HTTPTimeout*3)
	defer cancel()

	log.Infow("Running action", "exchange", trader.Name(), "action", *action, "symbol", *symbol)

	switch *action {
	case "account":
		info, err := trader.GetAccountInfo(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch account info: %v", err)
		}
		log.Infow("Account",
			"total_equity", info.TotalEquity,
			"available", info.AvailableBalance,
			"unrealized_pnl", info.UnrealizedPnL,
			"can_trade", info.CanTrade,
			"assets", len(info.Assets),
		)

	case "balance":
		balance, err := trader.GetFuturesBalance(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch balance: %v", err)
		}
		log.Infow("Futures balance",
			"asset", balance.Asset,
			"total", balance.Total,
			"available", balance.Available,
			"unrealized_pnl", balance.UnrealizedPnL,
		)

	case "symbols":
		symbols, err := trader.GetTradingSymbols(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch symbols: %v", err)
		}
		log.Infow("Trading symbols", "count", len(symbols))
		for _, s := range symbols {
			log.Info(s)
		}

	case "price":
		requireSymbol(log, *symbol)
		price, err := trader.GetCurrentPrice(ctx, *symbol)
		if err != nil {
			log.Fatalf("Failed to fetch price: %v", err)
		}
		log.Infow("Price", "symbol", *symbol, "last", price)

	case "instrument":
		requireSymbol(log, *symbol)
		inst, err := trader.GetInstrument(ctx, *symbol)
		if err != nil {
			log.Fatalf("Failed to fetch instrument: %v", err)
		}
		log.Infow("Instrument",
			"symbol", inst.Symbol,
			"base", inst.BaseAsset,
			"quote", inst.QuoteAsset,
			"tick_size", inst.TickSize,
			"step_size", inst.StepSize,
			"min_qty", inst.MinQuantity,
			"min_notional", inst.MinNotional,
			"max_leverage", inst.MaxLeverage,
			"contract_size", inst.ContractSize,
			"active", inst.Active,
		)

	case "positions":
		positions, err := trader.GetOpenPositions(ctx, *symbol)
		if err != nil {
			log.Fatalf("Failed to fetch positions: %v", err)
		}
		log.Infow("Open positions", "count", len(positions))
		for _, p := range positions {
			log.Infow("Position",
				"symbol", p.Symbol,
				"side", p.Side,
				"size", p.Size,
				"entry", p.EntryPrice,
				"mark", p.MarkPrice,
				"leverage", p.Leverage,
				"unrealized_pnl", p.UnrealizedPnL,
			)
		}

	case "orders":
		orders, err := trader.GetOpenOrders(ctx, *symbol)
		if err != nil {
			log.Fatalf("Failed to fetch open orders: %v", err)
		}
		log.Infow("Open orders", "count", len(orders))
		for _, o := range orders {
			log.Infow("Order",
				"id", o.ID,
				"symbol", o.Symbol,
				"type", o.Type,
				"side", o.Side,
				"status", o.Status,
				"price", o.Price,
				"quantity", o.Quantity,
			)
		}

	case "mode":
		mode, err := trader.GetPositionMode(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch position mode: %v", err)
		}
		log.Infow("Position mode", "mode", mode)

	case "calc":
		requireSymbol(log, *symbol)
		usdt, err := decimal.NewFromString(*amount)
		if err != nil {
			log.Fatalf("Invalid -amount %q: %v", *amount, err)
		}
		quantity, err := trader.CalculateQuantityFromUSDT(ctx, *symbol, usdt, *leverage)
		if err != nil {
			log.Fatalf("Failed to calculate quantity: %v", err)
		}
		log.Infow("Quantity",
			"symbol", *symbol,
			"amount_usdt", usdt,
			"leverage", *leverage,
			"quantity", quantity,
		)

	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

func requireSymbol(log *logger.Logger, symbol string) {
	if symbol == "" {
		log.Fatal("-symbol is required for this action")
	}
}
