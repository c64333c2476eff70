package exchangefactory

import (
	"net/http"
	"sync"
	"time"

	"unifutures/internal/adapters/exchanges"
	"unifutures/internal/adapters/exchanges/binance"
	"unifutures/internal/adapters/exchanges/bitget"
	"unifutures/internal/adapters/exchanges/bybit"
	"unifutures/internal/adapters/exchanges/okx"
	"unifutures/pkg/errors"
)

// Option customizes factory behavior.
type Option func(*factory)

// WithCredentials configures the pooled adapter credentials for a venue.
func WithCredentials(exchange exchanges.ExchangeType, creds exchanges.Credentials) Option {
	return func(f *factory) {
		f.creds[exchange] = creds
	}
}

// WithHTTPTimeout bounds every REST call made by adapters the factory
// constructs.
func WithHTTPTimeout(timeout time.Duration) Option {
	return func(f *factory) {
		if timeout > 0 {
			f.httpTimeout = timeout
		}
	}
}

// NewFactory creates a pooled exchange factory implementation.
func NewFactory(opts ...Option) exchanges.Factory {
	f := &factory{
		clients:     make(map[exchanges.ExchangeType]exchanges.FuturesTrader),
		creds:       make(map[exchanges.ExchangeType]exchanges.Credentials),
		httpTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

type factory struct {
	mu      sync.RWMutex
	clients map[exchanges.ExchangeType]exchanges.FuturesTrader
	creds   map[exchanges.ExchangeType]exchanges.Credentials

	httpTimeout time.Duration
}

func (f *factory) GetTrader(exchange exchanges.ExchangeType) (exchanges.FuturesTrader, error) {
	f.mu.RLock()
	if client, ok := f.clients[exchange]; ok {
		f.mu.RUnlock()
		return client, nil
	}
	f.mu.RUnlock()

	creds, ok := f.creds[exchange]
	if !ok || !creds.Configured() {
		return nil, errors.Wrapf(exchanges.ErrMissingCredentials, "no credentials configured for %s", exchange)
	}

	client, err := f.instantiate(exchange, creds)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.clients[exchange]; ok {
		// Lost the construction race; keep the pooled client.
		_ = client.Close()
		return existing, nil
	}
	f.clients[exchange] = client
	return client, nil
}

func (f *factory) CreateTrader(exchange exchanges.ExchangeType, creds exchanges.Credentials) (exchanges.FuturesTrader, error) {
	return f.instantiate(exchange, creds)
}

func (f *factory) ListExchanges() []exchanges.ExchangeType {
	return []exchanges.ExchangeType{
		exchanges.ExchangeBinance,
		exchanges.ExchangeBybit,
		exchanges.ExchangeBitget,
		exchanges.ExchangeOKX,
	}
}

func (f *factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var merr errors.MultiError
	for exchange, client := range f.clients {
		merr.Add(client.Close())
		delete(f.clients, exchange)
	}
	return merr.ToError()
}

func (f *factory) instantiate(exchange exchanges.ExchangeType, creds exchanges.Credentials) (exchanges.FuturesTrader, error) {
	switch exchange {
	case exchanges.ExchangeBinance:
		return binance.NewClient(binance.Config{
			APIKey:     creds.APIKey,
			SecretKey:  creds.Secret,
			Testnet:    creds.Testnet,
			HTTPClient: &http.Client{Timeout: f.httpTimeout},
		})
	case exchanges.ExchangeBybit:
		return bybit.NewClient(bybit.Config{
			APIKey:     creds.APIKey,
			SecretKey:  creds.Secret,
			Testnet:    creds.Testnet,
			HTTPClient: &http.Client{Timeout: f.httpTimeout},
		})
	case exchanges.ExchangeBitget:
		return bitget.NewClient(bitget.Config{
			APIKey:     creds.APIKey,
			SecretKey:  creds.Secret,
			Passphrase: creds.Passphrase,
			Testnet:    creds.Testnet,
			HTTPClient: &http.Client{Timeout: f.httpTimeout},
		})
	case exchanges.ExchangeOKX:
		return okx.NewClient(okx.Config{
			APIKey:     creds.APIKey,
			SecretKey:  creds.Secret,
			Passphrase: creds.Passphrase,
			Testnet:    creds.Testnet,
			HTTPClient: &http.Client{Timeout: f.httpTimeout},
		})
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported exchange: %s", exchange)
	}
}
