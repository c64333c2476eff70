package exchanges

// ExchangeType identifies a supported venue.
type ExchangeType string

const (
	ExchangeBinance ExchangeType = "binance"
	ExchangeBybit   ExchangeType = "bybit"
	ExchangeBitget  ExchangeType = "bitget"
	ExchangeOKX     ExchangeType = "okx"
)

// Credentials holds venue API credentials. Passphrase is only required
// by venues that issue one (BitGet, OKX).
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
	Testnet    bool
}

// Configured reports whether the key/secret pair is present.
func (c Credentials) Configured() bool {
	return c.APIKey != "" && c.Secret != ""
}

// Factory creates and pools futures adapters per venue.
type Factory interface {
	// GetTrader returns the pooled adapter for a venue, constructing it
	// from the factory credentials on first use.
	GetTrader(exchange ExchangeType) (FuturesTrader, error)

	// CreateTrader builds a dedicated adapter from explicit credentials,
	// bypassing the pool.
	CreateTrader(exchange ExchangeType, creds Credentials) (FuturesTrader, error)

	// ListExchanges enumerates the venues this factory can construct.
	ListExchanges() []ExchangeType

	// Close releases every pooled adapter.
	Close() error
}
