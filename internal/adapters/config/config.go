package config

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"unifutures/pkg/errors"
)

type Config struct {
	App      AppConfig
	Exchange ExchangeConfig
	Binance  BinanceConfig
	Bybit    BybitConfig
	Bitget   BitgetConfig
	OKX      OKXConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"unifutures"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ExchangeConfig struct {
	HTTPTimeout time.Duration `envconfig:"EXCHANGE_HTTP_TIMEOUT" default:"10s"`
}

type BinanceConfig struct {
	APIKey    string `envconfig:"BINANCE_API_KEY"`
	SecretKey string `envconfig:"BINANCE_SECRET_KEY"`
	Testnet   bool   `envconfig:"BINANCE_TESTNET" default:"false"`
}

type BybitConfig struct {
	APIKey    string `envconfig:"BYBIT_API_KEY"`
	SecretKey string `envconfig:"BYBIT_SECRET_KEY"`
	Testnet   bool   `envconfig:"BYBIT_TESTNET" default:"false"`
}

type BitgetConfig struct {
	APIKey     string `envconfig:"BITGET_API_KEY"`
	SecretKey  string `envconfig:"BITGET_SECRET_KEY"`
	Passphrase string `envconfig:"BITGET_PASSPHRASE"`
	Testnet    bool   `envconfig:"BITGET_TESTNET" default:"false"`
}

type OKXConfig struct {
	APIKey     string `envconfig:"OKX_API_KEY"`
	SecretKey  string `envconfig:"OKX_SECRET_KEY"`
	Passphrase string `envconfig:"OKX_PASSPHRASE"`
	Testnet    bool   `envconfig:"OKX_TESTNET" default:"false"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
