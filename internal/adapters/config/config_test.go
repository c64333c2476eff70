package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unset clears a variable for the test while letting t.Setenv restore
// whatever the host environment had.
func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	unset(t, "APP_NAME", "APP_ENV", "LOG_LEVEL", "DEBUG", "EXCHANGE_HTTP_TIMEOUT")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "unifutures", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.False(t, cfg.App.Debug)
	assert.Equal(t, 10*time.Second, cfg.Exchange.HTTPTimeout)
}

func TestLoad_ReadsExchangeCredentials(t *testing.T) {
	t.Setenv("EXCHANGE_HTTP_TIMEOUT", "3s")
	t.Setenv("BINANCE_API_KEY", "bn-key")
	t.Setenv("BINANCE_SECRET_KEY", "bn-secret")
	t.Setenv("BINANCE_TESTNET", "true")
	t.Setenv("BYBIT_API_KEY", "bb-key")
	t.Setenv("BYBIT_SECRET_KEY", "bb-secret")
	t.Setenv("BITGET_API_KEY", "bg-key")
	t.Setenv("BITGET_SECRET_KEY", "bg-secret")
	t.Setenv("BITGET_PASSPHRASE", "bg-pass")
	t.Setenv("OKX_API_KEY", "ok-key")
	t.Setenv("OKX_SECRET_KEY", "ok-secret")
	t.Setenv("OKX_PASSPHRASE", "ok-pass")
	t.Setenv("OKX_TESTNET", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Exchange.HTTPTimeout)
	assert.Equal(t, "bn-key", cfg.Binance.APIKey)
	assert.Equal(t, "bn-secret", cfg.Binance.SecretKey)
	assert.True(t, cfg.Binance.Testnet)
	assert.Equal(t, "bb-key", cfg.Bybit.APIKey)
	assert.Equal(t, "bg-pass", cfg.Bitget.Passphrase)
	assert.Equal(t, "ok-pass", cfg.OKX.Passphrase)
	assert.True(t, cfg.OKX.Testnet)
	assert.False(t, cfg.Bitget.Testnet)
}

func TestLoad_RejectsMalformedTimeout(t *testing.T) {
	t.Setenv("EXCHANGE_HTTP_TIMEOUT", "not-a-duration")

	_, err := Load()
	require.Error(t, err)
}
