package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("REBUILD_CONCURRENCY", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 4, cfg.RebuildConcurrency)
	assert.Equal(t, 2*time.Minute, cfg.StartupCheckTimeout)
	assert.Equal(t, 10*time.Second, cfg.AccountCheckTimeout)
	assert.True(t, cfg.StartupCheckEnabled)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("REBUILD_CONCURRENCY", "8")
	t.Setenv("ACCOUNT_CHECK_TIMEOUT", "250ms")
	t.Setenv("CURRENCY_PRECISION_OVERRIDES", "btc=8")
	t.Setenv("EXCHANGE_RATES", "EUR/USD=1.10")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, 8, cfg.RebuildConcurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.AccountCheckTimeout)
	assert.Equal(t, map[string]int32{"BTC": 8}, cfg.PrecisionOverrides)
	assert.True(t, decimal.RequireFromString("1.10").Equal(cfg.ExchangeRates["EUR/USD"]))
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestFromViper_Rejects(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{"postgres without url", map[string]any{"STORE_DRIVER": "postgres"}},
		{"unknown driver", map[string]any{"STORE_DRIVER": "mongo"}},
		{"bad duration", map[string]any{"STORE_DRIVER": "memory", "ACCOUNT_CHECK_TIMEOUT": "soon"}},
		{"bad rate", map[string]any{"STORE_DRIVER": "memory", "EXCHANGE_RATES": "EURUSD=1.1"}},
		{"negative rate", map[string]any{"STORE_DRIVER": "memory", "EXCHANGE_RATES": "EUR/USD=-1"}},
		{"bad precision", map[string]any{"STORE_DRIVER": "memory", "CURRENCY_PRECISION_OVERRIDES": "JPY"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := fromViper(v)
			assert.Error(t, err)
		})
	}
}

func TestParseExchangeRates(t *testing.T) {
	rates, err := ParseExchangeRates(" eur/usd=1.10 , GBP/USD=1.27,")
	require.NoError(t, err)
	assert.Len(t, rates, 2)
	assert.True(t, decimal.RequireFromString("1.27").Equal(rates["GBP/USD"]))

	empty, err := ParseExchangeRates("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}
