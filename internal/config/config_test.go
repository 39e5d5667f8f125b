package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, defaultAppHTTPAddr, cfg.App.HTTPAddr)
	assert.Equal(t, []string{"*"}, cfg.App.CORSOrigins)
	assert.Equal(t, "text", cfg.App.LogFormat)
	assert.Equal(t, defaultPriceBaseURL, cfg.Market.PriceBaseURL)
	assert.Equal(t, "binance", cfg.Market.Exchange)
	assert.Equal(t, defaultExchangeBaseURL, cfg.Market.ExchangeBaseURL)
	assert.Equal(t, defaultPriceCacheTTL, cfg.Market.PriceCacheTTLSeconds)
	assert.Equal(t, defaultCandles, cfg.Market.DefaultCandles)
	assert.Equal(t, "sqlite", cfg.Follow.Backend)
	assert.Equal(t, defaultBacktestLatency, cfg.Backtest.LatencyMillis)
	assert.Equal(t, 15, cfg.Backtest.TradeSample)
	assert.True(t, cfg.AI.Enabled)
	assert.False(t, cfg.Notify.Telegram.Enabled)
	assert.Equal(t, defaultTelegramAPIURL, cfg.Notify.Telegram.APIURL)
}

func TestLoadKeepsExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
app:
  http_addr: ":8080"
market:
  price_cache_ttl_seconds: 0
  price_refresh_seconds: 0
  exchange_base_url: "http://127.0.0.1:9/"
backtest:
  latency_ms: 0
ai:
  enabled: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, 0, cfg.Market.PriceCacheTTLSeconds)
	assert.Equal(t, 0, cfg.Market.PriceRefreshSeconds)
	assert.Equal(t, "http://127.0.0.1:9", cfg.Market.ExchangeBaseURL)
	assert.Equal(t, 0, cfg.Backtest.LatencyMillis)
	assert.False(t, cfg.AI.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7001")
	t.Setenv("AI_API_KEY", "secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "bot-token")
	cfg, err := Load(writeConfig(t, "app:\n  env: test\n"))
	require.NoError(t, err)
	assert.Equal(t, "bot-token", cfg.Notify.Telegram.BotToken)
	assert.Equal(t, ":7001", cfg.App.HTTPAddr)
	assert.Equal(t, "secret", cfg.AI.APIKey)
	assert.Equal(t, "test", cfg.App.Env)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"backend":  "follow:\n  backend: etcd\n",
		"exchange": "market:\n  exchange: okx\n",
		"url":      "market:\n  price_base_url: not-a-url\n",
		"candles":  "market:\n  default_candles: 500\n  max_candles: 100\n",
		"negative": "backtest:\n  latency_ms: -1\n",
		"logfmt":   "app:\n  log_format: xml\n",
	}
	for name, body := range cases {
		_, err := Load(writeConfig(t, body))
		assert.Error(t, err, name)
	}
}

func TestLoadGateExchangeDefaultsBaseURL(t *testing.T) {
	cfg, err := Load(writeConfig(t, "market:\n  exchange: Gate\n"))
	require.NoError(t, err)
	assert.Equal(t, "gate", cfg.Market.Exchange)
	assert.Equal(t, defaultGateBaseURL, cfg.Market.ExchangeBaseURL)
}
