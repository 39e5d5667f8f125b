package config

import (
	"strings"
)

const (
	defaultAppEnv              = "dev"
	defaultAppLogLevel         = "info"
	defaultAppLogFormat        = "text"
	defaultAppHTTPAddr         = ":5000"
	defaultPriceBaseURL        = "https://api.coingecko.com/api/v3"
	defaultExchange            = "binance"
	defaultExchangeBaseURL     = "https://api.binance.com"
	defaultGateBaseURL         = "https://api.gateio.ws/api/v4"
	defaultPriceTimeout        = 5
	defaultExchangeTimeout     = 8
	defaultPriceCacheTTL       = 30
	defaultPriceRefresh        = 60
	defaultCandles             = 100
	defaultMaxCandles          = 1000
	defaultBreakerThreshold    = 3
	defaultBreakerCooldown     = 60
	defaultStorePath           = "data/cryptocandles.db"
	defaultSeedSignals         = 50
	defaultFollowBackend       = "sqlite"
	defaultRedisAddr           = "localhost:6379"
	defaultRedisKeyPrefix      = "cryptocandles:follows:"
	defaultBacktestLatency     = 2000
	defaultBacktestTradeSample = 15
	defaultAIAPIURL            = "https://generativelanguage.googleapis.com/v1beta/openai"
	defaultAIModel             = "gemini-2.5-flash"
	defaultAITimeout           = 60
	defaultAIMaxImageBytes     = 8 << 20
	defaultTelegramAPIURL      = "https://api.telegram.org"
)

func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Market.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Follow.applyDefaults(keys)
	c.Backtest.applyDefaults(keys)
	c.AI.applyDefaults(keys)
	c.Notify.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		fieldDefault{
			key:   "app.cors_origins",
			need:  func() bool { return len(a.CORSOrigins) == 0 },
			apply: func() { a.CORSOrigins = []string{"*"} },
		},
	)
}

func (m *MarketConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys, stringFieldDefault("market.exchange", &m.Exchange, defaultExchange))
	m.Exchange = strings.ToLower(strings.TrimSpace(m.Exchange))
	exchangeURL := defaultExchangeBaseURL
	if m.Exchange == "gate" {
		exchangeURL = defaultGateBaseURL
	}
	applyFieldDefaults(keys,
		stringFieldDefault("market.price_base_url", &m.PriceBaseURL, defaultPriceBaseURL),
		stringFieldDefault("market.exchange_base_url", &m.ExchangeBaseURL, exchangeURL),
		positiveIntDefault("market.price_timeout_seconds", &m.PriceTimeoutSeconds, defaultPriceTimeout),
		positiveIntDefault("market.exchange_timeout_seconds", &m.ExchangeTimeoutSeconds, defaultExchangeTimeout),
		positiveIntDefault("market.price_cache_ttl_seconds", &m.PriceCacheTTLSeconds, defaultPriceCacheTTL),
		positiveIntDefault("market.price_refresh_seconds", &m.PriceRefreshSeconds, defaultPriceRefresh),
		positiveIntDefault("market.default_candles", &m.DefaultCandles, defaultCandles),
		positiveIntDefault("market.max_candles", &m.MaxCandles, defaultMaxCandles),
		positiveIntDefault("market.breaker.threshold", &m.Breaker.Threshold, defaultBreakerThreshold),
		positiveIntDefault("market.breaker.cooldown_seconds", &m.Breaker.CooldownSeconds, defaultBreakerCooldown),
	)
	m.PriceBaseURL = strings.TrimRight(strings.TrimSpace(m.PriceBaseURL), "/")
	m.ExchangeBaseURL = strings.TrimRight(strings.TrimSpace(m.ExchangeBaseURL), "/")
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.path", &s.Path, defaultStorePath),
		positiveIntDefault("store.seed_signals", &s.SeedSignals, defaultSeedSignals),
	)
}

func (f *FollowConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("follow.backend", &f.Backend, defaultFollowBackend),
		stringFieldDefault("follow.redis.addr", &f.Redis.Addr, defaultRedisAddr),
		stringFieldDefault("follow.redis.key_prefix", &f.Redis.KeyPrefix, defaultRedisKeyPrefix),
	)
	f.Backend = strings.ToLower(strings.TrimSpace(f.Backend))
}

func (b *BacktestConfig) applyDefaults(keys keySet) {
	if b == nil {
		return
	}
	applyFieldDefaults(keys,
		positiveIntDefault("backtest.latency_ms", &b.LatencyMillis, defaultBacktestLatency),
		positiveIntDefault("backtest.trade_sample", &b.TradeSample, defaultBacktestTradeSample),
	)
}

func (a *AIConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		boolFieldDefault("ai.enabled", &a.Enabled, true),
		stringFieldDefault("ai.api_url", &a.APIURL, defaultAIAPIURL),
		stringFieldDefault("ai.model", &a.Model, defaultAIModel),
		positiveIntDefault("ai.timeout_seconds", &a.TimeoutSeconds, defaultAITimeout),
		fieldDefault{
			key:   "ai.max_image_bytes",
			need:  func() bool { return a.MaxImageBytes <= 0 },
			apply: func() { a.MaxImageBytes = defaultAIMaxImageBytes },
		},
	)
}

func (n *NotifyConfig) applyDefaults(keys keySet) {
	if n == nil {
		return
	}
	applyFieldDefaults(keys, stringFieldDefault("notify.telegram.api_url", &n.Telegram.APIURL, defaultTelegramAPIURL))
	n.Telegram.APIURL = strings.TrimRight(strings.TrimSpace(n.Telegram.APIURL), "/")
}

// Helper functions

// applyFieldDefaults skips keys present in the file, so an explicit zero
// (e.g. price_cache_ttl_seconds: 0 to disable caching) survives.
func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func positiveIntDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
