package config

import "strings"

// Config is the root of config.yaml.
type Config struct {
	App      AppConfig      `toml:"app"`
	Market   MarketConfig   `toml:"market"`
	Store    StoreConfig    `toml:"store"`
	Follow   FollowConfig   `toml:"follow"`
	Backtest BacktestConfig `toml:"backtest"`
	AI       AIConfig       `toml:"ai"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env         string   `toml:"env"`
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"` // "text" | "json"
	HTTPAddr    string   `toml:"http_addr"`
	LogPath     string   `toml:"log_path"`
	CORSOrigins []string `toml:"cors_origins"` // 为空时默认 "*"
}

// MarketConfig controls the price and candle tiers.
type MarketConfig struct {
	Exchange               string        `toml:"exchange"` // "binance" | "gate"
	PriceBaseURL           string        `toml:"price_base_url"`
	ExchangeBaseURL        string        `toml:"exchange_base_url"`
	ProxyURL               string        `toml:"proxy_url"`
	PriceTimeoutSeconds    int           `toml:"price_timeout_seconds"`
	ExchangeTimeoutSeconds int           `toml:"exchange_timeout_seconds"`
	PriceCacheTTLSeconds   int           `toml:"price_cache_ttl_seconds"`
	PriceRefreshSeconds    int           `toml:"price_refresh_seconds"`
	DefaultCandles         int           `toml:"default_candles"`
	MaxCandles             int           `toml:"max_candles"`
	TablesPath             string        `toml:"tables_path"`
	Breaker                BreakerConfig `toml:"breaker"`
}

type BreakerConfig struct {
	Threshold       int `toml:"threshold"`
	CooldownSeconds int `toml:"cooldown_seconds"`
}

type StoreConfig struct {
	Path        string `toml:"path"`
	SeedSignals int    `toml:"seed_signals"`
	SeedPath    string `toml:"seed_path"`
}

// FollowConfig selects where follow relationships live.
type FollowConfig struct {
	Backend string      `toml:"backend"` // "sqlite" | "memory" | "redis"
	Redis   RedisConfig `toml:"redis"`
}

type RedisConfig struct {
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

type BacktestConfig struct {
	LatencyMillis int `toml:"latency_ms"`
	TradeSample   int `toml:"trade_sample"`
}

// AIConfig points at an OpenAI-compatible chat endpoint with vision support.
type AIConfig struct {
	Enabled        bool   `toml:"enabled"`
	APIURL         string `toml:"api_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxImageBytes  int64  `toml:"max_image_bytes"`
}

// NotifyConfig 控制新信号发布后的推送。
type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
	APIURL   string `toml:"api_url"`
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
