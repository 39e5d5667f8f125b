package config

import (
	"fmt"
	"net/url"
	"strings"
)

func validate(c *Config) error {
	switch strings.ToLower(c.App.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json (got %q)", c.App.LogFormat)
	}
	if err := c.Market.validate(); err != nil {
		return err
	}
	if err := c.Follow.validate(); err != nil {
		return err
	}
	if err := c.Backtest.validate(); err != nil {
		return err
	}
	if err := c.AI.validate(); err != nil {
		return err
	}
	if c.Notify.Telegram.Enabled {
		return validateURL("notify.telegram.api_url", c.Notify.Telegram.APIURL)
	}
	return nil
}

func (m *MarketConfig) validate() error {
	switch m.Exchange {
	case "binance", "gate":
	default:
		return fmt.Errorf("market.exchange must be one of binance, gate (got %q)", m.Exchange)
	}
	for key, raw := range map[string]string{
		"market.price_base_url":    m.PriceBaseURL,
		"market.exchange_base_url": m.ExchangeBaseURL,
	} {
		if err := validateURL(key, raw); err != nil {
			return err
		}
	}
	if m.ProxyURL != "" {
		if err := validateURL("market.proxy_url", m.ProxyURL); err != nil {
			return err
		}
	}
	if m.PriceCacheTTLSeconds < 0 || m.PriceRefreshSeconds < 0 {
		return fmt.Errorf("market.price_cache_ttl_seconds and market.price_refresh_seconds must be >= 0")
	}
	if m.DefaultCandles > m.MaxCandles {
		return fmt.Errorf("market.default_candles (%d) exceeds market.max_candles (%d)", m.DefaultCandles, m.MaxCandles)
	}
	return nil
}

func (f *FollowConfig) validate() error {
	switch f.Backend {
	case "sqlite", "memory":
		return nil
	case "redis":
		if strings.TrimSpace(f.Redis.Addr) == "" {
			return fmt.Errorf("follow.redis.addr is required when follow.backend=redis")
		}
		if f.Redis.DB < 0 {
			return fmt.Errorf("follow.redis.db must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("follow.backend must be one of sqlite, memory, redis (got %q)", f.Backend)
	}
}

func (b *BacktestConfig) validate() error {
	if b.LatencyMillis < 0 {
		return fmt.Errorf("backtest.latency_ms must be >= 0")
	}
	if b.TradeSample <= 0 {
		return fmt.Errorf("backtest.trade_sample must be > 0")
	}
	return nil
}

func (a *AIConfig) validate() error {
	if !a.Enabled {
		return nil
	}
	if strings.TrimSpace(a.Model) == "" {
		return fmt.Errorf("ai.model cannot be empty when ai.enabled=true")
	}
	return validateURL("ai.api_url", a.APIURL)
}

func validateURL(key, raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL (got %q)", key, raw)
	}
	return nil
}
