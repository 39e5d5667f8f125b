package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cryptocandles/internal/config"
	"cryptocandles/internal/gateway/binance"
	"cryptocandles/internal/gateway/coingecko"
	"cryptocandles/internal/gateway/gate"
	"cryptocandles/internal/logger"
	"cryptocandles/internal/market"
	"cryptocandles/internal/pkg/circuit"
	"cryptocandles/internal/pkg/randx"
)

type MarketStack struct {
	Tables     market.TablesProvider
	TablesFile *market.TablesFile
	Prices     *market.PriceService
	Candles    *market.CandleService
	Breaker    *circuit.Breaker
}

func buildMarketStack(_ context.Context, cfg *config.Config, rnd randx.Source, now func() time.Time) (*MarketStack, error) {
	mc := cfg.Market
	stack := &MarketStack{}
	if path := strings.TrimSpace(mc.TablesPath); path != "" {
		file, err := market.OpenTablesFile(path)
		if err != nil {
			return nil, fmt.Errorf("加载静态行情表失败: %w", err)
		}
		stack.Tables = file
		stack.TablesFile = file
	} else {
		stack.Tables = market.StaticTables(market.DefaultTables())
		logger.Infof("✓ 使用内置静态行情表")
	}

	prices := coingecko.New(coingecko.Config{
		BaseURL:     mc.PriceBaseURL,
		HTTPTimeout: time.Duration(mc.PriceTimeoutSeconds) * time.Second,
	})
	exchange, err := buildExchangeSource(mc)
	if err != nil {
		return nil, fmt.Errorf("初始化交易所行情源失败: %w", err)
	}

	stack.Breaker = circuit.New(mc.Exchange+"-klines", mc.Breaker.Threshold, time.Duration(mc.Breaker.CooldownSeconds)*time.Second)
	stack.Prices = market.NewPriceService(prices, stack.Tables, market.PriceOptions{
		CacheTTL:        time.Duration(mc.PriceCacheTTLSeconds) * time.Second,
		RefreshInterval: time.Duration(mc.PriceRefreshSeconds) * time.Second,
		Now:             now,
	})
	stack.Candles = market.NewCandleService(
		exchange,
		stack.Prices,
		stack.Tables,
		market.NewSynthesizer(rnd, now),
		stack.Breaker,
		market.CandleServiceConfig{MaxCount: mc.MaxCandles},
	)
	logger.Infof("✓ 行情源: price=%s exchange=%s(%s)", mc.PriceBaseURL, mc.Exchange, mc.ExchangeBaseURL)
	return stack, nil
}

func buildExchangeSource(mc config.MarketConfig) (market.CandleSource, error) {
	timeout := time.Duration(mc.ExchangeTimeoutSeconds) * time.Second
	if mc.Exchange == "gate" {
		src, err := gate.New(gate.Config{RESTBaseURL: mc.ExchangeBaseURL, HTTPTimeout: timeout, ProxyURL: mc.ProxyURL})
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	src, err := binance.New(binance.Config{RESTBaseURL: mc.ExchangeBaseURL, HTTPTimeout: timeout, ProxyURL: mc.ProxyURL})
	if err != nil {
		return nil, err
	}
	return src, nil
}
