package binance

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"cryptocandles/internal/market"
	"cryptocandles/internal/pkg/httpx"
	symbolpkg "cryptocandles/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2"
)

const (
	maxKlinesLimit     = 1000
	defaultRESTBaseURL = "https://api.binance.com"
	defaultHTTPTimeout = 8 * time.Second
)

type Config struct {
	RESTBaseURL string
	HTTPTimeout time.Duration
	ProxyURL    string
}

// Source 基于 go-binance 现货 SDK 实现 market.CandleSource。
type Source struct {
	client *binance.Client
}

func New(cfg Config) (*Source, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.RESTBaseURL), "/")
	if base == "" {
		base = defaultRESTBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	httpClient, err := httpx.NewClient(timeout, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("binance REST client: %w", err)
	}
	client := binance.NewClient("", "")
	client.BaseURL = base
	client.HTTPClient = httpClient
	return &Source{client: client}, nil
}

// FetchCandles 拉取 /api/v3/klines，开盘时间毫秒转秒。任何一行无法解析都视为整体失败。
func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxKlinesLimit {
		limit = maxKlinesLimit
	}
	cleanSymbol := symbolpkg.ToExchange(symbol)
	if cleanSymbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return nil, fmt.Errorf("interval is required")
	}
	kls, err := s.client.NewKlinesService().Symbol(cleanSymbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s/%s: %w", cleanSymbol, interval, err)
	}
	if len(kls) == 0 {
		return nil, fmt.Errorf("binance klines %s/%s: empty response", cleanSymbol, interval)
	}
	out := make([]market.Candle, 0, len(kls))
	for i, kl := range kls {
		if kl == nil {
			return nil, fmt.Errorf("binance klines %s/%s: nil row %d", cleanSymbol, interval, i)
		}
		c, err := toCandle(kl)
		if err != nil {
			return nil, fmt.Errorf("binance klines %s/%s row %d: %w", cleanSymbol, interval, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func toCandle(kl *binance.Kline) (market.Candle, error) {
	var c market.Candle
	var err error
	c.Time = kl.OpenTime / 1000
	if c.Open, err = parsePrice(kl.Open); err != nil {
		return c, err
	}
	if c.High, err = parsePrice(kl.High); err != nil {
		return c, err
	}
	if c.Low, err = parsePrice(kl.Low); err != nil {
		return c, err
	}
	if c.Close, err = parsePrice(kl.Close); err != nil {
		return c, err
	}
	return c, nil
}

func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", market.ErrMalformedCandles, raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", market.ErrMalformedCandles, raw)
	}
	return v, nil
}
