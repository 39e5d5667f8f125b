// Package gate 提供 Gate.io USDT 永续合约 K 线作为交易所层的备选来源。
package gate

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/market"
	"cryptocandles/internal/pkg/httpx"
	symbolpkg "cryptocandles/internal/pkg/symbol"

	"github.com/antihax/optional"
	gateapi "github.com/gateio/gateapi-go/v7"
)

const (
	gateSettle          = "usdt"
	gateMaxHistoryLimit = 2000
	defaultGateREST     = "https://api.gateio.ws/api/v4"
)

// gateIntervals 把应用内周期映射到 Gate 合约周期，不在表里的直接报错交给下一层兜底。
var gateIntervals = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1h",
	"4h":  "4h",
	"8h":  "8h",
	"1d":  "1d",
	"1w":  "7d",
}

type Source struct {
	rest *gateapi.APIClient
}

func New(cfg Config) (*Source, error) {
	final := cfg.withDefaults()
	restClient, err := newRESTClient(final)
	if err != nil {
		return nil, err
	}
	return &Source{rest: restClient}, nil
}

func newRESTClient(cfg Config) (*gateapi.APIClient, error) {
	httpClient, err := httpx.NewClient(cfg.HTTPTimeout, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("gate REST client: %w", err)
	}
	conf := gateapi.NewConfiguration()
	conf.BasePath = cfg.RESTBaseURL
	conf.HTTPClient = httpClient
	return gateapi.NewAPIClient(conf), nil
}

// Contract 把 BTCUSDT / BTC/USDT 统一成 Gate 合约名 BTC_USDT。
func Contract(symbol string) string {
	p := symbolpkg.Parse(symbol)
	if !p.Valid() {
		return ""
	}
	return p.Base + "_" + p.Quote
}

func (s *Source) FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > gateMaxHistoryLimit {
		limit = gateMaxHistoryLimit
	}
	contract := Contract(symbol)
	if contract == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	gateInterval, ok := gateIntervals[strings.ToLower(strings.TrimSpace(interval))]
	if !ok {
		return nil, fmt.Errorf("gate does not serve interval %q", interval)
	}

	opts := &gateapi.ListFuturesCandlesticksOpts{
		Limit:    optional.NewInt32(int32(limit)),
		Interval: optional.NewString(gateInterval),
	}
	kls, _, err := s.rest.FuturesApi.ListFuturesCandlesticks(ctx, gateSettle, contract, opts)
	if err != nil {
		logger.Debugf("[gate] fetch kline failed %s %s limit=%d: %v", contract, gateInterval, limit, err)
		return nil, fmt.Errorf("gate candlesticks %s/%s: %w", contract, gateInterval, err)
	}
	if len(kls) == 0 {
		return nil, fmt.Errorf("gate candlesticks %s/%s: empty response", contract, gateInterval)
	}

	out := make([]market.Candle, 0, len(kls))
	for i, kl := range kls {
		c, err := toCandle(kl)
		if err != nil {
			return nil, fmt.Errorf("gate candlesticks %s/%s row %d: %w", contract, gateInterval, i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func toCandle(kl gateapi.FuturesCandlestick) (market.Candle, error) {
	var c market.Candle
	var err error
	if kl.T <= 0 {
		return c, fmt.Errorf("%w: time %v", market.ErrMalformedCandles, kl.T)
	}
	c.Time = int64(kl.T)
	if c.Open, err = parsePrice(kl.O); err != nil {
		return c, err
	}
	if c.High, err = parsePrice(kl.H); err != nil {
		return c, err
	}
	if c.Low, err = parsePrice(kl.L); err != nil {
		return c, err
	}
	if c.Close, err = parsePrice(kl.C); err != nil {
		return c, err
	}
	return c, nil
}

func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q", market.ErrMalformedCandles, raw)
	}
	return v, nil
}
