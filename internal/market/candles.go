package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/circuit"
	"cryptocandles/internal/pkg/symbol"
	"cryptocandles/internal/scheduler"
)

var (
	ErrUnsupportedInterval = errors.New("unsupported interval")
	ErrInvalidCount        = errors.New("invalid candle count")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrCircuitOpen         = errors.New("circuit open")
)

const (
	TierExchange     = "exchange"
	TierSpotAnchor   = "spot-anchor"
	TierStaticAnchor = "static-anchor"
)

// SupportedIntervals 与交易所 K 线周期保持一致（不含月线）。
var SupportedIntervals = []string{"1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w"}

// CandleSource 是交易所 K 线来源。
type CandleSource interface {
	FetchCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error)
}

// SpotPricer 提供单个交易对的现价。
type SpotPricer interface {
	SpotPrice(ctx context.Context, symbol string) (float64, error)
}

// Series 是一次 K 线请求的结果及其来源层级。
type Series struct {
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
	Source   string   `json:"source"`
	Candles  []Candle `json:"candles"`
}

type CandleServiceConfig struct {
	MaxCount int
}

// CandleService 依次尝试交易所、现价锚定合成、静态锚定合成；
// 只有参数错误会返回给调用方。
type CandleService struct {
	exchange CandleSource
	spot     SpotPricer
	tables   TablesProvider
	synth    *Synthesizer
	breaker  *circuit.Breaker
	maxCount int
}

func NewCandleService(exchange CandleSource, spot SpotPricer, tables TablesProvider, synth *Synthesizer, breaker *circuit.Breaker, cfg CandleServiceConfig) *CandleService {
	if tables == nil {
		tables = StaticTables(DefaultTables())
	}
	if synth == nil {
		synth = NewSynthesizer(nil, nil)
	}
	return &CandleService{
		exchange: exchange,
		spot:     spot,
		tables:   tables,
		synth:    synth,
		breaker:  breaker,
		maxCount: cfg.MaxCount,
	}
}

// NormalizeInterval lower-cases interval and checks it against SupportedIntervals.
func NormalizeInterval(interval string) (string, time.Duration, error) {
	iv := strings.ToLower(strings.TrimSpace(interval))
	for _, supported := range SupportedIntervals {
		if iv != supported {
			continue
		}
		d, ok := scheduler.ParseIntervalDuration(iv)
		if ok {
			return iv, d, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %q", ErrUnsupportedInterval, interval)
}

// GetCandles 返回按时间升序的 count 根 K 线。交易所上市时间不足时，
// 交易所层可能只返回少于 count 根；合成层总是恰好 count 根。
func (s *CandleService) GetCandles(ctx context.Context, rawSymbol, rawInterval string, count int) (Series, error) {
	sym := symbol.ToExchange(rawSymbol)
	if sym == "" {
		return Series{}, fmt.Errorf("%w: %q", ErrInvalidSymbol, rawSymbol)
	}
	interval, step, err := NormalizeInterval(rawInterval)
	if err != nil {
		return Series{}, err
	}
	if count <= 0 || (s.maxCount > 0 && count > s.maxCount) {
		return Series{}, fmt.Errorf("%w: %d (max %d)", ErrInvalidCount, count, s.maxCount)
	}

	chain := Chain[[]Candle]{
		Label: "candles " + sym + "/" + interval,
		Tiers: []Tier[[]Candle]{
			{Name: TierExchange, Fetch: func(ctx context.Context) ([]Candle, error) {
				return s.fromExchange(ctx, sym, interval, count)
			}},
			{Name: TierSpotAnchor, Fetch: func(ctx context.Context) ([]Candle, error) {
				if s.spot == nil {
					return nil, fmt.Errorf("no spot pricer")
				}
				anchor, err := s.spot.SpotPrice(ctx, sym)
				if err != nil {
					return nil, err
				}
				return s.synth.Synthesize(anchor, step, count)
			}},
			{Name: TierStaticAnchor, Fetch: func(context.Context) ([]Candle, error) {
				return s.synth.Synthesize(s.tables.Tables().StaticAnchor(sym), step, count)
			}},
		},
	}
	candles, tier, err := chain.Run(ctx)
	if err != nil {
		// 静态锚定价经过校验，不应走到这里。
		return Series{}, err
	}
	logger.Debugf("[market] candles %s/%s tier=%s %s", sym, interval, tier, Candles(candles).Summary(interval))
	return Series{Symbol: sym, Interval: interval, Source: tier, Candles: candles}, nil
}

func (s *CandleService) fromExchange(ctx context.Context, sym, interval string, count int) ([]Candle, error) {
	if s.exchange == nil {
		return nil, fmt.Errorf("no exchange source")
	}
	if !s.breaker.Allow() {
		return nil, ErrCircuitOpen
	}
	candles, err := s.exchange.FetchCandles(ctx, sym, interval, count)
	if err == nil {
		err = ValidateSeries(candles)
	}
	if err != nil {
		// 调用方主动取消不计入熔断。
		if ctx.Err() == nil {
			s.breaker.RecordFailure()
		}
		return nil, err
	}
	s.breaker.RecordSuccess()
	if len(candles) > count {
		candles = candles[len(candles)-count:]
	}
	return candles, nil
}
