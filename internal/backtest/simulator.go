package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"cryptocandles/internal/logger"
	"cryptocandles/internal/pkg/randx"
	"cryptocandles/internal/pkg/symbol"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidParams = errors.New("invalid backtest params")

const (
	defaultTakeProfitPct = 5.0
	defaultStopLossPct   = 3.0
	defaultTradeSample   = 15
	tradeDateLayout      = "2006-01-02"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Params 对应回测表单。TP/SL 为百分比，0 取默认值。
type Params struct {
	Pair          string  `json:"pair"`
	Interval      string  `json:"interval"`
	Strategy      string  `json:"strategy"`
	TakeProfitPct float64 `json:"takeProfitPct"`
	StopLossPct   float64 `json:"stopLossPct"`
}

type Trade struct {
	Date       string  `json:"date"`
	Side       Side    `json:"side"`
	EntryPrice float64 `json:"entryPrice"`
	ExitPrice  float64 `json:"exitPrice"`
	Result     float64 `json:"result"`
}

// Result 是一次模拟回测的输出。汇总指标与逐笔交易相互独立生成，
// 逐笔交易只是示例样本，二者不保证一致。
type Result struct {
	RunID            string    `json:"runId"`
	Pair             string    `json:"pair"`
	Interval         string    `json:"interval"`
	Strategy         string    `json:"strategy"`
	TakeProfitPct    float64   `json:"takeProfitPct"`
	StopLossPct      float64   `json:"stopLossPct"`
	TotalTrades      int       `json:"totalTrades"`
	WinRate          int       `json:"winRate"`
	CumulativeReturn float64   `json:"cumulativeReturn"`
	MaxDrawdown      float64   `json:"maxDrawdown"`
	Trades           []Trade   `json:"trades"`
	CreatedAt        time.Time `json:"createdAt"`
}

type SimulatorConfig struct {
	// Latency 模拟计算耗时，期间可被取消。
	Latency     time.Duration
	TradeSample int
}

// Simulator 生成随机回测结果，随机源与时钟可注入。
type Simulator struct {
	rnd randx.Source
	now func() time.Time
	cfg SimulatorConfig
}

func NewSimulator(rnd randx.Source, now func() time.Time, cfg SimulatorConfig) *Simulator {
	if rnd == nil {
		rnd = randx.NewTimeSeeded()
	}
	if now == nil {
		now = time.Now
	}
	if cfg.TradeSample <= 0 {
		cfg.TradeSample = defaultTradeSample
	}
	return &Simulator{rnd: rnd, now: now, cfg: cfg}
}

// Validate 规范化参数，失败时返回 ErrInvalidParams。
func (p Params) Validate() (Params, error) {
	pair := symbol.Parse(p.Pair)
	if !pair.Valid() {
		return Params{}, fmt.Errorf("%w: invalid pair %q", ErrInvalidParams, p.Pair)
	}
	tf, err := ParseTimeframe(p.Interval)
	if err != nil {
		return Params{}, err
	}
	strat, err := lookupStrategy(p.Strategy)
	if err != nil {
		return Params{}, err
	}
	out := Params{
		Pair:          pair.Display(),
		Interval:      tf.Key,
		Strategy:      strat.ID,
		TakeProfitPct: p.TakeProfitPct,
		StopLossPct:   p.StopLossPct,
	}
	if out.TakeProfitPct == 0 {
		out.TakeProfitPct = defaultTakeProfitPct
	}
	if out.StopLossPct == 0 {
		out.StopLossPct = defaultStopLossPct
	}
	if !validPct(out.TakeProfitPct) || !validPct(out.StopLossPct) || out.StopLossPct >= 100 {
		return Params{}, fmt.Errorf("%w: take profit / stop loss must be in (0, 100)", ErrInvalidParams)
	}
	return out, nil
}

func validPct(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0 && v < 100
}

// Run 校验参数、等待模拟耗时，然后生成结果。ctx 取消时不返回部分结果。
func (s *Simulator) Run(ctx context.Context, p Params) (Result, error) {
	params, err := p.Validate()
	if err != nil {
		return Result{}, err
	}
	if s.cfg.Latency > 0 {
		timer := time.NewTimer(s.cfg.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Result{}, fmt.Errorf("backtest cancelled: %w", ctx.Err())
		case <-timer.C:
		}
	}

	now := s.now()
	res := Result{
		RunID:         uuid.NewString(),
		Pair:          params.Pair,
		Interval:      params.Interval,
		Strategy:      params.Strategy,
		TakeProfitPct: params.TakeProfitPct,
		StopLossPct:   params.StopLossPct,
		CreatedAt:     now.UTC(),
	}
	res.TotalTrades = 50 + int(math.Floor(s.rnd.Float64()*150))
	res.WinRate = 50 + int(math.Floor(s.rnd.Float64()*40))

	tp := decimal.NewFromFloat(params.TakeProfitPct)
	sl := decimal.NewFromFloat(params.StopLossPct).Neg()
	hundred := decimal.NewFromInt(100)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	res.Trades = make([]Trade, 0, s.cfg.TradeSample)
	for i := 0; i < s.cfg.TradeSample; i++ {
		win := s.rnd.Float64()*100 < float64(res.WinRate)
		entry := decimal.NewFromFloat(50000 + s.rnd.Float64()*10000).Round(2)
		side := SideSell
		if s.rnd.Float64() > 0.5 {
			side = SideBuy
		}
		pct := sl
		if win {
			pct = tp
		}
		exit := entry.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred))).Round(2)
		res.Trades = append(res.Trades, Trade{
			Date:       today.AddDate(0, 0, -i).Format(tradeDateLayout),
			Side:       side,
			EntryPrice: entry.InexactFloat64(),
			ExitPrice:  exit.InexactFloat64(),
			Result:     pct.InexactFloat64(),
		})
	}
	res.CumulativeReturn = 50 + s.rnd.Float64()*200
	res.MaxDrawdown = -20 + s.rnd.Float64()*15

	logger.Infof("[backtest] run=%s %s %s %s trades=%d win_rate=%d%%",
		res.RunID, res.Pair, res.Interval, res.Strategy, res.TotalTrades, res.WinRate)
	return res, nil
}
