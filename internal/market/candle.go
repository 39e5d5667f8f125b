package market

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedCandles 表示上游返回的 K 线不满足 OHLC 约束。
var ErrMalformedCandles = errors.New("malformed candles")

// Candle 是一根 OHLC K 线，Time 为开盘时间（秒）。
type Candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Validate checks the OHLC envelope of a single candle.
func (c Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: non-finite or negative price at %d", ErrMalformedCandles, c.Time)
		}
	}
	if c.High < c.Low {
		return fmt.Errorf("%w: high %.8f below low %.8f at %d", ErrMalformedCandles, c.High, c.Low, c.Time)
	}
	if c.Low > math.Min(c.Open, c.Close) || c.High < math.Max(c.Open, c.Close) {
		return fmt.Errorf("%w: body outside wick range at %d", ErrMalformedCandles, c.Time)
	}
	return nil
}

// ValidateSeries 校验整段序列：非空、逐根合法、时间严格递增。
func ValidateSeries(candles []Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("%w: empty series", ErrMalformedCandles)
	}
	for i, c := range candles {
		if err := c.Validate(); err != nil {
			return err
		}
		if i > 0 && c.Time <= candles[i-1].Time {
			return fmt.Errorf("%w: time not increasing at index %d", ErrMalformedCandles, i)
		}
	}
	return nil
}
