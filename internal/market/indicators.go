package market

import (
	"math"

	"github.com/markcheno/go-talib"
)

const (
	overlayFastEMA = 21
	overlaySlowEMA = 50
	overlayRSI     = 14
)

// IndicatorPoint 与 K 线时间对齐的单个指标值。
type IndicatorPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Overlay 是图表叠加的指标线，预热期内的点被省略。
type Overlay struct {
	EMAFast []IndicatorPoint `json:"ema21"`
	EMASlow []IndicatorPoint `json:"ema50"`
	RSI     []IndicatorPoint `json:"rsi14"`
}

// ComputeOverlay derives EMA(21), EMA(50) and RSI(14) from the closes. Series
// too short for a period yield an empty line for that indicator.
func ComputeOverlay(candles []Candle) Overlay {
	closes := Candles(candles).Closes()
	out := Overlay{
		EMAFast: []IndicatorPoint{},
		EMASlow: []IndicatorPoint{},
		RSI:     []IndicatorPoint{},
	}
	if len(closes) >= overlayFastEMA {
		out.EMAFast = alignPoints(candles, talib.Ema(closes, overlayFastEMA), overlayFastEMA-1)
	}
	if len(closes) >= overlaySlowEMA {
		out.EMASlow = alignPoints(candles, talib.Ema(closes, overlaySlowEMA), overlaySlowEMA-1)
	}
	if len(closes) > overlayRSI {
		out.RSI = alignPoints(candles, talib.Rsi(closes, overlayRSI), overlayRSI)
	}
	return out
}

func alignPoints(candles []Candle, series []float64, warmup int) []IndicatorPoint {
	points := make([]IndicatorPoint, 0, len(series))
	for i := warmup; i < len(series) && i < len(candles); i++ {
		v := series[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		points = append(points, IndicatorPoint{Time: candles[i].Time, Value: v})
	}
	return points
}
