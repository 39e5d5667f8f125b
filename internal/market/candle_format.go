package market

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type Candles []Candle

func (c Candle) TimeString() string {
	if c.Time <= 0 {
		return "-"
	}
	return time.Unix(c.Time, 0).UTC().Format("01-02 15:04") + "Z"
}

// Closes 返回收盘价序列，供指标计算使用。
func (cs Candles) Closes() []float64 {
	out := make([]float64, len(cs))
	for i, c := range cs {
		out[i] = c.Close
	}
	return out
}

// Summary 输出日志用的一行摘要。
func (cs Candles) Summary(interval string) string {
	if len(cs) == 0 {
		return "empty"
	}
	first := cs[0]
	last := cs[len(cs)-1]
	base := first.Open
	changePct := 0.0
	if base != 0 {
		changePct = (last.Close - base) / base * 100
	}
	low := math.MaxFloat64
	high := -math.MaxFloat64
	for _, bar := range cs {
		low = math.Min(low, bar.Low)
		high = math.Max(high, bar.High)
	}
	iv := strings.TrimSpace(interval)
	if iv == "" {
		iv = "window"
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("n=%d close≈%.4f", len(cs), last.Close))
	if base != 0 {
		sb.WriteString(fmt.Sprintf(" (%+.2f%%/%s)", changePct, iv))
	}
	sb.WriteString(fmt.Sprintf(", range %.4f–%.4f, %s→%s", low, high, first.TimeString(), last.TimeString()))
	return sb.String()
}
