package market

import (
	"errors"
	"fmt"
	"math"
	"time"

	"cryptocandles/internal/pkg/randx"
)

const (
	// 单根 K 线的波动幅度占价格比例。
	synthVolatility = 0.005
	// 影线相对波动幅度的最大比例。
	synthWickRatio = 0.2
)

var ErrInvalidSynthArgs = errors.New("invalid synthesis arguments")

// Synthesizer 从单一锚定价向过去随机游走，生成一段看起来合理的 K 线。
type Synthesizer struct {
	rnd randx.Source
	now func() time.Time
}

// NewSynthesizer wires the random source and clock. nil values fall back to
// a time-seeded source and time.Now.
func NewSynthesizer(rnd randx.Source, now func() time.Time) *Synthesizer {
	if rnd == nil {
		rnd = randx.NewTimeSeeded()
	}
	if now == nil {
		now = time.Now
	}
	return &Synthesizer{rnd: rnd, now: now}
}

// Synthesize 生成 count 根 K 线，按时间升序返回，最后一根收盘价等于 anchor，
// 最新一根的时间为当前时刻，相邻两根相差 interval。
func (s *Synthesizer) Synthesize(anchor float64, interval time.Duration, count int) ([]Candle, error) {
	if math.IsNaN(anchor) || math.IsInf(anchor, 0) || anchor <= 0 {
		return nil, fmt.Errorf("%w: anchor %v", ErrInvalidSynthArgs, anchor)
	}
	step := int64(interval / time.Second)
	if step <= 0 {
		return nil, fmt.Errorf("%w: interval %s", ErrInvalidSynthArgs, interval)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidSynthArgs, count)
	}
	newest := s.now().Unix()
	out := make([]Candle, count)
	price := anchor
	// 从最新一根往回走，直接写入倒序位置。
	for i := 0; i < count; i++ {
		vol := price * synthVolatility
		change := (s.rnd.Float64() - 0.5) * vol
		closePrice := price
		openPrice := price - change
		high := math.Max(openPrice, closePrice) + s.rnd.Float64()*vol*synthWickRatio
		low := math.Min(openPrice, closePrice) - s.rnd.Float64()*vol*synthWickRatio
		out[count-1-i] = Candle{
			Time:  newest - int64(i)*step,
			Open:  openPrice,
			High:  high,
			Low:   math.Max(0, low),
			Close: closePrice,
		}
		price = openPrice
	}
	return out, nil
}
