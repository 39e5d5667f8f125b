package backtest

import (
	"fmt"
	"strings"
	"time"
)

// Timeframe 是回测表单可选的周期。
type Timeframe struct {
	Key      string
	Duration time.Duration
}

// timeframes 按周期长度排列，也是表单下拉框的顺序。
var timeframes = []Timeframe{
	{Key: "15m", Duration: 15 * time.Minute},
	{Key: "30m", Duration: 30 * time.Minute},
	{Key: "1h", Duration: time.Hour},
	{Key: "4h", Duration: 4 * time.Hour},
	{Key: "1d", Duration: 24 * time.Hour},
	{Key: "1w", Duration: 7 * 24 * time.Hour},
}

// ParseTimeframe 大小写不敏感，"4H" 与 "4h" 等价。
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	for _, tf := range timeframes {
		if tf.Key == key {
			return tf, nil
		}
	}
	return Timeframe{}, fmt.Errorf("%w: unsupported interval %q", ErrInvalidParams, input)
}

func SupportedTimeframes() []string {
	keys := make([]string, len(timeframes))
	for i, tf := range timeframes {
		keys[i] = tf.Key
	}
	return keys
}
