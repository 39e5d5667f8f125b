package types

import "time"

// SignalType 信号方向，沿用前端的取值。
type SignalType string

const (
	SignalBullish SignalType = "ALTA"
	SignalBearish SignalType = "BAIXA"
)

func (t SignalType) Valid() bool {
	return t == SignalBullish || t == SignalBearish
}

// SignalProvider 是社区中发布信号的交易员。
type SignalProvider struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	AvatarURL    string  `json:"avatarUrl"`
	WinRate      float64 `json:"winRate"`
	Followers    int     `json:"followers"`
	TotalSignals int     `json:"totalSignals"`
}

// Signal 是一条社区交易信号；价格字段保持两位小数的字符串形式。
type Signal struct {
	ID            string         `json:"id"`
	Provider      SignalProvider `json:"provider"`
	Pair          string         `json:"pair"`
	Type          SignalType     `json:"type"`
	Timeframe     string         `json:"timeframe"`
	Entry         string         `json:"entry"`
	Target        string         `json:"target"`
	Stop          string         `json:"stop"`
	Justification string         `json:"justification"`
	ImageURL      string         `json:"imageUrl,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
}
