package backtest

import (
	"fmt"
	"strings"
)

// Strategy 是回测表单中可选的策略。
type Strategy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var strategies = []Strategy{
	{ID: "ema_cross_rsi", Name: "Cruzamento de EMAs (21/50) + RSI", Description: "EMA 21 crossing EMA 50 confirmed by RSI(14) leaving overbought/oversold"},
	{ID: "engulfing", Name: "Engolfo de Alta/Baixa", Description: "Bullish or bearish engulfing candle at a swing level"},
	{ID: "hammer_volume", Name: "Martelo com Volume", Description: "Hammer candle with above-average volume"},
}

// Strategies returns the catalog in display order.
func Strategies() []Strategy {
	return append([]Strategy(nil), strategies...)
}

func lookupStrategy(id string) (Strategy, error) {
	key := strings.ToLower(strings.TrimSpace(id))
	for _, s := range strategies {
		if s.ID == key {
			return s, nil
		}
	}
	return Strategy{}, fmt.Errorf("%w: unknown strategy %q", ErrInvalidParams, id)
}
