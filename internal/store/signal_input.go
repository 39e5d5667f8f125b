package store

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"cryptocandles/internal/pkg/symbol"
	"cryptocandles/internal/types"

	"github.com/shopspring/decimal"
)

const maxJustificationRunes = 500

// signalTimeframes 键为小写，值为前端展示的写法。
var signalTimeframes = map[string]string{
	"1m":  "1m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"1h":  "1H",
	"2h":  "2H",
	"4h":  "4H",
	"12h": "12H",
	"1d":  "1D",
	"1w":  "1W",
}

// SignalInput is a signal as submitted by a client, before it is stored.
type SignalInput struct {
	ProviderID    string `json:"providerId"`
	Pair          string `json:"pair"`
	Type          string `json:"type"`
	Timeframe     string `json:"timeframe"`
	Entry         string `json:"entry"`
	Target        string `json:"target"`
	Stop          string `json:"stop"`
	Justification string `json:"justification"`
	ImageURL      string `json:"imageUrl"`
}

// Normalize validates the input and returns it in stored form: pair as
// BASE/QUOTE, prices with two decimals, canonical timeframe spelling.
func (in SignalInput) Normalize() (SignalInput, error) {
	out := SignalInput{
		ProviderID:    strings.TrimSpace(in.ProviderID),
		Justification: strings.TrimSpace(in.Justification),
		ImageURL:      strings.TrimSpace(in.ImageURL),
	}
	if out.ProviderID == "" {
		return SignalInput{}, fmt.Errorf("%w: providerId required", ErrInvalidSignal)
	}
	pair := symbol.Parse(in.Pair)
	if !pair.Valid() {
		return SignalInput{}, fmt.Errorf("%w: pair %q", ErrInvalidSignal, in.Pair)
	}
	out.Pair = pair.Display()

	typ := types.SignalType(strings.ToUpper(strings.TrimSpace(in.Type)))
	if !typ.Valid() {
		return SignalInput{}, fmt.Errorf("%w: type %q", ErrInvalidSignal, in.Type)
	}
	out.Type = string(typ)

	tf, ok := signalTimeframes[strings.ToLower(strings.TrimSpace(in.Timeframe))]
	if !ok {
		return SignalInput{}, fmt.Errorf("%w: timeframe %q", ErrInvalidSignal, in.Timeframe)
	}
	out.Timeframe = tf

	var err error
	if out.Entry, err = normalizePrice("entry", in.Entry); err != nil {
		return SignalInput{}, err
	}
	if out.Target, err = normalizePrice("target", in.Target); err != nil {
		return SignalInput{}, err
	}
	if out.Stop, err = normalizePrice("stop", in.Stop); err != nil {
		return SignalInput{}, err
	}

	if out.Justification == "" {
		return SignalInput{}, fmt.Errorf("%w: justification required", ErrInvalidSignal)
	}
	if utf8.RuneCountInString(out.Justification) > maxJustificationRunes {
		return SignalInput{}, fmt.Errorf("%w: justification longer than %d characters", ErrInvalidSignal, maxJustificationRunes)
	}
	if out.ImageURL != "" && !strings.HasPrefix(out.ImageURL, "http://") && !strings.HasPrefix(out.ImageURL, "https://") {
		return SignalInput{}, fmt.Errorf("%w: imageUrl must be http(s)", ErrInvalidSignal)
	}
	return out, nil
}

func normalizePrice(field, raw string) (string, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %s %q is not a number", ErrInvalidSignal, field, raw)
	}
	if !d.IsPositive() {
		return "", fmt.Errorf("%w: %s must be positive", ErrInvalidSignal, field)
	}
	return d.StringFixed(2), nil
}
