// Package symbol normalises trading pair spellings. The front-end sends
// "BTC/USDT" from forms and "BTCUSDT" from the chart; both resolve to the
// same pair.
package symbol

import (
	"strings"
)

// quoteCurrencies is checked in order, so longer/stable quotes come first.
var quoteCurrencies = []string{"USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

type Pair struct {
	Base  string
	Quote string
}

// Display returns the slash form, e.g. BTC/USDT.
func (p Pair) Display() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + "/" + p.Quote
}

// Exchange returns the concatenated exchange form, e.g. BTCUSDT.
func (p Pair) Exchange() string {
	if p.Base == "" || p.Quote == "" {
		return ""
	}
	return p.Base + p.Quote
}

func (p Pair) Valid() bool {
	return p.Base != "" && p.Quote != ""
}

func Parse(s string) Pair {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Pair{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	for _, sep := range []string{"/", "-", "_"} {
		if parts := strings.SplitN(s, sep, 2); len(parts) == 2 {
			base, quote := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
			if base == "" || quote == "" {
				return Pair{}
			}
			return Pair{Base: base, Quote: quote}
		}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Pair{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Pair{}
}

// ToExchange converts any accepted spelling to BTCUSDT form. Unparseable
// input is upper-cased and stripped of separators.
func ToExchange(s string) string {
	if p := Parse(s); p.Valid() {
		return p.Exchange()
	}
	return strings.NewReplacer("/", "", "-", "", "_", "").Replace(strings.ToUpper(strings.TrimSpace(s)))
}

// ToDisplay converts any accepted spelling to BTC/USDT form, or "" when the
// pair cannot be parsed.
func ToDisplay(s string) string {
	return Parse(s).Display()
}

func IsValid(s string) bool {
	return Parse(s).Valid()
}
