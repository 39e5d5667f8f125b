package market

import (
	"fmt"
	"math"
	"strings"
)

// Instrument 描述一个可报价的交易对及其行情源 ID。
type Instrument struct {
	Symbol string `json:"symbol" yaml:"symbol"`
	ID     string `json:"id" yaml:"id"`
	Ticker string `json:"ticker" yaml:"ticker"`
	Name   string `json:"name" yaml:"name"`
	Image  string `json:"image" yaml:"image"`
}

// Quote 对应行情看板的一行（MarketData）。
type Quote struct {
	ID          string  `json:"id" yaml:"id"`
	Symbol      string  `json:"symbol" yaml:"symbol"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"current_price" yaml:"current_price"`
	Change24hPc float64 `json:"price_change_percentage_24h" yaml:"price_change_percentage_24h"`
	Image       string  `json:"image" yaml:"image"`
}

// Valid reports whether the quote can be shown as a live price.
func (q Quote) Valid() bool {
	if strings.TrimSpace(q.ID) == "" {
		return false
	}
	if math.IsNaN(q.Price) || math.IsInf(q.Price, 0) || q.Price <= 0 {
		return false
	}
	return !math.IsNaN(q.Change24hPc) && !math.IsInf(q.Change24hPc, 0)
}

// AnchorRule 命中 symbol 子串时使用的静态锚定价。
type AnchorRule struct {
	Contains string  `json:"contains" yaml:"contains"`
	Price    float64 `json:"price" yaml:"price"`
}

// Tables 是行情降级所需的全部静态数据。
type Tables struct {
	Instruments   []Instrument `json:"instruments" yaml:"instruments"`
	DefaultID     string       `json:"default_id" yaml:"default_id"`
	Snapshot      []Quote      `json:"snapshot" yaml:"snapshot"`
	AnchorRules   []AnchorRule `json:"anchor_rules" yaml:"anchor_rules"`
	DefaultAnchor float64      `json:"default_anchor" yaml:"default_anchor"`
}

const coinImageBase = "https://assets.coingecko.com/coins/images"

// DefaultTables returns the built-in instrument set and fallback values.
func DefaultTables() Tables {
	return Tables{
		Instruments: []Instrument{
			{Symbol: "BTCUSDT", ID: "bitcoin", Ticker: "btc", Name: "Bitcoin", Image: coinImageBase + "/1/thumb/bitcoin.png"},
			{Symbol: "ETHUSDT", ID: "ethereum", Ticker: "eth", Name: "Ethereum", Image: coinImageBase + "/279/thumb/ethereum.png"},
			{Symbol: "SOLUSDT", ID: "solana", Ticker: "sol", Name: "Solana", Image: coinImageBase + "/4128/thumb/solana.png"},
			{Symbol: "ADAUSDT", ID: "cardano", Ticker: "ada", Name: "Cardano", Image: coinImageBase + "/975/thumb/cardano.png"},
		},
		DefaultID: "bitcoin",
		Snapshot: []Quote{
			{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", Price: 65432.10, Change24hPc: 2.5, Image: coinImageBase + "/1/thumb/bitcoin.png"},
			{ID: "ethereum", Symbol: "eth", Name: "Ethereum", Price: 3456.78, Change24hPc: -1.2, Image: coinImageBase + "/279/thumb/ethereum.png"},
			{ID: "solana", Symbol: "sol", Name: "Solana", Price: 145.67, Change24hPc: 5.8, Image: coinImageBase + "/4128/thumb/solana.png"},
			{ID: "cardano", Symbol: "ada", Name: "Cardano", Price: 0.45, Change24hPc: 1.1, Image: coinImageBase + "/975/thumb/cardano.png"},
		},
		AnchorRules: []AnchorRule{
			{Contains: "BTC", Price: 95000},
			{Contains: "ETH", Price: 3500},
		},
		DefaultAnchor: 150,
	}
}

// Validate 校验表内容，供文件加载后调用。
func (t Tables) Validate() error {
	if len(t.Instruments) == 0 {
		return fmt.Errorf("tables: at least one instrument required")
	}
	ids := make(map[string]struct{}, len(t.Instruments))
	for _, inst := range t.Instruments {
		if strings.TrimSpace(inst.Symbol) == "" || strings.TrimSpace(inst.ID) == "" {
			return fmt.Errorf("tables: instrument requires symbol and id")
		}
		ids[inst.ID] = struct{}{}
	}
	if _, ok := ids[t.DefaultID]; !ok {
		return fmt.Errorf("tables: default_id %q is not a listed instrument", t.DefaultID)
	}
	if len(t.Snapshot) == 0 {
		return fmt.Errorf("tables: snapshot must not be empty")
	}
	for _, q := range t.Snapshot {
		if !q.Valid() {
			return fmt.Errorf("tables: snapshot quote %q invalid", q.ID)
		}
	}
	for _, r := range t.AnchorRules {
		if strings.TrimSpace(r.Contains) == "" || !(r.Price > 0) {
			return fmt.Errorf("tables: anchor rule requires contains and positive price")
		}
	}
	if !(t.DefaultAnchor > 0) || math.IsInf(t.DefaultAnchor, 0) {
		return fmt.Errorf("tables: default_anchor must be positive")
	}
	return nil
}

// IDs 返回行情源查询用的 ID 列表（按表顺序）。
func (t Tables) IDs() []string {
	out := make([]string, 0, len(t.Instruments))
	for _, inst := range t.Instruments {
		out = append(out, inst.ID)
	}
	return out
}

// InstrumentFor maps an exchange symbol to its instrument. Unknown symbols
// resolve to the default instrument so spot lookups always have an id.
func (t Tables) InstrumentFor(symbol string) Instrument {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	var fallback Instrument
	for _, inst := range t.Instruments {
		if strings.EqualFold(inst.Symbol, sym) {
			return inst
		}
		if inst.ID == t.DefaultID {
			fallback = inst
		}
	}
	if fallback.ID == "" {
		fallback = Instrument{ID: t.DefaultID}
	}
	return fallback
}

// StaticAnchor 返回最后一级降级使用的锚定价，规则按顺序匹配。
func (t Tables) StaticAnchor(symbol string) float64 {
	sym := strings.ToUpper(symbol)
	for _, r := range t.AnchorRules {
		if strings.Contains(sym, strings.ToUpper(r.Contains)) {
			return r.Price
		}
	}
	return t.DefaultAnchor
}

// SnapshotQuotes returns a copy of the static price snapshot.
func (t Tables) SnapshotQuotes() []Quote {
	return append([]Quote(nil), t.Snapshot...)
}

// TablesProvider 提供当前生效的 Tables，文件版本支持热更新。
type TablesProvider interface {
	Tables() Tables
}

// StaticTables serves a fixed table set.
type StaticTables Tables

func (s StaticTables) Tables() Tables { return Tables(s) }
