package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"cryptocandles/internal/config"
)

type StartupSummary struct {
	HTTPAddr string
	Market   MarketSummary
	Store    StoreSummary
	AI       AISummary
	Backtest BacktestSummary
}

type MarketSummary struct {
	Instruments []string
	TablesPath  string
	PriceSource string
	Exchange    string
	MaxCandles  int
}

type StoreSummary struct {
	Path          string
	FollowBackend string
}

type AISummary struct {
	Enabled bool
	Model   string
	Notify  bool
}

type BacktestSummary struct {
	LatencyMillis int
	TradeSample   int
}

func buildSummary(cfg *config.Config, stack *MarketStack, aiEnabled, notifyEnabled bool) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr: cfg.App.HTTPAddr,
		Market: MarketSummary{
			TablesPath:  cfg.Market.TablesPath,
			PriceSource: cfg.Market.PriceBaseURL,
			Exchange:    cfg.Market.Exchange + " " + cfg.Market.ExchangeBaseURL,
			MaxCandles:  cfg.Market.MaxCandles,
		},
		Store:    StoreSummary{Path: cfg.Store.Path, FollowBackend: cfg.Follow.Backend},
		AI:       AISummary{Enabled: aiEnabled, Model: cfg.AI.Model, Notify: notifyEnabled},
		Backtest: BacktestSummary{LatencyMillis: cfg.Backtest.LatencyMillis, TradeSample: cfg.Backtest.TradeSample},
	}
	if stack != nil && stack.Tables != nil {
		for _, inst := range stack.Tables.Tables().Instruments {
			s.Market.Instruments = append(s.Market.Instruments, inst.Symbol)
		}
	}
	return s
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[HTTP]")
	fmt.Fprintf(w, "  监听地址: %s\n", s.HTTPAddr)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[行情 (MARKET)]")
	fmt.Fprintf(w, "  币种: %s\n", formatList(s.Market.Instruments))
	tables := s.Market.TablesPath
	if tables == "" {
		tables = "(内置)"
	}
	fmt.Fprintf(w, "  静态表: %s\n", tables)
	fmt.Fprintf(w, "  报价源: %s\n", s.Market.PriceSource)
	fmt.Fprintf(w, "  K线源: %s\n", s.Market.Exchange)
	fmt.Fprintf(w, "  最大K线数: %d\n", s.Market.MaxCandles)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[存储 (STORE)]")
	fmt.Fprintf(w, "  SQLite: %s\n", s.Store.Path)
	fmt.Fprintf(w, "  关注存储: %s\n", s.Store.FollowBackend)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[AI / 回测 / 通知]")
	if s.AI.Enabled {
		fmt.Fprintf(w, "  图表分析: 启用 (%s)\n", s.AI.Model)
	} else {
		fmt.Fprintln(w, "  图表分析: 未启用")
	}
	if s.AI.Notify {
		fmt.Fprintln(w, "  信号推送: Telegram")
	} else {
		fmt.Fprintln(w, "  信号推送: 未启用")
	}
	fmt.Fprintf(w, "  回测延迟: %dms, 样本交易: %d\n", s.Backtest.LatencyMillis, s.Backtest.TradeSample)
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
