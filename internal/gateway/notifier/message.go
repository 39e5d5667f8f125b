package notifier

import (
	"fmt"
	"strings"
	"time"

	"cryptocandles/internal/types"
)

const maxMessageLen = 3800

type Section struct {
	Title string
	Lines []string
}

// Message 是统一格式的推送内容，Sections 放进代码块里以保持对齐。
type Message struct {
	Icon      string
	Title     string
	Sections  []Section
	Footer    string
	Timestamp time.Time
}

// RenderMarkdown 生成 Telegram Markdown 文本，超长时截断。
func (m Message) RenderMarkdown() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header + "\n\n")
	}
	b.WriteString(renderSections(m.Sections))
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(escapeFence(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if r := []rune(body); len(r) > maxMessageLen {
		body = string(r[:maxMessageLen]) + "..."
	}
	return body
}

func renderSections(secs []Section) string {
	var b strings.Builder
	for _, sec := range secs {
		lines := nonEmpty(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(escapeFence(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + escapeFence(line) + "\n")
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "```\n" + b.String() + "```\n\n"
}

func nonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func escapeFence(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}

// SignalMessage 把新发布的社区信号格式化为推送消息。
func SignalMessage(sig types.Signal) Message {
	icon, side := "📈", "ALTA"
	if sig.Type == types.SignalBearish {
		icon, side = "📉", "BAIXA"
	}
	return Message{
		Icon:  icon,
		Title: fmt.Sprintf("%s %s · %s", sig.Pair, side, sig.Timeframe),
		Sections: []Section{
			{Title: "价格", Lines: []string{
				"Entry: " + sig.Entry,
				"Target: " + sig.Target,
				"Stop: " + sig.Stop,
			}},
			{Title: "发布者", Lines: []string{
				sig.Provider.Name,
				fmt.Sprintf("胜率 %.0f%% · %d 关注", sig.Provider.WinRate, sig.Provider.Followers),
			}},
		},
		Footer:    sig.Justification,
		Timestamp: sig.Timestamp,
	}
}
