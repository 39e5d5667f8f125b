package jsonutil

import (
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var prettyOptions = &pretty.Options{Width: 100, Indent: "  "}

// Pretty 缩进 JSON 供调试日志使用；不是合法 JSON 时原样返回。
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !gjson.Valid(raw) {
		return raw
	}
	return strings.TrimRight(string(pretty.PrettyOptions([]byte(raw), prettyOptions)), "\n")
}
