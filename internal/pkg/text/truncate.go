package text

import "unicode/utf8"

// Truncate 按字符截断，超出部分以 "..." 结尾，不会切开多字节字符。
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}
