package pipeline

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeUTF8 strips a BOM and replaces invalid sequences.
func decodeUTF8(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	return strings.ToValidUTF8(string(raw), "�")
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
